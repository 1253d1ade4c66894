package advisory

import "strings"

// Prefilter rejects content containing a deny-listed keyword without any
// external call.
type Prefilter struct {
	keywords []string
}

func NewPrefilter(keywords []string) *Prefilter {
	p := &Prefilter{}
	for _, k := range keywords {
		if k = strings.TrimSpace(k); k != "" {
			p.keywords = append(p.keywords, k)
		}
	}
	return p
}

// Check returns a rejecting verdict and true when text hits the deny list.
// Matching is a case-insensitive substring test.
func (p *Prefilter) Check(text string) (Verdict, bool) {
	lower := strings.ToLower(text)
	var hits []string
	for _, k := range p.keywords {
		if strings.Contains(lower, strings.ToLower(k)) {
			hits = append(hits, k)
		}
	}
	if len(hits) == 0 {
		return Verdict{}, false
	}
	return Verdict{
		RiskLevel:      RiskCritical,
		RiskScore:      1.0,
		Recommendation: RecommendAutoReject,
		Reason:         "contains prohibited keywords",
		Flags:          hits,
	}, true
}
