package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Skill is a tag from the fixed skill vocabulary.
type Skill string

const (
	SkillMoving         Skill = "moving"
	SkillComputerRepair Skill = "computer_repair"
	SkillPhotography    Skill = "photography"
	SkillDesign         Skill = "design"
	SkillTutoring       Skill = "tutoring"
	SkillProgramming    Skill = "programming"
	SkillTranslation    Skill = "translation"
	SkillErrands        Skill = "errands"
	SkillEventSupport   Skill = "event_support"
	SkillVideoEditing   Skill = "video_editing"
	SkillDataAnalysis   Skill = "data_analysis"
)

// Vocabulary is the closed set of skill tags a member may declare.
var Vocabulary = []Skill{
	SkillMoving,
	SkillComputerRepair,
	SkillPhotography,
	SkillDesign,
	SkillTutoring,
	SkillProgramming,
	SkillTranslation,
	SkillErrands,
	SkillEventSupport,
	SkillVideoEditing,
	SkillDataAnalysis,
}

func (s Skill) Valid() bool {
	for _, known := range Vocabulary {
		if s == known {
			return true
		}
	}
	return false
}

// SkillSet is an unordered set of skills. The zero value is an empty set.
type SkillSet map[Skill]struct{}

func NewSkillSet(skills ...Skill) SkillSet {
	set := make(SkillSet, len(skills))
	for _, s := range skills {
		set[s] = struct{}{}
	}
	return set
}

// ParseSkills normalizes raw tags and rejects anything outside the vocabulary.
func ParseSkills(raw []string) (SkillSet, error) {
	set := make(SkillSet, len(raw))
	for _, r := range raw {
		s := Skill(strings.ToLower(strings.TrimSpace(r)))
		if s == "" {
			continue
		}
		if !s.Valid() {
			return nil, fmt.Errorf("unknown skill %q", r)
		}
		set[s] = struct{}{}
	}
	return set, nil
}

func (s SkillSet) Has(skill Skill) bool {
	_, ok := s[skill]
	return ok
}

func (s SkillSet) Add(skill Skill) {
	s[skill] = struct{}{}
}

// Intersect returns how many skills both sets share.
func (s SkillSet) Intersect(other SkillSet) int {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	n := 0
	for skill := range small {
		if large.Has(skill) {
			n++
		}
	}
	return n
}

// Sorted returns the skills in lexical order.
func (s SkillSet) Sorted() []Skill {
	out := make([]Skill, 0, len(s))
	for skill := range s {
		out = append(out, skill)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s SkillSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *SkillSet) UnmarshalJSON(data []byte) error {
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	set, err := ParseSkills(raw)
	if err != nil {
		return err
	}
	*s = set
	return nil
}
