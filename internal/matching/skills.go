package matching

import (
	"strings"

	"github.com/ldi/campushelp/pkg/models"
)

// skillKeywords maps each skill to substrings that imply it when found in a
// task title or description. A single hit is enough.
var skillKeywords = map[models.Skill][]string{
	models.SkillMoving:         {"搬", "行李", "家具", "move", "moving", "carry", "luggage", "furniture"},
	models.SkillComputerRepair: {"電腦", "修理", "維修", "重灌", "laptop", "computer", "repair", "reinstall"},
	models.SkillPhotography:    {"攝影", "拍照", "相機", "照片", "photo", "camera"},
	models.SkillDesign:         {"設計", "photoshop", "美編", "排版", "design", "poster", "layout"},
	models.SkillTutoring:       {"教", "解題", "輔導", "家教", "tutor", "teach", "homework help", "explain"},
	models.SkillProgramming:    {"程式", "python", "coding", "寫程式", "program", "code"},
	models.SkillTranslation:    {"翻譯", "英文", "日文", "translat", "english", "japanese"},
	models.SkillErrands:        {"代購", "買", "送", "errand", "buy", "deliver", "pick up"},
	models.SkillEventSupport:   {"活動", "晚會", "event", "booth", "usher"},
	models.SkillVideoEditing:   {"剪輯", "影片", "video", "edit footage"},
	models.SkillDataAnalysis:   {"數據", "統計", "data analysis", "statistics", "spreadsheet", "excel"},
}

// categorySkills are the skills every task in a category is assumed to need.
var categorySkills = map[models.Category][]models.Skill{
	models.CategoryDailySupport:  {models.SkillMoving, models.SkillErrands},
	models.CategoryStudyHelp:     {models.SkillTutoring},
	models.CategoryCampusAssist:  {models.SkillPhotography, models.SkillEventSupport},
	models.CategorySkillExchange: {models.SkillDesign, models.SkillProgramming},
}

// RequiredSkills infers the skills a task needs from its text and category.
func RequiredSkills(t *models.Task) models.SkillSet {
	required := models.NewSkillSet(categorySkills[t.Category]...)
	text := strings.ToLower(t.Title + " " + t.Description)
	for skill, keywords := range skillKeywords {
		for _, k := range keywords {
			if strings.Contains(text, k) {
				required.Add(skill)
				break
			}
		}
	}
	return required
}
