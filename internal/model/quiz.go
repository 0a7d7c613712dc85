package model

import "encoding/json"

// swagger:model Quiz
type Quiz struct {
	BaseModel

	Title            string `gorm:"size:200;not null" json:"title"`
	Description      string `gorm:"type:text" json:"description"`
	TimeLimitMinutes int    `gorm:"not null" json:"timeLimitMinutes"`
	IsPublished      bool   `gorm:"default:false;index" json:"isPublished"`

	Questions []QuizQuestion `gorm:"foreignKey:QuizID" json:"questions,omitempty"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// swagger:model QuizQuestion
type QuizQuestion struct {
	BaseModel

	QuizID       uint   `gorm:"index;type:bigint unsigned" json:"quizId"`
	Text         string `gorm:"type:text" json:"text"`
	Options      string `gorm:"type:json" json:"options"` // 选项（JSON array，固定4个）
	CorrectIndex int    `gorm:"not null" json:"-"`        // 正确选项下标，评分前不下发给学生
	Order        int    `gorm:"default:0" json:"order"`
}

func (QuizQuestion) TableName() string {
	return "quiz_questions"
}

// OptionList decodes the JSON options column.
func (q *QuizQuestion) OptionList() ([]string, error) {
	var opts []string
	if err := json.Unmarshal([]byte(q.Options), &opts); err != nil {
		return nil, err
	}
	return opts, nil
}
