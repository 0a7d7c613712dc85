package model

import "time"

// QuizAttemptRecord 存储一次测验提交的评分结果（服务端幂等的依据）
type QuizAttemptRecord struct {
	UUIDBase

	QuizID           uint      `gorm:"index;type:bigint unsigned" json:"quizId"`
	UserID           uint      `gorm:"index;type:bigint unsigned" json:"userId"`
	Score            int       `gorm:"not null" json:"score"`
	TotalQuestions   int       `gorm:"not null" json:"totalQuestions"`
	Answers          string    `gorm:"type:json" json:"answers"`          // 学生答案（JSON array，-1 表示未作答）
	FlaggedQuestions string    `gorm:"type:json" json:"flaggedQuestions"` // 标记的题目下标（JSON array）
	CorrectAnswers   string    `gorm:"type:json" json:"-"`                // 正确答案快照，用于重复提交时取回结果
	IsTimeout        bool      `gorm:"default:false" json:"isTimeout"`
	CompletedAt      time.Time `json:"completedAt"`
}

func (QuizAttemptRecord) TableName() string {
	return "quiz_attempt_records"
}
