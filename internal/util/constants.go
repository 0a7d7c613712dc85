package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

// 成绩档位（含下界）
const (
	PassThreshold      = 70
	NeedsWorkThreshold = 40
)

const (
	OutcomePass      = "pass"
	OutcomeNeedsWork = "needs_work"
	OutcomeFail      = "fail"
)
