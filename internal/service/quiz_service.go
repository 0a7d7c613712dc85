package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"edubridge_backend/internal/attempt"
	"edubridge_backend/internal/model"
	"edubridge_backend/internal/repository"
	"edubridge_backend/internal/util"
	"edubridge_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// QuizService is the grading boundary: it serves published quiz content with
// correct answers stripped, grades frozen snapshots, and enforces the
// server-side once-per-attempt rule that the client phase gate only mirrors.
type QuizService struct {
	Quizzes *repository.QuizRepository
	Records *repository.AttemptRecordRepository
	Cache   *QuizCache
}

func NewQuizService(quizzes *repository.QuizRepository, records *repository.AttemptRecordRepository, cache *QuizCache) *QuizService {
	return &QuizService{Quizzes: quizzes, Records: records, Cache: cache}
}

// FetchQuiz implements attempt.GradingBoundary. Correct answers never leave
// this method before grading.
func (s *QuizService) FetchQuiz(ctx context.Context, quizID uint) (*attempt.QuizDefinition, error) {
	if def := s.Cache.Get(ctx, quizID); def != nil {
		return def, nil
	}

	quiz, err := s.Quizzes.FindPublishedByID(quizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuizNotFound
		}
		return nil, err
	}

	def, err := buildDefinition(quiz)
	if err != nil {
		return nil, err
	}

	s.Cache.Set(ctx, def)
	return def, nil
}

// SubmitAttempt implements attempt.GradingBoundary. The attempt record's
// primary key is the attempt ID, so a duplicate submission cannot slip past
// even if two submissions race the existence check.
func (s *QuizService) SubmitAttempt(ctx context.Context, sub attempt.AttemptSubmission) (*attempt.GradingResult, error) {
	quiz, err := s.Quizzes.FindPublishedByID(sub.QuizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuizNotFound
		}
		return nil, err
	}

	if len(sub.Snapshot.Answers) != len(quiz.Questions) {
		return nil, util.ErrAnswerCountMismatch
	}

	exists, err := s.Records.ExistsByID(sub.AttemptID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, util.ErrAttemptAlreadyGraded
	}

	score, correctAnswers := scoreAnswers(quiz.Questions, sub.Snapshot.Answers)

	answersJSON, _ := json.Marshal(sub.Snapshot.Answers)
	flaggedJSON, _ := json.Marshal(sub.Snapshot.FlaggedQuestions)
	correctJSON, _ := json.Marshal(correctAnswers)

	record := &model.QuizAttemptRecord{
		QuizID:           sub.QuizID,
		UserID:           sub.UserID,
		Score:            score,
		TotalQuestions:   len(quiz.Questions),
		Answers:          string(answersJSON),
		FlaggedQuestions: string(flaggedJSON),
		CorrectAnswers:   string(correctJSON),
		IsTimeout:        sub.TimedOut,
		CompletedAt:      time.Now(),
	}
	record.ID = sub.AttemptID

	if err := s.Records.Create(record); err != nil {
		// 主键冲突：另一条提交（超时自动提交与手动点击竞态）已落库
		if isDuplicateKeyError(err) {
			return nil, util.ErrAttemptAlreadyGraded
		}
		return nil, err
	}

	logger.Log.Info("attempt graded",
		zap.String("attemptId", sub.AttemptID),
		zap.Uint("quizId", sub.QuizID),
		zap.Uint("userId", sub.UserID),
		zap.Int("score", score),
		zap.Bool("timeout", sub.TimedOut))

	return &attempt.GradingResult{
		Score:          score,
		TotalQuestions: len(quiz.Questions),
		CorrectAnswers: correctAnswers,
	}, nil
}

// FetchResult implements attempt.GradingBoundary: the recovery path when a
// submission conflicts with one that already graded.
func (s *QuizService) FetchResult(ctx context.Context, attemptID string) (*attempt.GradingResult, error) {
	record, err := s.Records.FindByID(attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, err
	}

	var correctAnswers []int
	if err := json.Unmarshal([]byte(record.CorrectAnswers), &correctAnswers); err != nil {
		return nil, err
	}

	return &attempt.GradingResult{
		Score:          record.Score,
		TotalQuestions: record.TotalQuestions,
		CorrectAnswers: correctAnswers,
	}, nil
}

func (s *QuizService) ListQuizzes(page, limit int) ([]model.Quiz, int64, error) {
	return s.Quizzes.ListPublished(page, limit)
}

func (s *QuizService) ListSubmissions(quizID uint, page, limit int) ([]map[string]interface{}, int64, error) {
	return s.Records.ListByQuiz(quizID, page, limit)
}

func (s *QuizService) ListUserAttempts(userID uint, page, limit int) ([]model.QuizAttemptRecord, int64, error) {
	return s.Records.ListByUser(userID, page, limit)
}

// buildDefinition converts the stored quiz into the student-facing shape,
// dropping CorrectIndex.
func buildDefinition(quiz *model.Quiz) (*attempt.QuizDefinition, error) {
	questions := make([]attempt.Question, len(quiz.Questions))
	for i := range quiz.Questions {
		opts, err := quiz.Questions[i].OptionList()
		if err != nil {
			return nil, err
		}
		questions[i] = attempt.Question{
			Text:    quiz.Questions[i].Text,
			Options: opts,
		}
	}

	return &attempt.QuizDefinition{
		QuizID:           quiz.ID,
		Title:            quiz.Title,
		TimeLimitMinutes: quiz.TimeLimitMinutes,
		Questions:        questions,
	}, nil
}

// scoreAnswers counts correct selections. attempt.NoAnswer never matches, so
// unanswered slots are simply incorrect.
func scoreAnswers(questions []model.QuizQuestion, answers []int) (int, []int) {
	score := 0
	correctAnswers := make([]int, len(questions))
	for i := range questions {
		correctAnswers[i] = questions[i].CorrectIndex
		if answers[i] == questions[i].CorrectIndex {
			score++
		}
	}
	return score, correctAnswers
}

func isDuplicateKeyError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "Duplicate entry")
}
