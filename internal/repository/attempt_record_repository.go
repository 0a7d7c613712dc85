package repository

import (
	"edubridge_backend/internal/model"

	"gorm.io/gorm"
)

type AttemptRecordRepository struct {
	DB *gorm.DB
}

func NewAttemptRecordRepository(db *gorm.DB) *AttemptRecordRepository {
	return &AttemptRecordRepository{DB: db}
}

func (r *AttemptRecordRepository) Create(record *model.QuizAttemptRecord) error {
	return r.DB.Create(record).Error
}

func (r *AttemptRecordRepository) FindByID(id string) (*model.QuizAttemptRecord, error) {
	var record model.QuizAttemptRecord
	err := r.DB.First(&record, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *AttemptRecordRepository) ExistsByID(id string) (bool, error) {
	var count int64
	err := r.DB.Model(&model.QuizAttemptRecord{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// ListByQuiz returns graded submissions for a quiz with student info, for
// the teacher review surface.
func (r *AttemptRecordRepository) ListByQuiz(quizID uint, page, limit int) ([]map[string]interface{}, int64, error) {
	var total int64
	query := r.DB.Table("quiz_attempt_records a").
		Select("a.*, u.name as user_name, u.email as user_email").
		Joins("JOIN users u ON a.user_id = u.id").
		Where("a.quiz_id = ? AND a.deleted_at IS NULL", quizID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var results []map[string]interface{}
	offset := (page - 1) * limit
	err := query.Order("a.completed_at desc").Offset(offset).Limit(limit).Scan(&results).Error
	return results, total, err
}

// ListByUser returns a student's own graded attempts.
func (r *AttemptRecordRepository) ListByUser(userID uint, page, limit int) ([]model.QuizAttemptRecord, int64, error) {
	var total int64
	query := r.DB.Model(&model.QuizAttemptRecord{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var records []model.QuizAttemptRecord
	offset := (page - 1) * limit
	err := query.Order("completed_at desc").Offset(offset).Limit(limit).Find(&records).Error
	return records, total, err
}
