package database

import (
	"edubridge_backend/internal/config"
	"edubridge_backend/internal/model"
	"encoding/json"
	"fmt"
	"log"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})

	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	err = db.AutoMigrate(
		&model.User{},
		&model.Quiz{},
		&model.QuizQuestion{},
		&model.QuizAttemptRecord{},
	)

	if err != nil {
		return nil, err
	}

	log.Println("Database migration completed")

	// 默认示例测验（空库时插入，便于前端联调）
	var count int64
	db.Model(&model.Quiz{}).Count(&count)
	if count == 0 {
		seedSampleQuiz(db)
	}

	return db, nil
}

func seedSampleQuiz(db *gorm.DB) {
	quiz := &model.Quiz{
		Title:            "C语言基础小测",
		Description:      "指针、数组与循环的入门检测",
		TimeLimitMinutes: 10,
		IsPublished:      true,
	}
	if err := db.Create(quiz).Error; err != nil {
		log.Printf("failed to seed sample quiz: %v", err)
		return
	}

	questions := []struct {
		text    string
		options []string
		correct int
	}{
		{"int a[5]; 数组 a 的合法下标范围是？", []string{"0 到 5", "1 到 5", "0 到 4", "1 到 4"}, 2},
		{"以下哪个运算符用于取变量地址？", []string{"*", "&", "->", "#"}, 1},
		{"for (int i = 0; i < 3; i++) 循环体执行几次？", []string{"2", "3", "4", "无限次"}, 1},
	}

	for i, q := range questions {
		opts, _ := json.Marshal(q.options)
		db.Create(&model.QuizQuestion{
			QuizID:       quiz.ID,
			Text:         q.text,
			Options:      string(opts),
			CorrectIndex: q.correct,
			Order:        i,
		})
	}
}
