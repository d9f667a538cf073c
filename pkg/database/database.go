package database

import (
	"fmt"
	"quizdesk_backend/internal/config"
	"quizdesk_backend/internal/model"
	applog "quizdesk_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Models 需要自动迁移的表
var Models = []interface{}{
	&model.User{},
	&model.Quiz{},
	&model.Response{},
	&model.Lesson{},
	&model.LessonAttachment{},
	&model.LessonAnalytics{},
	&model.LessonView{},
	&model.KioskSession{},
}

func InitDB(cfg *config.DatabaseConfig, mode string) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	logLevel := logger.Warn
	if mode == "debug" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		// 唯一约束冲突统一转换为 gorm.ErrDuplicatedKey
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	applog.Log.Info("Database connection established",
		zap.String("host", cfg.Host), zap.String("db", cfg.DBName))
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models...); err != nil {
		return err
	}
	applog.Log.Info("Database migration completed", zap.Int("tables", len(Models)))
	return nil
}
