package history

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"

	"github.com/uslanozan/Gollama-the-Navigator/models"
)

// InitDB creates the database named in dsn if missing, connects and migrates the message table.
func InitDB(dsn string, log *zap.Logger) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("DB_DSN is empty")
	}

	if rootDSN, dbName, ok := splitDSN(dsn); ok {
		tempDB, err := gorm.Open(mysql.Open(rootDSN), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
		if err == nil {
			log.Info("ensuring database exists", zap.String("database", dbName))
			if err := tempDB.Exec("CREATE DATABASE IF NOT EXISTS `" + dbName + "` CHARACTER SET utf8mb4 COLLATE utf8mb4_unicode_ci").Error; err != nil {
				log.Warn("create database failed", zap.String("database", dbName), zap.Error(err))
			}
			if sqlDB, err := tempDB.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("mysql connect: %w", err)
	}

	if err := db.AutoMigrate(&models.Message{}); err != nil {
		return nil, fmt.Errorf("migrate message table: %w", err)
	}
	log.Info("history database ready")
	return db, nil
}

// splitDSN turns "user:pass@tcp(addr)/name?params" into a DSN without the
// database name, plus the name. Names with backticks are refused.
func splitDSN(dsn string) (rootDSN, dbName string, ok bool) {
	slash := strings.LastIndex(dsn, "/")
	if slash < 0 {
		return "", "", false
	}
	rest := dsn[slash+1:]
	params := ""
	if q := strings.Index(rest, "?"); q >= 0 {
		params = rest[q:]
		rest = rest[:q]
	}
	if rest == "" || strings.ContainsAny(rest, "` ") {
		return "", "", false
	}
	return dsn[:slash+1] + params, rest, true
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Load(ctx context.Context, sessionID string) ([]models.Message, error) {
	var msgs []models.Message
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at asc, id asc").
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	return msgs, nil
}

func (s *GormStore) Append(ctx context.Context, sessionID string, msgs ...models.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	rows := make([]models.Message, len(msgs))
	for i, m := range msgs {
		m.ID = 0
		m.SessionID = sessionID
		rows[i] = m
	}
	if err := s.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("append session %s: %w", sessionID, err)
	}
	return nil
}
