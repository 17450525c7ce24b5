package repository

import (
	"errors"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"kada-commute/internal/models"
)

type ConsoleRepository interface {
	Append(line *models.ConsoleLine) error
	Tail(limit int) ([]models.ConsoleLine, error)
	Count() (int64, error)
	Subscribe(chatID int64) error
	Unsubscribe(chatID int64) error
	IsSubscribed(chatID int64) (bool, error)
	SetMessageID(chatID int64, messageID int) error
	Subscribers() ([]models.ConsoleSubscriber, error)
}

// GormConsoleRepository хранит строки консоли (только добавление)
// и чаты, подписанные на живую консоль
type GormConsoleRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewGormConsoleRepository(db *gorm.DB) (*GormConsoleRepository, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	// Автомиграция
	if err := db.AutoMigrate(&models.ConsoleLine{}, &models.ConsoleSubscriber{}); err != nil {
		logger.WithError(err).Error("Failed to auto-migrate console tables")
		return nil, err
	}

	logger.Info("Console repository initialized")

	return &GormConsoleRepository{
		db:     db,
		logger: logger,
	}, nil
}

func (r *GormConsoleRepository) Append(line *models.ConsoleLine) error {
	if err := r.db.Create(line).Error; err != nil {
		r.logger.WithError(err).Error("Failed to append console line")
		return err
	}
	return nil
}

// Tail возвращает последние limit строк в порядке поступления.
func (r *GormConsoleRepository) Tail(limit int) ([]models.ConsoleLine, error) {
	var lines []models.ConsoleLine
	err := r.db.Order("id DESC").Limit(limit).Find(&lines).Error
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
		lines[i], lines[j] = lines[j], lines[i]
	}
	return lines, nil
}

func (r *GormConsoleRepository) Count() (int64, error) {
	var n int64
	err := r.db.Model(&models.ConsoleLine{}).Count(&n).Error
	return n, err
}

// Subscribe подписывает чат; повторная подписка ничего не меняет.
func (r *GormConsoleRepository) Subscribe(chatID int64) error {
	sub := models.ConsoleSubscriber{ChatID: chatID}
	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "chat_id"}},
		DoNothing: true,
	}).Create(&sub)
	if result.Error != nil {
		r.logger.WithError(result.Error).WithField("chat_id", chatID).Error("Failed to subscribe chat to console")
		return result.Error
	}
	return nil
}

func (r *GormConsoleRepository) Unsubscribe(chatID int64) error {
	result := r.db.Where("chat_id = ?", chatID).Delete(&models.ConsoleSubscriber{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("чат не подписан на консоль")
	}
	return nil
}

func (r *GormConsoleRepository) IsSubscribed(chatID int64) (bool, error) {
	var sub models.ConsoleSubscriber
	result := r.db.Where("chat_id = ?", chatID).First(&sub)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if result.Error != nil {
		return false, result.Error
	}
	return true, nil
}

// SetMessageID запоминает сообщение консоли, которое редактируется в чате.
func (r *GormConsoleRepository) SetMessageID(chatID int64, messageID int) error {
	result := r.db.Model(&models.ConsoleSubscriber{}).
		Where("chat_id = ?", chatID).
		Update("message_id", messageID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("чат не подписан на консоль")
	}
	return nil
}

func (r *GormConsoleRepository) Subscribers() ([]models.ConsoleSubscriber, error) {
	var subs []models.ConsoleSubscriber
	if err := r.db.Order("id").Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}
