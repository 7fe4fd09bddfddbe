package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/MattPM-ai/matt-git-review-sub002/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Store struct {
	db *gorm.DB
}

func New(driver, dsn string) (*Store, error) {
	dialector, err := dialectorFor(driver, dsn)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	// Auto migrate
	if err := db.AutoMigrate(
		&models.User{},
		&models.AuditLog{},
	); err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

// Health checks database connectivity
func (s *Store) Health() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// User operations

func (s *Store) GetUserByID(id string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *Store) GetUserByLogin(login string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("login = ?", login).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// CountUsersByAuthSource returns the number of known users for one auth source
func (s *Store) CountUsersByAuthSource(authSource string) (int64, error) {
	var count int64
	err := s.db.Model(&models.User{}).Where("auth_source = ?", authSource).Count(&count).Error
	return count, err
}

// UpsertExternalUser creates or updates a user materialized from an external
// identity (GitHub OAuth or an organization token). Users are matched by
// external ID and auth source; the display projection is refreshed on every
// sign-in.
func (s *Store) UpsertExternalUser(u *models.User) (*models.User, error) {
	var user models.User
	err := s.db.Where("external_id = ? AND auth_source = ?", u.ExternalID, u.AuthSource).
		First(&user).
		Error

	if err == nil {
		// User exists - check for a login handover before updating
		if user.Login != u.Login {
			var conflicting models.User
			conflictErr := s.db.Where("login = ? AND id != ?", u.Login, user.ID).
				First(&conflicting).
				Error
			if conflictErr == nil {
				return nil, ErrLoginConflict
			}
			if !errors.Is(conflictErr, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("failed to check login: %w", conflictErr)
			}
		}

		user.Login = u.Login
		user.Name = u.Name
		user.AvatarURL = u.AvatarURL
		user.HTMLURL = u.HTMLURL
		user.Organization = u.Organization
		user.LastSeenAt = time.Now()
		if err := s.db.Save(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to update external user: %w", err)
		}
		return &user, nil
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to query external user: %w", err)
	}

	// New user - verify the login is free
	var existing models.User
	err = s.db.Where("login = ?", u.Login).First(&existing).Error
	if err == nil {
		return nil, ErrLoginConflict
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check login: %w", err)
	}

	user = *u
	user.ID = uuid.New().String()
	user.LastSeenAt = time.Now()
	if err := s.db.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create external user: %w", err)
	}
	return &user, nil
}

// Audit log operations

// CreateAuditLogs inserts a batch of audit log entries
func (s *Store) CreateAuditLogs(logs []*models.AuditLog) error {
	if len(logs) == 0 {
		return nil
	}
	return s.db.Create(logs).Error
}

// ListAuditLogs returns the most recent audit log entries, newest first
func (s *Store) ListAuditLogs(limit int) ([]models.AuditLog, error) {
	if limit <= 0 {
		limit = 100
	}
	var logs []models.AuditLog
	if err := s.db.Order("event_time DESC").Limit(limit).Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// DeleteAuditLogsBefore removes audit logs older than the cutoff and returns
// the number of rows deleted
func (s *Store) DeleteAuditLogsBefore(cutoff time.Time) (int64, error) {
	result := s.db.Where("event_time < ?", cutoff).Delete(&models.AuditLog{})
	return result.RowsAffected, result.Error
}
