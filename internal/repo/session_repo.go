package repo

import (
	"context"
	"errors"

	"github.com/cafe/cafe/internal/cafe"
	"github.com/cafe/cafe/internal/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SessionRepository persists the form state of browser sessions
type SessionRepository struct {
	db  *db.DB
	log *zap.Logger
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(database *db.DB, logger *zap.Logger) *SessionRepository {
	return &SessionRepository{
		db:  database,
		log: logger,
	}
}

// LoadFormState returns the form state of a session. Unknown sessions start
// with an empty name and a zero price.
func (r *SessionRepository) LoadFormState(ctx context.Context, sessionID string) (cafe.FormState, error) {
	var session db.Session
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return cafe.FormState{}, nil
		}
		r.log.Error("Failed to load session", zap.String("session_id", sessionID), zap.Error(err))
		return cafe.FormState{}, err
	}

	return cafe.FormState{
		PendingName:  session.PendingName,
		PendingPrice: session.PendingPrice,
	}, nil
}

// SaveFormState writes both form fields of a session at once.
func (r *SessionRepository) SaveFormState(ctx context.Context, sessionID string, state cafe.FormState) error {
	session := db.Session{
		ID:           sessionID,
		PendingName:  state.PendingName,
		PendingPrice: state.PendingPrice,
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"pending_name", "pending_price", "updated_at"}),
	}).Create(&session).Error
	if err != nil {
		r.log.Error("Failed to save session", zap.String("session_id", sessionID), zap.Error(err))
		return err
	}

	return nil
}
