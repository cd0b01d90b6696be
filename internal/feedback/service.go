package feedback

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Recorder is the slice of the persistence layer this package needs.
type Recorder interface {
	InsertFeedback(ctx context.Context, oppID int64, action, notes string) error
	UpdateStatus(ctx context.Context, oppID int64, status string) error
}

// Service appends feedback events and applies the resulting status moves.
type Service struct {
	store Recorder
	log   *zap.Logger
}

// NewService returns a configured Service.
func NewService(store Recorder, log *zap.Logger) *Service {
	return &Service{store: store, log: log}
}

// Record appends a feedback event for the given opportunity and, when the
// action maps to a status, moves the opportunity there. The event is written
// first: the append-only log must survive even if the status update fails.
// Returns the new status, or "" when the action does not move status.
func (s *Service) Record(ctx context.Context, oppID int64, actionStr, notes string) (string, error) {
	action, err := ParseAction(actionStr)
	if err != nil {
		return "", &ValidationError{Msg: err.Error()}
	}

	if err := s.store.InsertFeedback(ctx, oppID, string(action), notes); err != nil {
		return "", fmt.Errorf("record feedback: %w", err)
	}

	status, moves := StatusFor(action)
	if !moves {
		s.log.Debug("feedback recorded without status change",
			zap.Int64("opportunityId", oppID),
			zap.String("action", string(action)))
		return "", nil
	}

	if err := s.store.UpdateStatus(ctx, oppID, status); err != nil {
		return "", fmt.Errorf("apply status %s: %w", status, err)
	}
	s.log.Info("feedback moved opportunity",
		zap.Int64("opportunityId", oppID),
		zap.String("action", string(action)),
		zap.String("status", status))
	return status, nil
}

// ValidationError wraps a user-facing validation message.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }
