package repository

import (
	"context"

	"github.com/fieldline/intakeflow/internal/domain"
)

// Store persists intake sessions and the process records promotion creates.
// Postgres backs production; the in-memory variant backs tests and
// STORE_DRIVER=memory runs.
type Store interface {
	CreateSession(ctx context.Context, s *domain.IntakeSession) error
	GetSession(ctx context.Context, id string) (*domain.IntakeSession, error)
	SaveSession(ctx context.Context, s *domain.IntakeSession) error
	ListSessionsByOwner(ctx context.Context, ownerID string, limit, offset int) ([]domain.IntakeSession, error)

	// PromoteSession writes the process record, its attachment copies and the
	// session's terminal state in one atomic step.
	PromoteSession(ctx context.Context, s *domain.IntakeSession, rec *domain.ProcessRecord) error

	GetProcess(ctx context.Context, id string) (*domain.ProcessRecord, error)
}
