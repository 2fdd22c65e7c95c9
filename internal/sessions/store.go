// Package sessions implements the Session Store: create/get/list/delete
// plus the mutation operations the Agent Runner uses to advance a
// session through a turn, with per-session write serialization and
// write-through persistence (spec §4.C).
package sessions

import (
	"context"

	"github.com/galinilin/docgemma-connect/pkg/models"
)

// Store is the Session Store's operation set (spec §4.C).
type Store interface {
	Create(ctx context.Context) (*models.Session, error)
	Get(ctx context.Context, id string) (*models.Session, error)
	List(ctx context.Context) ([]*models.Session, error)
	Delete(ctx context.Context, id string) error

	AppendMessage(ctx context.Context, id string, msg models.Message) error
	SetPendingApproval(ctx context.Context, id string, pa models.PendingApproval) error
	ClearPendingApproval(ctx context.Context, id string) error

	// ResetForNewTurn transitions a session to processing ahead of a new
	// turn, clearing any stale pending-approval left over from a
	// previous, cancelled turn.
	ResetForNewTurn(ctx context.Context, id string) error

	// SetStatus sets the session's lifecycle status directly, used by
	// the Agent Runner to return a session to idle (or mark it error)
	// at turn boundaries.
	SetStatus(ctx context.Context, id string, status models.SessionStatus) error

	// SetPatientHint persists the session's patient-selection hint.
	SetPatientHint(ctx context.Context, id string, hint string) error
}

// ErrNotFound is returned by Get/Delete/mutation operations when no
// session exists under the given id.
var ErrNotFound = notFoundError{}

type notFoundError struct{}

func (notFoundError) Error() string { return "sessions: not found" }
