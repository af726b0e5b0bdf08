package ports

import (
	"context"

	"github.com/99minutos/restaurant-directory/internal/core/domain"
)

// FilterStore keeps the directory filter of each session between requests.
// Load on an unknown session returns an empty state, not an error.
type FilterStore interface {
	Load(ctx context.Context, sessionID string) (domain.FilterState, error)
	Save(ctx context.Context, sessionID string, state domain.FilterState) error
	Clear(ctx context.Context, sessionID string) error
}
