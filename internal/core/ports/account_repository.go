package ports

import (
	"context"

	"github.com/99minutos/restaurant-directory/internal/core/domain"
)

// AccountRepository defines persistence operations for accounts and their
// role memberships.
type AccountRepository interface {
	// Create inserts the account and attaches roleNames. Unknown role names
	// yield domain.ErrUnknownRole, a taken email domain.ErrAccountExists.
	Create(ctx context.Context, account *domain.Account, roleNames []string) (*domain.Account, error)
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	// Search returns one page of accounts matching q and the total match count.
	// Role names that do not exist simply match nothing.
	Search(ctx context.Context, q domain.DirectoryQuery) ([]domain.Account, int64, error)
	// UpdateProfile sets name and email and replaces the role set in a single
	// unit of work.
	UpdateProfile(ctx context.Context, id, name, email string, roleNames []string) (*domain.Account, error)
	// SyncRoles replaces the account's memberships with exactly roleNames,
	// never leaving duplicate or stale (account, role) pairs.
	SyncRoles(ctx context.Context, accountID string, roleNames []string) error
	Delete(ctx context.Context, id string) error
	// RoleNames returns the names of the roles the account currently holds.
	RoleNames(ctx context.Context, accountID string) ([]string, error)
}

// RoleRepository manages the flat role catalogue.
type RoleRepository interface {
	// EnsureRoles inserts any of names that do not exist yet.
	EnsureRoles(ctx context.Context, names []string) error
	ListRoles(ctx context.Context) ([]domain.Role, error)
}
