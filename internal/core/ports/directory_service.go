package ports

import (
	"context"

	"github.com/99minutos/restaurant-directory/internal/core/domain"
)

// SearchDirectoryInput carries one listing request.
type SearchDirectoryInput struct {
	SessionID string
	Filter    domain.FilterInput
	Page      int
}

// AccountSummary is the lightweight view used in directory listings.
type AccountSummary struct {
	ID    string
	Name  string
	Email string
	Roles []string
}

// SearchDirectoryResult is returned by SearchDirectory.
type SearchDirectoryResult struct {
	Items      []AccountSummary
	Filter     domain.FilterState
	Transition domain.FilterTransition
	Total      int64
	Page       int
	PerPage    int
	TotalPages int
}

// UpdateAccountInput carries an administrator's edit of an account.
type UpdateAccountInput struct {
	ID    string
	Name  string
	Email string
	Roles []string
}

// DirectoryService defines the account administration use cases.
type DirectoryService interface {
	SearchDirectory(ctx context.Context, input SearchDirectoryInput) (*SearchDirectoryResult, error)
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
	UpdateAccount(ctx context.Context, input UpdateAccountInput) (*domain.Account, error)
	DeleteAccount(ctx context.Context, id string) error
	ListRoles(ctx context.Context) ([]domain.Role, error)
}
