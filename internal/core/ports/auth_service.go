package ports

import (
	"context"

	"github.com/99minutos/restaurant-directory/internal/core/domain"
)

// RegisterInput carries the data needed to open a new account.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*domain.Account, error)
	Login(ctx context.Context, email, password string) (string, *domain.Account, error)
}
