package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/99minutos/restaurant-directory/internal/core/domain"
	"github.com/99minutos/restaurant-directory/internal/core/ports"
)

// DirectoryService implements the administrator's account directory: the
// session-backed search listing plus account show, edit and delete.
type DirectoryService struct {
	accounts  ports.AccountRepository
	roles     ports.RoleRepository
	filters   ports.FilterStore
	roleMatch domain.RoleMatch
	logger    zerolog.Logger
}

func NewDirectoryService(
	accounts ports.AccountRepository,
	roles ports.RoleRepository,
	filters ports.FilterStore,
	roleMatch domain.RoleMatch,
	logger zerolog.Logger,
) *DirectoryService {
	if roleMatch == "" {
		roleMatch = domain.RoleMatchAny
	}
	return &DirectoryService{
		accounts:  accounts,
		roles:     roles,
		filters:   filters,
		roleMatch: roleMatch,
		logger:    logger,
	}
}

// SearchDirectory resolves the effective filter against the session's stored
// state, persists the outcome and returns one page of matching accounts.
//
// Filter store failures never fail the listing: a failed load behaves like an
// empty session and a failed write only loses the remembered filter.
func (s *DirectoryService) SearchDirectory(ctx context.Context, input ports.SearchDirectoryInput) (*ports.SearchDirectoryResult, error) {
	stored := s.loadFilter(ctx, input.SessionID)

	transition, effective := domain.ResolveFilter(stored, input.Filter)
	s.applyTransition(ctx, input.SessionID, transition, effective)

	q := domain.DirectoryQuery{
		Search:    effective.Search,
		Roles:     effective.Roles,
		RoleMatch: s.roleMatch,
		Page:      input.Page,
	}.Normalized()

	accounts, total, err := s.accounts.Search(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search directory: %w", err)
	}

	items := make([]ports.AccountSummary, 0, len(accounts))
	for i := range accounts {
		items = append(items, ports.AccountSummary{
			ID:    accounts[i].ID,
			Name:  accounts[i].Name,
			Email: accounts[i].Email,
			Roles: accounts[i].RoleNames(),
		})
	}

	s.logger.Debug().
		Str("session", input.SessionID).
		Str("transition", transition.String()).
		Str("search", effective.Search).
		Strs("roles", effective.Roles).
		Int64("total", total).
		Msg("directory searched")

	return &ports.SearchDirectoryResult{
		Items:      items,
		Filter:     effective,
		Transition: transition,
		Total:      total,
		Page:       q.Page,
		PerPage:    q.PerPage,
		TotalPages: totalPages(total, q.PerPage),
	}, nil
}

func (s *DirectoryService) loadFilter(ctx context.Context, sessionID string) domain.FilterState {
	if sessionID == "" {
		return domain.FilterState{}
	}
	state, err := s.filters.Load(ctx, sessionID)
	if err != nil {
		s.logger.Warn().Err(err).Str("session", sessionID).Msg("filter load failed, using empty filter")
		return domain.FilterState{}
	}
	return state
}

func (s *DirectoryService) applyTransition(ctx context.Context, sessionID string, t domain.FilterTransition, effective domain.FilterState) {
	if sessionID == "" {
		return
	}

	var err error
	switch t {
	case domain.FilterReplaced:
		err = s.filters.Save(ctx, sessionID, effective)
	case domain.FilterCleared:
		err = s.filters.Clear(ctx, sessionID)
	default:
		return
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("session", sessionID).Str("transition", t.String()).Msg("filter write failed")
	}
}

func totalPages(total int64, perPage int) int {
	if total == 0 || perPage <= 0 {
		return 0
	}
	return int((total + int64(perPage) - 1) / int64(perPage))
}

// GetAccount returns the account with its roles.
func (s *DirectoryService) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	return s.accounts.FindByID(ctx, id)
}

// UpdateAccount changes name and email and replaces the account's role set.
// At least one role must be selected.
func (s *DirectoryService) UpdateAccount(ctx context.Context, input ports.UpdateAccountInput) (*domain.Account, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.TrimSpace(input.Email)
	roles := domain.NormalizeRoleNames(input.Roles)
	if name == "" || email == "" || len(roles) == 0 {
		return nil, fmt.Errorf("update account: %w", domain.ErrInvalidInput)
	}

	account, err := s.accounts.UpdateProfile(ctx, input.ID, name, email, roles)
	if err != nil {
		return nil, fmt.Errorf("update account: %w", err)
	}

	s.logger.Info().Str("account_id", account.ID).Strs("roles", roles).Msg("account updated")
	return account, nil
}

// DeleteAccount removes the account together with its memberships.
func (s *DirectoryService) DeleteAccount(ctx context.Context, id string) error {
	if err := s.accounts.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	s.logger.Info().Str("account_id", id).Msg("account deleted")
	return nil
}

func (s *DirectoryService) ListRoles(ctx context.Context) ([]domain.Role, error) {
	return s.roles.ListRoles(ctx)
}
