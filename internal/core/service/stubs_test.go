package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/99minutos/restaurant-directory/internal/core/domain"
)

var discardLogger = zerolog.Nop()

// ---------------------------------------------------------------------------
// In-memory account repository
// ---------------------------------------------------------------------------

type stubAccountRepo struct {
	accounts  []*domain.Account // insertion order
	roles     map[string]domain.Role
	searchErr error
	lastQuery domain.DirectoryQuery
	nextID    int
}

func newStubAccountRepo() *stubAccountRepo {
	r := &stubAccountRepo{roles: make(map[string]domain.Role)}
	for i, name := range domain.DefaultRoles {
		r.roles[name] = domain.Role{ID: fmt.Sprintf("r%d", i+1), Name: name}
	}
	return r
}

func cloneAccount(a *domain.Account) *domain.Account {
	if a == nil {
		return nil
	}
	clone := *a
	clone.Roles = append([]domain.Role(nil), a.Roles...)
	return &clone
}

func (r *stubAccountRepo) resolve(names []string) ([]domain.Role, error) {
	out := make([]domain.Role, 0, len(names))
	for _, n := range domain.NormalizeRoleNames(names) {
		role, ok := r.roles[n]
		if !ok {
			return nil, domain.ErrUnknownRole
		}
		out = append(out, role)
	}
	return out, nil
}

func (r *stubAccountRepo) seed(name, email string, roles ...string) *domain.Account {
	a, err := r.Create(context.Background(), &domain.Account{Name: name, Email: email}, roles)
	if err != nil {
		panic(err)
	}
	return a
}

func (r *stubAccountRepo) Create(_ context.Context, a *domain.Account, roleNames []string) (*domain.Account, error) {
	for _, existing := range r.accounts {
		if existing.Email == a.Email {
			return nil, domain.ErrAccountExists
		}
	}
	roles, err := r.resolve(roleNames)
	if err != nil {
		return nil, err
	}
	r.nextID++
	stored := cloneAccount(a)
	stored.ID = fmt.Sprintf("%04d", r.nextID)
	stored.Roles = roles
	r.accounts = append(r.accounts, stored)
	return cloneAccount(stored), nil
}

func (r *stubAccountRepo) find(id string) (int, *domain.Account) {
	for i, a := range r.accounts {
		if a.ID == id {
			return i, a
		}
	}
	return -1, nil
}

func (r *stubAccountRepo) FindByID(_ context.Context, id string) (*domain.Account, error) {
	if _, a := r.find(id); a != nil {
		return cloneAccount(a), nil
	}
	return nil, domain.ErrAccountNotFound
}

func (r *stubAccountRepo) FindByEmail(_ context.Context, email string) (*domain.Account, error) {
	for _, a := range r.accounts {
		if a.Email == email {
			return cloneAccount(a), nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

// Search applies the same predicates the real stores build.
func (r *stubAccountRepo) Search(_ context.Context, q domain.DirectoryQuery) ([]domain.Account, int64, error) {
	r.lastQuery = q
	if r.searchErr != nil {
		return nil, 0, r.searchErr
	}

	var matched []domain.Account
	for _, a := range r.accounts {
		if q.Search != "" {
			term := strings.ToLower(q.Search)
			if !strings.Contains(strings.ToLower(a.Name), term) && !strings.Contains(strings.ToLower(a.Email), term) {
				continue
			}
		}
		if len(q.Roles) > 0 && !roleFilterMatches(a.RoleNames(), q.Roles, q.RoleMatch) {
			continue
		}
		matched = append(matched, *cloneAccount(a))
	}

	total := int64(len(matched))
	skip := q.Offset()
	if skip > len(matched) {
		return []domain.Account{}, total, nil
	}
	end := skip + q.PerPage
	if end > len(matched) {
		end = len(matched)
	}
	return matched[skip:end], total, nil
}

func roleFilterMatches(held, selected []string, match domain.RoleMatch) bool {
	hits := 0
	for _, s := range selected {
		for _, h := range held {
			if h == s {
				hits++
				break
			}
		}
	}
	if match == domain.RoleMatchAll {
		return hits == len(selected)
	}
	return hits > 0
}

func (r *stubAccountRepo) UpdateProfile(ctx context.Context, id, name, email string, roleNames []string) (*domain.Account, error) {
	_, a := r.find(id)
	if a == nil {
		return nil, domain.ErrAccountNotFound
	}
	if err := r.SyncRoles(ctx, id, roleNames); err != nil {
		return nil, err
	}
	a.Name, a.Email = name, email
	return cloneAccount(a), nil
}

func (r *stubAccountRepo) SyncRoles(_ context.Context, id string, roleNames []string) error {
	_, a := r.find(id)
	if a == nil {
		return domain.ErrAccountNotFound
	}
	roles, err := r.resolve(roleNames)
	if err != nil {
		return err
	}
	a.Roles = roles
	return nil
}

func (r *stubAccountRepo) Delete(_ context.Context, id string) error {
	i, a := r.find(id)
	if a == nil {
		return domain.ErrAccountNotFound
	}
	r.accounts = append(r.accounts[:i], r.accounts[i+1:]...)
	return nil
}

func (r *stubAccountRepo) RoleNames(_ context.Context, id string) ([]string, error) {
	_, a := r.find(id)
	if a == nil {
		return nil, domain.ErrAccountNotFound
	}
	return a.RoleNames(), nil
}

func (r *stubAccountRepo) EnsureRoles(_ context.Context, names []string) error {
	for _, n := range names {
		if _, ok := r.roles[n]; !ok {
			r.roles[n] = domain.Role{ID: "r-" + n, Name: n}
		}
	}
	return nil
}

func (r *stubAccountRepo) ListRoles(_ context.Context) ([]domain.Role, error) {
	out := make([]domain.Role, 0, len(r.roles))
	for _, role := range r.roles {
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ---------------------------------------------------------------------------
// In-memory filter store
// ---------------------------------------------------------------------------

type stubFilterStore struct {
	states  map[string]domain.FilterState
	loadErr error
	saveErr error
	saves   int
	clears  int
}

func newStubFilterStore() *stubFilterStore {
	return &stubFilterStore{states: make(map[string]domain.FilterState)}
}

func (s *stubFilterStore) Load(_ context.Context, id string) (domain.FilterState, error) {
	if s.loadErr != nil {
		return domain.FilterState{}, s.loadErr
	}
	return s.states[id], nil
}

func (s *stubFilterStore) Save(_ context.Context, id string, state domain.FilterState) error {
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.states[id] = state
	return nil
}

func (s *stubFilterStore) Clear(_ context.Context, id string) error {
	s.clears++
	delete(s.states, id)
	return nil
}

var errStoreDown = errors.New("store unavailable")
