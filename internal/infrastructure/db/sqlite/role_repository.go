package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/99minutos/restaurant-directory/internal/core/domain"
)

// RoleRepository implements ports.RoleRepository.
type RoleRepository struct {
	db *sql.DB
}

func NewRoleRepository(db *sql.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

func (r *RoleRepository) EnsureRoles(ctx context.Context, names []string) error {
	for _, name := range domain.NormalizeRoleNames(names) {
		if _, err := r.db.ExecContext(ctx, `INSERT OR IGNORE INTO roles (name) VALUES (?)`, name); err != nil {
			return fmt.Errorf("ensure role %q: %w", name, err)
		}
	}
	return nil
}

func (r *RoleRepository) ListRoles(ctx context.Context) ([]domain.Role, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM roles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	roles := []domain.Role{}
	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("list roles: %w", err)
		}
		roles = append(roles, domain.Role{ID: strconv.FormatInt(id, 10), Name: name})
	}
	return roles, rows.Err()
}
