package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/99minutos/restaurant-directory/internal/core/domain"
)

const accountColumns = `a.id, a.name, a.email, a.password_hash, a.created_at, a.updated_at`

// AccountRepository implements ports.AccountRepository over the accounts,
// roles and role_user tables.
type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func parseID(id string) (int64, bool) {
	n, err := strconv.ParseInt(id, 10, 64)
	return n, err == nil && n > 0
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

func scanAccount(row interface{ Scan(...any) error }) (*domain.Account, error) {
	var (
		id                   int64
		a                    domain.Account
		createdAt, updatedAt int64
	)
	if err := row.Scan(&id, &a.Name, &a.Email, &a.PasswordHash, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	a.ID = strconv.FormatInt(id, 10)
	a.CreatedAt = unixToTime(createdAt)
	a.UpdatedAt = unixToTime(updatedAt)
	a.Roles = []domain.Role{}
	return &a, nil
}

func (r *AccountRepository) Create(ctx context.Context, account *domain.Account, roleNames []string) (*domain.Account, error) {
	var id int64
	err := inTx(ctx, r.db, func(tx *sql.Tx) error {
		roleIDs, err := resolveRoles(ctx, tx, roleNames)
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO accounts (name, email, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			account.Name, account.Email, account.PasswordHash, account.CreatedAt.Unix(), account.UpdatedAt.Unix(),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrAccountExists
			}
			return fmt.Errorf("insert account: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}
		return syncRoles(ctx, tx, id, roleIDs)
	})
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, strconv.FormatInt(id, 10))
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	n, ok := parseID(id)
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return r.findOne(ctx, `a.id = ?`, n)
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.findOne(ctx, `a.email = ?`, email)
}

func (r *AccountRepository) findOne(ctx context.Context, where string, arg any) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts a WHERE `+where, arg)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}

	accounts := []domain.Account{*a}
	if err := r.attachRoles(ctx, accounts); err != nil {
		return nil, err
	}
	return &accounts[0], nil
}

// Search reads one page with a window count, so the total comes back with the
// rows. Only a page past the end needs a separate count.
func (r *AccountRepository) Search(ctx context.Context, q domain.DirectoryQuery) ([]domain.Account, int64, error) {
	q = q.Normalized()
	where, args := directoryWhere(q)

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+accountColumns+`, COUNT(*) OVER () FROM accounts a WHERE `+where+` ORDER BY a.id LIMIT ? OFFSET ?`,
		append(args, q.PerPage, q.Offset())...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("search accounts: %w", err)
	}
	defer rows.Close()

	var (
		accounts = []domain.Account{}
		total    int64
	)
	for rows.Next() {
		var (
			id                   int64
			a                    domain.Account
			createdAt, updatedAt int64
		)
		if err := rows.Scan(&id, &a.Name, &a.Email, &a.PasswordHash, &createdAt, &updatedAt, &total); err != nil {
			return nil, 0, fmt.Errorf("scan account: %w", err)
		}
		a.ID = strconv.FormatInt(id, 10)
		a.CreatedAt = unixToTime(createdAt)
		a.UpdatedAt = unixToTime(updatedAt)
		a.Roles = []domain.Role{}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("search accounts: %w", err)
	}
	_ = rows.Close()

	if len(accounts) == 0 && q.Offset() > 0 {
		if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts a WHERE `+where, args...).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("count accounts: %w", err)
		}
	}

	if err := r.attachRoles(ctx, accounts); err != nil {
		return nil, 0, err
	}
	return accounts, total, nil
}

// attachRoles loads the roles of all given accounts in one query.
func (r *AccountRepository) attachRoles(ctx context.Context, accounts []domain.Account) error {
	if len(accounts) == 0 {
		return nil
	}

	index := make(map[string]int, len(accounts))
	args := make([]any, 0, len(accounts))
	for i := range accounts {
		index[accounts[i].ID] = i
		n, _ := parseID(accounts[i].ID)
		args = append(args, n)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT ru.account_id, r.id, r.name FROM role_user ru JOIN roles r ON r.id = ru.role_id
		WHERE ru.account_id IN (`+placeholders(len(args))+`) ORDER BY r.name`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("load roles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var accountID, roleID int64
		var name string
		if err := rows.Scan(&accountID, &roleID, &name); err != nil {
			return fmt.Errorf("scan role: %w", err)
		}
		i := index[strconv.FormatInt(accountID, 10)]
		accounts[i].Roles = append(accounts[i].Roles, domain.Role{ID: strconv.FormatInt(roleID, 10), Name: name})
	}
	return rows.Err()
}

func (r *AccountRepository) UpdateProfile(ctx context.Context, id, name, email string, roleNames []string) (*domain.Account, error) {
	n, ok := parseID(id)
	if !ok {
		return nil, domain.ErrAccountNotFound
	}

	err := inTx(ctx, r.db, func(tx *sql.Tx) error {
		roleIDs, err := resolveRoles(ctx, tx, roleNames)
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE accounts SET name = ?, email = ?, updated_at = ? WHERE id = ?`,
			name, email, time.Now().Unix(), n,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrAccountExists
			}
			return fmt.Errorf("update account: %w", err)
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return domain.ErrAccountNotFound
		}
		return syncRoles(ctx, tx, n, roleIDs)
	})
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

func (r *AccountRepository) SyncRoles(ctx context.Context, accountID string, roleNames []string) error {
	n, ok := parseID(accountID)
	if !ok {
		return domain.ErrAccountNotFound
	}

	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts WHERE id = ?`, n).Scan(&exists); err != nil {
			return fmt.Errorf("sync roles: %w", err)
		}
		if exists == 0 {
			return domain.ErrAccountNotFound
		}

		roleIDs, err := resolveRoles(ctx, tx, roleNames)
		if err != nil {
			return err
		}
		return syncRoles(ctx, tx, n, roleIDs)
	})
}

// syncRoles deletes memberships outside roleIDs and inserts the missing ones;
// the (account_id, role_id) primary key turns repeats into no-ops.
func syncRoles(ctx context.Context, q querier, accountID int64, roleIDs []int64) error {
	args := []any{accountID}
	stmt := `DELETE FROM role_user WHERE account_id = ?`
	if len(roleIDs) > 0 {
		stmt += ` AND role_id NOT IN (` + placeholders(len(roleIDs)) + `)`
		for _, id := range roleIDs {
			args = append(args, id)
		}
	}
	if _, err := q.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("detach roles: %w", err)
	}

	now := time.Now().Unix()
	for _, roleID := range roleIDs {
		if _, err := q.ExecContext(ctx,
			`INSERT OR IGNORE INTO role_user (account_id, role_id, created_at) VALUES (?, ?, ?)`,
			accountID, roleID, now,
		); err != nil {
			return fmt.Errorf("attach role: %w", err)
		}
	}
	return nil
}

// resolveRoles maps role names to IDs, failing with domain.ErrUnknownRole when
// any name is missing from the catalogue.
func resolveRoles(ctx context.Context, q querier, names []string) ([]int64, error) {
	names = domain.NormalizeRoleNames(names)
	if len(names) == 0 {
		return nil, nil
	}

	args := make([]any, 0, len(names))
	for _, n := range names {
		args = append(args, n)
	}
	rows, err := q.QueryContext(ctx, `SELECT id FROM roles WHERE name IN (`+placeholders(len(names))+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("resolve roles: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0, len(names))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("resolve roles: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("resolve roles: %w", err)
	}
	if len(ids) != len(names) {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnknownRole, names)
	}
	return ids, nil
}

// Delete removes the account; memberships go with it through ON DELETE CASCADE.
func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	n, ok := parseID(id)
	if !ok {
		return domain.ErrAccountNotFound
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, n)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) RoleNames(ctx context.Context, accountID string) ([]string, error) {
	n, ok := parseID(accountID)
	if !ok {
		return nil, domain.ErrAccountNotFound
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT r.name FROM role_user ru JOIN roles r ON r.id = ru.role_id WHERE ru.account_id = ? ORDER BY r.name`, n)
	if err != nil {
		return nil, fmt.Errorf("role names: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("role names: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
