package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aussiebroadwan/roster/internal/roster/domain"
	"github.com/aussiebroadwan/roster/internal/roster/store"
)

const accountColumns = `id, username, credential, roles, display_name, email, created_at, updated_at`

type accountsRepo struct {
	q dbtx
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (domain.Account, error) {
	var (
		a                    domain.Account
		roles                string
		createdAt, updatedAt int64
	)
	err := row.Scan(
		&a.ID,
		&a.Username,
		&a.Credential,
		&roles,
		&a.DisplayName,
		&a.Email,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return domain.Account{}, err
	}

	a.Roles, err = domain.ParseRoleSet(roles)
	if err != nil {
		return domain.Account{}, fmt.Errorf("account %q: %w", a.Username, err)
	}
	a.CreatedAt = fromMillis(createdAt)
	a.UpdatedAt = fromMillis(updatedAt)
	return a, nil
}

func (r *accountsRepo) GetAccountByUsername(ctx context.Context, username string) (domain.Account, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE username = ?`,
		username,
	)
	a, err := scanAccount(row)
	if err != nil {
		return domain.Account{}, mapError(err)
	}
	return a, nil
}

func (r *accountsRepo) CreateAccount(ctx context.Context, a domain.Account) error {
	now := time.Now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO accounts (`+accountColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID,
		a.Username,
		a.Credential,
		a.Roles.String(),
		a.DisplayName,
		a.Email,
		toMillis(a.CreatedAt),
		toMillis(now),
	)
	return mapError(err)
}

func (r *accountsRepo) UpdateCredential(ctx context.Context, username string, credential string) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE accounts SET credential = ?, updated_at = ? WHERE username = ?`,
		credential, toMillis(time.Now()), username,
	)
	return expectOneRow(res, err)
}

func (r *accountsRepo) UpdateRoles(ctx context.Context, username string, roles domain.RoleSet) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE accounts SET roles = ?, updated_at = ? WHERE username = ?`,
		roles.String(), toMillis(time.Now()), username,
	)
	return expectOneRow(res, err)
}

func (r *accountsRepo) DeleteAccount(ctx context.Context, username string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM accounts WHERE username = ?`, username)
	return expectOneRow(res, err)
}

func (r *accountsRepo) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY username`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, mapError(err)
		}
		accounts = append(accounts, a)
	}
	return accounts, mapError(rows.Err())
}

func (r *accountsRepo) ListUsernames(ctx context.Context) ([]string, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT username FROM accounts ORDER BY username`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var usernames []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, mapError(err)
		}
		usernames = append(usernames, u)
	}
	return usernames, mapError(rows.Err())
}

// CountWithRole matches whole entries of the comma-joined list so "admin"
// never matches a longer role name that happens to contain it.
func (r *accountsRepo) CountWithRole(ctx context.Context, role domain.Role) (int, error) {
	var count int
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM accounts WHERE ',' || roles || ',' LIKE '%,' || ? || ',%'`,
		string(role),
	).Scan(&count)
	if err != nil {
		return 0, mapError(err)
	}
	return count, nil
}

func (r *accountsRepo) IsEmpty(ctx context.Context) (bool, error) {
	var count int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&count); err != nil {
		return false, mapError(err)
	}
	return count == 0, nil
}

func expectOneRow(res sql.Result, err error) error {
	if err != nil {
		return mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapError(err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
