package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aussiebroadwan/roster/internal/roster/domain"
)

const invitationColumns = `code, used, roles, created_by, used_by, created_at, used_at`

type invitationsRepo struct {
	q dbtx
}

func scanInvitation(row rowScanner) (domain.Invitation, error) {
	var (
		inv       domain.Invitation
		roles     string
		usedBy    sql.NullString
		createdAt int64
		usedAt    sql.NullInt64
	)
	err := row.Scan(&inv.Code, &inv.Used, &roles, &inv.CreatedBy, &usedBy, &createdAt, &usedAt)
	if err != nil {
		return domain.Invitation{}, err
	}

	inv.Roles, err = domain.ParseRoleSet(roles)
	if err != nil {
		return domain.Invitation{}, fmt.Errorf("invitation %q: %w", inv.Code, err)
	}
	inv.UsedBy = mapNullString(usedBy)
	inv.CreatedAt = fromMillis(createdAt)
	inv.UsedAt = mapNullMillis(usedAt)
	return inv, nil
}

func (r *invitationsRepo) CreateInvitation(ctx context.Context, inv domain.Invitation) error {
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now()
	}
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO invitation_codes (code, used, roles, created_by, created_at) VALUES (?, FALSE, ?, ?, ?)`,
		inv.Code,
		inv.Roles.String(),
		inv.CreatedBy,
		toMillis(inv.CreatedAt),
	)
	return mapError(err)
}

func (r *invitationsRepo) GetInvitation(ctx context.Context, code string) (domain.Invitation, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+invitationColumns+` FROM invitation_codes WHERE code = ?`,
		code,
	)
	inv, err := scanInvitation(row)
	if err != nil {
		return domain.Invitation{}, mapError(err)
	}
	return inv, nil
}

func (r *invitationsRepo) GetUnusedInvitation(ctx context.Context, code string) (domain.Invitation, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+invitationColumns+` FROM invitation_codes WHERE code = ? AND used = FALSE`,
		code,
	)
	inv, err := scanInvitation(row)
	if err != nil {
		return domain.Invitation{}, mapError(err)
	}
	return inv, nil
}

func (r *invitationsRepo) MarkInvitationUsed(ctx context.Context, code string, usedBy string) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE invitation_codes SET used = TRUE, used_by = ?, used_at = ? WHERE code = ? AND used = FALSE`,
		mapStringNull(usedBy),
		toMillis(time.Now()),
		code,
	)
	return expectOneRow(res, err)
}
