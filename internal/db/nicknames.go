package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the Postgres error code for a unique-constraint breach.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// NicknameTaken reports whether any profile currently holds name. Used only
// for the non-binding suggestions path; reservation never goes through here.
func (d *DB) NicknameTaken(ctx context.Context, name string) (bool, error) {
	var taken bool
	err := d.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM profiles WHERE nickname = $1)`, name).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("nickname taken: %w", err)
	}
	return taken, nil
}

// ReserveNickname records name in the reservation ledger if it is absent.
// The insert and the availability check are one statement, so two concurrent
// callers can never both win.
func (d *DB) ReserveNickname(ctx context.Context, name string) (bool, error) {
	tag, err := d.Pool.Exec(ctx,
		`INSERT INTO nicknames (nickname) VALUES ($1) ON CONFLICT (nickname) DO NOTHING`, name)
	if err != nil {
		return false, fmt.Errorf("reserve nickname: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ClaimNickname assigns name to the given profile unless another profile
// holds it. The guard subquery plus the unique index on profiles.nickname
// make the claim a single conditional write; a concurrent claimer that
// slips between the guard and the index shows up as a unique violation,
// which is a conflict, not a fault.
func (d *DB) ClaimNickname(ctx context.Context, telegramID int64, name string) (bool, error) {
	tag, err := d.Pool.Exec(ctx, `
UPDATE profiles SET nickname = $2, updated_at = now()
WHERE telegram_id = $1
  AND NOT EXISTS (SELECT 1 FROM profiles WHERE nickname = $2 AND telegram_id <> $1)`,
		telegramID, name)
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("claim nickname: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
