package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const waiterColumns = `id, name, email, password_hash, role, active, last_login_at, created_at`

func scanWaiter(row pgx.Row) (WaiterUser, error) {
	var u WaiterUser
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role,
		&u.Active, &u.LastLoginAt, &u.CreatedAt)
	return u, err
}

const getWaiterByEmail = `
SELECT ` + waiterColumns + ` FROM waiter_users WHERE email = $1 AND active = TRUE`

func (q *Queries) GetWaiterByEmail(ctx context.Context, email string) (WaiterUser, error) {
	return scanWaiter(q.db.QueryRow(ctx, getWaiterByEmail, email))
}

const getWaiterByID = `SELECT ` + waiterColumns + ` FROM waiter_users WHERE id = $1`

func (q *Queries) GetWaiterByID(ctx context.Context, id uuid.UUID) (WaiterUser, error) {
	return scanWaiter(q.db.QueryRow(ctx, getWaiterByID, id))
}

const touchWaiterLastLogin = `UPDATE waiter_users SET last_login_at = now() WHERE id = $1`

func (q *Queries) TouchWaiterLastLogin(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, touchWaiterLastLogin, id)
	return err
}
