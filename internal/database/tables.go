package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const tableColumns = `id, table_number, status, current_order_id, created_at`

func scanTable(row pgx.Row) (Table, error) {
	var t Table
	err := row.Scan(&t.ID, &t.TableNumber, &t.Status, &t.CurrentOrderID, &t.CreatedAt)
	return t, err
}

const listTables = `SELECT ` + tableColumns + ` FROM tables ORDER BY table_number`

func (q *Queries) ListTables(ctx context.Context) ([]Table, error) {
	rows, err := q.db.Query(ctx, listTables)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tables []Table
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

const getTable = `SELECT ` + tableColumns + ` FROM tables WHERE id = $1`

func (q *Queries) GetTable(ctx context.Context, id uuid.UUID) (Table, error) {
	return scanTable(q.db.QueryRow(ctx, getTable, id))
}

// OccupyTable is the compare-and-set half of order creation: only a table
// still AVAILABLE is flipped, so two racing waiters cannot both win.
const occupyTable = `
UPDATE tables
SET status = 'OCCUPIED', current_order_id = $2
WHERE id = $1 AND status = 'AVAILABLE'
RETURNING ` + tableColumns

type OccupyTableParams struct {
	ID      uuid.UUID
	OrderID uuid.UUID
}

func (q *Queries) OccupyTable(ctx context.Context, arg OccupyTableParams) (Table, error) {
	return scanTable(q.db.QueryRow(ctx, occupyTable, arg.ID, arg.OrderID))
}

const releaseTable = `
UPDATE tables
SET status = 'AVAILABLE', current_order_id = NULL
WHERE id = $1
RETURNING ` + tableColumns

func (q *Queries) ReleaseTable(ctx context.Context, id uuid.UUID) (Table, error) {
	return scanTable(q.db.QueryRow(ctx, releaseTable, id))
}

// SetTableStatus covers the floor-plan states (RESERVED, CLEANING, back to
// AVAILABLE). A table holding an open order cannot be moved this way.
const setTableStatus = `
UPDATE tables
SET status = $2
WHERE id = $1 AND current_order_id IS NULL
RETURNING ` + tableColumns

type SetTableStatusParams struct {
	ID     uuid.UUID
	Status string
}

func (q *Queries) SetTableStatus(ctx context.Context, arg SetTableStatusParams) (Table, error) {
	return scanTable(q.db.QueryRow(ctx, setTableStatus, arg.ID, arg.Status))
}
