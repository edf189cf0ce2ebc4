package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Catalog lookups are read-only: menu administration lives outside this
// service. Prices read here are snapshotted onto order items at add-time.

const getMenuItemForOrder = `
SELECT mi.id, mi.name, mi.price, mi.category_id, c.station_type
FROM menu_items mi
JOIN categories c ON c.id = mi.category_id
WHERE mi.id = $1 AND mi.active = TRUE`

type GetMenuItemForOrderRow struct {
	ID          uuid.UUID
	Name        string
	Price       pgtype.Numeric
	CategoryID  uuid.UUID
	StationType pgtype.Text
}

func (q *Queries) GetMenuItemForOrder(ctx context.Context, id uuid.UUID) (GetMenuItemForOrderRow, error) {
	var r GetMenuItemForOrderRow
	err := q.db.QueryRow(ctx, getMenuItemForOrder, id).
		Scan(&r.ID, &r.Name, &r.Price, &r.CategoryID, &r.StationType)
	return r, err
}

const getAddOnForOrder = `
SELECT id, name, price FROM add_ons WHERE id = $1 AND active = TRUE`

type GetAddOnForOrderRow struct {
	ID    uuid.UUID
	Name  string
	Price pgtype.Numeric
}

func (q *Queries) GetAddOnForOrder(ctx context.Context, id uuid.UUID) (GetAddOnForOrderRow, error) {
	var r GetAddOnForOrderRow
	err := q.db.QueryRow(ctx, getAddOnForOrder, id).Scan(&r.ID, &r.Name, &r.Price)
	return r, err
}
