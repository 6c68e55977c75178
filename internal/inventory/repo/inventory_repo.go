package repo

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/ovaphlow/pitchfork/service-inventory-go/internal/inventory/entity"
)

// InventoryRepo provides append and scan access to the inventory table.
// There is no update or delete: the table is an insertion log.
type InventoryRepo struct {
	db *sqlx.DB
}

func NewInventoryRepo(db *sqlx.DB) *InventoryRepo { return &InventoryRepo{db: db} }

// Append inserts a record and returns the id assigned by the database.
func (r *InventoryRepo) Append(ctx context.Context, rec *entity.Record) (int64, error) {
	const q = `INSERT INTO inventory (product_name, quantity, unit_price, last_updated)
		  VALUES (:product_name, :quantity, :unit_price, :last_updated) RETURNING id`
	rows, err := r.db.NamedQueryContext(ctx, q, rec)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&rec.ID); err != nil {
			return 0, err
		}
		return rec.ID, nil
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	return 0, errors.New("no id returned")
}

// List returns every record in the table.
func (r *InventoryRepo) List(ctx context.Context) ([]entity.Record, error) {
	const q = `SELECT id, product_name, quantity, unit_price, last_updated FROM inventory`
	out := []entity.Record{}
	if err := r.db.SelectContext(ctx, &out, q); err != nil {
		return nil, err
	}
	return out, nil
}
