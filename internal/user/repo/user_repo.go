package repo

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/ovaphlow/pitchfork/service-inventory-go/internal/user/entity"
)

// UserRepo provides data access for the users table using sqlx.
// Queries are written with `?` placeholders and rebound for the driver.
type UserRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

// Create inserts a new user row. The username primary key enforces
// uniqueness; the driver error is returned as-is for the caller to classify.
func (r *UserRepo) Create(ctx context.Context, u *entity.User) error {
	const q = `INSERT INTO users (username, password_hash, role) VALUES (:username, :password_hash, :role)`
	_, err := r.db.NamedExecContext(ctx, q, u)
	return err
}

// GetByCredentials returns the user matching username and password hash
// exactly, or sql.ErrNoRows.
func (r *UserRepo) GetByCredentials(ctx context.Context, username, passwordHash string) (*entity.User, error) {
	q := r.db.Rebind(`SELECT username, password_hash, role FROM users WHERE username = ? AND password_hash = ?`)
	var row entity.User
	if err := r.db.GetContext(ctx, &row, q, username, passwordHash); err != nil {
		return nil, err
	}
	return &row, nil
}
