// Package storage defines the contract every persistence backend of the
// inventory ledger satisfies. Credential and inventory services depend on
// Backend only and never on a concrete implementation.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	inventoryentity "github.com/ovaphlow/pitchfork/service-inventory-go/internal/inventory/entity"
	userentity "github.com/ovaphlow/pitchfork/service-inventory-go/internal/user/entity"
)

// Backend is implemented by the embedded, SQL server, remote and in-memory stores.
//
// CreateUser must be atomic with respect to the uniqueness check: of two
// concurrent calls with the same username at most one succeeds, the other
// returns ErrDuplicateUsername.
//
// FindUser matches username and password hash exactly and returns (nil, nil)
// when no row matches.
//
// ListInventoryRecords returns the complete record set in no guaranteed order.
type Backend interface {
	CreateUser(ctx context.Context, username, passwordHash, role string) error
	FindUser(ctx context.Context, username, passwordHash string) (*userentity.User, error)
	AppendInventoryRecord(ctx context.Context, productName string, quantity int64, unitPrice decimal.Decimal, ts time.Time) (int64, error)
	ListInventoryRecords(ctx context.Context) ([]inventoryentity.Record, error)
}

var (
	ErrDuplicateUsername = errors.New("username already exists")

	// causes carried inside *Error
	ErrTimeout           = errors.New("timeout")
	ErrMalformedResponse = errors.New("malformed response")
)

// Error is a storage-level failure (connectivity, timeout, malformed
// response, driver error). The original cause is kept for display.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return "storage: " + e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap returns err as a *Error for op. Nil stays nil, ErrDuplicateUsername
// and values that already are *Error are returned unchanged.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrDuplicateUsername) {
		return err
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return &Error{Op: op, Err: err}
}
