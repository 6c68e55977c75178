// Package memory is a process-local storage.Backend used by tests and
// throwaway sessions. Nothing survives the process.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"

	inventoryentity "github.com/ovaphlow/pitchfork/service-inventory-go/internal/inventory/entity"
	"github.com/ovaphlow/pitchfork/service-inventory-go/internal/storage"
	userentity "github.com/ovaphlow/pitchfork/service-inventory-go/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-inventory-go/pkg/utilities"
)

type Store struct {
	mu      sync.RWMutex
	users   map[string]userentity.User
	records []inventoryentity.Record
	ids     *snowflake.Node
}

var _ storage.Backend = (*Store)(nil)

// New returns an empty store whose record ids come from the given snowflake node.
func New(nodeID int64) (*Store, error) {
	node, err := utilities.NewSnowflakeNode(nodeID)
	if err != nil {
		return nil, err
	}
	return &Store{users: map[string]userentity.User{}, ids: node}, nil
}

func (s *Store) CreateUser(_ context.Context, username, passwordHash, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[username]; ok {
		return storage.ErrDuplicateUsername
	}
	s.users[username] = userentity.User{Username: username, PasswordHash: passwordHash, Role: role}
	return nil
}

func (s *Store) FindUser(_ context.Context, username, passwordHash string) (*userentity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[username]
	if !ok || u.PasswordHash != passwordHash {
		return nil, nil
	}
	return &u, nil
}

func (s *Store) AppendInventoryRecord(_ context.Context, productName string, quantity int64, unitPrice decimal.Decimal, ts time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := inventoryentity.Record{
		ID:          s.ids.Generate().Int64(),
		ProductName: productName,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		LastUpdated: ts.UTC(),
	}
	s.records = append(s.records, rec)
	return rec.ID, nil
}

// ListInventoryRecords returns a copy so callers cannot mutate the log.
func (s *Store) ListInventoryRecords(_ context.Context) ([]inventoryentity.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]inventoryentity.Record, len(s.records))
	copy(out, s.records)
	return out, nil
}

func (s *Store) Close() error { return nil }
