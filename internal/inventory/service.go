package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-inventory-go/internal/inventory/entity"
	"github.com/ovaphlow/pitchfork/service-inventory-go/internal/storage"
)

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrStorageFailure = errors.New("storage failure")
)

// Service is the inventory repository: append a record, list the ledger.
type Service struct {
	store  storage.Backend
	clock  clockwork.Clock
	logger *zap.SugaredLogger
}

// NewService uses the real clock when clock is nil.
func NewService(store storage.Backend, clock clockwork.Clock, logger *zap.SugaredLogger) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{store: store, clock: clock, logger: logger}
}

// AddProduct validates the fields, stamps the record with the current time
// and appends it. Storage errors are not retried.
func (s *Service) AddProduct(ctx context.Context, productName string, quantity int64, unitPrice decimal.Decimal) (int64, error) {
	switch {
	case strings.TrimSpace(productName) == "":
		return 0, fmt.Errorf("%w: product name is required", ErrInvalidInput)
	case quantity < 0:
		return 0, fmt.Errorf("%w: quantity must not be negative", ErrInvalidInput)
	case unitPrice.IsNegative():
		return 0, fmt.Errorf("%w: unit price must not be negative", ErrInvalidInput)
	}

	id, err := s.store.AppendInventoryRecord(ctx, productName, quantity, unitPrice, s.clock.Now().UTC())
	if err != nil {
		s.logger.Warnw("append inventory record failed", "product", productName, "err", err)
		return 0, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}
	s.logger.Debugw("inventory record appended", "id", id, "product", productName, "quantity", quantity)
	return id, nil
}

// ListAll returns the whole ledger. An empty ledger is a nil error.
func (s *Service) ListAll(ctx context.Context) ([]entity.Record, error) {
	recs, err := s.store.ListInventoryRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}
	if recs == nil {
		recs = []entity.Record{}
	}
	return recs, nil
}
