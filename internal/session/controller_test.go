package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-inventory-go/internal/inventory"
	"github.com/ovaphlow/pitchfork/service-inventory-go/internal/inventory/entity"
	"github.com/ovaphlow/pitchfork/service-inventory-go/internal/storage/memory"
	"github.com/ovaphlow/pitchfork/service-inventory-go/internal/user"
)

const code = "let-me-in"

var now = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func newController(t *testing.T) *Controller {
	t.Helper()
	logger := zap.NewNop().Sugar()
	store, err := memory.New(1)
	require.NoError(t, err)
	users, err := user.NewService(store, user.Config{InvitationCode: code}, logger)
	require.NoError(t, err)
	inv := inventory.NewService(store, clockwork.NewFakeClockAt(now), logger)
	return NewController(users, inv, logger)
}

func login(t *testing.T, c *Controller) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, c.Register(ctx, "alice", "pw", "pw", code))
	require.NoError(t, c.Login(ctx, "alice", "pw"))
}

func TestInitialStateIsUnauthenticated(t *testing.T) {
	c := newController(t)
	assert.Equal(t, Session{}, c.Session())

	_, err := c.AddProduct(context.Background(), "widget", 1, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	_, err = c.LedgerView(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestRegisterDoesNotAuthenticate(t *testing.T) {
	c := newController(t)
	require.NoError(t, c.Register(context.Background(), "alice", "pw", "pw", code))
	assert.False(t, c.Session().Authenticated)
}

func TestLoginLogout(t *testing.T) {
	c := newController(t)
	login(t, c)
	assert.Equal(t, Session{Authenticated: true, Username: "alice"}, c.Session())

	c.Logout()
	assert.Equal(t, Session{}, c.Session())
	_, err := c.LedgerView(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	// logging out twice is harmless
	c.Logout()
	assert.False(t, c.Session().Authenticated)
}

func TestFailedLoginKeepsState(t *testing.T) {
	ctx := context.Background()
	c := newController(t)

	err := c.Login(ctx, "alice", "pw")
	assert.ErrorIs(t, err, user.ErrInvalidCredentials)
	assert.False(t, c.Session().Authenticated)

	login(t, c)
	err = c.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, user.ErrInvalidCredentials)
	assert.Equal(t, "alice", c.Session().Username)
}

func TestEmptyLedgerView(t *testing.T) {
	c := newController(t)
	login(t, c)

	v, err := c.LedgerView(context.Background())
	require.NoError(t, err)
	assert.True(t, v.Empty())
	assert.Empty(t, v.Summaries)
	assert.Zero(t, v.GrandTotalQuantity)
	assert.True(t, v.GrandTotalValue.IsZero())
}

func TestAddThenView(t *testing.T) {
	ctx := context.Background()
	c := newController(t)
	login(t, c)

	_, err := c.AddProduct(ctx, "widget", 2, decimal.RequireFromString("5.0"))
	require.NoError(t, err)
	_, err = c.AddProduct(ctx, "widget", 3, decimal.RequireFromString("7.0"))
	require.NoError(t, err)
	_, err = c.AddProduct(ctx, "gadget", 10, decimal.RequireFromString("2.5"))
	require.NoError(t, err)

	v, err := c.LedgerView(ctx)
	require.NoError(t, err)
	require.False(t, v.Empty())
	require.Len(t, v.Records, 3)
	for _, r := range v.Records {
		assert.True(t, r.LastUpdated.Equal(now))
	}

	byName := map[string]entity.Summary{}
	for _, s := range v.Summaries {
		byName[s.ProductName] = s
	}
	widget := byName["widget"]
	assert.EqualValues(t, 5, widget.TotalQuantity)
	assert.True(t, widget.UnitPrice.Equal(decimal.NewFromInt(5)))
	assert.True(t, widget.TotalValue.Equal(decimal.NewFromInt(31)))
	assert.EqualValues(t, 15, v.GrandTotalQuantity)
	assert.True(t, v.GrandTotalValue.Equal(decimal.NewFromInt(56)))
}

func TestValidationPassesThrough(t *testing.T) {
	c := newController(t)
	login(t, c)
	_, err := c.AddProduct(context.Background(), "", 1, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, inventory.ErrInvalidInput)
}

type brokenInventory struct{}

func (brokenInventory) AddProduct(context.Context, string, int64, decimal.Decimal) (int64, error) {
	return 0, errors.New("unused")
}
func (brokenInventory) ListAll(context.Context) ([]entity.Record, error) {
	return nil, inventory.ErrStorageFailure
}

func TestLedgerViewStorageFailure(t *testing.T) {
	logger := zap.NewNop().Sugar()
	store, _ := memory.New(1)
	users, _ := user.NewService(store, user.Config{InvitationCode: code}, logger)
	c := NewController(users, brokenInventory{}, logger)
	login(t, c)

	_, err := c.LedgerView(context.Background())
	assert.ErrorIs(t, err, inventory.ErrStorageFailure)
}

func TestConcurrentUse(t *testing.T) {
	ctx := context.Background()
	c := newController(t)
	login(t, c)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = c.AddProduct(ctx, "bolt", 1, decimal.NewFromInt(1))
		}()
		go func() {
			defer wg.Done()
			_ = c.Session()
		}()
	}
	wg.Wait()

	v, err := c.LedgerView(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 20, v.GrandTotalQuantity)
}
