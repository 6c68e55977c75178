// Package session holds the authenticated-user marker of one interactive
// session and gates the inventory operations behind it.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-inventory-go/internal/inventory"
	"github.com/ovaphlow/pitchfork/service-inventory-go/internal/inventory/entity"
	userentity "github.com/ovaphlow/pitchfork/service-inventory-go/internal/user/entity"
)

var ErrNotAuthenticated = errors.New("not authenticated")

// Session is the state of one interactive session. The zero value is
// unauthenticated.
type Session struct {
	Authenticated bool
	Username      string
}

// Credentials is satisfied by *user.Service.
type Credentials interface {
	Register(ctx context.Context, username, password, confirmPassword, invitationCode string) error
	Login(ctx context.Context, username, password string) (*userentity.User, error)
}

// Inventory is satisfied by *inventory.Service.
type Inventory interface {
	AddProduct(ctx context.Context, productName string, quantity int64, unitPrice decimal.Decimal) (int64, error)
	ListAll(ctx context.Context) ([]entity.Record, error)
}

// View is the raw ledger together with its summary.
type View struct {
	Records []entity.Record `json:"records"`
	entity.Aggregate
}

// Empty reports "no records yet".
func (v View) Empty() bool { return len(v.Records) == 0 }

// Controller moves a session between Unauthenticated and Authenticated.
// Registration never changes the state.
type Controller struct {
	users     Credentials
	inventory Inventory
	logger    *zap.SugaredLogger

	mu      sync.RWMutex
	session Session
}

func NewController(users Credentials, inv Inventory, logger *zap.SugaredLogger) *Controller {
	return &Controller{users: users, inventory: inv, logger: logger}
}

// Session returns a copy of the current state.
func (c *Controller) Session() Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

func (c *Controller) Register(ctx context.Context, username, password, confirmPassword, invitationCode string) error {
	return c.users.Register(ctx, username, password, confirmPassword, invitationCode)
}

// Login authenticates the session. A failed login leaves the state as it was.
func (c *Controller) Login(ctx context.Context, username, password string) error {
	u, err := c.users.Login(ctx, username, password)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.session = Session{Authenticated: true, Username: u.Username}
	c.mu.Unlock()
	c.logger.Infow("session authenticated", "username", u.Username)
	return nil
}

func (c *Controller) Logout() {
	c.mu.Lock()
	prev := c.session
	c.session = Session{}
	c.mu.Unlock()
	if prev.Authenticated {
		c.logger.Infow("session closed", "username", prev.Username)
	}
}

func (c *Controller) requireAuth() error {
	if !c.Session().Authenticated {
		return ErrNotAuthenticated
	}
	return nil
}

func (c *Controller) AddProduct(ctx context.Context, productName string, quantity int64, unitPrice decimal.Decimal) (int64, error) {
	if err := c.requireAuth(); err != nil {
		return 0, err
	}
	return c.inventory.AddProduct(ctx, productName, quantity, unitPrice)
}

// LedgerView reads the whole ledger and summarizes it. An empty ledger is
// not an error; check View.Empty.
func (c *Controller) LedgerView(ctx context.Context) (View, error) {
	if err := c.requireAuth(); err != nil {
		return View{}, err
	}
	recs, err := c.inventory.ListAll(ctx)
	if err != nil {
		return View{}, err
	}
	return View{Records: recs, Aggregate: inventory.Summarize(recs)}, nil
}
