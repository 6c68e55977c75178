// Package rest is the remote storage.Backend: a raw HTTP client for a
// PostgREST-style store exposing one resource path per table under
// {endpoint}/rest/v1/.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	inventoryentity "github.com/ovaphlow/pitchfork/service-inventory-go/internal/inventory/entity"
	"github.com/ovaphlow/pitchfork/service-inventory-go/internal/storage"
	userentity "github.com/ovaphlow/pitchfork/service-inventory-go/internal/user/entity"
)

// DefaultTimeout bounds every call when Config.Timeout is zero.
const DefaultTimeout = 10 * time.Second

const (
	usersPath     = "/rest/v1/users"
	inventoryPath = "/rest/v1/inventory"
)

type Config struct {
	Endpoint  string
	AccessKey string
	Timeout   time.Duration
}

// Client implements storage.Backend over HTTP. Calls are never retried;
// the caller decides whether to resubmit.
type Client struct {
	endpoint string
	key      string
	http     *http.Client
	logger   *zap.SugaredLogger
}

var _ storage.Backend = (*Client)(nil)

func New(cfg Config, logger *zap.SugaredLogger) (*Client, error) {
	u, err := url.Parse(cfg.Endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid store endpoint %q", cfg.Endpoint)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		key:      cfg.AccessKey,
		http:     &http.Client{Timeout: timeout},
		logger:   logger,
	}, nil
}

// apiError is the error body of the store; both PostgREST's
// {code,message} and the bundled server's {error,code} shapes decode.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (e apiError) text() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

// statusError is a non-2xx answer from the store.
type statusError struct {
	Method  string
	Path    string
	Status  int
	Code    string
	Message string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Message)
}

// conflict reports a unique violation: HTTP 409 or PostgreSQL code 23505.
func (e *statusError) conflict() bool {
	return e.Status == http.StatusConflict || e.Code == "23505"
}

// CreateUser maps a conflict on the users table, whose only unique key is
// the username, to storage.ErrDuplicateUsername.
func (c *Client) CreateUser(ctx context.Context, username, passwordHash, role string) error {
	body := userentity.User{Username: username, PasswordHash: passwordHash, Role: role}
	err := c.do(ctx, http.MethodPost, usersPath, nil, body, nil)
	var se *statusError
	if errors.As(err, &se) && se.conflict() {
		return storage.ErrDuplicateUsername
	}
	return storage.Wrap("create user", err)
}

func (c *Client) FindUser(ctx context.Context, username, passwordHash string) (*userentity.User, error) {
	q := url.Values{}
	q.Set("username", "eq."+username)
	q.Set("password_hash", "eq."+passwordHash)
	q.Set("select", "username,password_hash,role")

	var rows []userentity.User
	if err := c.do(ctx, http.MethodGet, usersPath, q, nil, &rows); err != nil {
		return nil, storage.Wrap("find user", err)
	}
	for _, u := range rows {
		if u.Username == username && u.PasswordHash == passwordHash {
			return &u, nil
		}
	}
	return nil, nil
}

// insertRow sends unit_price as a JSON number with the exact decimal digits.
type insertRow struct {
	ProductName string      `json:"product_name"`
	Quantity    int64       `json:"quantity"`
	UnitPrice   json.Number `json:"unit_price"`
	LastUpdated time.Time   `json:"last_updated"`
}

func (c *Client) AppendInventoryRecord(ctx context.Context, productName string, quantity int64, unitPrice decimal.Decimal, ts time.Time) (int64, error) {
	body := insertRow{
		ProductName: productName,
		Quantity:    quantity,
		UnitPrice:   json.Number(unitPrice.String()),
		LastUpdated: ts.UTC(),
	}
	var rows []inventoryentity.Record
	if err := c.do(ctx, http.MethodPost, inventoryPath, nil, body, &rows); err != nil {
		return 0, storage.Wrap("append inventory record", err)
	}
	if len(rows) != 1 {
		return 0, storage.Wrap("append inventory record", fmt.Errorf("%w: expected 1 row, got %d", storage.ErrMalformedResponse, len(rows)))
	}
	return rows[0].ID, nil
}

func (c *Client) ListInventoryRecords(ctx context.Context) ([]inventoryentity.Record, error) {
	q := url.Values{}
	q.Set("select", "*")
	rows := []inventoryentity.Record{}
	if err := c.do(ctx, http.MethodGet, inventoryPath, q, nil, &rows); err != nil {
		return nil, storage.Wrap("list inventory records", err)
	}
	return rows, nil
}

func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	target := c.endpoint + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if out != nil && method == http.MethodPost {
		req.Header.Set("Prefer", "return=representation")
	}
	if c.key != "" {
		req.Header.Set("apikey", c.key)
		req.Header.Set("Authorization", "Bearer "+c.key)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		var ue *url.Error
		if errors.As(err, &ue) && ue.Timeout() {
			return fmt.Errorf("%w: %s %s: %w", storage.ErrTimeout, method, path, err)
		}
		return err
	}
	defer resp.Body.Close()
	c.logger.Debugw("store request", "method", method, "path", path, "status", resp.StatusCode, "duration_ms", float64(time.Since(start).Microseconds())/1000.0)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var ae apiError
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		_ = json.Unmarshal(raw, &ae)
		msg := ae.text()
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return &statusError{Method: method, Path: path, Status: resp.StatusCode, Code: ae.Code, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %w", storage.ErrMalformedResponse, err)
	}
	return nil
}
