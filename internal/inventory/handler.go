package inventory

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-inventory-go/internal/inventory/entity"
	"github.com/ovaphlow/pitchfork/service-inventory-go/internal/storage"
)

// Handler exposes the inventory table of the remote store over HTTP.
// Only insert and full scan exist, matching the append-only ledger.
type Handler struct {
	store  storage.Backend
	logger *zap.SugaredLogger
}

func NewHandler(store storage.Backend, logger *zap.SugaredLogger) *Handler {
	return &Handler{store: store, logger: logger}
}

// insertRequest is the POST body; unit_price accepts a JSON number or string.
type insertRequest struct {
	ProductName string          `json:"product_name"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LastUpdated time.Time       `json:"last_updated"`
}

// List answers GET /rest/v1/inventory with every record.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	recs, err := h.store.ListInventoryRecords(r.Context())
	if err != nil {
		h.logger.Warnw("list inventory failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "list failed"})
		return
	}
	if recs == nil {
		recs = []entity.Record{}
	}
	h.writeJSON(w, http.StatusOK, recs)
}

// Insert answers POST /rest/v1/inventory. With `Prefer: return=representation`
// the inserted row, including its id, is returned as a one-element array.
func (h *Handler) Insert(w http.ResponseWriter, r *http.Request) {
	var req insertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid inventory payload", "err", err)
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if strings.TrimSpace(req.ProductName) == "" || req.Quantity < 0 || req.UnitPrice.IsNegative() {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "product_name is required; quantity and unit_price must not be negative"})
		return
	}
	if req.LastUpdated.IsZero() {
		req.LastUpdated = time.Now().UTC()
	}
	id, err := h.store.AppendInventoryRecord(r.Context(), req.ProductName, req.Quantity, req.UnitPrice, req.LastUpdated)
	if err != nil {
		h.logger.Warnw("insert inventory failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "insert failed"})
		return
	}
	if !strings.Contains(r.Header.Get("Prefer"), "return=representation") {
		w.WriteHeader(http.StatusCreated)
		return
	}
	h.writeJSON(w, http.StatusCreated, []entity.Record{{
		ID:          id,
		ProductName: req.ProductName,
		Quantity:    req.Quantity,
		UnitPrice:   req.UnitPrice,
		LastUpdated: req.LastUpdated.UTC(),
	}})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
