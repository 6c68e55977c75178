package inventory

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-inventory-go/internal/inventory/entity"
	"github.com/ovaphlow/pitchfork/service-inventory-go/internal/storage/memory"
)

func TestHandler_InsertAndList(t *testing.T) {
	m, err := memory.New(1)
	require.NoError(t, err)
	h := NewHandler(m, zap.NewNop().Sugar())

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/rest/v1/inventory?select=*", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	req := httptest.NewRequest(http.MethodPost, "/rest/v1/inventory",
		strings.NewReader(`{"product_name":"gadget","quantity":10,"unit_price":2.5,"last_updated":"2024-05-06T07:08:09Z"}`))
	req.Header.Set("Prefer", "return=representation")
	rec = httptest.NewRecorder()
	h.Insert(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	var inserted []entity.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &inserted))
	require.Len(t, inserted, 1)
	assert.NotZero(t, inserted[0].ID)

	// string prices and a missing timestamp are accepted too
	rec = httptest.NewRecorder()
	h.Insert(rec, httptest.NewRequest(http.MethodPost, "/rest/v1/inventory",
		strings.NewReader(`{"product_name":"bolt","quantity":1,"unit_price":"0.10"}`)))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/rest/v1/inventory", nil))
	var all []entity.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	require.Len(t, all, 2)
	assert.Equal(t, inserted[0].ID, all[0].ID)
	assert.True(t, all[0].UnitPrice.Equal(decimal.RequireFromString("2.5")))
	assert.False(t, all[1].LastUpdated.IsZero())
}

func TestHandler_InsertRejectsInvalid(t *testing.T) {
	store := &failingStore{}
	h := NewHandler(store, zap.NewNop().Sugar())
	for _, body := range []string{
		`not json`,
		`{"product_name":"","quantity":1,"unit_price":1}`,
		`{"product_name":"a","quantity":-1,"unit_price":1}`,
		`{"product_name":"a","quantity":1,"unit_price":-1}`,
	} {
		rec := httptest.NewRecorder()
		h.Insert(rec, httptest.NewRequest(http.MethodPost, "/rest/v1/inventory", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	assert.Zero(t, store.calls)
}

func TestHandler_StorageFailure(t *testing.T) {
	h := NewHandler(&failingStore{err: errors.New("db down")}, zap.NewNop().Sugar())

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/rest/v1/inventory", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = httptest.NewRecorder()
	h.Insert(rec, httptest.NewRequest(http.MethodPost, "/rest/v1/inventory", strings.NewReader(`{"product_name":"a","quantity":1,"unit_price":1}`)))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
