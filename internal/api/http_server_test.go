package api

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"fsaeinventory/internal/config"
	"fsaeinventory/internal/domain"
	"fsaeinventory/internal/models"
	"fsaeinventory/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu      sync.Mutex
	items   []models.Item
	saveErr error
	saves   int
}

func (f *fakeStore) LoadInventory(ctx context.Context) ([]models.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Item(nil), f.items...), nil
}

func (f *fakeStore) SaveInventory(ctx context.Context, items []models.Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.saveErr != nil {
		return f.saveErr
	}
	f.items = append([]models.Item(nil), items...)
	return nil
}

func (f *fakeStore) snapshot() []models.Item {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Item(nil), f.items...)
}

func testItems() []models.Item {
	items := []models.Item{
		{ID: 1, Name: "M10 Bolt", Category: "Hardware", Quantity: 5, MinStock: 10, Unit: "pcs", Location: "Box A1"},
		{ID: 2, Name: "Brake Pad", Category: "Brakes", Quantity: 4, MinStock: 5, Unit: "set", Location: "Shelf B2"},
	}
	for i := range items {
		items[i].Refresh()
	}
	return items
}

func newTestServer(t *testing.T, store *fakeStore, rl config.APIRateLimitConfig) (*httptest.Server, *service.InventoryService) {
	t.Helper()
	svc := service.NewInventoryService(store, nil, nil, nil, service.Options{}, nil)
	_, err := svc.Load(context.Background())
	require.NoError(t, err)

	srv := NewHTTPServer(config.APIConfig{RateLimit: rl}, svc, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, svc
}

func doJSON(t *testing.T, method, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func TestListItems(t *testing.T) {
	ts, _ := newTestServer(t, &fakeStore{items: testItems()}, config.APIRateLimitConfig{})

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/v1/items", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), body["count"])
	assert.Equal(t, service.SourceRemote, body["source"])

	resp, body = doJSON(t, http.MethodGet, ts.URL+"/api/v1/items?q=shelf", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	items := body["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "Brake Pad", items[0].(map[string]any)["name"])
}

func TestAddItem(t *testing.T) {
	store := &fakeStore{items: testItems()}
	ts, _ := newTestServer(t, store, config.APIRateLimitConfig{})

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/items", `{"name":"Spark Plug","quantity":6,"minStock":2}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, true, body["saved"])
	item := body["item"].(map[string]any)
	assert.Equal(t, float64(3), item["id"])
	assert.Equal(t, "General", item["category"])
	assert.Equal(t, "In Stock", item["status"])
	assert.Len(t, store.snapshot(), 3)

	resp, body = doJSON(t, http.MethodPost, ts.URL+"/api/v1/items", `{"name":"  "}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, service.ErrEmptyName.Error(), body["error"])

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/v1/items", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAddItem_SaveFailure(t *testing.T) {
	store := &fakeStore{items: testItems()}
	ts, svc := newTestServer(t, store, config.APIRateLimitConfig{})
	store.mu.Lock()
	store.saveErr = errors.New("endpoint down")
	store.mu.Unlock()

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/items", `{"name":"Fuse"}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, false, body["saved"])
	assert.Contains(t, body["warning"], "in-memory only")
	assert.Len(t, svc.Items(), 3)
}

func TestWithdrawAndReturn(t *testing.T) {
	ts, _ := newTestServer(t, &fakeStore{items: testItems()}, config.APIRateLimitConfig{})

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/items/1/withdraw", `{"quantity":5}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	item := body["item"].(map[string]any)
	assert.Equal(t, float64(0), item["quantity"])
	assert.Equal(t, "Out of Stock", item["status"])

	resp, body = doJSON(t, http.MethodPost, ts.URL+"/api/v1/items/1/return", `{"quantity":3}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	item = body["item"].(map[string]any)
	assert.Equal(t, float64(3), item["quantity"])
	assert.Equal(t, "Low", item["status"])
}

func TestWithdraw_Errors(t *testing.T) {
	ts, _ := newTestServer(t, &fakeStore{items: testItems()}, config.APIRateLimitConfig{})

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"insufficient stock", "/api/v1/items/2/withdraw", `{"quantity":5}`, http.StatusConflict},
		{"zero quantity", "/api/v1/items/2/withdraw", `{"quantity":0}`, http.StatusUnprocessableEntity},
		{"unknown item", "/api/v1/items/99/withdraw", `{"quantity":1}`, http.StatusNotFound},
		{"bad id", "/api/v1/items/abc/withdraw", `{"quantity":1}`, http.StatusBadRequest},
		{"unknown field", "/api/v1/items/2/withdraw", `{"qty":1}`, http.StatusBadRequest},
		{"return overflow", "/api/v1/items/1/return", `{"quantity":9223372036854775807}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := doJSON(t, http.MethodPost, ts.URL+tt.path, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestDeleteImmediate(t *testing.T) {
	store := &fakeStore{items: testItems()}
	ts, svc := newTestServer(t, store, config.APIRateLimitConfig{})

	resp, _ := doJSON(t, http.MethodDelete, ts.URL+"/api/v1/items/2", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Len(t, svc.Items(), 2)

	resp, body := doJSON(t, http.MethodDelete, ts.URL+"/api/v1/items/2?confirm=true", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Brake Pad", body["item"].(map[string]any)["name"])
	require.Len(t, store.snapshot(), 1)
	assert.Equal(t, int64(1), store.snapshot()[0].ID)
}

func TestDeleteTwoStep(t *testing.T) {
	ts, svc := newTestServer(t, &fakeStore{items: testItems()}, config.APIRateLimitConfig{})

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/items/1/delete", "")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	token := body["token"].(string)
	assert.Equal(t, "M10 Bolt", body["itemName"])

	resp, _ = doJSON(t, http.MethodDelete, ts.URL+"/api/v1/deletions/"+token, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Len(t, svc.Items(), 2)

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/v1/deletions/"+token+"/confirm", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, body = doJSON(t, http.MethodPost, ts.URL+"/api/v1/items/1/delete", "")
	token = body["token"].(string)
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/v1/deletions/"+token+"/confirm", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, svc.Items(), 1)
}

func TestExportCSV(t *testing.T) {
	ts, _ := newTestServer(t, &fakeStore{items: testItems()}, config.APIRateLimitConfig{})

	resp, err := http.Get(ts.URL + "/api/v1/export.csv?q=brake")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `attachment; filename="inventory.csv"`, resp.Header.Get("Content-Disposition"))
	records, err := csv.NewReader(resp.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Brake Pad", records[1][1])
}

func TestExport_NothingToExport(t *testing.T) {
	ts, _ := newTestServer(t, &fakeStore{items: testItems()}, config.APIRateLimitConfig{})

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/v1/export.xlsx?q=titanium", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, service.ErrNothingToExport.Error(), body["error"])
}

func TestReloadAndHealth(t *testing.T) {
	store := &fakeStore{items: testItems()}
	ts, svc := newTestServer(t, store, config.APIRateLimitConfig{})

	store.mu.Lock()
	store.items = store.items[:1]
	store.mu.Unlock()

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/reload", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["count"])
	assert.Len(t, svc.Items(), 1)

	resp, body = doJSON(t, http.MethodGet, ts.URL+"/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, false, body["loading"])
}

func TestTransactions_EmptyWithoutJournal(t *testing.T) {
	ts, _ := newTestServer(t, &fakeStore{items: testItems()}, config.APIRateLimitConfig{})

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/v1/transactions", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body["transactions"])
}

func TestRateLimit(t *testing.T) {
	ts, _ := newTestServer(t, &fakeStore{items: testItems()}, config.APIRateLimitConfig{RPS: 0.001, Burst: 2})

	for i := 0; i < 2; i++ {
		resp, _ := doJSON(t, http.MethodGet, ts.URL+"/healthz", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp, body := doJSON(t, http.MethodGet, ts.URL+"/healthz", "")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "rate limit exceeded", body["error"])
}

func TestClientKey(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.7:5555"
	assert.Equal(t, "10.0.0.7", clientKey(r))
	r.RemoteAddr = ""
	assert.Equal(t, "unknown", clientKey(r))
}

func noRedirectClient() *http.Client {
	return &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
}

func TestPage(t *testing.T) {
	ts, _ := newTestServer(t, &fakeStore{items: testItems()}, config.APIRateLimitConfig{})

	resp, err := http.Get(ts.URL + "/?q=bolt&notice=Saved")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	buf := new(strings.Builder)
	_, err = io.Copy(buf, resp.Body)
	require.NoError(t, err)
	html := buf.String()
	assert.Contains(t, html, "M10 Bolt")
	assert.NotContains(t, html, "Brake Pad")
	assert.Contains(t, html, `class="status-low"`)
	assert.Contains(t, html, "Saved")

	resp2, err := http.Get(ts.URL + "/nope")
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)
}

func TestPageForms(t *testing.T) {
	store := &fakeStore{items: testItems()}
	ts, svc := newTestServer(t, store, config.APIRateLimitConfig{})
	client := noRedirectClient()

	post := func(path string, form url.Values) *url.URL {
		resp, err := client.PostForm(ts.URL+path, form)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
		loc, err := resp.Location()
		require.NoError(t, err)
		return loc
	}

	loc := post("/items", url.Values{"name": {"Fuse"}, "quantity": {"3"}, "minStock": {""}})
	assert.Contains(t, loc.Query().Get("notice"), "Fuse")
	assert.Len(t, svc.Items(), 3)

	loc = post("/items", url.Values{"name": {""}})
	assert.Equal(t, service.ErrEmptyName.Error(), loc.Query().Get("alert"))

	loc = post("/items/2/withdraw", url.Values{"quantity": {"9"}, "q": {"brake"}})
	assert.Contains(t, loc.Query().Get("alert"), service.ErrInsufficientStock.Error())
	assert.Equal(t, "brake", loc.Query().Get("q"))

	loc = post("/items/2/return", url.Values{"quantity": {"2"}})
	assert.Contains(t, loc.Query().Get("notice"), "Returned 2 set of Brake Pad")

	loc = post("/items/1/delete", nil)
	token := loc.Query().Get("pending")
	require.NotEmpty(t, token)
	assert.Equal(t, "1", loc.Query().Get("item"))

	resp, err := http.Get(ts.URL + "/?" + loc.RawQuery)
	require.NoError(t, err)
	buf := new(strings.Builder)
	_, err = io.Copy(buf, resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "/deletions/"+token+"/confirm")

	loc = post("/deletions/"+token+"/confirm", nil)
	assert.Contains(t, loc.Query().Get("notice"), "Deleted M10 Bolt")
	assert.Len(t, svc.Items(), 2)

	loc = post("/deletions/"+token+"/cancel", nil)
	assert.Equal(t, service.ErrConfirmationNotFound.Error(), loc.Query().Get("alert"))
}

func TestErrorStatus(t *testing.T) {
	assert.Equal(t, http.StatusConflict, errorStatus(service.ErrConfirmationRequired))
	assert.Equal(t, http.StatusNotFound, errorStatus(service.ErrConfirmationNotFound))
	assert.Equal(t, http.StatusInternalServerError, errorStatus(errors.New("x")))
}

var _ Inventory = (*service.InventoryService)(nil)
var _ domain.InventoryStore = (*fakeStore)(nil)
