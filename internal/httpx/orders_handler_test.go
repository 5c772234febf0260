package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-shop-backend/internal/auth"
	"github.com/ariefcatur/go-shop-backend/internal/orders"
)

type stubStore struct {
	placeOrderFn   func(ctx context.Context, userID string) (*orders.Order, error)
	updateStatusFn func(ctx context.Context, orderID, newStatus string) (*orders.Order, error)
	getOrderFn     func(ctx context.Context, orderID string) (*orders.Order, error)
	listByUserFn   func(ctx context.Context, userID string) ([]orders.Order, error)
}

func (s *stubStore) PlaceOrder(ctx context.Context, userID string) (*orders.Order, error) {
	return s.placeOrderFn(ctx, userID)
}
func (s *stubStore) UpdateStatus(ctx context.Context, orderID, newStatus string) (*orders.Order, error) {
	return s.updateStatusFn(ctx, orderID, newStatus)
}
func (s *stubStore) GetOrder(ctx context.Context, orderID string) (*orders.Order, error) {
	return s.getOrderFn(ctx, orderID)
}
func (s *stubStore) ListByUser(ctx context.Context, userID string) ([]orders.Order, error) {
	return s.listByUserFn(ctx, userID)
}

type recordingPublisher struct {
	values [][]byte
}

func (p *recordingPublisher) Publish(key, value []byte, headers ...kafkago.Header) {
	p.values = append(p.values, value)
}

type fakeCache struct{ m map[string]string }

func newFakeCache() *fakeCache { return &fakeCache{m: map[string]string{}} }

func (c *fakeCache) Get(ctx context.Context, key string) (string, bool, error) {
	v, ok := c.m[key]
	return v, ok, nil
}
func (c *fakeCache) Set(ctx context.Context, key, val string, ttl time.Duration) error {
	c.m[key] = val
	return nil
}

func newOrdersTestServer(t *testing.T, store OrderStore) (*httptest.Server, *recordingPublisher, *recordingPublisher, *fakeCache, *auth.Tokens) {
	t.Helper()
	tokens := auth.NewTokens("test-secret")
	placed := &recordingPublisher{}
	changed := &recordingPublisher{}
	cache := newFakeCache()

	router := NewRouter()
	h := &OrdersHandler{
		Store:         store,
		Placed:        placed,
		StatusChanged: changed,
		Cache:         cache,
		Tokens:        tokens,
		Service:       "test-api",
	}
	h.Register(router)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, placed, changed, cache, tokens
}

func bearer(t *testing.T, tokens *auth.Tokens, userID string, admin bool) string {
	t.Helper()
	tok, err := tokens.Generate(userID, admin)
	require.NoError(t, err)
	return "Bearer " + tok
}

func doJSON(t *testing.T, method, url, authz, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestPlaceOrder_EmptyCartMapsTo400(t *testing.T) {
	store := &stubStore{
		placeOrderFn: func(ctx context.Context, userID string) (*orders.Order, error) {
			return nil, orders.ErrEmptyCart
		},
	}
	srv, placed, _, _, tokens := newOrdersTestServer(t, store)

	resp := doJSON(t, http.MethodPost, srv.URL+"/orders", bearer(t, tokens, "user-1", false), "")
	defer resp.Body.Close()

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Empty(t, placed.values)
}

func TestPlaceOrder_InsufficientStockMapsTo409(t *testing.T) {
	store := &stubStore{
		placeOrderFn: func(ctx context.Context, userID string) (*orders.Order, error) {
			return nil, &orders.InsufficientStockError{
				ProductName: "Product A", Required: 2, Available: 1,
			}
		},
	}
	srv, placed, _, _, tokens := newOrdersTestServer(t, store)

	resp := doJSON(t, http.MethodPost, srv.URL+"/orders", bearer(t, tokens, "user-1", false), "")
	defer resp.Body.Close()

	require.Equal(t, http.StatusConflict, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Contains(t, body["error"], "Product A")
	require.Empty(t, placed.values)
}

func TestPlaceOrder_SuccessPublishesAndCaches(t *testing.T) {
	o := &orders.Order{
		ID: "order-1", UserID: "user-1", Status: orders.StatusPending, TotalCents: 4000,
		Items: []orders.Item{
			{ID: "i1", OrderID: "order-1", ProductID: "prod-a", Qty: 2, PriceCents: 1000},
			{ID: "i2", OrderID: "order-1", ProductID: "prod-b", Qty: 1, PriceCents: 2000},
		},
	}
	store := &stubStore{
		placeOrderFn: func(ctx context.Context, userID string) (*orders.Order, error) {
			require.Equal(t, "user-1", userID)
			return o, nil
		},
	}
	srv, placed, changed, cache, tokens := newOrdersTestServer(t, store)

	resp := doJSON(t, http.MethodPost, srv.URL+"/orders", bearer(t, tokens, "user-1", false), "")
	defer resp.Body.Close()

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Len(t, placed.values, 1)
	require.Empty(t, changed.values)

	var env orders.Envelope
	require.NoError(t, json.Unmarshal(placed.values[0], &env))
	require.Equal(t, orders.EventOrderPlaced, env.EventType)
	require.Equal(t, "order-1", env.CorrelationID)

	var p orders.OrderPlacedPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	require.Equal(t, "user-1", p.UserID)
	require.Equal(t, int64(4000), p.TotalCents)
	require.Len(t, p.Items, 2)

	require.JSONEq(t, `{"status":"pending","user_id":"user-1"}`, cache.m["order_status:order-1"])
}

func TestUpdateStatus_PublishesExactlyOneEvent(t *testing.T) {
	store := &stubStore{
		updateStatusFn: func(ctx context.Context, orderID, newStatus string) (*orders.Order, error) {
			require.Equal(t, "order-1", orderID)
			require.Equal(t, "shipped", newStatus)
			return &orders.Order{ID: orderID, UserID: "user-9", Status: orders.StatusShipped}, nil
		},
	}
	srv, placed, changed, cache, tokens := newOrdersTestServer(t, store)

	resp := doJSON(t, http.MethodPut, srv.URL+"/admin/orders/order-1/status",
		bearer(t, tokens, "admin-1", true), `{"status":"shipped"}`)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, changed.values, 1)
	require.Empty(t, placed.values)

	var env orders.Envelope
	require.NoError(t, json.Unmarshal(changed.values[0], &env))
	require.Equal(t, orders.EventOrderStatusChanged, env.EventType)

	var p orders.OrderStatusChangedPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	require.Equal(t, "order-1", p.OrderID)
	require.Equal(t, "user-9", p.UserID)
	require.Equal(t, orders.StatusShipped, p.Status)

	require.JSONEq(t, `{"status":"shipped","user_id":"user-9"}`, cache.m["order_status:order-1"])
}

func TestUpdateStatus_NotFoundPublishesNothing(t *testing.T) {
	store := &stubStore{
		updateStatusFn: func(ctx context.Context, orderID, newStatus string) (*orders.Order, error) {
			return nil, orders.ErrOrderNotFound
		},
	}
	srv, _, changed, _, tokens := newOrdersTestServer(t, store)

	resp := doJSON(t, http.MethodPut, srv.URL+"/admin/orders/missing/status",
		bearer(t, tokens, "admin-1", true), `{"status":"shipped"}`)
	defer resp.Body.Close()

	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Empty(t, changed.values)
}

func TestUpdateStatus_InvalidStatusPublishesNothing(t *testing.T) {
	store := &stubStore{
		updateStatusFn: func(ctx context.Context, orderID, newStatus string) (*orders.Order, error) {
			return nil, orders.ErrInvalidStatus
		},
	}
	srv, _, changed, _, tokens := newOrdersTestServer(t, store)

	resp := doJSON(t, http.MethodPut, srv.URL+"/admin/orders/order-1/status",
		bearer(t, tokens, "admin-1", true), `{"status":"teleported"}`)
	defer resp.Body.Close()

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Empty(t, changed.values)
}

func TestUpdateStatus_RequiresAdmin(t *testing.T) {
	store := &stubStore{}
	srv, _, changed, _, tokens := newOrdersTestServer(t, store)

	resp := doJSON(t, http.MethodPut, srv.URL+"/admin/orders/order-1/status",
		bearer(t, tokens, "user-1", false), `{"status":"shipped"}`)
	defer resp.Body.Close()

	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Empty(t, changed.values)
}

func TestGetOrder_HidesForeignOrders(t *testing.T) {
	store := &stubStore{
		getOrderFn: func(ctx context.Context, orderID string) (*orders.Order, error) {
			return &orders.Order{ID: orderID, UserID: "someone-else"}, nil
		},
	}
	srv, _, _, _, tokens := newOrdersTestServer(t, store)

	resp := doJSON(t, http.MethodGet, srv.URL+"/orders/order-1", bearer(t, tokens, "user-1", false), "")
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp2 := doJSON(t, http.MethodGet, srv.URL+"/orders/order-1", bearer(t, tokens, "admin-1", true), "")
	defer resp2.Body.Close()
	require.Equal(t, http.StatusOK, resp2.StatusCode)
}

func TestOrders_RequireAuth(t *testing.T) {
	store := &stubStore{}
	srv, _, _, _, _ := newOrdersTestServer(t, store)

	resp := doJSON(t, http.MethodPost, srv.URL+"/orders", "", "")
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGetOrderStatus_ServedFromCache(t *testing.T) {
	store := &stubStore{
		getOrderFn: func(ctx context.Context, orderID string) (*orders.Order, error) {
			t.Fatal("store should not be hit on cache hit")
			return nil, nil
		},
	}
	srv, _, _, cache, tokens := newOrdersTestServer(t, store)
	cache.m["order_status:order-1"] = `{"status":"shipped","user_id":"user-1"}`

	resp := doJSON(t, http.MethodGet, srv.URL+"/orders/order-1/status", bearer(t, tokens, "user-1", false), "")
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "shipped", body["status"])
}

func TestGetOrderStatus_CacheHitHidesForeignOrders(t *testing.T) {
	store := &stubStore{
		getOrderFn: func(ctx context.Context, orderID string) (*orders.Order, error) {
			t.Fatal("store should not be hit on cache hit")
			return nil, nil
		},
	}
	srv, _, _, cache, tokens := newOrdersTestServer(t, store)
	cache.m["order_status:order-1"] = `{"status":"shipped","user_id":"owner-user"}`

	resp := doJSON(t, http.MethodGet, srv.URL+"/orders/order-1/status", bearer(t, tokens, "other-user", false), "")
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp2 := doJSON(t, http.MethodGet, srv.URL+"/orders/order-1/status", bearer(t, tokens, "admin-1", true), "")
	defer resp2.Body.Close()
	require.Equal(t, http.StatusOK, resp2.StatusCode)
}

func TestGetOrderStatus_OwnerlessCacheEntryFallsBackToStore(t *testing.T) {
	store := &stubStore{
		getOrderFn: func(ctx context.Context, orderID string) (*orders.Order, error) {
			return &orders.Order{ID: orderID, UserID: "user-1", Status: orders.StatusProcessing}, nil
		},
	}
	srv, _, _, cache, tokens := newOrdersTestServer(t, store)
	cache.m["order_status:order-1"] = `{"status":"shipped"}`

	resp := doJSON(t, http.MethodGet, srv.URL+"/orders/order-1/status", bearer(t, tokens, "user-1", false), "")
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "processing", body["status"])
	require.JSONEq(t, `{"status":"processing","user_id":"user-1"}`, cache.m["order_status:order-1"])
}
