package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-shop-backend/internal/auth"
	kafkax "github.com/ariefcatur/go-shop-backend/internal/kafka"
	"github.com/ariefcatur/go-shop-backend/internal/orders"
	"github.com/ariefcatur/go-shop-backend/internal/redisx"
)

// OrderStore is implemented by orders.Repo.
type OrderStore interface {
	PlaceOrder(ctx context.Context, userID string) (*orders.Order, error)
	UpdateStatus(ctx context.Context, orderID, newStatus string) (*orders.Order, error)
	GetOrder(ctx context.Context, orderID string) (*orders.Order, error)
	ListByUser(ctx context.Context, userID string) ([]orders.Order, error)
}

// Publisher is implemented by kafka.Producer. Publish never blocks on
// the broker and never fails the request.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// StatusCache is implemented by redisx.Store.
type StatusCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, val string, ttl time.Duration) error
}

type UpdateStatusReq struct {
	Status string `json:"status"`
}

type OrdersHandler struct {
	Store         OrderStore
	Placed        Publisher // order.placed
	StatusChanged Publisher // order.status.changed
	Cache         StatusCache
	Tokens        *auth.Tokens
	Service       string
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(h.Tokens))
		r.Post("/orders", h.placeOrder)
		r.Get("/orders", h.listOrders)
		r.Get("/orders/{id}", h.getOrder)
		r.Get("/orders/{id}/status", h.getOrderStatus)
	})
	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(h.Tokens), RequireAdmin)
		r.Put("/admin/orders/{id}/status", h.updateStatus)
	})
}

func (h *OrdersHandler) placeOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Store.PlaceOrder(ctx, UserID(r.Context()))
	if err != nil {
		var stockErr *orders.InsufficientStockError
		switch {
		case errors.Is(err, orders.ErrEmptyCart):
			writeError(w, http.StatusBadRequest, "cart is empty")
		case errors.As(err, &stockErr):
			writeError(w, http.StatusConflict, stockErr.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	h.cacheStatus(ctx, o)

	items := make([]orders.ItemQty, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orders.ItemQty{ProductID: it.ProductID, Qty: it.Qty})
	}
	h.publish(r, h.Placed, orders.EventOrderPlaced, o.ID, orders.OrderPlacedPayload{
		OrderID:    o.ID,
		UserID:     o.UserID,
		Items:      items,
		TotalCents: o.TotalCents,
	})

	writeJSON(w, http.StatusCreated, o)
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Store.UpdateStatus(ctx, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		switch {
		case errors.Is(err, orders.ErrOrderNotFound):
			writeError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, orders.ErrInvalidStatus):
			writeError(w, http.StatusBadRequest, "invalid status")
		case errors.Is(err, orders.ErrInvalidTransition):
			writeError(w, http.StatusConflict, "status transition not allowed")
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	h.cacheStatus(ctx, o)

	h.publish(r, h.StatusChanged, orders.EventOrderStatusChanged, o.ID, orders.OrderStatusChangedPayload{
		OrderID: o.ID,
		UserID:  o.UserID,
		Status:  o.Status,
	})

	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("order status updated to %s", o.Status),
	})
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.Store.ListByUser(ctx, UserID(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Store.GetOrder(ctx, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, orders.ErrOrderNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	// owners see their own orders; admins see all
	if o.UserID != UserID(r.Context()) && !IsAdmin(r.Context()) {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// getOrderStatus serves from the Redis cache first, DB fallback. The
// cached entry carries the owner id so the cache path enforces the same
// owner-or-admin rule as the DB path.
func (h *OrdersHandler) getOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	if s, ok, err := h.Cache.Get(ctx, key); err == nil && ok {
		var cached cachedStatus
		// entries without an owner fall through to the DB
		if json.Unmarshal([]byte(s), &cached) == nil && cached.UserID != "" {
			if cached.UserID != UserID(r.Context()) && !IsAdmin(r.Context()) {
				writeError(w, http.StatusNotFound, "order not found")
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"status": cached.Status})
			return
		}
	}

	o, err := h.Store.GetOrder(ctx, orderID)
	if err != nil {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	if o.UserID != UserID(r.Context()) && !IsAdmin(r.Context()) {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	h.cacheStatus(ctx, o)
	writeJSON(w, http.StatusOK, map[string]string{"status": string(o.Status)})
}

type cachedStatus struct {
	Status string `json:"status"`
	UserID string `json:"user_id"`
}

func (h *OrdersHandler) cacheStatus(ctx context.Context, o *orders.Order) {
	key := fmt.Sprintf(redisx.KeyOrderStatus, o.ID)
	val := kafkax.MustMarshal(cachedStatus{Status: string(o.Status), UserID: o.UserID})
	_ = h.Cache.Set(ctx, key, string(val), redisx.TTLStatusCache)
}

func (h *OrdersHandler) publish(r *http.Request, p Publisher, eventType, orderID string, payload any) {
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       r.Header.Get("X-Request-Id"),
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	p.Publish(orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
