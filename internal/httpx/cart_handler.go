package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-shop-backend/internal/auth"
	"github.com/ariefcatur/go-shop-backend/internal/cart"
)

type AddToCartReq struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

type UpdateCartLineReq struct {
	Qty int `json:"qty"`
}

type CartHandler struct {
	Repo   *cart.Repo
	Tokens *auth.Tokens
}

func (h *CartHandler) Register(r *chi.Mux) {
	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(h.Tokens))
		r.Get("/cart", h.getCart)
		r.Post("/cart", h.addLine)
		r.Put("/cart/{product_id}", h.updateLine)
		r.Delete("/cart/{product_id}", h.removeLine)
		r.Delete("/cart", h.clearCart)
	})
}

func (h *CartHandler) getCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	items, err := h.Repo.List(ctx, UserID(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	var subtotal int64
	var count int
	for _, it := range items {
		subtotal += it.LineCents
		count += it.Qty
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items":          items,
		"subtotal_cents": subtotal,
		"total_items":    count,
	})
}

func (h *CartHandler) addLine(w http.ResponseWriter, r *http.Request) {
	var req AddToCartReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.ProductID == "" || req.Qty <= 0 {
		writeError(w, http.StatusBadRequest, "missing fields")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Repo.Add(ctx, UserID(r.Context()), req.ProductID, req.Qty); err != nil {
		if errors.Is(err, cart.ErrProductNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "added to cart"})
}

func (h *CartHandler) updateLine(w http.ResponseWriter, r *http.Request) {
	var req UpdateCartLineReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Qty < 0 {
		writeError(w, http.StatusBadRequest, "invalid qty")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID := UserID(r.Context())
	productID := chi.URLParam(r, "product_id")

	// qty 0 means remove
	var err error
	if req.Qty == 0 {
		err = h.Repo.Remove(ctx, userID, productID)
	} else {
		err = h.Repo.SetQty(ctx, userID, productID, req.Qty)
	}
	if err != nil {
		if errors.Is(err, cart.ErrLineNotFound) {
			writeError(w, http.StatusNotFound, "not in cart")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "cart updated"})
}

func (h *CartHandler) removeLine(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Repo.Remove(ctx, UserID(r.Context()), chi.URLParam(r, "product_id")); err != nil {
		if errors.Is(err, cart.ErrLineNotFound) {
			writeError(w, http.StatusNotFound, "not in cart")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "removed"})
}

func (h *CartHandler) clearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Repo.Clear(ctx, UserID(r.Context())); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "cart cleared"})
}
