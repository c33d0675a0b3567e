// Package handler exposes the catalog, quoting and ordering operations as a
// JSON HTTP API.
package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/cart-pricing/internal/domain/auth"
	"github.com/xenking/cart-pricing/internal/domain/order"
	"github.com/xenking/cart-pricing/internal/domain/pricing"
	"github.com/xenking/cart-pricing/internal/domain/product"
	"github.com/xenking/cart-pricing/pkg/httpmiddleware"
)

// maxBodySize bounds request bodies.
const maxBodySize = 1 << 20

// Handler serves the /api routes.
type Handler struct {
	products product.Repository
	orders   *order.Service
	security *SecurityHandler
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(products product.Repository, orders *order.Service, security *SecurityHandler) *Handler {
	return &Handler{
		products: products,
		orders:   orders,
		security: security,
	}
}

// Register mounts the API on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/product", h.ListProducts)
	mux.HandleFunc("GET /api/product/{productId}", h.GetProduct)
	mux.HandleFunc("GET /api/policy", h.ListPolicies)
	mux.HandleFunc("POST /api/quote", h.Quote)
	mux.HandleFunc("POST /api/order", h.security.Require(auth.ScopePlaceOrder, h.PlaceOrder))
	mux.HandleFunc("GET /api/order/{orderId}", h.security.Require(auth.ScopeReadOrder, h.GetOrder))
}

// ListProducts returns the whole catalog.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	list, err := h.products.List(r.Context())
	if err != nil {
		h.fail(w, r, errors.Wrap(err, "list products"))
		return
	}
	writeJSON(w, http.StatusOK, encodeProducts(list))
}

// GetProduct returns one product.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), r.PathValue("productId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, encodeProduct(*p))
}

// ListPolicies returns the registered discount policy kinds.
func (h *Handler) ListPolicies(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, encodeKinds(h.orders.Policies().Kinds()))
}

// Quote prices a cart under the requested policy without placing an order.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	req, err := decodeQuoteRequest(body)
	if err != nil {
		httpmiddleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	q, err := h.orders.Quote(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, encodeQuote(q))
}

// PlaceOrder prices and persists a cart for a user.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	req, err := decodePlaceOrderRequest(body)
	if err != nil {
		httpmiddleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.orders.PlaceOrder(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	fields := []zap.Field{
		zap.String("order_id", result.Order.ID),
		zap.String("user_id", result.Order.UserID),
		zap.String("policy", string(result.Order.Policy)),
		zap.String("total", result.Order.Total.StringFixed(pricing.Scale)),
	}
	if key, ok := APIKeyFromContext(r.Context()); ok {
		fields = append(fields, zap.String("api_key_id", key.ID))
	}
	zctx.From(r.Context()).Info("Order placed", fields...)
	writeJSON(w, http.StatusOK, encodePlacedOrder(result))
}

// GetOrder returns a placed order.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetOrder(r.Context(), r.PathValue("orderId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, encodeOrder(o))
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		httpmiddleware.WriteError(w, http.StatusBadRequest, "read body: "+err.Error())
		return nil, false
	}
	return body, true
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
