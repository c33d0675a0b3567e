package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/cart-pricing/internal/domain/order"
	"github.com/xenking/cart-pricing/internal/domain/pricing"
	"github.com/xenking/cart-pricing/internal/domain/product"
	"github.com/xenking/cart-pricing/internal/domain/user"
	"github.com/xenking/cart-pricing/pkg/httpmiddleware"
)

// statusFor maps domain errors to HTTP status codes. Unknown errors are 500.
func statusFor(err error) int {
	var (
		iqErr  *order.InvalidQuantityError
		pnfErr *order.ProductNotFoundError
	)
	switch {
	case errors.Is(err, order.ErrEmptyItems),
		errors.Is(err, pricing.ErrUnknownPolicy):
		return http.StatusBadRequest
	case errors.Is(err, product.ErrNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, user.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &iqErr),
		errors.As(err, &pnfErr),
		errors.Is(err, pricing.ErrInvalidLineItem):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		httpmiddleware.WriteError(w, status, "internal server error")
		return
	}
	httpmiddleware.WriteError(w, status, err.Error())
}
