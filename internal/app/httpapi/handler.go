// Package httpapi exposes the cart and checkout services over REST plus a
// websocket change feed.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	app "github.com/Storeline/cart_engine/internal/app"
	"github.com/Storeline/cart_engine/internal/app/domain/cart"
	"github.com/Storeline/cart_engine/internal/app/domain/discount"
	"github.com/Storeline/cart_engine/internal/app/domain/order"
	domainpricing "github.com/Storeline/cart_engine/internal/app/domain/pricing"
	"github.com/Storeline/cart_engine/internal/app/metrics"
	checkoutsvc "github.com/Storeline/cart_engine/internal/app/services/checkout"
	"github.com/Storeline/cart_engine/internal/apperr"
	"github.com/Storeline/cart_engine/pkg/logger"
)

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app *app.Application
	log *logger.Logger
}

// Options tunes the HTTP surface.
type Options struct {
	// RequestsPerSecond and Burst configure the per-client rate limiter.
	// Zero RequestsPerSecond disables limiting.
	RequestsPerSecond int
	Burst             int
}

// NewHandler returns a router exposing the REST API, the websocket change
// feed, health and metrics.
func NewHandler(application *app.Application, opts Options, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	h := &handler{app: application, log: log}

	r := mux.NewRouter()
	r.HandleFunc("/cart", h.getCart).Methods(http.MethodGet)
	r.HandleFunc("/cart", h.clearCart).Methods(http.MethodDelete)
	r.HandleFunc("/cart/items", h.addItem).Methods(http.MethodPost)
	r.HandleFunc("/cart/items", h.updateQuantity).Methods(http.MethodPatch)
	r.HandleFunc("/cart/items", h.removeItem).Methods(http.MethodDelete)
	r.HandleFunc("/cart/items/discount", h.setItemDiscount).Methods(http.MethodPut)
	r.HandleFunc("/cart/items/discount", h.clearItemDiscount).Methods(http.MethodDelete)
	r.HandleFunc("/cart/discount", h.setCartDiscount).Methods(http.MethodPut)
	r.HandleFunc("/cart/discount", h.clearCartDiscount).Methods(http.MethodDelete)
	r.HandleFunc("/cart/shipping", h.setShipping).Methods(http.MethodPut)
	r.HandleFunc("/cart/totals", h.getTotals).Methods(http.MethodGet)
	r.HandleFunc("/cart/watch", h.watch).Methods(http.MethodGet)
	r.HandleFunc("/checkout", h.submitCheckout).Methods(http.MethodPost)
	r.HandleFunc("/checkout/status", h.checkoutStatus).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	var wrapped http.Handler = r
	if opts.RequestsPerSecond > 0 {
		wrapped = newRateLimiter(opts.RequestsPerSecond, opts.Burst, log).middleware(wrapped)
	}
	return metrics.InstrumentHandler(wrapped)
}

// itemView is the wire form of one cart line.
type itemView struct {
	ProductID string            `json:"productId"`
	Name      string            `json:"name"`
	Variation map[string]string `json:"variation,omitempty"`
	Quantity  int               `json:"quantity"`
	UnitPrice int64             `json:"unitPrice"`
	LineTotal int64             `json:"lineTotal"`
	Discount  *discountView     `json:"discount,omitempty"`
}

type discountView struct {
	Kind  string  `json:"kind"`
	Value float64 `json:"value"`
}

type totalsView struct {
	Subtotal     int64 `json:"subtotal"`
	ItemDiscount int64 `json:"itemDiscount"`
	CartDiscount int64 `json:"cartDiscount"`
	ShippingFee  int64 `json:"shippingFee"`
	GrandTotal   int64 `json:"grandTotal"`
}

type cartView struct {
	Items        []itemView    `json:"items"`
	CartDiscount *discountView `json:"cartDiscount,omitempty"`
	Shipping     string        `json:"shipping"`
	Totals       totalsView    `json:"totals"`
}

func viewDiscount(spec *discount.Spec) *discountView {
	if spec == nil {
		return nil
	}
	return &discountView{Kind: string(spec.Kind), Value: spec.Value}
}

func viewTotals(t domainpricing.Totals) totalsView {
	return totalsView{
		Subtotal:     t.SubtotalCents,
		ItemDiscount: t.ItemDiscountCents,
		CartDiscount: t.CartDiscountCents,
		ShippingFee:  t.ShippingFeeCents,
		GrandTotal:   t.GrandTotalCents,
	}
}

func viewCart(c cart.Cart, t domainpricing.Totals) cartView {
	items := make([]itemView, 0, len(c.Items))
	for _, item := range c.Items {
		items = append(items, itemView{
			ProductID: item.ProductID,
			Name:      item.DisplayName,
			Variation: item.Variation,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPriceCents,
			LineTotal: item.LineTotalCents(),
			Discount:  viewDiscount(item.ItemDiscount),
		})
	}
	return cartView{
		Items:        items,
		CartDiscount: viewDiscount(c.CartDiscount),
		Shipping:     string(c.Shipping),
		Totals:       viewTotals(t),
	}
}

func (h *handler) currentView() cartView {
	return viewCart(h.app.Cart.Snapshot(), h.app.Cart.Totals())
}

func (h *handler) getCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.currentView())
}

func (h *handler) getTotals(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, viewTotals(h.app.Cart.Totals()))
}

func (h *handler) addItem(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ProductID string            `json:"productId"`
		Name      string            `json:"name"`
		Variation map[string]string `json:"variation"`
		Quantity  int               `json:"quantity"`
		UnitPrice int64             `json:"unitPrice"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if payload.Quantity == 0 {
		payload.Quantity = 1
	}
	updated, err := h.app.Cart.AddItem(r.Context(), payload.ProductID, payload.Quantity, payload.Variation, payload.Name, payload.UnitPrice)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewCart(updated, h.app.Cart.Totals()))
}

func (h *handler) updateQuantity(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ProductID string            `json:"productId"`
		Variation map[string]string `json:"variation"`
		Quantity  int               `json:"quantity"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	updated, err := h.app.Cart.UpdateQuantity(r.Context(), payload.ProductID, payload.Variation, payload.Quantity)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewCart(updated, h.app.Cart.Totals()))
}

func (h *handler) removeItem(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ProductID string            `json:"productId"`
		Variation map[string]string `json:"variation"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	updated, err := h.app.Cart.RemoveItem(r.Context(), payload.ProductID, payload.Variation)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewCart(updated, h.app.Cart.Totals()))
}

func (h *handler) clearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Cart.Clear(r.Context()); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.currentView())
}

func (h *handler) setCartDiscount(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Kind  string  `json:"kind"`
		Value float64 `json:"value"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	updated, err := h.app.Cart.SetCartDiscount(r.Context(), discount.Spec{Kind: discount.Kind(payload.Kind), Value: payload.Value})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewCart(updated, h.app.Cart.Totals()))
}

func (h *handler) clearCartDiscount(w http.ResponseWriter, r *http.Request) {
	updated, err := h.app.Cart.ClearCartDiscount(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewCart(updated, h.app.Cart.Totals()))
}

func (h *handler) setItemDiscount(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ProductID string            `json:"productId"`
		Variation map[string]string `json:"variation"`
		Kind      string            `json:"kind"`
		Value     float64           `json:"value"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	updated, err := h.app.Cart.SetItemDiscount(r.Context(), payload.ProductID, payload.Variation, discount.Spec{Kind: discount.Kind(payload.Kind), Value: payload.Value})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewCart(updated, h.app.Cart.Totals()))
}

func (h *handler) clearItemDiscount(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ProductID string            `json:"productId"`
		Variation map[string]string `json:"variation"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	updated, err := h.app.Cart.ClearItemDiscount(r.Context(), payload.ProductID, payload.Variation)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewCart(updated, h.app.Cart.Totals()))
}

func (h *handler) setShipping(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Method string `json:"method"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	updated, err := h.app.Cart.SetShipping(r.Context(), domainpricing.ShippingMethod(payload.Method))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewCart(updated, h.app.Cart.Totals()))
}

func (h *handler) submitCheckout(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Contact order.Contact `json:"customerContact"`
		Address order.Address `json:"shippingAddress"`
		Notes   string        `json:"notes"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	orderID, err := h.app.Checkout.Submit(r.Context(), payload.Contact, payload.Address, payload.Notes)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"orderId": orderID,
		"status":  h.app.Checkout.Status(),
	})
}

func (h *handler) checkoutStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status": h.app.Checkout.Status(),
	}
	if id := h.app.Checkout.LastOrderID(); id != "" {
		resp["orderId"] = id
	}
	if err := h.app.Checkout.LastError(); err != nil {
		resp["error"] = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeServiceError maps service errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	var transition checkoutsvc.TransitionError
	switch {
	case errors.Is(err, apperr.ErrValidation):
		writeError(w, http.StatusBadRequest, err)
	case errors.As(err, &transition):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, apperr.ErrPriceLookup), errors.Is(err, apperr.ErrOrderSubmission):
		writeError(w, http.StatusBadGateway, err)
	case errors.Is(err, apperr.ErrStorage):
		writeError(w, http.StatusInternalServerError, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
