package orders

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Storeline/cart_engine/internal/app/domain/order"
	"github.com/Storeline/cart_engine/internal/apperr"
)

func TestCreateOrder(t *testing.T) {
	var received order.Order
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/orders" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Idempotency-Key") == "" {
			t.Error("missing idempotency key")
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"orderId": "ord-77"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	payload := order.Order{
		CustomerContact: order.Contact{Name: "Dana", Email: "dana@example.com"},
		ShippingAddress: order.Address{Line1: "1 Main St", City: "Porto", PostalCode: "4000", Country: "PT"},
		Items: []order.Item{
			{ProductID: "tee-41", Size: "M", Color: "Navy", Quantity: 2, UnitPriceCents: 5500},
		},
	}

	orderID, err := client.CreateOrder(context.Background(), payload)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if orderID != "ord-77" {
		t.Fatalf("order id = %q", orderID)
	}
	if received.Items[0].UnitPriceCents != 5500 {
		t.Fatalf("payload lost the unit price: %+v", received.Items[0])
	}
}

func TestCreateOrder_BackendRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "address invalid", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	_, err := client.CreateOrder(context.Background(), order.Order{})
	if !errors.Is(err, apperr.ErrOrderSubmission) {
		t.Fatalf("expected order submission error, got %v", err)
	}
}
