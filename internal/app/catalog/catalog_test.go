package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Storeline/cart_engine/internal/apperr"
)

func TestGetUnitPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/products/tee-41/price" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id": "tee-41", "displayName": "Classic Tee", "price": 5500,
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	p, err := client.GetUnitPrice(context.Background(), "tee-41")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.UnitPriceCents != 5500 || p.DisplayName != "Classic Tee" {
		t.Fatalf("unexpected product: %+v", p)
	}
}

func TestGetUnitPrice_NotFoundIsPriceLookupError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such product", http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	_, err := client.GetUnitPrice(context.Background(), "ghost")
	if !errors.Is(err, apperr.ErrPriceLookup) {
		t.Fatalf("expected price lookup error, got %v", err)
	}
}

func TestGetUnitPrice_UnreachableBackend(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", 100*time.Millisecond)
	_, err := client.GetUnitPrice(context.Background(), "tee-41")
	if !errors.Is(err, apperr.ErrPriceLookup) {
		t.Fatalf("expected price lookup error, got %v", err)
	}
}
