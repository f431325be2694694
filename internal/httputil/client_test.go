package httputil

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNew_Defaults(t *testing.T) {
	client := New(Config{BaseURL: "http://localhost:8080/"})
	if client.baseURL != "http://localhost:8080" {
		t.Errorf("baseURL = %s, trailing slash not trimmed", client.baseURL)
	}
	if client.maxRetries != 2 {
		t.Errorf("maxRetries = %d, want default 2", client.maxRetries)
	}
	if client.httpClient.Timeout != 10*time.Second {
		t.Errorf("timeout = %v, want default 10s", client.httpClient.Timeout)
	}
}

func TestDo_PostsJSONBody(t *testing.T) {
	var gotContentType string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := New(Config{BaseURL: srv.URL})
	resp, err := client.Post(context.Background(), "/orders", map[string]string{"note": "gift"})
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()

	if gotContentType != "application/json" {
		t.Errorf("content type = %q", gotContentType)
	}
	if gotBody["note"] != "gift" {
		t.Errorf("body = %v", gotBody)
	}
}

func TestDo_RetriesTransientStatuses(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := New(Config{BaseURL: srv.URL, MaxRetries: 3})
	resp, err := client.Get(context.Background(), "/prices/p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d after retries", resp.StatusCode)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestDecodeResponse_ErrorStatusCarriesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "product not found", http.StatusNotFound)
	}))
	defer srv.Close()

	client := New(Config{BaseURL: srv.URL})
	resp, err := client.Get(context.Background(), "/prices/ghost")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	var target struct{}
	err = DecodeResponse(resp, &target)
	if err == nil {
		t.Fatalf("expected error for 404 response")
	}
	if got := err.Error(); got != "request failed with status 404: product not found" {
		t.Fatalf("unexpected error message: %q", got)
	}
}

func TestDecodeResponse_DecodesTarget(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"price": 5000, "displayName": "Classic Tee"})
	}))
	defer srv.Close()

	client := New(Config{BaseURL: srv.URL})
	resp, err := client.Get(context.Background(), "/prices/tee-41")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	var target struct {
		Price       int64  `json:"price"`
		DisplayName string `json:"displayName"`
	}
	if err := DecodeResponse(resp, &target); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if target.Price != 5000 || target.DisplayName != "Classic Tee" {
		t.Fatalf("unexpected target: %+v", target)
	}
}
