package httpapi

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestWatchStreamsSnapshots(t *testing.T) {
	application := newTestApp(t)
	server := httptest.NewServer(NewHandler(application, Options{}, nil))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/cart/watch"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	readView := func() cartView {
		t.Helper()
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var view cartView
		if err := conn.ReadJSON(&view); err != nil {
			t.Fatalf("read snapshot: %v", err)
		}
		return view
	}

	// The current state arrives before any mutation.
	initial := readView()
	if len(initial.Items) != 0 {
		t.Fatalf("expected empty initial snapshot, got %d lines", len(initial.Items))
	}

	if _, err := application.Cart.AddItem(context.Background(), "tee-1", 2, nil, "Tee", 5000); err != nil {
		t.Fatalf("add item: %v", err)
	}

	updated := readView()
	if len(updated.Items) != 1 || updated.Items[0].Quantity != 2 {
		t.Fatalf("unexpected streamed snapshot: %+v", updated)
	}
	if updated.Totals.GrandTotal != 10000 {
		t.Fatalf("expected streamed totals 10000, got %d", updated.Totals.GrandTotal)
	}
}
