package postgres

import (
	"context"
	"io"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/Storeline/cart_engine/internal/app/domain/cart"
	"github.com/Storeline/cart_engine/internal/app/storage"
	"github.com/Storeline/cart_engine/pkg/logger"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	log := logger.NewDefault("test")
	log.SetOutput(io.Discard)
	return New(sqlx.NewDb(db, "sqlmock"), "", "session-1", log), mock
}

func TestLoad_MissingRowIsEmptyCart(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT record FROM cart_records`).
		WithArgs("session-1").
		WillReturnRows(sqlmock.NewRows([]string{"record"}))

	c, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !c.IsEmpty() {
		t.Fatalf("expected empty cart, got %d items", len(c.Items))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestLoad_DecodesStoredRecord(t *testing.T) {
	store, mock := newMockStore(t)
	record := []byte(`{"version":1,"items":[{"productId":"p1","quantity":2,"unitPrice":5000}]}`)
	mock.ExpectQuery(`SELECT record FROM cart_records`).
		WithArgs("session-1").
		WillReturnRows(sqlmock.NewRows([]string{"record"}).AddRow(record))

	c, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(c.Items) != 1 || c.Items[0].Quantity != 2 || c.Items[0].UnitPriceCents != 5000 {
		t.Fatalf("unexpected cart: %+v", c)
	}
}

func TestLoad_MalformedRecordFailsOpen(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT record FROM cart_records`).
		WithArgs("session-1").
		WillReturnRows(sqlmock.NewRows([]string{"record"}).AddRow([]byte("{{corrupt")))

	c, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !c.IsEmpty() {
		t.Fatalf("expected fail-open empty cart, got %+v", c)
	}
}

func TestSave_UpsertsAndNotifies(t *testing.T) {
	store, mock := newMockStore(t)
	c := cart.Empty()
	c.Add(cart.LineItem{ProductID: "p1", Quantity: 1, UnitPriceCents: 995})
	data, err := storage.Encode(c)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	mock.ExpectExec(`INSERT INTO cart_records`).
		WithArgs("session-1", data).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`SELECT pg_notify`).
		WithArgs("cart_engine_changed", "session-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.Save(context.Background(), c); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSubscribe_RequiresDSN(t *testing.T) {
	store, _ := newMockStore(t)
	if _, err := store.Subscribe(func(cart.Cart) {}); err == nil {
		t.Fatalf("expected error subscribing without dsn")
	}
}
