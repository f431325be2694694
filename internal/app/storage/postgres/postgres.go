// Package postgres provides the PostgreSQL-backed persistence backend. One
// row per cart namespace, replaced wholesale on every save; LISTEN/NOTIFY
// carries the change signal between replicas.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Storeline/cart_engine/internal/app/domain/cart"
	"github.com/Storeline/cart_engine/internal/app/storage"
	"github.com/Storeline/cart_engine/internal/apperr"
	"github.com/Storeline/cart_engine/pkg/logger"
)

// notifyChannel is the LISTEN/NOTIFY channel shared by all namespaces; the
// notification payload identifies the namespace that changed.
const notifyChannel = "cart_engine_changed"

const schema = `
CREATE TABLE IF NOT EXISTS cart_records (
	namespace  TEXT PRIMARY KEY,
	record     JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Store implements storage.CartStore backed by PostgreSQL.
type Store struct {
	db        *sqlx.DB
	dsn       string
	namespace string
	log       *logger.Logger
}

var _ storage.CartStore = (*Store)(nil)

// New creates a store for one cart namespace. The dsn is used to open
// dedicated LISTEN connections for subscriptions; pass "" when change
// notifications are not needed.
func New(db *sqlx.DB, dsn, namespace string, log *logger.Logger) *Store {
	if log == nil {
		log = logger.NewDefault("storage-postgres")
	}
	return &Store{db: db, dsn: dsn, namespace: namespace, log: log}
}

// EnsureSchema creates the cart_records table when absent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return apperr.Storage(err)
	}
	return nil
}

// Load reads the persisted cart. A missing row loads as an empty cart;
// malformed content decodes as an empty cart.
func (s *Store) Load(ctx context.Context) (cart.Cart, error) {
	var record []byte
	err := s.db.QueryRowxContext(ctx,
		`SELECT record FROM cart_records WHERE namespace = $1`, s.namespace,
	).Scan(&record)
	if errors.Is(err, sql.ErrNoRows) {
		return cart.Empty(), nil
	}
	if err != nil {
		return cart.Empty(), apperr.Storage(err)
	}
	return storage.Decode(record), nil
}

// Save replaces the row wholesale and notifies listening replicas.
func (s *Store) Save(ctx context.Context, c cart.Cart) error {
	data, err := storage.Encode(c)
	if err != nil {
		return apperr.Storage(err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cart_records (namespace, record, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (namespace)
		DO UPDATE SET record = EXCLUDED.record, updated_at = now()
	`, s.namespace, data)
	if err != nil {
		return apperr.Storage(err)
	}
	if _, err := s.db.ExecContext(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, s.namespace); err != nil {
		// The row is written; peers converge on their next load.
		s.log.WithError(err).WithField("namespace", s.namespace).
			Warn("change notification failed")
	}
	return nil
}

// Subscribe opens a dedicated LISTEN connection and reloads the cart on
// every notification for this namespace.
func (s *Store) Subscribe(fn func(cart.Cart)) (func(), error) {
	if s.dsn == "" {
		return nil, apperr.Storage(errors.New("no dsn configured for listen/notify"))
	}

	listener := pq.NewListener(s.dsn, 250*time.Millisecond, 30*time.Second,
		func(_ pq.ListenerEventType, err error) {
			if err != nil {
				s.log.WithError(err).Warn("listener event error")
			}
		})
	if err := listener.Listen(notifyChannel); err != nil {
		listener.Close()
		return nil, apperr.Storage(err)
	}

	go func() {
		for n := range listener.Notify {
			// Nil notifications signal connection re-establishment;
			// reload then too, in case writes were missed.
			if n != nil && n.Extra != s.namespace {
				continue
			}
			reloaded, err := s.Load(context.Background())
			if err != nil {
				s.log.WithError(err).WithField("namespace", s.namespace).
					Warn("reload after change notification failed")
				continue
			}
			fn(reloaded)
		}
	}()

	return func() {
		if err := listener.Close(); err != nil {
			s.log.WithError(err).Warn("listener close failed")
		}
	}, nil
}

// Close is a no-op; the database handle and listeners are owned by their
// creators.
func (s *Store) Close() error {
	return nil
}
