// Package redis provides the Redis-backed persistence backend. The cart
// record lives under one namespaced key; every save publishes on a matching
// channel so replicas subscribed to the namespace reload and converge.
//
// Unlike the in-memory bus, Redis pub/sub cannot exclude the publishing
// connection, so a replica may observe its own write echoed back. Reloads
// are idempotent, which makes the echo harmless.
package redis

import (
	"context"
	"errors"
	"sync"

	goredis "github.com/go-redis/redis/v8"

	"github.com/Storeline/cart_engine/internal/app/domain/cart"
	"github.com/Storeline/cart_engine/internal/app/storage"
	"github.com/Storeline/cart_engine/internal/apperr"
	"github.com/Storeline/cart_engine/pkg/logger"
)

const channelPrefix = "cartengine:changed:"

// Store implements storage.CartStore backed by Redis.
type Store struct {
	client    goredis.UniversalClient
	key       string
	channel   string
	namespace string
	log       *logger.Logger

	mu      sync.Mutex
	pubsubs []*goredis.PubSub
	closed  bool
}

var _ storage.CartStore = (*Store)(nil)

// New creates a store for one cart namespace on the given client.
func New(client goredis.UniversalClient, namespace string, log *logger.Logger) *Store {
	if log == nil {
		log = logger.NewDefault("storage-redis")
	}
	return &Store{
		client:    client,
		key:       storage.RecordKey(namespace),
		channel:   channelPrefix + namespace,
		namespace: namespace,
		log:       log,
	}
}

// Load reads the persisted cart. A missing key loads as an empty cart;
// malformed content decodes as an empty cart.
func (s *Store) Load(ctx context.Context) (cart.Cart, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return cart.Empty(), nil
	}
	if err != nil {
		return cart.Empty(), apperr.Storage(err)
	}
	return storage.Decode(data), nil
}

// Save replaces the record and publishes the change to subscribed replicas.
func (s *Store) Save(ctx context.Context, c cart.Cart) error {
	data, err := storage.Encode(c)
	if err != nil {
		return apperr.Storage(err)
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return apperr.Storage(err)
	}
	if err := s.client.Publish(ctx, s.channel, s.namespace).Err(); err != nil {
		// The write landed; peers will still converge on their next load.
		s.log.WithError(err).WithField("namespace", s.namespace).
			Warn("change notification publish failed")
	}
	return nil
}

// Subscribe listens on the namespace channel and reloads the cart on every
// message.
func (s *Store) Subscribe(fn func(cart.Cart)) (func(), error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, apperr.Storage(errors.New("store closed"))
	}
	pubsub := s.client.Subscribe(context.Background(), s.channel)
	s.pubsubs = append(s.pubsubs, pubsub)
	s.mu.Unlock()

	go func() {
		for msg := range pubsub.Channel() {
			if msg.Payload != s.namespace {
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
		if err := pubsub.Close(); err != nil {
			s.log.WithError(err).Warn("pubsub close failed")
		}
	}, nil
}

// Close shuts down all subscriptions. The shared client is owned by the
// caller and stays open.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	var firstErr error
	for _, ps := range s.pubsubs {
		if err := ps.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.pubsubs = nil
	return firstErr
}
