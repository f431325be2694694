package app

import (
	"context"
	"fmt"
	"time"

	"github.com/Storeline/cart_engine/internal/app/catalog"
	"github.com/Storeline/cart_engine/internal/app/domain/order"
	"github.com/Storeline/cart_engine/internal/app/orders"
	cartsvc "github.com/Storeline/cart_engine/internal/app/services/cart"
	checkoutsvc "github.com/Storeline/cart_engine/internal/app/services/checkout"
	"github.com/Storeline/cart_engine/internal/app/storage"
	"github.com/Storeline/cart_engine/internal/app/storage/memory"
	"github.com/Storeline/cart_engine/internal/app/system"
	"github.com/Storeline/cart_engine/pkg/logger"
)

// Stores encapsulates persistence dependencies. A nil cart store defaults to
// an adapter on a fresh in-memory bus.
type Stores struct {
	Cart storage.CartStore
}

// Collaborators are the remote services checkout reconciles against. Nil
// entries are replaced with stubs that reject every call, which keeps the
// cart usable while leaving checkout inoperable until both are configured.
type Collaborators struct {
	Catalog catalog.Lookup
	Orders  orders.Submitter
}

// Options tunes application behaviour beyond its dependencies.
type Options struct {
	// LookupTimeout bounds each checkout price lookup. Zero keeps the
	// reconciler default.
	LookupTimeout time.Duration
	// Namespace selects the cart record shared by all replicas of one
	// session. Only used when the cart store is defaulted.
	Namespace string
}

// Application ties the cart and checkout services together and manages their
// lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Cart     *cartsvc.Service
	Checkout *checkoutsvc.Service
}

// New builds a fully initialised application with the provided dependencies.
func New(ctx context.Context, stores Stores, collab Collaborators, opts Options, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	if stores.Cart == nil {
		ns := opts.Namespace
		if ns == "" {
			ns = "default"
		}
		stores.Cart = memory.NewBus().Adapter(ns)
	}

	if collab.Catalog == nil {
		log.Warn("catalog backend not configured; checkout price lookups will fail")
		collab.Catalog = catalog.LookupFunc(func(context.Context, string) (catalog.Product, error) {
			return catalog.Product{}, fmt.Errorf("catalog backend not configured")
		})
	}
	if collab.Orders == nil {
		log.Warn("orders backend not configured; checkout submission will fail")
		collab.Orders = orders.SubmitterFunc(func(context.Context, order.Order) (string, error) {
			return "", fmt.Errorf("orders backend not configured")
		})
	}

	cartService, err := cartsvc.New(ctx, stores.Cart, log)
	if err != nil {
		return nil, fmt.Errorf("initialise cart service: %w", err)
	}

	checkoutService := checkoutsvc.New(cartService, collab.Catalog, collab.Orders, log)
	if opts.LookupTimeout > 0 {
		checkoutService = checkoutService.WithLookupTimeout(opts.LookupTimeout)
	}

	manager := system.NewManager()
	if err := manager.Register(&storeService{carts: cartService, store: stores.Cart}); err != nil {
		return nil, fmt.Errorf("register cart store: %w", err)
	}

	return &Application{
		manager:  manager,
		log:      log,
		Cart:     cartService,
		Checkout: checkoutService,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.StartAll(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.StopAll(ctx)
}

// storeService tears down the cart service and its backing store when the
// application stops.
type storeService struct {
	carts *cartsvc.Service
	store storage.CartStore
}

func (s *storeService) Name() string { return "cart-store" }

func (s *storeService) Start(context.Context) error { return nil }

func (s *storeService) Stop(context.Context) error {
	s.carts.Close()
	return s.store.Close()
}
