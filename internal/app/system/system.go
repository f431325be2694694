// Package system manages the lifecycle of the engine's long-running
// components: start in registration order, stop in reverse.
package system

import (
	"context"
	"fmt"
	"sync"
)

// Service represents a lifecycle-managed component. Application modules
// implement this interface so the manager can start and stop them
// deterministically.
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// NoopService satisfies Service for components with no startup or shutdown
// work of their own.
type NoopService struct {
	ServiceName string
}

func (n NoopService) Name() string                { return n.ServiceName }
func (n NoopService) Start(context.Context) error { return nil }
func (n NoopService) Stop(context.Context) error  { return nil }

// Manager registers services and drives their lifecycle.
type Manager struct {
	mu       sync.Mutex
	services []Service
	names    map[string]bool
	started  int
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{names: make(map[string]bool)}
}

// Register adds a service. Names must be unique.
func (m *Manager) Register(svc Service) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if svc.Name() == "" {
		return fmt.Errorf("service name must not be empty")
	}
	if m.names[svc.Name()] {
		return fmt.Errorf("service %s already registered", svc.Name())
	}
	m.names[svc.Name()] = true
	m.services = append(m.services, svc)
	return nil
}

// StartAll starts every registered service in registration order. On the
// first failure it stops the already-started services in reverse order and
// returns the failure.
func (m *Manager) StartAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, svc := range m.services {
		if err := svc.Start(ctx); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = m.services[j].Stop(ctx)
			}
			return fmt.Errorf("start %s: %w", svc.Name(), err)
		}
		m.started = i + 1
	}
	return nil
}

// StopAll stops started services in reverse registration order, collecting
// the first error while still stopping the rest.
func (m *Manager) StopAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var firstErr error
	for i := m.started - 1; i >= 0; i-- {
		if err := m.services[i].Stop(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("stop %s: %w", m.services[i].Name(), err)
		}
	}
	m.started = 0
	return firstErr
}
