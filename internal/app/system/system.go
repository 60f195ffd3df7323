// Package system coordinates the lifecycle of long-running components.
package system

import (
	"context"
	"fmt"
)

// Service is a component with a start/stop lifecycle.
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Manager starts registered services in order and stops them in reverse.
type Manager struct {
	services []Service
	names    map[string]bool
}

// NewManager creates a lifecycle manager.
func NewManager() *Manager {
	return &Manager{names: map[string]bool{}}
}

// Register adds a service. Registration order is start order; names must be
// unique.
func (m *Manager) Register(svc Service) error {
	if svc == nil {
		return fmt.Errorf("nil service")
	}
	if m.names[svc.Name()] {
		return fmt.Errorf("service %q already registered", svc.Name())
	}
	m.names[svc.Name()] = true
	m.services = append(m.services, svc)
	return nil
}

// Start starts every registered service. The first failure stops the already
// started ones and is returned.
func (m *Manager) Start(ctx context.Context) error {
	for i, svc := range m.services {
		if err := svc.Start(ctx); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = m.services[j].Stop(ctx)
			}
			return fmt.Errorf("start %s: %w", svc.Name(), err)
		}
	}
	return nil
}

// Stop stops every registered service in reverse order, returning the first
// error after attempting all of them.
func (m *Manager) Stop(ctx context.Context) error {
	var firstErr error
	for i := len(m.services) - 1; i >= 0; i-- {
		if err := m.services[i].Stop(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("stop %s: %w", m.services[i].Name(), err)
		}
	}
	return firstErr
}

// NoopService satisfies Service for components without a lifecycle of their
// own.
type NoopService struct {
	ServiceName string
}

func (s NoopService) Name() string { return s.ServiceName }

func (s NoopService) Start(ctx context.Context) error { return nil }

func (s NoopService) Stop(ctx context.Context) error { return nil }
