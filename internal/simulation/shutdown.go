// internal/simulation/shutdown.go
package simulation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Closer is the shutdown hook of one component. It receives the shutdown
// deadline.
type Closer func(ctx context.Context) error

// ShutdownHandler closes registered components in reverse order of
// registration, one at a time, so later components can still use earlier ones
// while they drain.
type ShutdownHandler struct {
	mu       sync.Mutex
	logger   *zap.Logger
	services []namedCloser
}

type namedCloser struct {
	name  string
	close Closer
}

func NewShutdownHandler(logger *zap.Logger) *ShutdownHandler {
	return &ShutdownHandler{logger: logger}
}

// Add registers a component for shutdown.
func (sh *ShutdownHandler) Add(name string, fn Closer) {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sh.services = append(sh.services, namedCloser{name: name, close: fn})
	sh.logger.Debug("Registered service for shutdown", zap.String("service", name))
}

// AddFunc registers a hook that ignores the deadline.
func (sh *ShutdownHandler) AddFunc(name string, fn func() error) {
	sh.Add(name, func(context.Context) error { return fn() })
}

// Shutdown runs every hook, LIFO, and joins their errors. A hook that
// outlives ctx is abandoned and reported as a timeout.
func (sh *ShutdownHandler) Shutdown(ctx context.Context) error {
	sh.mu.Lock()
	services := make([]namedCloser, len(sh.services))
	copy(services, sh.services)
	sh.services = nil
	sh.mu.Unlock()

	sh.logger.Info("Starting graceful shutdown", zap.Int("services", len(services)))

	var errs []error
	for i := len(services) - 1; i >= 0; i-- {
		svc := services[i]

		done := make(chan error, 1)
		go func() { done <- svc.close(ctx) }()

		select {
		case err := <-done:
			if err != nil {
				sh.logger.Error("Failed to shutdown service", zap.String("service", svc.name), zap.Error(err))
				errs = append(errs, fmt.Errorf("%s: %w", svc.name, err))
				continue
			}
			sh.logger.Debug("Service shutdown complete", zap.String("service", svc.name))
		case <-ctx.Done():
			sh.logger.Error("Shutdown timeout for service", zap.String("service", svc.name))
			errs = append(errs, fmt.Errorf("%s: shutdown timeout: %w", svc.name, ctx.Err()))
		}
	}

	if err := errors.Join(errs...); err != nil {
		sh.logger.Error("Shutdown completed with errors", zap.Int("errorCount", len(errs)))
		return err
	}
	sh.logger.Info("Graceful shutdown completed successfully")
	return nil
}
