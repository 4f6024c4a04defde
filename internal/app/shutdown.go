package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// Shutdown stops every component: it cancels the run context, which ends
// the pipeline loop (events still queued are not processed), stops
// discovery, the forward-filler and the adapter, waits up to
// shutdownTimeout for the run goroutines, then flushes and closes
// storage, and finally brings down the HTTP server.
func (a *App) Shutdown() error {
	a.logger.Info("application-shutting-down")

	a.healthChecker.SetReady(false)
	a.cancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	a.discovery.Close()
	a.forwardFiller.Close()

	if err := a.adapter.Close(); err != nil {
		a.logger.Error("adapter-close-error", zap.Error(err))
	}

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-shutdownCtx.Done():
		a.logger.Warn("shutdown-timed-out-waiting-for-components")
	}

	if err := a.writer.Close(); err != nil {
		a.logger.Error("writer-close-error", zap.Error(err))
	}

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http-server-shutdown-error", zap.Error(err))
	}

	a.logger.Info("application-stopped")
	return nil
}
