package app

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/RishabSBanthiya/prediction-market-data-services/internal/venue"
)

// Run starts the application and blocks until shutdown.
func (a *App) Run() error {
	a.logger.Info("application-starting",
		zap.String("storage-mode", a.cfg.StorageMode),
		zap.String("log-level", a.cfg.LogLevel))

	if err := a.startComponents(); err != nil {
		return err
	}

	a.healthChecker.SetReady(true)

	a.logger.Info("application-ready", zap.String("http-addr", ":"+a.cfg.HTTPPort))

	return a.waitForShutdown()
}

func (a *App) startComponents() error {
	a.wg.Add(1)
	go a.runHTTPServer()

	// Give the HTTP server a moment to bind before declaring readiness.
	time.Sleep(100 * time.Millisecond)

	if err := a.adapter.Connect(a.ctx); err != nil {
		return err
	}

	a.wg.Add(1)
	go a.runPipeline()

	a.wg.Add(1)
	go a.bridgeAdapterEvents()

	a.discovery.Start(a.ctx)

	a.forwardFiller.Start(a.ctx)

	return nil
}

func (a *App) runHTTPServer() {
	defer a.wg.Done()
	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http-server-error", zap.Error(err))
	}
}

func (a *App) runPipeline() {
	defer a.wg.Done()
	a.pipeline.Run(a.ctx)
}

// bridgeAdapterEvents routes the adapter's normalized events onto the
// pipeline's two priority queues: orderbook/trade events are real-time
// data, everything else is control-plane traffic.
func (a *App) bridgeAdapterEvents() {
	defer a.wg.Done()
	for {
		select {
		case <-a.ctx.Done():
			return
		case e, ok := <-a.adapter.Events():
			if !ok {
				return
			}
			a.healthChecker.MarkEventSeen()
			switch e.Kind {
			case venue.EventOrderbook, venue.EventTrade:
				a.pipeline.SubmitData(e)
			default:
				a.pipeline.SubmitControl(e)
			}
		}
	}
}

func (a *App) waitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-a.ctx.Done():
		a.logger.Info("context-cancelled")
	}

	return a.Shutdown()
}
