// Package app is the live-ingestion process orchestrator: it wires one
// venue adapter, the discovery loop, the two-priority event pipeline,
// the state forward-filler, and the debug HTTP server into a single
// runnable unit, the way the teacher's internal/app wires discovery,
// websocket, orderbook, and arbitrage components together.
package app

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/RishabSBanthiya/prediction-market-data-services/internal/ingest"
	"github.com/RishabSBanthiya/prediction-market-data-services/internal/storage"
	"github.com/RishabSBanthiya/prediction-market-data-services/internal/venue"
	"github.com/RishabSBanthiya/prediction-market-data-services/pkg/config"
	"github.com/RishabSBanthiya/prediction-market-data-services/pkg/healthprobe"
	"github.com/RishabSBanthiya/prediction-market-data-services/pkg/httpserver"
)

// App is the live-ingestion application orchestrator.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server
	adapter       venue.Adapter
	pipeline      *ingest.Pipeline
	discovery     *ingest.Discovery
	forwardFiller *ingest.ForwardFiller
	books         *ingest.BookView
	writer        storage.Writer
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

// Options holds application options.
type Options struct {
	// Venue selects which adapter to run: "a" (separate-token) or "b"
	// (single-ticker). Defaults to "a".
	Venue string
}
