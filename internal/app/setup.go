package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/RishabSBanthiya/prediction-market-data-services/internal/ingest"
	"github.com/RishabSBanthiya/prediction-market-data-services/internal/storage"
	"github.com/RishabSBanthiya/prediction-market-data-services/internal/venue"
	"github.com/RishabSBanthiya/prediction-market-data-services/internal/venue/venuea"
	"github.com/RishabSBanthiya/prediction-market-data-services/internal/venue/venueb"
	"github.com/RishabSBanthiya/prediction-market-data-services/pkg/cache"
	"github.com/RishabSBanthiya/prediction-market-data-services/pkg/config"
	"github.com/RishabSBanthiya/prediction-market-data-services/pkg/healthprobe"
	"github.com/RishabSBanthiya/prediction-market-data-services/pkg/httpserver"
	"github.com/RishabSBanthiya/prediction-market-data-services/pkg/types"
	"github.com/RishabSBanthiya/prediction-market-data-services/pkg/websocket"
)

const defaultDiscoveryQueueBuf = 1000

// New creates a new ingestion application instance.
func New(cfg *config.Config, logger *zap.Logger, opts *Options) (*App, error) {
	if opts == nil {
		opts = &Options{}
	}
	if opts.Venue == "" {
		opts.Venue = "a"
	}

	ctx, cancel := context.WithCancel(context.Background())

	healthChecker := healthprobe.New()
	healthChecker.SetStalenessThreshold(cfg.HealthStalenessThreshold)

	marketCache, err := setupCache(logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup cache: %w", err)
	}

	adapter, err := setupAdapter(cfg, logger, opts)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup adapter: %w", err)
	}

	writer, err := setupWriter(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup writer: %w", err)
	}

	books := ingest.NewBookView()
	forwardFiller := ingest.NewForwardFiller(writer, time.Duration(cfg.ForwardFillIntervalMS)*time.Millisecond, logger)
	pipeline := ingest.NewPipeline(adapter, writer, forwardFiller, books, logger, cfg.WSMessageBufferSize, defaultDiscoveryQueueBuf)

	discoveryInterval := time.Duration(cfg.DiscoveryIntervalSeconds) * time.Second
	discovery := ingest.NewDiscovery(adapter, types.DiscoveryFilter{}, discoveryInterval, pipeline, marketCache, logger)

	httpServer := httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: healthChecker,
		Books:         books,
	})

	return &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthChecker,
		httpServer:    httpServer,
		adapter:       adapter,
		pipeline:      pipeline,
		discovery:     discovery,
		forwardFiller: forwardFiller,
		books:         books,
		writer:        writer,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

func setupCache(logger *zap.Logger) (*cache.MarketCache, error) {
	ristretto, err := cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 100000,
		MaxCost:     10000,
		BufferItems: 64,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}
	return cache.NewMarketCache(ristretto), nil
}

func setupAdapter(cfg *config.Config, logger *zap.Logger, opts *Options) (venue.Adapter, error) {
	wsCfg := websocket.Config{
		DialTimeout:            cfg.WSDialTimeout,
		PongTimeout:            cfg.WSPongTimeout,
		PingInterval:           cfg.WSPingInterval,
		ReconnectInitialDelay:  cfg.WSReconnectInitialDelay,
		ReconnectMaxDelay:      cfg.WSReconnectMaxDelay,
		ReconnectBackoffMult:   cfg.WSReconnectBackoffMult,
		ReconnectTripThreshold: cfg.WSReconnectTripThreshold,
		ReconnectCooldown:      cfg.WSReconnectCooldown,
		MessageBufferSize:      cfg.WSMessageBufferSize,
	}

	switch opts.Venue {
	case "b":
		var signer *venueb.Signer
		if cfg.VenueBAPIKey != "" && cfg.VenueBPrivatePEM != "" {
			s, err := venueb.NewSigner(cfg.VenueBAPIKey, []byte(cfg.VenueBPrivatePEM))
			if err != nil {
				return nil, fmt.Errorf("construct venue b signer: %w", err)
			}
			signer = s
		} else {
			logger.Warn("venue-b-running-without-auth",
				zap.String("note", "VENUE_B_API_KEY / VENUE_B_PRIVATE_KEY_PEM not set"))
		}

		adapter := venueb.New(venueb.Config{
			RESTBaseURL: cfg.VenueBRESTURL,
			WSURL:       cfg.VenueBWSURL,
			WSPath:      "/trade-api/ws/v2",
			Signer:      signer,
			WS:          wsCfg,
			Logger:      logger,
		})
		return adapter, nil
	default:
		adapter := venuea.New(venuea.Config{
			RESTBaseURL: cfg.VenueARESTURL,
			WSURL:       cfg.VenueAWSURL,
			WS:          wsCfg,
			Logger:      logger,
		})
		return adapter, nil
	}
}

func setupWriter(cfg *config.Config, logger *zap.Logger) (storage.Writer, error) {
	if cfg.StorageMode == "postgres" {
		sink, err := storage.NewPostgresSink(&storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create postgres sink: %w", err)
		}
		return storage.NewBatchedWriter(sink, logger, cfg.WriterBatchSize, cfg.WriterFlushInterval), nil
	}

	return storage.NewBatchedWriter(storage.NewConsoleSink(logger), logger, cfg.WriterBatchSize, cfg.WriterFlushInterval), nil
}
