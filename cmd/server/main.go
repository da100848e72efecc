package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/stockhunter/internal/broker"
	"github.com/aristath/stockhunter/internal/collector"
	"github.com/aristath/stockhunter/internal/config"
	"github.com/aristath/stockhunter/internal/domain"
	"github.com/aristath/stockhunter/internal/ratelimit"
	"github.com/aristath/stockhunter/internal/scheduler"
	"github.com/aristath/stockhunter/internal/screening"
	"github.com/aristath/stockhunter/internal/server"
	"github.com/aristath/stockhunter/internal/session"
	"github.com/aristath/stockhunter/internal/store"
	"github.com/aristath/stockhunter/internal/universe"
	"github.com/aristath/stockhunter/pkg/logger"
)

// markets is every market the collector, screening engine, and scheduled
// jobs operate over (spec.md §1).
var markets = []domain.Market{
	domain.MarketKOSPI, domain.MarketKOSDAQ,
	domain.MarketNASDAQ, domain.MarketNYSE, domain.MarketAMEX,
}

func main() {
	log := logger.New(logger.Config{Level: "info", Pretty: true})
	logger.SetGlobalLogger(log)

	log.Info().Msg("starting stockhunter")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	log = logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.DevMode})

	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	priceStore := store.NewPriceStore(db)
	masterCache := store.NewMasterCache(db)

	backfillLimiter := ratelimit.NewBackfill()
	interactiveLimiter := ratelimit.NewInteractive()

	// The interactive client also mints tokens: MintToken's own rate gate
	// lives on whichever client instance performs it, and the interactive
	// budget is the more generous of the two.
	interactiveClient := broker.NewKISClient(cfg.BaseURL(), cfg.BrokerAppKey, cfg.BrokerAppSecret, interactiveLimiter, log)
	backfillClient := broker.NewKISClient(cfg.BaseURL(), cfg.BrokerAppKey, cfg.BrokerAppSecret, backfillLimiter, log)

	sessionMgr := session.New(interactiveClient, cfg.Environment, cfg.BrokerAppKey, cfg.CacheDir, log)
	interactiveClient.SetSessions(sessionMgr)
	backfillClient.SetSessions(sessionMgr)

	backfillCapabilities := capabilitiesFor(backfillClient)
	interactiveCapabilities := capabilitiesFor(interactiveClient)

	marketHours := scheduler.NewMarketHoursService(log)

	tracker := &collector.Tracker{}
	coll := collector.New(priceStore, db, masterCache, backfillCapabilities, tracker, marketHours, log)
	engine := screening.New(priceStore, masterCache, interactiveCapabilities, log)

	universeSvc := universe.NewService(masterCache, db, nil)

	sched := scheduler.New(log)
	sched.Start()
	defer sched.Stop()

	if err := sched.AddJob("0 0 20 * * MON-FRI", scheduler.NewIncrementalUpdateJob(coll, 30*time.Minute)); err != nil {
		log.Fatal().Err(err).Msg("failed to register incremental update job")
	}
	if err := sched.AddJob("0 0 */6 * * *", scheduler.NewMasterCacheRefreshJob(universeSvc, markets)); err != nil {
		log.Fatal().Err(err).Msg("failed to register master cache refresh job")
	}

	srv := server.New(server.Config{
		Port:        cfg.Port,
		Log:         log,
		DevMode:     cfg.DevMode,
		PriceStore:  priceStore,
		MasterCache: masterCache,
		Meta:        db,
		Tracker:     tracker,
		Collector:   coll,
		Engine:      engine,
		Cfg:         cfg,
		CredentialCheck: func(ctx context.Context, appKey, appSecret string, isProduction bool) error {
			baseURL := cfg.PaperBaseURL
			if isProduction {
				baseURL = cfg.ProdBaseURL
			}
			probe := broker.NewKISClient(baseURL, appKey, appSecret, ratelimit.NewInteractive(), log)
			_, _, err := probe.MintToken(ctx)
			return err
		},
		UniverseFor: func(market domain.Market) ([]domain.Instrument, error) {
			instruments, _, err := universeSvc.Resolve(market, nil)
			return instruments, err
		},
		BackfillCollectorFor: func(ctx context.Context, appKey, appSecret string, isProduction bool) (*collector.Collector, error) {
			baseURL := cfg.PaperBaseURL
			if isProduction {
				baseURL = cfg.ProdBaseURL
			}
			env := domain.EnvPaper
			if isProduction {
				env = domain.EnvProduction
			}

			limiter := ratelimit.NewBackfill()
			client := broker.NewKISClient(baseURL, appKey, appSecret, limiter, log)
			client.SetSessions(session.New(client, env, appKey, cfg.CacheDir, log))

			if _, _, err := client.MintToken(ctx); err != nil {
				return nil, err
			}

			return collector.New(priceStore, db, masterCache, capabilitiesFor(client), tracker, marketHours, log), nil
		},
	})

	go func() {
		if err := srv.Start(); err != nil && err.Error() != "http: Server closed" {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

// capabilitiesFor assembles the full market-capability set for one broker
// client instance (spec.md §9's capability-record design).
func capabilitiesFor(client broker.Client) map[domain.Market]broker.MarketCapability {
	return map[domain.Market]broker.MarketCapability{
		domain.MarketKOSPI:  broker.NewKRCapability(client, domain.MarketKOSPI),
		domain.MarketKOSDAQ: broker.NewKRCapability(client, domain.MarketKOSDAQ),
		domain.MarketNASDAQ: broker.NewUSCapability(client, domain.MarketNASDAQ),
		domain.MarketNYSE:   broker.NewUSCapability(client, domain.MarketNYSE),
		domain.MarketAMEX:   broker.NewUSCapability(client, domain.MarketAMEX),
	}
}
