// main wires stores, services and transport together and owns the process
// lifecycle. Business logic lives in the internal service packages.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"medfund/internal/audit"
	campaignhandler "medfund/internal/campaign/handler"
	campaignservice "medfund/internal/campaign/service"
	campaignstore "medfund/internal/campaign/store/campaign"
	"medfund/internal/chain"
	donationhandler "medfund/internal/donation/handler"
	donationservice "medfund/internal/donation/service"
	donationstore "medfund/internal/donation/store/donation"
	evidencehandler "medfund/internal/evidence/handler"
	evidenceservice "medfund/internal/evidence/service"
	contentstore "medfund/internal/evidence/store/content"
	documentstore "medfund/internal/evidence/store/document"
	identityhandler "medfund/internal/identity/handler"
	identityservice "medfund/internal/identity/service"
	hospitalstore "medfund/internal/identity/store/hospital"
	patientstore "medfund/internal/identity/store/patient"
	"medfund/internal/platform/config"
	"medfund/internal/platform/httpserver"
	"medfund/internal/platform/logger"
	"medfund/internal/platform/metrics"
	platformredis "medfund/internal/platform/redis"
	httptransport "medfund/internal/transport/http"
	walletauthhandler "medfund/internal/walletauth/handler"
	walletauthservice "medfund/internal/walletauth/service"
	"medfund/internal/walletauth/signature"
	challengestore "medfund/internal/walletauth/store/challenge"
	"medfund/internal/walletauth/token"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage backends. An empty DSN keeps everything in memory for local
	// development; production sets both Postgres and Redis.
	var db *sql.DB
	if cfg.PostgresDSN != "" {
		var err error
		db, err = sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			log.Error("failed to open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Error("failed to reach postgres", "error", err)
			os.Exit(1)
		}
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Audit pipeline: channel-fed worker draining into Kafka when brokers
	// are configured; events always land in the audit store first.
	var auditStore audit.Store
	if db != nil {
		auditStore = audit.NewPostgresStore(db)
	} else {
		auditStore = audit.NewInMemoryStore()
	}
	publisherOpts := []audit.PublisherOption{audit.WithLogger(log)}
	var (
		channelSink *audit.ChannelSink
		kafkaSink   *audit.KafkaSink
	)
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaSink, err = audit.NewKafkaSink(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			log.Error("failed to connect to kafka", "error", err)
			os.Exit(1)
		}
		defer kafkaSink.Close()
		channelSink = audit.NewChannelSink(1024, log)
		publisherOpts = append(publisherOpts, audit.WithSink(channelSink))
	}
	publisher := audit.NewPublisher(auditStore, publisherOpts...)

	// Feature stores.
	var (
		hospitals identityservice.HospitalStore
		patients  identityservice.PatientStore
		documents evidenceservice.DocumentStore
		campaigns campaignservice.CampaignStore
		ledger    donationservice.Ledger
	)
	if db != nil {
		hospitals = hospitalstore.NewPostgres(db)
		patients = patientstore.NewPostgres(db)
		documents = documentstore.NewPostgres(db)
		campaigns = campaignstore.NewPostgres(db)
		ledger = donationstore.NewPostgres(db)
	} else {
		memCampaigns := campaignstore.NewInMemory()
		hospitals = hospitalstore.NewInMemory()
		patients = patientstore.NewInMemory()
		documents = documentstore.NewInMemory()
		campaigns = memCampaigns
		ledger = donationstore.NewInMemory(memCampaigns)
	}

	var challenges walletauthservice.ChallengeStore
	if redisClient != nil {
		challenges = challengestore.NewRedis(redisClient.Client)
	} else {
		challenges = challengestore.NewInMemory()
	}

	// Services. Cross-feature checks go through the small adapters below;
	// the evidence gates are bound after the evidence service exists.
	evidenceGate := &hospitalEvidenceGate{}
	campaignEvidenceGate := &campaignEvidenceGate{}

	identitySvc := identityservice.New(hospitals, patients,
		identityservice.WithLogger(log),
		identityservice.WithMetrics(m),
		identityservice.WithAuditPublisher(publisher),
		identityservice.WithEvidenceChecker(evidenceGate),
	)
	campaignSvc := campaignservice.New(campaigns, &identityDirectory{identity: identitySvc},
		campaignservice.WithLogger(log),
		campaignservice.WithMetrics(m),
		campaignservice.WithAuditPublisher(publisher),
		campaignservice.WithEvidenceChecker(campaignEvidenceGate),
	)
	evidenceSvc := evidenceservice.New(documents, contentstore.NewInMemory(),
		evidenceservice.WithLogger(log),
		evidenceservice.WithMetrics(m),
		evidenceservice.WithAuditPublisher(publisher),
		evidenceservice.WithOwnerRegistry(&ownerRegistry{identity: identitySvc, campaigns: campaignSvc}),
	)
	evidenceGate.evidence = evidenceSvc
	campaignEvidenceGate.evidence = evidenceSvc

	donationSvc := donationservice.New(ledger,
		donationservice.WithLogger(log),
		donationservice.WithMetrics(m),
		donationservice.WithAuditPublisher(publisher),
		donationservice.WithCampaignCompleter(&campaignCompleter{campaigns: campaignSvc}),
		donationservice.WithChainGateway(chain.NewBreakerGateway(chain.NewDevGateway(), log)),
	)
	walletauthSvc := walletauthservice.New(challenges, signature.NewVerifier(), identitySvc, cfg.ChallengeTTL,
		walletauthservice.WithLogger(log),
		walletauthservice.WithMetrics(m),
		walletauthservice.WithAuditPublisher(publisher),
	)
	tokens := token.NewManager(cfg.JWTSigningKey, cfg.WalletSessionTTL)

	healthChecks := map[string]httptransport.HealthCheck{}
	if db != nil {
		healthChecks["postgres"] = db.PingContext
	}
	if redisClient != nil {
		healthChecks["redis"] = redisClient.Health
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:         log,
		Metrics:        m,
		TokenValidator: tokens,
		WalletAuth:     walletauthhandler.New(walletauthSvc, tokens, cfg.WalletSessionTTL, log, publisher),
		Identity:       identityhandler.New(identitySvc, log),
		Evidence:       evidencehandler.New(evidenceSvc, log),
		Campaign:       campaignhandler.New(campaignSvc, identitySvc, log),
		Donation:       donationhandler.New(donationSvc, log),
		RequestTimeout: 30 * time.Second,
		HealthChecks:   healthChecks,
	})
	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server starting", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if channelSink != nil {
		worker := audit.NewWorker(channelSink, kafkaSink, log)
		g.Go(func() error { return worker.Run(ctx) })
	}

	if err := g.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
