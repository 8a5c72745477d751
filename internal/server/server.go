/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/recruitd/internal/api"
	"github.com/friendsincode/recruitd/internal/applications"
	"github.com/friendsincode/recruitd/internal/audit"
	"github.com/friendsincode/recruitd/internal/classify"
	"github.com/friendsincode/recruitd/internal/clock"
	"github.com/friendsincode/recruitd/internal/config"
	"github.com/friendsincode/recruitd/internal/db"
	"github.com/friendsincode/recruitd/internal/eventbus"
	"github.com/friendsincode/recruitd/internal/events"
	"github.com/friendsincode/recruitd/internal/leadership"
	"github.com/friendsincode/recruitd/internal/notifications"
	"github.com/friendsincode/recruitd/internal/offers"
	"github.com/friendsincode/recruitd/internal/reminders"
	"github.com/friendsincode/recruitd/internal/scheduler"
	"github.com/friendsincode/recruitd/internal/scheduling"
	"github.com/friendsincode/recruitd/internal/telemetry"
)

// Server bundles HTTP and supporting services.
type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	router     chi.Router
	httpServer *http.Server
	closers    []func() error

	db          *gorm.DB
	bus         *events.Bus
	publisher   events.Publisher
	api         *api.API
	audit       *audit.Service
	scheduler   *scheduler.Service
	leaderAware *scheduler.LeaderAware

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// New constructs the server and wires dependencies. Background workers are
// not started until Start is called.
func New(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(securityHeadersMiddleware)
	router.Use(telemetry.TracingMiddleware("recruitd-api"))
	router.Use(telemetry.MetricsMiddleware)
	router.Use(middleware.Timeout(60 * time.Second))

	srv := &Server{
		cfg:    cfg,
		logger: logger,
		router: router,
		bus:    events.NewBus(),
	}

	if err := srv.initDependencies(); err != nil {
		_ = srv.Close()
		return nil, err
	}

	srv.api.Routes(srv.router)

	addr := fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort)
	srv.httpServer = &http.Server{
		Addr:              addr,
		Handler:           srv.router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return srv, nil
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("Cache-Control", "no-store")

		// Only advertise HSTS for requests served over HTTPS.
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) initDependencies() error {
	ctx := context.Background()

	database, err := db.Connect(s.cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	s.db = database
	s.DeferClose(func() error { return db.Close(database) })

	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	sender, err := s.buildSender(ctx)
	if err != nil {
		return err
	}
	inbox, err := s.buildInbox(ctx)
	if err != nil {
		return err
	}
	classifier, err := s.buildClassifier()
	if err != nil {
		return err
	}
	if err := s.buildPublisher(); err != nil {
		return err
	}

	clk := clock.Real{}
	notifier := notifications.NewService(database, sender, clk, s.logger)

	allocator := scheduling.NewAllocator(database, notifier, s.publisher, clk, s.logger)
	feedback := scheduling.NewFeedbackService(database, notifier, s.publisher, clk, s.logger)
	dispatcher := reminders.NewDispatcher(database, notifier, clk, s.cfg.DayBeforeWindow, s.cfg.HourBeforeWindow, s.logger)
	workflow := offers.NewWorkflow(database, notifier, inbox, classifier, s.publisher, clk, offers.Config{
		Timeout:         s.cfg.OfferTimeout,
		PerTick:         s.cfg.OffersPerTick,
		SubjectMarker:   s.cfg.OfferSubject,
		AmbiguousPolicy: offers.AmbiguousPolicy(s.cfg.AmbiguousReplyPolicy),
	}, s.logger)
	apps := applications.NewService(database, notifier, s.publisher, s.logger)
	s.audit = audit.NewService(database, s.bus, clk, s.logger)

	s.scheduler = scheduler.New([]scheduler.Job{
		scheduler.ReminderJob(dispatcher),
		scheduler.OfferJob(workflow, s.logger),
		scheduler.RejectionJob(feedback, s.logger),
	}, s.cfg.TickInterval, s.logger)

	deps := api.Deps{
		Allocator:    allocator,
		Feedback:     feedback,
		Offers:       workflow,
		Applications: apps,
		Audit:        s.audit,
		JWTSecret:    []byte(s.cfg.JWTSigningKey),
		Logger:       s.logger,
	}

	if s.cfg.LeaderElectionEnabled {
		leCfg := leadership.DefaultConfig()
		leCfg.RedisAddr = s.cfg.RedisAddr
		leCfg.RedisPassword = s.cfg.RedisPassword
		leCfg.RedisDB = s.cfg.RedisDB
		leCfg.InstanceID = s.cfg.InstanceID

		election, err := leadership.NewElection(leCfg, s.logger)
		if err != nil {
			return fmt.Errorf("create leader election: %w", err)
		}
		s.leaderAware = scheduler.NewLeaderAware(s.scheduler, election, s.logger)
		deps.IsLeader = s.leaderAware.IsLeader
		s.logger.Info().Str("instance_id", election.InstanceID()).Msg("leader election enabled")
	}

	s.api = api.New(deps)
	return nil
}

func (s *Server) buildSender(ctx context.Context) (notifications.Sender, error) {
	switch s.cfg.MailBackend {
	case config.MailSMTP:
		return notifications.NewSMTPSender(notifications.SMTPConfig{
			Host:     s.cfg.SMTPHost,
			Port:     s.cfg.SMTPPort,
			Username: s.cfg.SMTPUsername,
			Password: s.cfg.SMTPPassword,
			From:     s.cfg.MailFrom,
			FromName: s.cfg.MailFromName,
		}), nil
	case config.MailSES:
		sender, err := notifications.NewSESSender(ctx, s.cfg.SESRegion, s.cfg.MailFrom)
		if err != nil {
			return nil, fmt.Errorf("create ses sender: %w", err)
		}
		return sender, nil
	default:
		s.logger.Warn().Msg("mail backend is log; no mail will leave this process")
		return notifications.NewLogSender(s.logger), nil
	}
}

func (s *Server) buildInbox(ctx context.Context) (notifications.Inbox, error) {
	if s.cfg.InboxBackend != config.InboxS3 {
		s.logger.Warn().Msg("no reply inbox configured; offers can only expire")
		return notifications.NoopInbox{}, nil
	}
	s3cfg := notifications.S3Config{
		Region:          s.cfg.S3Region,
		Endpoint:        s.cfg.S3Endpoint,
		UsePathStyle:    s.cfg.S3UsePathStyle,
		AccessKeyID:     s.cfg.S3AccessKeyID,
		SecretAccessKey: s.cfg.S3SecretAccessKey,
		Bucket:          s.cfg.InboxS3Bucket,
		Prefix:          s.cfg.InboxS3Prefix,
		ProcessedPrefix: s.cfg.InboxS3ProcessedPrefix,
	}
	client, err := notifications.NewS3Client(ctx, s3cfg)
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	return notifications.NewS3Inbox(client, s3cfg, s.logger), nil
}

func (s *Server) buildClassifier() (classify.Classifier, error) {
	kw := classify.DefaultKeywords()
	if s.cfg.ClassifierKeywords != "" {
		loaded, err := classify.LoadKeywords(s.cfg.ClassifierKeywords)
		if err != nil {
			return nil, fmt.Errorf("load classifier keywords: %w", err)
		}
		kw = loaded
	}
	return classify.NewKeywordClassifier(kw), nil
}

// buildPublisher fans local events out to NATS, redis and a webhook when
// configured.
func (s *Server) buildPublisher() error {
	var sinks []eventbus.Sink

	if s.cfg.NATSURL != "" {
		natsCfg := eventbus.DefaultNATSConfig()
		natsCfg.URL = s.cfg.NATSURL
		natsCfg.Subject = s.cfg.NATSSubject
		sink, err := eventbus.DialNATS(natsCfg, s.logger)
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		sinks = append(sinks, sink)
	}

	if s.cfg.RedisEventsChannel != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     s.cfg.RedisAddr,
			Password: s.cfg.RedisPassword,
			DB:       s.cfg.RedisDB,
		})
		s.DeferClose(client.Close)
		sinks = append(sinks, eventbus.NewRedisSink(client, s.cfg.RedisEventsChannel))
	}

	if s.cfg.WebhookURL != "" {
		sinks = append(sinks, eventbus.NewWebhookSink(s.cfg.WebhookURL, s.cfg.WebhookSecret))
	}

	if len(sinks) == 0 {
		s.publisher = s.bus
		return nil
	}

	fwd := eventbus.NewForwarder(s.bus, sinks, s.cfg.InstanceID, s.logger)
	s.DeferClose(fwd.Close)
	s.publisher = fwd
	return nil
}

// Bus returns the in-process event bus.
func (s *Server) Bus() *events.Bus {
	return s.bus
}

// HTTPServer exposes the underlying net/http server.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// TickOnce runs every engine job once and returns how many failed.
func (s *Server) TickOnce(ctx context.Context) int {
	return s.scheduler.TickOnce(ctx)
}

// Start launches the audit trail and the ticker, the latter behind leader
// election when it is enabled.
func (s *Server) Start() {
	if s.bgCancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	s.audit.Start(ctx)

	if s.leaderAware != nil {
		if err := s.leaderAware.Start(ctx); err != nil {
			s.logger.Error().Err(err).Msg("leader-aware scheduler failed to start")
		}
		return
	}

	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		if err := s.scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error().Err(err).Msg("scheduler loop exited")
		}
	}()
}

// Close stops background work and releases owned resources in reverse order.
func (s *Server) Close() error {
	s.stopBackgroundWorkers()
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.closers = nil
	return firstErr
}

// DeferClose registers a cleanup hook.
func (s *Server) DeferClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

func (s *Server) stopBackgroundWorkers() {
	if s.bgCancel == nil {
		return
	}
	if s.leaderAware != nil {
		if err := s.leaderAware.Stop(); err != nil {
			s.logger.Warn().Err(err).Msg("leader-aware scheduler stop failed")
		}
	}
	s.bgCancel()
	s.bgWG.Wait()
	s.audit.Wait()
	s.bgCancel = nil
}
