// Command cms-auth starts the CMS authentication gRPC server.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/and161185/cms-auth/internal/api/authv1"
	"github.com/and161185/cms-auth/internal/config"
	"github.com/and161185/cms-auth/internal/housekeeping"
	"github.com/and161185/cms-auth/internal/limiter"
	"github.com/and161185/cms-auth/internal/mail"
	"github.com/and161185/cms-auth/internal/metrics"
	"github.com/and161185/cms-auth/internal/migrate"
	"github.com/and161185/cms-auth/internal/repository"
	"github.com/and161185/cms-auth/internal/repository/postgres"
	"github.com/and161185/cms-auth/internal/repository/redis"
	grpcserver "github.com/and161185/cms-auth/internal/server/grpc"
	"github.com/and161185/cms-auth/internal/service"
	"github.com/and161185/cms-auth/internal/token"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main loads configuration, runs migrations, and serves the auth API until signalled.
func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Addr),
		zap.String("blacklist", cfg.Blacklist),
	)

	tokens, err := token.NewManager(token.Config{
		SessionKey: []byte(cfg.JWTKey),
		ActionKey:  []byte(cfg.JWTActionKey),
		SessionTTL: cfg.SessionTTL,
		ActionTTL:  cfg.ActionTTL,
		Issuer:     cfg.JWTIssuer,
	})
	if err != nil {
		logger.Fatal("token manager", zap.Error(err))
	}

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrate.Up(ctx, cfg.DSN); err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}

	db, err := postgres.New(ctx, cfg.DSN)
	if err != nil {
		logger.Fatal("postgres", zap.Error(err))
	}
	defer db.Close()

	// Repositories
	userRepo := postgres.NewUserRepo(db)
	otpRepo := postgres.NewOTPRepo(db)

	var blacklist repository.BlacklistRepository
	switch cfg.Blacklist {
	case config.BlacklistRedis:
		rdb, err := redis.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Fatal("redis", zap.Error(err))
		}
		defer func() { _ = rdb.Close() }()
		blacklist = redis.NewBlacklistRepo(rdb, logger)
	default:
		blacklist = postgres.NewBlacklistRepo(db)
	}

	var lim limiter.Limiter
	var pgLim *limiter.PG
	if cfg.LimiterMaxFails > 0 {
		pgLim = limiter.NewPG(db.Pool, cfg.LimiterWindow, cfg.LimiterMaxFails, cfg.LimiterBlock)
		lim = pgLim
	}

	// Mail
	var sender mail.Sender = mail.LogSender{Log: logger}
	if cfg.BrevoAPIKey != "" {
		bs, err := mail.NewBrevoSender(cfg.BrevoAPIKey, cfg.MailFrom, cfg.MailFromName, cfg.BrevoEndpoint)
		if err != nil {
			logger.Fatal("brevo", zap.Error(err))
		}
		sender = bs
	} else {
		logger.Warn("no brevo api key, emails are logged only")
	}
	var perRecipient rate.Limit
	if cfg.MailInterval > 0 {
		perRecipient = rate.Every(cfg.MailInterval)
	}
	mailer := mail.NewMailer(sender, logger, mail.Options{
		BaseURL:      cfg.BaseURL,
		SendTimeout:  cfg.MailTimeout,
		PerRecipient: perRecipient,
		Burst:        cfg.MailBurst,
	})

	// Services
	authSvc := service.NewAuthService(service.Deps{
		Users:     userRepo,
		OTPs:      otpRepo,
		Blacklist: blacklist,
		Tokens:    tokens,
		Notifier:  mailer,
		Limiter:   lim,
		Log:       logger,
	}, service.Options{OTPTTL: cfg.OTPTTL})

	m := metrics.New("cms_auth")

	// Housekeeping
	tasks := []housekeeping.Task{{Name: "token_blacklist", Purge: blacklist.PurgeExpired}}
	if cfg.OTPTTL > 0 {
		tasks = append(tasks, housekeeping.Task{Name: "otps", Purge: func(ctx context.Context) (int64, error) {
			return otpRepo.PurgeOlderThan(ctx, time.Now().Add(-cfg.OTPTTL))
		}})
	}
	if pgLim != nil {
		tasks = append(tasks, housekeeping.Task{Name: "auth_limiter", Purge: pgLim.Purge})
	}
	hk := housekeeping.New(logger, cfg.HousekeepingInterval, func(table string, n int64) {
		m.PurgedRows.WithLabelValues(table).Add(float64(n))
	}, tasks...)
	hk.Start()
	defer hk.Stop()

	// gRPC server with interceptors
	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			grpcserver.RecoverUnary(logger),
			grpcserver.MetricsUnary(m),
			grpcserver.LoggingUnary(logger),
			grpcserver.AuthUnary(authSvc, authv1.MethodMe),
		),
	}
	if cfg.TLSCert != "" {
		creds, err := credentials.NewServerTLSFromFile(cfg.TLSCert, cfg.TLSKey)
		if err != nil {
			logger.Fatal("failed to load TLS cert/key", zap.Error(err))
		}
		opts = append(opts, grpc.Creds(creds))
	} else {
		logger.Warn("no TLS certificate configured, serving plaintext")
	}
	s := grpc.NewServer(opts...)

	// App service
	authv1.RegisterAuthServiceServer(s, grpcserver.New(authSvc))

	// Health & reflection (dev)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	if cfg.Dev {
		reflection.Register(s)
	}

	// Metrics endpoint
	var metricsSrv *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		metricsSrv = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server", zap.Error(err))
			}
		}()
	}

	// Listen
	lis, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		logger.Fatal("listen", zap.Error(err))
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr), zap.Bool("tls", cfg.TLSCert != ""))
		errCh <- s.Serve(lis)
	}()

	// Wait for stop
	select {
	case <-ctx.Done():
		hs.Shutdown()
		done := make(chan struct{})
		go func() {
			s.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			s.Stop()
		}
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}

	if metricsSrv != nil {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = metricsSrv.Shutdown(sctx)
		cancel()
	}
	logger.Info("shutdown complete")
}
