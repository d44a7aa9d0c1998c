package apiapp

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/config"
	"github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/infra/fcm"
	"github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/infra/fraudapi"
	"github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/infra/httpclient"
	"github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/infra/paygate"
	"github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/jobs/cleanup"
	pgrepo "github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/repo/postgres"
	redrepo "github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/repo/redis"
	authsvc "github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/services/auth"
	enrollsvc "github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/services/enrollments"
	fraudsvc "github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/services/fraud"
	notifsvc "github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/services/notifications"
	paymentsvc "github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/services/payments"
	ratesvc "github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/services/rate"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	cleanupJob *cleanup.Job
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, errors.New("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	var pool *pgxpool.Pool
	var db pgrepo.DB
	if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
		db = p
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	rateRepo := redrepo.NewRateRepo(redisClient)
	paymentRepo := pgrepo.NewPaymentRepo(db)
	enrollmentRepo := pgrepo.NewEnrollmentRepo(db)
	userRepo := pgrepo.NewUserRepo(db)
	courseRepo := pgrepo.NewCourseRepo(db)
	deviceTokenRepo := pgrepo.NewDeviceTokenRepo(db)
	notificationRepo := pgrepo.NewNotificationRepo(db)

	jwtManager := authsvc.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTAccessTTL)

	gatewayClient := paygate.NewClient(
		cfg.Paygate.BaseURL,
		cfg.Paygate.Secret,
		httpclient.New(cfg.Paygate.Timeout),
	)
	fraudClient := fraudapi.NewClient(
		cfg.Fraud.Endpoint,
		httpclient.New(cfg.Fraud.Timeout),
	)

	notifDeps := notifsvc.Dependencies{
		Store:    notificationRepo,
		Registry: deviceTokenRepo,
		Admins:   userRepo,
	}
	if cfg.Push.CredentialsFile != "" {
		if pusher, err := fcm.NewClient(ctx, cfg.Push.CredentialsFile); err != nil {
			log.Warn("fcm init failed, continuing without push delivery", zap.Error(err))
		} else {
			notifDeps.Pusher = pusher
		}
	} else {
		log.Warn("push credentials are not configured, continuing without push delivery")
	}
	notificationService := notifsvc.NewService(notifDeps, notifsvc.Config{
		Icon: cfg.Push.Icon,
	}, log)

	enrollmentService := enrollsvc.NewService(enrollsvc.Dependencies{
		Payments: paymentRepo,
		Users:    userRepo,
		Courses:  courseRepo,
	})
	fraudService := fraudsvc.NewService(fraudsvc.Dependencies{
		Scorer:      fraudClient,
		Payments:    paymentRepo,
		Users:       userRepo,
		Broadcaster: notificationService,
	}, log)
	paymentService := paymentsvc.NewService(paymentsvc.Dependencies{
		Gateway:   gatewayClient,
		Committer: enrollmentService,
		Fraud:     fraudService,
	}, paymentsvc.Config{
		FraudTimeout: cfg.Fraud.Timeout,
	}, log)
	rateLimiter := ratesvc.NewLimiter(rateRepo, cfg.Limits.VerifyPerMinute, cfg.Limits.VerifyPer10Sec)

	cleanupJob := cleanup.New(
		notificationRepo,
		cfg.Notifications.Retention,
		cfg.Notifications.CleanupInterval,
		log,
	)

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	RegisterRoutes(r, Dependencies{
		PaymentService:   paymentService,
		RateLimiter:      rateLimiter,
		JWTManager:       jwtManager,
		UserRepo:         userRepo,
		PaymentRepo:      paymentRepo,
		EnrollmentRepo:   enrollmentRepo,
		NotificationRepo: notificationRepo,
		DeviceTokenRepo:  deviceTokenRepo,
		Logger:           log,
	})

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		cleanupJob: cleanupJob,
		httpRouter: r,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	go a.cleanupJob.Start(ctx)

	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}
