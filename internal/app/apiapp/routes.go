package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	pgrepo "github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/repo/postgres"
	authsvc "github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/services/auth"
	paymentsvc "github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/services/payments"
	ratesvc "github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/services/rate"
	"github.com/Oyono-Mathias/Ndaraafrique-sub000/internal/transport/http/handlers"
)

type Dependencies struct {
	PaymentService   *paymentsvc.Service
	RateLimiter      *ratesvc.Limiter
	JWTManager       *authsvc.JWTManager
	UserRepo         *pgrepo.UserRepo
	PaymentRepo      *pgrepo.PaymentRepo
	EnrollmentRepo   *pgrepo.EnrollmentRepo
	NotificationRepo *pgrepo.NotificationRepo
	DeviceTokenRepo  *pgrepo.DeviceTokenRepo
	Logger           *zap.Logger
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler()
	paymentHandler := handlers.NewPaymentHandler(deps.PaymentService, deps.RateLimiter, deps.Logger)
	notificationHandler := handlers.NewNotificationHandler(deps.NotificationRepo)
	deviceHandler := handlers.NewDeviceHandler(deps.DeviceTokenRepo)
	enrollmentHandler := handlers.NewEnrollmentHandler(deps.EnrollmentRepo, deps.Logger)
	adminHandler := handlers.NewAdminHandler(deps.UserRepo, deps.PaymentRepo, deps.Logger)
	authMW := AuthMiddleware(deps.JWTManager, deps.Logger)
	adminRoleMW := RequireRole("ADMIN")

	r.Get("/healthz", healthHandler.Get)

	r.Route("/v1", func(r chi.Router) {
		r.With(authMW).Post("/payments/{transaction_id}/verify", paymentHandler.Verify)
		r.With(authMW).Get("/enrollments", enrollmentHandler.List)
		r.With(authMW).Get("/notifications", notificationHandler.List)
		r.With(authMW).Post("/notifications/{id}/read", notificationHandler.MarkRead)
		r.With(authMW).Post("/devices", deviceHandler.Register)
		r.With(authMW).Delete("/devices", deviceHandler.Unregister)

		r.Route("/admin", func(r chi.Router) {
			r.Use(authMW, adminRoleMW)
			r.Put("/notification-prefs", adminHandler.UpdateNotificationPrefs)
			r.Get("/payments/{payment_id}", adminHandler.GetPayment)
		})
	})
}
