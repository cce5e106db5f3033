package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/rhcare/clinic-api/internal/http/handlers"
	authmw "github.com/rhcare/clinic-api/internal/http/middleware"
	"github.com/rhcare/clinic-api/internal/notify"
	"github.com/rhcare/clinic-api/internal/repo/postgres"
	"github.com/rhcare/clinic-api/internal/service"
	"github.com/rhcare/clinic-api/internal/session"
	"github.com/rhcare/clinic-api/pkg/config"
	"github.com/rhcare/clinic-api/pkg/database"
	"github.com/rhcare/clinic-api/pkg/events"
	"github.com/rhcare/clinic-api/pkg/logger"
	mw "github.com/rhcare/clinic-api/pkg/middleware"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logger.Error("Invalid redis URL", "error", err)
		os.Exit(1)
	}
	if cfg.Redis.Password != "" {
		redisOpts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		redisOpts.DB = cfg.Redis.DB
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to connect to redis", "error", err)
		os.Exit(1)
	}

	var eventBus events.Publisher = events.NoopBus{}
	if cfg.NATS.Enabled {
		bus, err := events.NewNATSEventBus(cfg.NATS.URL)
		if err != nil {
			logger.Error("Failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer bus.Close()
		eventBus = bus
	}

	// Repositories
	usersRepo := postgres.NewUsersRepo(pool)
	mfaRepo := postgres.NewMFARepo(pool)
	invitationsRepo := postgres.NewInvitationsRepo(pool)
	appointmentsRepo := postgres.NewAppointmentsRepo(pool)
	feedbackRepo := postgres.NewFeedbackRepo(pool)

	sessions := session.NewRedisStore(redisClient)

	var sms notify.SMSSender = notify.NewDevSMS()
	var mailer notify.InviteMailer = notify.NewDevMailer()
	if !cfg.Email.DevMode && cfg.Email.MailerSendKey != "" {
		mailer = notify.NewMailerSend(cfg.Email.MailerSendKey, cfg.Email.FromName, cfg.Email.FromAddress)
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go service.SweepExpiredMFACodes(sweepCtx, mfaRepo, time.Hour)

	// Services
	authService := service.NewAuthService(usersRepo, mfaRepo, sessions, sms, eventBus, cfg)
	invitationService := service.NewInvitationService(invitationsRepo, usersRepo, mailer, eventBus, cfg)
	staffService := service.NewStaffService(usersRepo, appointmentsRepo, feedbackRepo, eventBus)
	appointmentService := service.NewAppointmentService(appointmentsRepo, eventBus)
	feedbackService := service.NewFeedbackService(feedbackRepo, eventBus)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, cfg)
	invitationHandler := handlers.NewInvitationHandler(invitationService)
	staffHandler := handlers.NewStaffHandler(staffService)
	adminHandler := handlers.NewAdminHandler(staffService)
	appointmentHandler := handlers.NewAppointmentHandler(appointmentService)
	feedbackHandler := handlers.NewFeedbackHandler(feedbackService)

	auth := authmw.NewAuth(sessions, usersRepo)

	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.Logging)
	r.Use(mw.Health)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-ADMIN-KEY"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Public
	r.Post("/book-appointment", appointmentHandler.Book)
	r.Post("/invitation/accept/{token}", invitationHandler.Accept)
	r.Post("/bootstrap/admin", authHandler.BootstrapAdmin)
	r.Post("/staff/login", authHandler.Login)
	r.Post("/staff/verify-mfa", authHandler.VerifyMFA)

	// Authenticated
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireSession)

		r.Post("/logout", authHandler.Logout)
		r.Get("/staff/me", staffHandler.Me)
		r.Put("/staff/me", staffHandler.UpdateMe)
		r.Get("/staff/me/employment-info", staffHandler.EmploymentInfo)

		r.Get("/appointments", appointmentHandler.List)

		r.Post("/feedback", feedbackHandler.Submit)
		r.Get("/feedback", feedbackHandler.List)
		r.Get("/feedback/{id}", feedbackHandler.Get)
		r.Get("/my-feedback", feedbackHandler.MyFeedback)

		// Admin
		r.Group(func(r chi.Router) {
			r.Use(authmw.RequireAdmin)

			r.Put("/appointments/{id}", appointmentHandler.Update)
			r.Put("/feedback/{id}", feedbackHandler.Update)
			r.Get("/feedback/stats", feedbackHandler.Stats)

			r.Route("/admin", func(r chi.Router) {
				r.Get("/dashboard", adminHandler.Dashboard)

				r.Get("/staff", adminHandler.ListStaff)
				r.Post("/staff/invite", invitationHandler.Invite)
				r.Get("/staff/{id}", adminHandler.GetStaff)
				r.Put("/staff/{id}", adminHandler.UpdateStaff)
				r.Post("/staff/{id}/activate", adminHandler.ActivateStaff)
				r.Post("/staff/{id}/deactivate", adminHandler.DeactivateStaff)
				r.Delete("/staff/{id}", adminHandler.DeleteStaff)

				r.Get("/invitations", invitationHandler.List)
				r.Post("/invitations/{id}/revoke", invitationHandler.Revoke)
			})
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	}()

	logger.Info("Starting clinic API", "port", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}
