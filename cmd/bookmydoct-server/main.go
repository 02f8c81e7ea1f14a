package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sudarshannathmazumdar123/bookmydoct-be-v2/internal/config"
	"github.com/sudarshannathmazumdar123/bookmydoct-be-v2/internal/domain/admin"
	"github.com/sudarshannathmazumdar123/bookmydoct-be-v2/internal/domain/booking"
	"github.com/sudarshannathmazumdar123/bookmydoct-be-v2/internal/domain/clinic"
	"github.com/sudarshannathmazumdar123/bookmydoct-be-v2/internal/domain/doctor"
	"github.com/sudarshannathmazumdar123/bookmydoct-be-v2/internal/domain/identity"
	"github.com/sudarshannathmazumdar123/bookmydoct-be-v2/internal/domain/labtest"
	"github.com/sudarshannathmazumdar123/bookmydoct-be-v2/internal/platform/auth"
	"github.com/sudarshannathmazumdar123/bookmydoct-be-v2/internal/platform/db"
	"github.com/sudarshannathmazumdar123/bookmydoct-be-v2/internal/platform/mail"
	"github.com/sudarshannathmazumdar123/bookmydoct-be-v2/internal/platform/middleware"
	"github.com/sudarshannathmazumdar123/bookmydoct-be-v2/internal/platform/payments"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "bookmydoct-server",
		Short: "BookMyDoct appointment booking API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func runServer() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	api := e.Group("/api/v1")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	api.Use(middleware.RateLimit(rateLimitCfg))

	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTRefreshSecret)
	protected := api.Group("", auth.JWTMiddleware(issuer))

	var mailer mail.Sender
	if cfg.SMTPHost != "" {
		mailer = mail.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.MailUsername, cfg.MailPassword)
	} else {
		logger.Warn().Msg("SMTP_HOST not set; outgoing mail is disabled")
	}

	var gateway payments.Gateway
	if cfg.PaymentsEnabled() {
		gateway = payments.NewRazorpayGateway(cfg.RazorpayKeyID, cfg.RazorpayKeySecret)
	} else {
		logger.Warn().Msg("razorpay keys not set; booking endpoints are disabled")
	}

	txRunner := db.PoolTxRunner(pool)

	clinicRepo := clinic.NewRepoPG(pool)
	clinicSvc := clinic.NewService(clinicRepo)
	clinicHandler := clinic.NewHandler(clinicSvc)
	clinicHandler.RegisterRoutes(protected)

	identityRepo := identity.NewRepoPG(pool)
	identitySvc := identity.NewService(identityRepo, txRunner, issuer, clinicSvc, mailer, logger)
	identityHandler := identity.NewHandler(identitySvc, issuer)
	identityHandler.RegisterRoutes(api)
	identityHandler.RegisterClinicRoutes(protected)

	doctorRepo := doctor.NewRepoPG(pool)
	doctorSvc := doctor.NewService(doctorRepo, txRunner)
	doctorHandler := doctor.NewHandler(doctorSvc)
	doctorHandler.RegisterRoutes(protected)

	labTestRepo := labtest.NewRepoPG(pool)
	labTestSvc := labtest.NewService(labTestRepo)
	labTestHandler := labtest.NewHandler(labTestSvc)
	labTestHandler.RegisterRoutes(protected)

	adminRepo := admin.NewRepoPG(pool)
	adminSvc := admin.NewService(adminRepo)
	adminHandler := admin.NewHandler(adminSvc)
	adminHandler.RegisterRoutes(protected, api)

	if gateway != nil {
		bookingRepo := booking.NewRepoPG(pool)
		bookingSvc := booking.NewService(bookingRepo, txRunner, doctorSvc, clinicSvc, labTestSvc,
			adminSvc, gateway, mailer, cfg.RazorpayKeyID, cfg.AdminEmail, logger)
		bookingHandler := booking.NewHandler(bookingSvc, gateway,
			cfg.RazorpayWebhookSecret, cfg.RazorpayLabTestWebhookSecret, logger)
		bookingHandler.RegisterRoutes(protected)
		bookingHandler.RegisterWebhookRoutes(api)
	}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("server starting")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server stopped unexpectedly")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
