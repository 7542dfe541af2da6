package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"

	"intellicourse/config"
	"intellicourse/db"
	apphttp "intellicourse/http"
	httpservices "intellicourse/http/services"
	"intellicourse/logger"
	"intellicourse/models"
	"intellicourse/services"
	"intellicourse/store"
)

func main() {
	config.LoadConfig()

	services.InitProducer()
	defer services.Close()

	payments, courses := buildStores()

	rates := services.NewRateCache(
		services.NewHTTPRateFetcher(config.AppConfig.RateFeedURL),
		services.FallbackRates,
	)
	refreshCtx, cancelRefresh := context.WithTimeout(context.Background(), 15*time.Second)
	if err := rates.Refresh(refreshCtx); err != nil {
		logger.Warn("Initial rate refresh failed, serving fallback rates: %v", err)
	}
	cancelRefresh()

	scheduler := cron.New(cron.WithSeconds())
	if _, err := scheduler.AddFunc(config.AppConfig.RateRefreshCron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := rates.Refresh(ctx); err != nil {
			logger.Warn("Scheduled rate refresh failed: %v", err)
		}
	}); err != nil {
		logger.Fatal("Invalid rate refresh schedule %q: %v", config.AppConfig.RateRefreshCron, err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	payout, err := httpservices.NewPayoutDistributor(httpservices.DefaultBuckets())
	if err != nil {
		logger.Fatal("Invalid payout buckets: %v", err)
	}

	svc := httpservices.NewPaymentService(
		payments,
		courses,
		rates,
		services.NewEmailNotifier(),
		payout,
		config.AppConfig.RequiredConfirmations,
		time.Duration(config.AppConfig.DuplicateWindowMinutes)*time.Minute,
	)

	mux := http.NewServeMux()
	apphttp.SetupRoutes(mux, svc, courses)

	server := &http.Server{
		Addr:         ":" + config.AppConfig.ServerPort,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info("Payment server listening on port %s", config.AppConfig.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed: %v", err)
	}
}

// buildStores selects Postgres-backed stores when DB_HOST is set and falls
// back to the in-memory stores otherwise.
func buildStores() (store.PaymentStore, store.CourseStore) {
	if config.AppConfig.DBHost != "" {
		if err := db.InitDB(); err != nil {
			logger.Fatal("Database initialization failed: %v", err)
		}
		logger.Info("Connected to Postgres at %s", config.AppConfig.DBHost)
		return store.NewPostgresPaymentStore(db.DB), store.NewPostgresCourseStore(db.DB)
	}

	logger.Info("DB_HOST not set, using in-memory stores")
	now := time.Now().UTC()
	return store.NewMemoryPaymentStore(), store.NewMemoryCourseStore([]models.Course{
		{Title: "AI Fundamentals", Description: "Foundations of machine learning and practical AI tooling", Price: decimal.NewFromFloat(1499.00), IsActive: 1, CreatedAt: now, UpdatedAt: now},
		{Title: "Full-Stack Web Development", Description: "Build and ship production web applications", Price: decimal.NewFromFloat(2499.00), IsActive: 1, CreatedAt: now, UpdatedAt: now},
		{Title: "Digital Marketing Mastery", Description: "Campaigns, analytics and growth channels", Price: decimal.NewFromFloat(1299.00), IsActive: 1, CreatedAt: now, UpdatedAt: now},
	})
}
