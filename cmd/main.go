package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"quotadrop/internal/config"
	"quotadrop/internal/handler"
	"quotadrop/internal/repository"
	"quotadrop/internal/service"
	"quotadrop/internal/service/s3"
)

func connectWithRetry(dsn string, maxAttempts int, delay time.Duration) (*sqlx.DB, error) {
	var db *sqlx.DB
	var err error
	for i := 0; i < maxAttempts; i++ {
		db, err = sqlx.Connect("postgres", dsn)
		if err == nil {
			return db, nil
		}

		log.Printf("Failed to connect to database (attempt %d/%d): %v", i+1, maxAttempts, err)
		time.Sleep(delay)
	}

	return nil, fmt.Errorf("failed to connect after %d attempts: %v", maxAttempts, err)
}

func runMigrations(cfg *config.Config) error {
	var m *migrate.Migrate
	var err error

	for i := 0; i < 5; i++ {
		m, err = migrate.New("file://migrations", cfg.Database.GetURL())
		if err == nil {
			break
		}
		log.Printf("Failed to create migrate instance (attempt %d/5): %v", i+1, err)
		time.Sleep(time.Second * 5)
	}

	if err != nil {
		return fmt.Errorf("failed to create migrate instance after retries: %w", err)
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if dirty {
		log.Printf("Found dirty database state at version %d, attempting to force version", version)
		if err := m.Force(int(version)); err != nil {
			return fmt.Errorf("failed to force version: %w", err)
		}
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// openRecordStore создаёт хранилище записей согласно Database.Driver.
// Для postgres возвращает также функцию проверки соединения и закрытия.
func openRecordStore(cfg *config.Config) (repository.RecordStore, func(ctx context.Context) error, func() error, error) {
	if cfg.Database.Driver == config.DriverMemory {
		log.Println("Using in-memory record store, records are lost on restart")
		return repository.NewMemoryStore(), nil, func() error { return nil }, nil
	}

	db, err := connectWithRetry(cfg.Database.GetDSN(), 5, time.Second*5)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to database after retries: %w", err)
	}

	if err := runMigrations(cfg); err != nil {
		db.Close()
		return nil, nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return repository.NewPostgresStore(db), db.PingContext, db.Close, nil
}

func main() {
	// Загружаем конфигурации
	appConfig, err := config.NewConfig(".app.env")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	store, ping, closeStore, err := openRecordStore(appConfig)
	if err != nil {
		log.Fatalf("Failed to open record store: %v", err)
	}

	// Инициализация S3 клиента
	s3Config, err := s3.NewConfig(".s3.env")
	if err != nil {
		log.Fatalf("Failed to load S3 config: %v", err)
	}

	s3Client, err := s3.NewClient(s3Config)
	if err != nil {
		log.Fatalf("Failed to create S3 client: %v", err)
	}

	// Инициализация сервисов
	quota := appConfig.Quota
	clock := service.SystemClock{}
	ledger := repository.NewLedger(store)
	urlCache := service.NewURLCache(s3Client, quota.URLCacheSize, quota.SignedURLTTL, quota.URLCacheTTL)

	ingestionService := service.NewIngestionService(ledger, s3Client, clock)
	resolutionService := service.NewResolutionService(ledger)
	redemptionService := service.NewRedemptionService(ledger, urlCache, clock, quota.MaxAttempts, quota.MirrorAttempts)
	reconciler := service.NewReconciler(ledger, quota.ReconcileInterval, quota.MirrorAttempts)

	linkHandler := handler.NewLinkHandler(
		ingestionService,
		resolutionService,
		redemptionService,
		quota.DefaultLimit,
		quota.DefaultTTL,
		quota.MaxUploadBytes,
	)

	// Настройка HTTP роутера
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", handler.Health(ping))
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/v1", linkHandler.Routes)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", appConfig.Server.Port),
		Handler: r,
	}

	// Канал для сигналов завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	reconciler.Start(context.Background())

	go func() {
		log.Printf("Starting HTTP server on port %s", appConfig.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	// Ожидаем сигнал завершения
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server forced to shutdown: %v", err)
	}

	reconciler.Stop()

	if err := closeStore(); err != nil {
		log.Printf("Error closing record store: %v", err)
	}

	log.Println("Server exited properly")
}
