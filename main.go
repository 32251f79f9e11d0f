package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crm/controllers"
	"crm/database"
	"crm/entities/exports"
	"crm/entities/pipelines"
	"crm/entities/realtime"
	"crm/entities/stages"
	"crm/metrics"
	"crm/middlewares"
	"crm/utils"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const ENV_FILE = ".env"

func main() {
	if _, err := os.Stat(ENV_FILE); err == nil {
		if err := utils.LoadEnvFile(ENV_FILE); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	cfg, err := utils.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := utils.NewLogger(os.Stdout, cfg.LogLevel)
	slog.SetDefault(log)

	if cfg.Environment == utils.ENV_RELEASE {
		log.Warn("running in production environment")
	} else {
		log.Info("environment loaded", slog.String("env", cfg.Environment))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	resolver, closeStorage, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open storage", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeStorage()

	locker, closeLocker, err := openLocker(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open lock backend", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeLocker()

	artifactStore, localStore, err := openArtifactStore(ctx, cfg)
	if err != nil {
		log.Error("failed to open export store", slog.String("error", err.Error()))
		os.Exit(1)
	}

	pipelineStore := pipelines.NewStore(log)
	dispatcher := controllers.NewDispatcher(controllers.DispatcherOptions{
		Resolver:  resolver,
		Gate:      middlewares.NewAccessGate(log),
		Pipelines: pipelineStore,
		Stages:    stages.NewStore(locker, log),
		Exporter:  exports.NewExporter(pipelineStore, artifactStore, cfg.ExportCurrencySymbol, log),
		Logger:    log,
	})

	hub := realtime.NewHub(dispatcher, cfg.CORSAllowedOrigins, log)
	auth := middlewares.JWTAuth(middlewares.NewTokenManager(cfg.JWTSecret), log)

	mux := http.NewServeMux()
	controllers.NewHTTPHandler(dispatcher, hub).Register(mux, auth)
	mux.Handle("GET /v1/ws", auth(hub))

	if localStore != nil {
		mux.Handle("GET "+exports.EXPORTS_ROUTE, localStore.Handler())
	}

	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.SendResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	sweeper := exports.NewSweeper(artifactStore, cfg.ExportRetention, cfg.ExportSweepInterval, log)
	go sweeper.Start(ctx)

	handler := metrics.HTTPMetricsMiddleware(middlewares.SecurityHeaders(middlewares.Cors(cfg.CORSAllowedOrigins)(mux)))

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server started", slog.Int("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", slog.String("error", err.Error()))
	}
	log.Info("server stopped")
}

func openStorage(ctx context.Context, cfg utils.Config, log *slog.Logger) (database.Resolver, func(), error) {
	if cfg.StorageDriver == utils.STORAGE_DRIVER_MEMORY {
		log.Warn("using in-memory storage, data is lost on restart")
		return database.NewMemoryResolver(), func() {}, nil
	}

	client, err := database.Connect(ctx, cfg.MongoURI)
	if err != nil {
		return nil, nil, err
	}

	var directory database.TenantDirectory
	var closeDirectory func() error
	if cfg.MySQLURI != "" {
		mysqlDirectory, err := database.OpenMySQLDirectory(ctx, cfg.MySQLURI)
		if err != nil {
			client.Disconnect(context.Background())
			return nil, nil, err
		}
		directory = mysqlDirectory
		closeDirectory = mysqlDirectory.Close
		log.Info("company directory enabled")
	}

	prefix := cfg.MongoDBPrefix
	if prefix == "" {
		prefix = database.GetDBPrefix(cfg.Environment)
	}

	resolver := database.NewMongoResolver(client, database.MongoResolverOptions{
		Prefix:       prefix,
		Transactions: cfg.MongoTransactions,
		Directory:    directory,
		Logger:       log,
	})

	closer := func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), database.MONGO_TIMEOUT)
		defer cancel()
		client.Disconnect(disconnectCtx)
		if closeDirectory != nil {
			closeDirectory()
		}
	}
	return resolver, closer, nil
}

func openLocker(ctx context.Context, cfg utils.Config, log *slog.Logger) (database.Locker, func(), error) {
	if cfg.RedisURI == "" {
		return database.NewLocalLocker(), func() {}, nil
	}

	client, err := database.NewRedisClient(ctx, cfg.RedisURI)
	if err != nil {
		return nil, nil, err
	}
	log.Info("redis tenant locks enabled")
	return database.NewRedisLocker(client, log), func() { client.Close() }, nil
}

// openArtifactStore also returns the local store, if that is the driver, so
// its files can be served.
func openArtifactStore(ctx context.Context, cfg utils.Config) (exports.ArtifactStore, *exports.LocalStore, error) {
	if cfg.ExportDriver == utils.EXPORT_DRIVER_S3 {
		store, err := exports.NewS3Store(ctx, exports.S3Config{
			Bucket:   cfg.ExportS3Bucket,
			Region:   cfg.ExportS3Region,
			Endpoint: cfg.ExportS3Endpoint,
		})
		return store, nil, err
	}

	store, err := exports.NewLocalStore(cfg.ExportDir, cfg.ExportBaseURL)
	if err != nil {
		return nil, nil, err
	}
	return store, store, nil
}
