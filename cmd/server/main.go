package main

import (
	"context" // context package is needed for Redis and MinIO setup
	"time"    // Startup timeouts

	"brokerage_crm/internal/accounts"   // Trading accounts
	"brokerage_crm/internal/api"        // Custom package for API handlers
	"brokerage_crm/internal/config"     // Custom package for configuration
	"brokerage_crm/internal/db"         // Database connection
	"brokerage_crm/internal/documents"  // KYC intake
	"brokerage_crm/internal/ledger"     // Transaction ledger
	"brokerage_crm/internal/metrics"    // Prometheus counters
	"brokerage_crm/internal/middleware" // Custom package for middleware
	"brokerage_crm/internal/storage"    // Document blob store
	"brokerage_crm/internal/utils"      // Redis caches
	"brokerage_crm/internal/wizard"     // Registration flow

	"github.com/gin-gonic/gin"                                  // Gin web framework
	"github.com/minio/minio-go/v7"                              // MinIO client
	"github.com/minio/minio-go/v7/pkg/credentials"              // MinIO static credentials
	"github.com/prometheus/client_golang/prometheus"            // Metrics registry
	"github.com/prometheus/client_golang/prometheus/collectors" // Runtime collectors
	"github.com/redis/go-redis/v9"                              // Redis client
	"github.com/sirupsen/logrus"                                // Logrus for structured logging
)

// Main function to set up and run the server
func main() {
	cfg, err := config.LoadConfig() // Load configuration
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if cfg.IsProd {
		logrus.SetFormatter(&logrus.JSONFormatter{}) // Machine readable logs in production
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}

	// Connect to the database
	gdb, err := db.Open(cfg.DB.DSN())
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}

	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr, // Redis server address
		Password: cfg.Redis.Pass, // Redis password
		DB:       cfg.Redis.DB,   // Redis database number
	})

	// Test Redis connection, the service runs uncached without it
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var queryCache, clientCache *utils.RedisCache // nil caches nothing
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logrus.WithField("error", err.Error()).Warn("Redis unavailable, caching disabled")
	} else {
		queryCache = utils.NewRedisCache(redisClient, "txquery", cfg.Redis.CacheTTL)
		clientCache = utils.NewRedisCache(redisClient, "clients", cfg.Redis.CacheTTL)
	}

	blobs, err := openBlobStore(ctx, cfg)
	if err != nil {
		logrus.Fatalf("failed to open document storage: %v", err)
	}

	// Setup metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	r := api.NewRouter(api.Deps{
		DB:          gdb,
		ClientCache: clientCache,
		Wizard: wizard.New(gdb, wizard.Options{
			JWTSecret:  cfg.JWT.Secret,
			SessionTTL: cfg.JWT.SessionTTL,
			ResetTTL:   cfg.JWT.ResetTTL,
			Metrics:    m,
			Clients:    clientCache, // Registrations change the client list
			Ledgers:    queryCache,  // Renames change ledger pages
		}),
		Intake:    documents.NewIntake(gdb, blobs, m, cfg.UploadMaxBytes),
		Ledger:    ledger.NewService(gdb, queryCache, m),
		Accounts:  accounts.NewService(gdb, queryCache),
		Metrics:   m,
		Gatherer:  registry,
		JWTSecret: cfg.JWT.Secret,
		Cookie:    api.CookiePolicy{Name: cfg.Cookie.Name, Secure: cfg.Cookie.Secure, TTL: cfg.JWT.SessionTTL},
		RateLimit: middleware.RateLimitConfig{
			Requests: cfg.RateLimit.Requests,
			Window:   cfg.RateLimit.Window,
			Burst:    cfg.RateLimit.Burst,
		},
		MaxUpload: cfg.UploadMaxBytes,
	})

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	logrus.Info("Server running on " + cfg.AppPort) // Log server start
	// Start the server on port cfg.AppPort
	if err := r.Run(":" + cfg.AppPort); err != nil {
		logrus.Fatalf("server stopped: %v", err)
	}
}

// openBlobStore selects the document backend named by the configuration
func openBlobStore(ctx context.Context, cfg *config.Config) (storage.BlobStore, error) {
	if cfg.Storage.Driver != "minio" {
		return storage.NewLocal(cfg.Storage.LocalDir)
	}
	client, err := minio.New(cfg.Minio.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Minio.AccessKey, cfg.Minio.SecretKey, ""),
		Secure: cfg.Minio.UseSSL,
	})
	if err != nil {
		return nil, err
	}
	return storage.NewMinio(ctx, client, cfg.Minio.Bucket)
}
