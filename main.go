package main

import (
	"encoding/json"
	stdlog "log"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/blackledger/backend/src/config"
	"github.com/username/blackledger/backend/src/database"
	"github.com/username/blackledger/backend/src/handlers"
	"github.com/username/blackledger/backend/src/logger"
	"github.com/username/blackledger/backend/src/services"
	"golang.org/x/time/rate"
)

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded",
				"method", r.Method,
				"path", r.URL.Path,
				"remoteAddr", r.RemoteAddr)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowedOrigins := map[string]bool{
			"http://localhost:3000": true,
		}

		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Requested-With")
		} else if origin == "" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		if r.Method == "OPTIONS" {
			logger.L.Debug("Handling OPTIONS preflight request", "path", r.URL.Path, "origin", origin)
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)
	logger.L.Info("Blackledger backend server starting...")

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	logger.L.Info("Database initialized successfully.")

	logger.L.Info("Initializing sync result cache...")
	resultCache := cache.New(24*time.Hour, 48*time.Hour)

	logger.L.Info("Initializing services and handlers...")
	providerClient := services.NewProviderClient(
		config.Cfg.ProviderAPIKey,
		config.Cfg.ProviderBalanceURLs,
		config.Cfg.ProviderSubscriptionURL,
		config.Cfg.ProviderTimeout,
	)
	ledgerWriter := services.NewLedgerWriter(database.DB)
	notificationService := services.NewNotificationService()
	syncService := services.NewSyncService(providerClient, ledgerWriter, notificationService, resultCache, config.Cfg.ProviderAPIKey)
	snapshotService := services.NewSnapshotService(database.DB, ledgerWriter)

	syncHandler := handlers.NewSyncHandler(syncService, ledgerWriter)
	snapshotHandler := handlers.NewSnapshotHandler(snapshotService)

	logger.L.Info("Configuring routes...")
	rootMux := http.NewServeMux()
	apiRouter := http.NewServeMux()

	apiRouter.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	apiRouter.HandleFunc("GET /api/sync-balances", syncHandler.HandleSyncBalances)
	apiRouter.HandleFunc("POST /api/sync-balances", syncHandler.HandleSyncBalances)
	apiRouter.HandleFunc("GET /api/balances/current", syncHandler.HandleGetCurrentBalances)
	apiRouter.HandleFunc("POST /api/snapshots/previous-period", snapshotHandler.HandleTakeSnapshot)
	apiRouter.HandleFunc("GET /api/snapshots", snapshotHandler.HandleListSnapshots)
	apiRouter.HandleFunc("GET /api/snapshots/{period}", snapshotHandler.HandleGetSnapshot)

	rootMux.Handle("/api/", apiRouter)

	rootMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" && r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"message": "BLACKLEDGER Backend is running"})
		} else {
			if !strings.HasPrefix(r.URL.Path, "/api/") {
				logger.L.Warn("Root level path not found", "method", r.Method, "path", r.URL.Path)
				http.NotFound(w, r)
			}
		}
	})

	logger.L.Info("Applying global middleware...")
	finalHandler := enableCORS(rateLimitMiddleware(rootMux))

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:        serverAddr,
		Handler:     finalHandler,
		ReadTimeout: 15 * time.Second,
		// A sync may walk several endpoint and strategy pairs before answering.
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.L.Error("Failed to start server", "error", err)
		stdlog.Fatalf("Failed to start server: %v", err)
	} else if err == http.ErrServerClosed {
		logger.L.Info("Server stopped gracefully.")
	}
}
