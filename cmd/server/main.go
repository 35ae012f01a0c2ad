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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/nftmx/settlement-engine/internal/market"
	"github.com/nftmx/settlement-engine/internal/metrics"
	"github.com/nftmx/settlement-engine/internal/model"
	"github.com/nftmx/settlement-engine/internal/policy"
	"github.com/nftmx/settlement-engine/internal/store"
	"github.com/nftmx/settlement-engine/internal/token"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	owner := model.Account(os.Getenv("ADMIN_OWNER"))
	if owner.IsZero() {
		slog.Error("ADMIN_OWNER must be set")
		os.Exit(1)
	}
	feeRecipient := model.Account(os.Getenv("FEE_RECIPIENT"))
	if feeRecipient.IsZero() {
		feeRecipient = owner
	}
	escrow := model.Account(os.Getenv("ESCROW_ACCOUNT"))
	if escrow.IsZero() {
		escrow = "marketplace-escrow"
	}

	// --- Initialize store ---
	var st store.Store
	var cleanup []func()

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		pool, err := pgxpool.New(context.Background(), dbURL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)
		st = store.NewPostgresStore(pool)
		slog.Info("connected to PostgreSQL")

		// Wrap with Redis read-through cache if configured.
		if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
			opt, err := redis.ParseURL(redisURL)
			if err != nil {
				slog.Error("invalid REDIS_URL", "err", err)
				os.Exit(1)
			}
			rdb := redis.NewClient(opt)
			cleanup = append(cleanup, func() { rdb.Close() })
			st = store.NewCachedStore(st, rdb, 30*time.Second)
			slog.Info("Redis cache enabled")
		}
	} else {
		slog.Warn("DATABASE_URL not set, using in-memory store (data will not persist)")
		st = store.NewMemoryStore()
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- Fee policy ---
	pol, err := policy.New(owner, feeRecipient)
	if err != nil {
		slog.Error("invalid fee policy configuration", "err", err)
		os.Exit(1)
	}
	if fee, err := st.GetFeePolicy(context.Background()); err == nil {
		if err := pol.Restore(fee); err != nil {
			slog.Error("persisted fee policy is invalid", "err", err)
			os.Exit(1)
		}
		slog.Info("restored fee policy", "fee_bps", fee.FeeBps, "recipient", fee.FeeRecipient)
	} else if !errors.Is(err, store.ErrFeePolicyNotFound) {
		slog.Error("failed to load fee policy", "err", err)
		os.Exit(1)
	}

	// --- External collaborators ---
	// The engine consumes the settlement-token ledger and asset registry as
	// opaque services. Without remote endpoints configured it runs in dev
	// mode against in-memory implementations.
	ledger := token.NewMemoryLedger()
	registry := token.NewMemoryRegistry()
	slog.Warn("using in-memory token ledger and asset registry (dev mode)")

	// --- WebSocket hub ---
	hub := market.NewWSHub()
	go hub.Run()

	// --- Settlement service ---
	svc, err := market.NewService(st, ledger, registry, pol, escrow, hub)
	if err != nil {
		slog.Error("service init failed", "err", err)
		os.Exit(1)
	}

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	// CORS middleware for frontend cross-origin requests.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"settlement-engine"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket endpoint for real-time marketplace events.
		r.Get("/ws", hub.HandleWS)

		// Listing ledger.
		r.Get("/listings", svc.ListListings)
		r.Post("/listings", svc.CreateListing)
		r.Get("/listings/{collection}/{assetID}", svc.GetListing)
		r.Delete("/listings/{collection}/{assetID}", svc.CancelListing)

		// Settlement.
		r.Post("/buy", svc.ExecuteBuy)
		r.Get("/sales", svc.GetSales)

		// Administration.
		r.Get("/fee", svc.GetFee)
		r.Put("/fee", svc.UpdateFee)
		r.Post("/owner", svc.HandoverOwnership)

		// Dev-mode operations against the in-memory collaborators.
		dev := &market.DevHandlers{Ledger: ledger, Registry: registry}
		r.Route("/dev", func(r chi.Router) {
			r.Post("/tokens/mint", dev.MintTokens)
			r.Post("/tokens/approve", dev.ApproveTokens)
			r.Get("/tokens/balance/{account}", dev.GetBalance)
			r.Post("/assets/mint", dev.MintAsset)
			r.Post("/assets/approve", dev.ApproveAsset)
			r.Post("/assets/royalty", dev.SetRoyalty)
		})
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("settlement-engine listening", "port", port, "escrow", escrow)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down settlement-engine...")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("settlement-engine stopped")
}
