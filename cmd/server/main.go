// Package main provides the launchpad API server: token deployment
// across the supported networks, liquidity provisioning, balances,
// and admin withdrawals, with an optional ClickHouse analytics mirror.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"token-launchpad/internal/admin"
	"token-launchpad/internal/chain"
	"token-launchpad/internal/chain/evm"
	"token-launchpad/internal/chain/gorr"
	"token-launchpad/internal/domain"
	"token-launchpad/internal/fees"
	"token-launchpad/internal/liquidity"
	"token-launchpad/internal/observability"
	"token-launchpad/internal/orchestrator"
	"token-launchpad/internal/payments"
	"token-launchpad/internal/reconciler"
	"token-launchpad/internal/storage"
	chstore "token-launchpad/internal/storage/clickhouse"
	"token-launchpad/internal/storage/memory"
	"token-launchpad/internal/storage/migrations"
	pgstore "token-launchpad/internal/storage/postgres"
)

// Server holds the wired components of the launchpad service.
type Server struct {
	registry *chain.Registry
	orch     *orchestrator.Orchestrator
	coord    *liquidity.Coordinator
	adminSvc *admin.Service

	tokens storage.TokenStore
	pools  storage.PoolStore
	txs    storage.TransactionStore
	audit  *chstore.AuditStore // nil when no ClickHouse mirror is configured

	useMemory bool
	startedAt time.Time
	logger    *log.Logger
}

// launchpadStores holds the transactional storage implementations.
type launchpadStores struct {
	tokens storage.TokenStore
	pools  storage.PoolStore
	txs    storage.TransactionStore
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	httpAddr := flag.String("http-addr", envOr("HTTP_ADDR", ":8080"), "HTTP listen address")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (optional analytics mirror)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	adminWallet := flag.String("admin-wallet", os.Getenv("ADMIN_WALLET"), "Admin wallet address (fee exempt, authorizes withdrawals)")

	ethRPC := flag.String("eth-rpc", os.Getenv("ETH_RPC_ENDPOINT"), "Ethereum JSON-RPC endpoint")
	ethDeployer := flag.String("eth-deployer", os.Getenv("ETH_DEPLOYER"), "Ethereum deployer account")
	ethFactory := flag.String("eth-factory", os.Getenv("ETH_FACTORY"), "Ethereum token factory contract")
	ethRouter := flag.String("eth-router", os.Getenv("ETH_ROUTER"), "Ethereum liquidity router contract")

	bnbRPC := flag.String("bnb-rpc", os.Getenv("BNB_RPC_ENDPOINT"), "BNB Chain JSON-RPC endpoint")
	bnbDeployer := flag.String("bnb-deployer", os.Getenv("BNB_DEPLOYER"), "BNB Chain deployer account")
	bnbFactory := flag.String("bnb-factory", os.Getenv("BNB_FACTORY"), "BNB Chain token factory contract")
	bnbRouter := flag.String("bnb-router", os.Getenv("BNB_ROUTER"), "BNB Chain liquidity router contract")

	gorrAPI := flag.String("gorr-api", os.Getenv("GORR_API_ENDPOINT"), "Gorrillazz ledger API endpoint")
	gorrWS := flag.String("gorr-ws", os.Getenv("GORR_WS_ENDPOINT"), "Gorrillazz event feed WebSocket endpoint (optional)")

	payoutURL := flag.String("payout-url", os.Getenv("PAYOUT_API_URL"), "Payment rail payout API base URL")
	payoutKey := flag.String("payout-key", os.Getenv("PAYOUT_API_KEY"), "Payment rail payout API key")

	networkTimeout := flag.Duration("network-timeout", 90*time.Second, "Per-network adapter call timeout")
	mirrorInterval := flag.Duration("mirror-interval", time.Minute, "Audit mirror flush interval")
	verbose := flag.Bool("verbose", false, "Enable verbose logging")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	// Validate required flags
	if *adminWallet == "" {
		logger.Fatal("--admin-wallet is required")
	}
	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Create stores
	stores, audit, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	// Build the adapter registry from the configured endpoints
	registry, err := buildRegistry(ctx, logger, registryConfig{
		ethRPC: *ethRPC, ethDeployer: *ethDeployer, ethFactory: *ethFactory, ethRouter: *ethRouter,
		bnbRPC: *bnbRPC, bnbDeployer: *bnbDeployer, bnbFactory: *bnbFactory, bnbRouter: *bnbRouter,
		gorrAPI: *gorrAPI, gorrWS: *gorrWS,
	})
	if err != nil {
		logger.Fatalf("Failed to build adapter registry: %v", err)
	}

	rec := reconciler.New(reconciler.Options{
		TokenStore:       stores.tokens,
		TransactionStore: stores.txs,
		Logger:           logger,
	})

	orch := orchestrator.New(orchestrator.Options{
		Registry:       registry,
		TokenStore:     stores.tokens,
		Reconciler:     rec,
		NetworkTimeout: *networkTimeout,
		Logger:         logger,
		Verbose:        *verbose,
	})

	coord := liquidity.New(liquidity.Options{
		Registry:   registry,
		TokenStore: stores.tokens,
		PoolStore:  stores.pools,
		Reconciler: rec,
		Timeout:    *networkTimeout,
		Logger:     logger,
	})

	adminSvc := admin.New(admin.Options{
		Schedule:         fees.NewSchedule(*adminWallet),
		Providers:        buildProviders(*payoutURL, *payoutKey),
		TransactionStore: stores.txs,
		Logger:           logger,
	})

	server := &Server{
		registry:  registry,
		orch:      orch,
		coord:     coord,
		adminSvc:  adminSvc,
		tokens:    stores.tokens,
		pools:     stores.pools,
		txs:       stores.txs,
		audit:     audit,
		useMemory: *useMemory,
		startedAt: time.Now(),
		logger:    logger,
	}

	httpServer := &http.Server{
		Addr:    *httpAddr,
		Handler: server.routes(),
	}

	// Channel to signal completion
	done := make(chan struct{})

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("HTTP shutdown error: %v", err)
		}

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	// Background loops: uptime metric and the analytics mirror
	go runUptimeTicker(ctx)
	if audit != nil {
		go server.runAuditMirror(ctx, *mirrorInterval)
	}

	logger.Printf("Starting HTTP server on %s", *httpAddr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("HTTP server error: %v", err)
	}
	close(done)

	logger.Println("Shutdown complete")
}

// createStores creates the token, pool and transaction stores, plus the
// optional ClickHouse audit mirror.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*launchpadStores, *chstore.AuditStore, func(), error) {
	if useMemory {
		stores := &launchpadStores{
			tokens: memory.NewTokenStore(),
			pools:  memory.NewPoolStore(),
			txs:    memory.NewTransactionStore(),
		}
		return stores, nil, func() {}, nil
	}

	// PostgreSQL, the source of truth
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("run postgres migrations: %w", err)
	}

	stores := &launchpadStores{
		tokens: pgstore.NewTokenStore(pool),
		pools:  pgstore.NewPoolStore(pool),
		txs:    pgstore.NewTransactionStore(pool),
	}

	// ClickHouse analytics mirror, optional
	if clickhouseDSN == "" {
		return stores, nil, func() { pool.Close() }, nil
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}
	return stores, chstore.NewAuditStore(chConn), cleanup, nil
}

type registryConfig struct {
	ethRPC, ethDeployer, ethFactory, ethRouter string
	bnbRPC, bnbDeployer, bnbFactory, bnbRouter string
	gorrAPI, gorrWS                            string
}

// buildRegistry registers one adapter per network. Networks without a
// configured endpoint get an unconfigured stand-in so their failures
// read "not configured", never the permanent "support withdrawn"
// signal reserved for Solana.
func buildRegistry(ctx context.Context, logger *log.Logger, cfg registryConfig) (*chain.Registry, error) {
	var adapters []chain.Adapter

	if cfg.ethRPC != "" {
		eth, err := evm.NewAdapter(evm.Config{
			Network:  domain.NetworkEthereum,
			Client:   evm.NewClient(cfg.ethRPC),
			Deployer: cfg.ethDeployer,
			Factory:  cfg.ethFactory,
			Router:   cfg.ethRouter,
		})
		if err != nil {
			return nil, fmt.Errorf("ethereum adapter: %w", err)
		}
		adapters = append(adapters, eth)
	} else {
		logger.Println("No --eth-rpc configured, ethereum requests will fail as not configured")
		adapters = append(adapters, chain.NewUnconfiguredAdapter(domain.NetworkEthereum))
	}

	if cfg.bnbRPC != "" {
		bnb, err := evm.NewAdapter(evm.Config{
			Network:  domain.NetworkBNB,
			Client:   evm.NewClient(cfg.bnbRPC),
			Deployer: cfg.bnbDeployer,
			Factory:  cfg.bnbFactory,
			Router:   cfg.bnbRouter,
		})
		if err != nil {
			return nil, fmt.Errorf("bnb adapter: %w", err)
		}
		adapters = append(adapters, bnb)
	} else {
		logger.Println("No --bnb-rpc configured, bnb requests will fail as not configured")
		adapters = append(adapters, chain.NewUnconfiguredAdapter(domain.NetworkBNB))
	}

	if cfg.gorrAPI != "" {
		client := gorr.NewClient(cfg.gorrAPI, nil)
		var feed *gorr.Feed
		if cfg.gorrWS != "" {
			f, err := gorr.NewFeed(ctx, cfg.gorrWS)
			if err != nil {
				// Fall back to HTTP polling; the feed is an optimization.
				logger.Printf("Gorrillazz event feed unavailable (%v), polling instead", err)
			} else {
				feed = f
			}
		}
		adapters = append(adapters, gorr.NewAdapter(client, feed))
	} else {
		logger.Println("No --gorr-api configured, gorrillazz requests will fail as not configured")
		adapters = append(adapters, chain.NewUnconfiguredAdapter(domain.NetworkGorrillazz))
	}

	// Solana support is withdrawn; the adapter stays registered so the
	// rejection is deterministic rather than "no adapter".
	adapters = append(adapters, chain.NewDisabledAdapter(domain.NetworkSolana))

	return chain.NewRegistry(adapters...), nil
}

// buildProviders creates one payout client per supported payment rail.
func buildProviders(baseURL, apiKey string) []admin.PaymentProvider {
	if baseURL == "" {
		return nil
	}
	rails := []fees.Provider{fees.ProviderRevolut, fees.ProviderStripe, fees.ProviderPaypal, fees.ProviderCard}
	providers := make([]admin.PaymentProvider, 0, len(rails))
	for _, rail := range rails {
		providers = append(providers, payments.NewRESTProvider(rail, baseURL+"/"+string(rail), apiKey))
	}
	return providers
}

// runUptimeTicker feeds the uptime counter once per second.
func runUptimeTicker(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			observability.DefaultMetrics.UptimeSeconds.Inc()
		}
	}
}

// runAuditMirror periodically copies recent audit records into
// ClickHouse. The sink table dedups on tx_id, so re-sending an
// already-mirrored batch is harmless.
func (s *Server) runAuditMirror(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			records, err := s.txs.GetRecent(ctx, 500)
			if err != nil {
				s.logger.Printf("Audit mirror read failed: %v", err)
				continue
			}
			if err := s.audit.InsertBulk(ctx, records); err != nil {
				s.logger.Printf("Audit mirror flush failed: %v", err)
			}
		}
	}
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
