// Package main provides a one-shot deployment CLI: submit a token
// spec against the configured networks, optionally provision initial
// liquidity, and print the outcome as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"token-launchpad/internal/chain"
	"token-launchpad/internal/chain/evm"
	"token-launchpad/internal/chain/gorr"
	"token-launchpad/internal/domain"
	"token-launchpad/internal/liquidity"
	"token-launchpad/internal/orchestrator"
	"token-launchpad/internal/reconciler"
	"token-launchpad/internal/storage"
	"token-launchpad/internal/storage/memory"
	"token-launchpad/internal/storage/migrations"
	pgstore "token-launchpad/internal/storage/postgres"
)

func main() {
	// Parse flags
	name := flag.String("name", "", "Token name")
	symbol := flag.String("symbol", "", "Token symbol")
	decimals := flag.Int("decimals", 0, "Token decimals (0 selects the network default)")
	supply := flag.String("supply", "", "Total supply")
	networks := flag.String("networks", "", "Comma-separated target networks (ethereum, bnb, gorrillazz)")
	requester := flag.String("requester", "", "Requester wallet address")
	tokenID := flag.String("token-id", "", "Existing token id to retry (failed networks only)")

	liqAmount := flag.String("liquidity", "", "Initial liquidity amount (empty to skip)")
	liqLockDays := flag.Int("lock-days", 0, "Liquidity lock period in days")
	liqVenue := flag.String("venue", "", "Liquidity venue (empty selects the network default)")

	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")

	ethRPC := flag.String("eth-rpc", os.Getenv("ETH_RPC_ENDPOINT"), "Ethereum JSON-RPC endpoint")
	ethDeployer := flag.String("eth-deployer", os.Getenv("ETH_DEPLOYER"), "Ethereum deployer account")
	ethFactory := flag.String("eth-factory", os.Getenv("ETH_FACTORY"), "Ethereum token factory contract")
	ethRouter := flag.String("eth-router", os.Getenv("ETH_ROUTER"), "Ethereum liquidity router contract")
	bnbRPC := flag.String("bnb-rpc", os.Getenv("BNB_RPC_ENDPOINT"), "BNB Chain JSON-RPC endpoint")
	bnbDeployer := flag.String("bnb-deployer", os.Getenv("BNB_DEPLOYER"), "BNB Chain deployer account")
	bnbFactory := flag.String("bnb-factory", os.Getenv("BNB_FACTORY"), "BNB Chain token factory contract")
	bnbRouter := flag.String("bnb-router", os.Getenv("BNB_ROUTER"), "BNB Chain liquidity router contract")
	gorrAPI := flag.String("gorr-api", os.Getenv("GORR_API_ENDPOINT"), "Gorrillazz ledger API endpoint")

	networkTimeout := flag.Duration("network-timeout", 90*time.Second, "Per-network adapter call timeout")
	verbose := flag.Bool("verbose", false, "Enable verbose logging")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stderr, "[deploy] ", log.LstdFlags|log.Lshortfile)

	// Validate required flags
	if *name == "" || *symbol == "" || *supply == "" {
		logger.Fatal("--name, --symbol and --supply are required")
	}
	if *networks == "" {
		logger.Fatal("--networks is required")
	}
	if *requester == "" {
		logger.Fatal("--requester is required")
	}
	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	totalSupply, err := decimal.NewFromString(*supply)
	if err != nil {
		logger.Fatalf("Malformed --supply: %v", err)
	}

	targets, err := parseNetworks(*networks)
	if err != nil {
		logger.Fatalf("Malformed --networks: %v", err)
	}

	ctx := context.Background()

	// Create stores
	var tokens storage.TokenStore = memory.NewTokenStore()
	var pools storage.PoolStore = memory.NewPoolStore()
	var txs storage.TransactionStore = memory.NewTransactionStore()

	if !*useMemory {
		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			logger.Fatalf("Connect to postgres: %v", err)
		}
		defer pool.Close()

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			logger.Fatalf("Run postgres migrations: %v", err)
		}

		tokens = pgstore.NewTokenStore(pool)
		pools = pgstore.NewPoolStore(pool)
		txs = pgstore.NewTransactionStore(pool)
	}

	// Build the adapter registry
	var adapters []chain.Adapter
	if *ethRPC != "" {
		eth, err := evm.NewAdapter(evm.Config{
			Network:  domain.NetworkEthereum,
			Client:   evm.NewClient(*ethRPC),
			Deployer: *ethDeployer,
			Factory:  *ethFactory,
			Router:   *ethRouter,
		})
		if err != nil {
			logger.Fatalf("Ethereum adapter: %v", err)
		}
		adapters = append(adapters, eth)
	}
	if *bnbRPC != "" {
		bnb, err := evm.NewAdapter(evm.Config{
			Network:  domain.NetworkBNB,
			Client:   evm.NewClient(*bnbRPC),
			Deployer: *bnbDeployer,
			Factory:  *bnbFactory,
			Router:   *bnbRouter,
		})
		if err != nil {
			logger.Fatalf("BNB adapter: %v", err)
		}
		adapters = append(adapters, bnb)
	}
	if *gorrAPI != "" {
		adapters = append(adapters, gorr.NewAdapter(gorr.NewClient(*gorrAPI, nil), nil))
	}
	adapters = append(adapters, chain.NewDisabledAdapter(domain.NetworkSolana))
	registry := chain.NewRegistry(adapters...)

	rec := reconciler.New(reconciler.Options{
		TokenStore:       tokens,
		TransactionStore: txs,
		Logger:           logger,
	})

	orch := orchestrator.New(orchestrator.Options{
		Registry:       registry,
		TokenStore:     tokens,
		Reconciler:     rec,
		NetworkTimeout: *networkTimeout,
		Logger:         logger,
		Verbose:        *verbose,
	})

	spec := domain.TokenSpec{
		Name:        *name,
		Symbol:      *symbol,
		Decimals:    *decimals,
		TotalSupply: totalSupply,
		Networks:    targets,
	}
	if *liqAmount != "" {
		amount, err := decimal.NewFromString(*liqAmount)
		if err != nil {
			logger.Fatalf("Malformed --liquidity: %v", err)
		}
		spec.Liquidity = &domain.LiquidityParams{
			Amount:         amount,
			LockPeriodDays: *liqLockDays,
			Venue:          domain.Venue(*liqVenue),
		}
	}

	outcome, err := orch.Deploy(ctx, orchestrator.Request{
		TokenID:   *tokenID,
		Spec:      spec,
		Requester: *requester,
	})
	if err != nil {
		logger.Fatalf("Deploy: %v", err)
	}

	// Provision liquidity on every network that deployed
	var poolsOut []*domain.LiquidityPool
	if spec.Liquidity != nil {
		coord := liquidity.New(liquidity.Options{
			Registry:   registry,
			TokenStore: tokens,
			PoolStore:  pools,
			Reconciler: rec,
			Timeout:    *networkTimeout,
			Logger:     logger,
		})

		for _, record := range outcome.Records {
			if record.State != domain.DeploymentDeployed {
				continue
			}
			pool, err := coord.Provision(ctx, outcome.TokenID, record.Network, liquidity.Request{
				Amount:         spec.Liquidity.Amount,
				LockPeriodDays: spec.Liquidity.LockPeriodDays,
				Venue:          spec.Liquidity.Venue,
			})
			if err != nil {
				logger.Printf("Provision liquidity on %s: %v", record.Network, err)
				continue
			}
			poolsOut = append(poolsOut, pool)
		}
	}

	printOutcome(outcome, poolsOut)

	if outcome.Status == domain.TokenStatusFailed {
		os.Exit(1)
	}
}

// parseNetworks parses the comma-separated network list.
func parseNetworks(s string) ([]domain.Network, error) {
	var list []domain.Network
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(strings.ToLower(part))
		if part == "" {
			continue
		}
		n, err := domain.ParseNetwork(part)
		if err != nil {
			return nil, err
		}
		list = append(list, n)
	}
	return list, nil
}

// printOutcome writes the deployment result to stdout as JSON.
func printOutcome(outcome *orchestrator.Outcome, pools []*domain.LiquidityPool) {
	type recordOut struct {
		Network         string `json:"network"`
		State           string `json:"state"`
		ContractAddress string `json:"contract_address,omitempty"`
		TxRef           string `json:"tx_ref,omitempty"`
		FailureReason   string `json:"failure_reason,omitempty"`
		Retryable       bool   `json:"retryable,omitempty"`
	}
	type poolOut struct {
		PoolID      string `json:"pool_id"`
		Network     string `json:"network"`
		Venue       string `json:"venue"`
		PoolAddress string `json:"pool_address"`
		Status      string `json:"status"`
	}

	out := struct {
		TokenID string      `json:"token_id"`
		Status  string      `json:"status"`
		Records []recordOut `json:"records"`
		Pools   []poolOut   `json:"pools,omitempty"`
	}{
		TokenID: outcome.TokenID,
		Status:  string(outcome.Status),
	}
	for _, rec := range outcome.Records {
		out.Records = append(out.Records, recordOut{
			Network:         string(rec.Network),
			State:           string(rec.State),
			ContractAddress: rec.ContractAddress,
			TxRef:           rec.TxRef,
			FailureReason:   rec.FailureReason,
			Retryable:       rec.Retryable,
		})
	}
	for _, p := range pools {
		out.Pools = append(out.Pools, poolOut{
			PoolID:      p.ID,
			Network:     string(p.Network),
			Venue:       string(p.Venue),
			PoolAddress: p.PoolAddress,
			Status:      string(p.Status),
		})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "encode outcome: %v\n", err)
	}
}
