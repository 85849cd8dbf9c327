// Package config loads the ambient configuration surface named in spec §6:
// .env-sourced connection strings (grounded on cmd/main.go's godotenv.Load
// pattern) plus the declarative manual-mapping table of protocol addresses
// automatic discovery can't identify.
package config

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/txplain/blocktree/internal/discovery"
	"github.com/txplain/blocktree/internal/models"
	"github.com/txplain/blocktree/internal/store"
)

// knownProtocols is the enumerated set §6 requires manual mappings to match;
// an unrecognized name is fatal at load, not at first use.
var knownProtocols = map[string]bool{
	"erc20": true, "uniswap_v2": true, "uniswap_v3": true,
	"maker_psm": true, "aave_v2": true, "aggregator": true, "curve_meta": true,
}

// Config gathers everything the classifier needs to start: store
// connections, the chain RPC endpoints, factory addresses for discovery,
// and the manual-mapping table.
type Config struct {
	Store     store.Config
	ErpcURL   string
	EthRPCURL string
	Factories discovery.FactoryAddresses
	Workers   int
	Mappings  []models.ManualMapping
}

// Load reads .env (if present — a missing file is not an error, matching
// godotenv's own convention and the teacher's cmd/main.go usage) and an
// optional manual-mapping YAML file named by MANUAL_MAPPING_PATH.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	workers := runtimeDefaultWorkers()
	if v := os.Getenv("WORKER_POOL_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("config: invalid WORKER_POOL_SIZE: %w", err)
		}
		workers = n
	}

	cfg := &Config{
		Store: store.Config{
			RedisAddr:   envOr("REDIS_ADDR", "localhost:6379"),
			PostgresDSN: os.Getenv("POSTGRES_DSN"),
		},
		ErpcURL:   os.Getenv("ERPC_URL"),
		EthRPCURL: os.Getenv("ETH_RPC_URL"),
		Factories: discovery.FactoryAddresses{
			UniswapV2Factory: os.Getenv("UNISWAP_V2_FACTORY"),
			UniswapV3Factory: os.Getenv("UNISWAP_V3_FACTORY"),
			CurveMetaFactory: os.Getenv("CURVE_META_FACTORY"),
		},
		Workers: workers,
	}

	if path := os.Getenv("MANUAL_MAPPING_PATH"); path != "" {
		mappings, err := loadManualMappings(path)
		if err != nil {
			return nil, err
		}
		cfg.Mappings = mappings
	}

	return cfg, nil
}

func loadManualMappings(path string) ([]models.ManualMapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read manual mapping file: %w", err)
	}

	var mappings []models.ManualMapping
	if err := yaml.Unmarshal(data, &mappings); err != nil {
		return nil, fmt.Errorf("config: parse manual mapping file: %w", err)
	}

	for _, m := range mappings {
		if !knownProtocols[m.Protocol] {
			return nil, models.NewClassificationError(models.ErrorKindFatal, 0, m.Protocol,
				fmt.Errorf("unknown protocol %q in manual mapping for %s", m.Protocol, m.Address))
		}
	}

	return mappings, nil
}

// ApplyManualMappings merges cfg's manual-mapping table into st before any
// block is processed (§6): one register_pool per mapping, one upsert per
// declared token, then a commit so they're visible to the very first block.
func ApplyManualMappings(ctx context.Context, st *store.Store, mappings []models.ManualMapping) error {
	for _, m := range mappings {
		address := common.HexToAddress(m.Address)
		if err := st.RegisterPool(ctx, 0, address, m.Protocol, nil, m.InitBlock); err != nil {
			return fmt.Errorf("config: register manual mapping %s: %w", m.Address, err)
		}
		for _, tok := range m.Tokens {
			if err := st.UpsertToken(ctx, common.HexToAddress(tok.Address), tok.Symbol, tok.Decimals); err != nil {
				return fmt.Errorf("config: register manual token %s: %w", tok.Address, err)
			}
		}
	}
	if len(mappings) > 0 {
		if err := st.CommitBlock(ctx, 0); err != nil {
			return fmt.Errorf("config: commit manual mappings: %w", err)
		}
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func runtimeDefaultWorkers() int {
	return 8
}
