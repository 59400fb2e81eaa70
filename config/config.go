package config

import (
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/AcalaNetwork/Acala-sub008/native/auction"
	"github.com/AcalaNetwork/Acala-sub008/native/auctionmanager"
)

// Config is the node-operator view of the auction subsystem. Amounts are
// decimal strings so operators never fight TOML integer limits.
type Config struct {
	DataDir     string `toml:"DataDir"`
	Backend     string `toml:"Backend"`
	Environment string `toml:"Environment"`

	StableCurrency string `toml:"StableCurrency"`
	NativeCurrency string `toml:"NativeCurrency"`

	MinimumIncrementBps           uint64 `toml:"MinimumIncrementBps"`
	AuctionTimeToClose            uint64 `toml:"AuctionTimeToClose"`
	AuctionDurationSoftCap        uint64 `toml:"AuctionDurationSoftCap"`
	AuctionDurationHardCap        uint64 `toml:"AuctionDurationHardCap"`
	DebitAuctionSizeAdjustmentBps uint64 `toml:"DebitAuctionSizeAdjustmentBps"`

	MaxAuctionSize map[string]string `toml:"MaxAuctionSize"`
}

// Default returns the configuration a fresh deployment starts from.
func Default() *Config {
	return &Config{
		DataDir:                       "./data",
		Backend:                       "leveldb",
		Environment:                   "dev",
		StableCurrency:                "AUSD",
		NativeCurrency:                "ACA",
		MinimumIncrementBps:           200,
		AuctionTimeToClose:            100,
		AuctionDurationSoftCap:        2000,
		AuctionDurationHardCap:        20000,
		DebitAuctionSizeAdjustmentBps: 2000,
		MaxAuctionSize:                map[string]string{},
	}
}

// Load reads the configuration from path, writing defaults when the file does
// not exist yet.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	cfg := Default()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s: unknown key %s", path, undecoded[0])
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func createDefault(path string) (*Config, error) {
	cfg := Default()
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks parameter consistency before the engines are wired.
func (cfg *Config) Validate() error {
	switch cfg.Backend {
	case "leveldb", "bolt", "memory":
	default:
		return fmt.Errorf("config: unsupported backend %q", cfg.Backend)
	}
	if strings.TrimSpace(cfg.StableCurrency) == "" {
		return fmt.Errorf("config: StableCurrency must be set")
	}
	if strings.TrimSpace(cfg.NativeCurrency) == "" {
		return fmt.Errorf("config: NativeCurrency must be set")
	}
	if strings.EqualFold(cfg.StableCurrency, cfg.NativeCurrency) {
		return fmt.Errorf("config: StableCurrency and NativeCurrency must differ")
	}
	if cfg.MinimumIncrementBps == 0 {
		return fmt.Errorf("config: MinimumIncrementBps must be positive")
	}
	if cfg.AuctionTimeToClose == 0 {
		return fmt.Errorf("config: AuctionTimeToClose must be positive")
	}
	if cfg.AuctionDurationSoftCap == 0 {
		return fmt.Errorf("config: AuctionDurationSoftCap must be positive")
	}
	if cfg.AuctionDurationHardCap < cfg.AuctionDurationSoftCap {
		return fmt.Errorf("config: AuctionDurationHardCap %d below soft cap %d", cfg.AuctionDurationHardCap, cfg.AuctionDurationSoftCap)
	}
	if cfg.AuctionTimeToClose > cfg.AuctionDurationSoftCap {
		return fmt.Errorf("config: AuctionTimeToClose %d exceeds soft cap %d", cfg.AuctionTimeToClose, cfg.AuctionDurationSoftCap)
	}
	if _, err := cfg.maxAuctionSizes(); err != nil {
		return err
	}
	return nil
}

func (cfg *Config) maxAuctionSizes() (map[string]*big.Int, error) {
	sizes := make(map[string]*big.Int, len(cfg.MaxAuctionSize))
	for currency, raw := range cfg.MaxAuctionSize {
		size, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
		if !ok || size.Sign() < 0 {
			return nil, fmt.Errorf("config: MaxAuctionSize[%s] = %q is not a non-negative integer", currency, raw)
		}
		sizes[strings.ToUpper(strings.TrimSpace(currency))] = size
	}
	return sizes, nil
}

// LedgerParams converts the config into the generic auction timing rules.
// The increment floor is not part of them: the ledger only requires bids to
// climb, and the settlement handlers enforce MinimumIncrementBps.
func (cfg *Config) LedgerParams() auction.Params {
	return auction.Params{
		TimeToClose:     cfg.AuctionTimeToClose,
		DurationSoftCap: cfg.AuctionDurationSoftCap,
		DurationHardCap: cfg.AuctionDurationHardCap,
	}
}

// ManagerParams converts the config into the settlement engine parameters.
// Call Validate first: malformed MaxAuctionSize entries are dropped here.
func (cfg *Config) ManagerParams() auctionmanager.Params {
	sizes, err := cfg.maxAuctionSizes()
	if err != nil {
		sizes = map[string]*big.Int{}
	}
	return auctionmanager.Params{
		StableCurrency:                cfg.StableCurrency,
		NativeCurrency:                cfg.NativeCurrency,
		MinimumIncrementBps:           cfg.MinimumIncrementBps,
		AuctionTimeToClose:            cfg.AuctionTimeToClose,
		AuctionDurationSoftCap:        cfg.AuctionDurationSoftCap,
		DebitAuctionSizeAdjustmentBps: cfg.DebitAuctionSizeAdjustmentBps,
		MaxAuctionSize:                sizes,
	}
}
