package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/AcalaNetwork/Acala-sub008/config"
	"github.com/AcalaNetwork/Acala-sub008/core/state"
	"github.com/AcalaNetwork/Acala-sub008/observability/logging"
	"github.com/AcalaNetwork/Acala-sub008/storage"
)

const (
	listCommand   = "list"
	totalsCommand = "totals"
	statusCommand = "status"
	defaultConfig = "./auction.toml"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case listCommand:
		runList(os.Args[2:])
	case totalsCommand:
		runTotals(os.Args[2:])
	case statusCommand:
		runStatus(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: auctionctl <command> [flags]")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  list     print every live auction with its settlement state")
	fmt.Fprintln(os.Stderr, "  totals   print the aggregate amounts locked in auctions")
	fmt.Fprintln(os.Stderr, "  status   print the global shutdown flag")
}

func openManager(configPath string) (*state.Manager, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger := logging.Setup("auctionctl", cfg.Environment)

	var db storage.Database
	switch cfg.Backend {
	case "bolt":
		db, err = storage.NewBoltDB(filepath.Join(cfg.DataDir, "auctions.db"))
	case "memory":
		db = storage.NewMemDB()
	default:
		db, err = storage.NewLevelDB(filepath.Join(cfg.DataDir, "auctions"))
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open %s backend: %w", cfg.Backend, err)
	}
	logger.Info("opened auction state", "backend", cfg.Backend, "dataDir", cfg.DataDir)
	return state.NewManager(db), func() { db.Close() }, nil
}

func runList(args []string) {
	fs := flag.NewFlagSet(listCommand, flag.ExitOnError)
	configPath := fs.String("config", defaultConfig, "Path to the auction config file")
	fs.Parse(args)

	manager, closeDB, err := openManager(*configPath)
	if err != nil {
		fatal(err)
	}
	defer closeDB()

	collateralIDs, err := manager.CollateralAuctionIDs()
	if err != nil {
		fatal(err)
	}
	for _, id := range collateralIDs {
		item, err := manager.CollateralAuctionGet(id)
		if err != nil {
			fatal(err)
		}
		if item == nil {
			continue
		}
		fmt.Printf("collateral #%d currency=%s amount=%s target=%s start=%d owner=%x\n",
			id, item.Currency, item.Amount, item.Target(), item.StartTime, item.RefundRecipient)
	}

	surplusIDs, err := manager.SurplusAuctionIDs()
	if err != nil {
		fatal(err)
	}
	for _, id := range surplusIDs {
		item, err := manager.SurplusAuctionGet(id)
		if err != nil {
			fatal(err)
		}
		if item == nil {
			continue
		}
		fmt.Printf("surplus    #%d amount=%s start=%d\n", id, item.Amount, item.StartTime)
	}

	debitIDs, err := manager.DebitAuctionIDs()
	if err != nil {
		fatal(err)
	}
	for _, id := range debitIDs {
		item, err := manager.DebitAuctionGet(id)
		if err != nil {
			fatal(err)
		}
		if item == nil {
			continue
		}
		fmt.Printf("debit      #%d amount=%s fix=%s start=%d\n", id, item.Amount, item.Fix, item.StartTime)
	}

	fmt.Printf("%d live auctions\n", len(collateralIDs)+len(surplusIDs)+len(debitIDs))
}

func runTotals(args []string) {
	fs := flag.NewFlagSet(totalsCommand, flag.ExitOnError)
	configPath := fs.String("config", defaultConfig, "Path to the auction config file")
	currency := fs.String("currency", "", "Collateral currency to report, e.g. DOT")
	fs.Parse(args)

	manager, closeDB, err := openManager(*configPath)
	if err != nil {
		fatal(err)
	}
	defer closeDB()

	if *currency != "" {
		total, err := manager.TotalCollateralInAuction(*currency)
		if err != nil {
			fatal(err)
		}
		fmt.Printf("collateral[%s] = %s\n", *currency, total)
	}
	target, err := manager.TotalTargetInAuction()
	if err != nil {
		fatal(err)
	}
	surplus, err := manager.TotalSurplusInAuction()
	if err != nil {
		fatal(err)
	}
	debit, err := manager.TotalDebitInAuction()
	if err != nil {
		fatal(err)
	}
	fmt.Printf("target  = %s\nsurplus = %s\ndebit   = %s\n", target, surplus, debit)
}

func runStatus(args []string) {
	fs := flag.NewFlagSet(statusCommand, flag.ExitOnError)
	configPath := fs.String("config", defaultConfig, "Path to the auction config file")
	fs.Parse(args)

	manager, closeDB, err := openManager(*configPath)
	if err != nil {
		fatal(err)
	}
	defer closeDB()

	flagSet, err := manager.ShutdownFlag()
	if err != nil {
		fatal(err)
	}
	if flagSet {
		fmt.Println("state: shutdown")
		return
	}
	fmt.Println("state: normal")
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "auctionctl:", err)
	os.Exit(1)
}
