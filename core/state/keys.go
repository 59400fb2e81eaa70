package state

import (
	"strconv"
	"strings"
)

var (
	nextAuctionIDKey        = []byte("auction/next")
	ledgerAuctionPrefix     = []byte("auction/ledger/")
	ledgerAuctionIndexKey   = []byte("auction/ledger/index")
	collateralPrefix        = []byte("auction/collateral/")
	collateralIndexKey      = []byte("auction/collateral/index")
	surplusPrefix           = []byte("auction/surplus/")
	surplusIndexKey         = []byte("auction/surplus/index")
	debitPrefix             = []byte("auction/debit/")
	debitIndexKey           = []byte("auction/debit/index")
	totalCollateralPrefix   = []byte("auction/total/collateral/")
	totalTargetInAuctionKey = []byte("auction/total/target")
	totalSurplusKey         = []byte("auction/total/surplus")
	totalDebitKey           = []byte("auction/total/debit")
	shutdownFlagKey         = []byte("shutdown/flag")
)

func auctionKey(prefix []byte, id uint64) []byte {
	return strconv.AppendUint(append([]byte{}, prefix...), id, 10)
}

func totalCollateralKey(currency string) []byte {
	trimmed := strings.ToUpper(strings.TrimSpace(currency))
	buf := make([]byte, len(totalCollateralPrefix)+len(trimmed))
	copy(buf, totalCollateralPrefix)
	copy(buf[len(totalCollateralPrefix):], trimmed)
	return buf
}
