package state

import (
	"math/big"

	"github.com/AcalaNetwork/Acala-sub008/native/auction"
	"github.com/AcalaNetwork/Acala-sub008/native/auctionmanager"
)

// storedAuction is the RLP layout of a generic ledger record. A separate
// HasBid flag keeps the encoding canonical instead of relying on nil-pointer
// tricks.
type storedAuction struct {
	HasBid bool
	Bidder [20]byte
	Price  *big.Int
	Start  uint64
	End    uint64
}

func toStoredAuction(a *auction.Auction) *storedAuction {
	stored := &storedAuction{Price: big.NewInt(0), Start: a.Start, End: a.End}
	if a.Bid != nil {
		stored.HasBid = true
		stored.Bidder = a.Bid.Bidder
		if a.Bid.Price != nil {
			stored.Price = new(big.Int).Set(a.Bid.Price)
		}
	}
	return stored
}

func fromStoredAuction(stored *storedAuction) *auction.Auction {
	record := &auction.Auction{Start: stored.Start, End: stored.End}
	if stored.HasBid {
		record.Bid = &auction.Bid{Bidder: stored.Bidder, Price: stored.Price}
	}
	return record
}

// NextAuctionID allocates the next auction id from the single shared counter.
// Ids are monotonic and never reused across the three auction kinds.
func (m *Manager) NextAuctionID() (uint64, error) {
	var next uint64
	if _, err := m.KVGet(nextAuctionIDKey, &next); err != nil {
		return 0, err
	}
	if err := m.KVPut(nextAuctionIDKey, next+1); err != nil {
		return 0, err
	}
	return next, nil
}

// AuctionGet returns the generic ledger record, or nil when unknown.
func (m *Manager) AuctionGet(id uint64) (*auction.Auction, error) {
	stored := new(storedAuction)
	ok, err := m.KVGet(auctionKey(ledgerAuctionPrefix, id), stored)
	if err != nil || !ok {
		return nil, err
	}
	return fromStoredAuction(stored), nil
}

// AuctionPut stores the generic ledger record and indexes the id.
func (m *Manager) AuctionPut(id uint64, record *auction.Auction) error {
	if err := m.KVPut(auctionKey(ledgerAuctionPrefix, id), toStoredAuction(record)); err != nil {
		return err
	}
	return m.indexAdd(ledgerAuctionIndexKey, id)
}

// AuctionDelete removes the generic ledger record and its index entry.
func (m *Manager) AuctionDelete(id uint64) error {
	if err := m.KVDelete(auctionKey(ledgerAuctionPrefix, id)); err != nil {
		return err
	}
	return m.indexRemove(ledgerAuctionIndexKey, id)
}

// AuctionIDs returns the ids of all live ledger records.
func (m *Manager) AuctionIDs() ([]uint64, error) {
	return m.indexList(ledgerAuctionIndexKey)
}

// CollateralAuctionGet returns the collateral item, or nil when unknown.
func (m *Manager) CollateralAuctionGet(id uint64) (*auctionmanager.CollateralAuctionItem, error) {
	item := new(auctionmanager.CollateralAuctionItem)
	ok, err := m.KVGet(auctionKey(collateralPrefix, id), item)
	if err != nil || !ok {
		return nil, err
	}
	return item, nil
}

// CollateralAuctionPut stores the collateral item and indexes the id.
func (m *Manager) CollateralAuctionPut(id uint64, item *auctionmanager.CollateralAuctionItem) error {
	if err := m.KVPut(auctionKey(collateralPrefix, id), item.Clone()); err != nil {
		return err
	}
	return m.indexAdd(collateralIndexKey, id)
}

// CollateralAuctionDelete removes the collateral item and its index entry.
func (m *Manager) CollateralAuctionDelete(id uint64) error {
	if err := m.KVDelete(auctionKey(collateralPrefix, id)); err != nil {
		return err
	}
	return m.indexRemove(collateralIndexKey, id)
}

// CollateralAuctionIDs returns the ids of all live collateral auctions.
func (m *Manager) CollateralAuctionIDs() ([]uint64, error) {
	return m.indexList(collateralIndexKey)
}

// SurplusAuctionGet returns the surplus item, or nil when unknown.
func (m *Manager) SurplusAuctionGet(id uint64) (*auctionmanager.SurplusAuctionItem, error) {
	item := new(auctionmanager.SurplusAuctionItem)
	ok, err := m.KVGet(auctionKey(surplusPrefix, id), item)
	if err != nil || !ok {
		return nil, err
	}
	return item, nil
}

// SurplusAuctionPut stores the surplus item and indexes the id.
func (m *Manager) SurplusAuctionPut(id uint64, item *auctionmanager.SurplusAuctionItem) error {
	if err := m.KVPut(auctionKey(surplusPrefix, id), item.Clone()); err != nil {
		return err
	}
	return m.indexAdd(surplusIndexKey, id)
}

// SurplusAuctionDelete removes the surplus item and its index entry.
func (m *Manager) SurplusAuctionDelete(id uint64) error {
	if err := m.KVDelete(auctionKey(surplusPrefix, id)); err != nil {
		return err
	}
	return m.indexRemove(surplusIndexKey, id)
}

// SurplusAuctionIDs returns the ids of all live surplus auctions.
func (m *Manager) SurplusAuctionIDs() ([]uint64, error) {
	return m.indexList(surplusIndexKey)
}

// DebitAuctionGet returns the debit item, or nil when unknown.
func (m *Manager) DebitAuctionGet(id uint64) (*auctionmanager.DebitAuctionItem, error) {
	item := new(auctionmanager.DebitAuctionItem)
	ok, err := m.KVGet(auctionKey(debitPrefix, id), item)
	if err != nil || !ok {
		return nil, err
	}
	return item, nil
}

// DebitAuctionPut stores the debit item and indexes the id.
func (m *Manager) DebitAuctionPut(id uint64, item *auctionmanager.DebitAuctionItem) error {
	if err := m.KVPut(auctionKey(debitPrefix, id), item.Clone()); err != nil {
		return err
	}
	return m.indexAdd(debitIndexKey, id)
}

// DebitAuctionDelete removes the debit item and its index entry.
func (m *Manager) DebitAuctionDelete(id uint64) error {
	if err := m.KVDelete(auctionKey(debitPrefix, id)); err != nil {
		return err
	}
	return m.indexRemove(debitIndexKey, id)
}

// DebitAuctionIDs returns the ids of all live debit auctions.
func (m *Manager) DebitAuctionIDs() ([]uint64, error) {
	return m.indexList(debitIndexKey)
}

// TotalCollateralInAuction returns the per-currency collateral total.
func (m *Manager) TotalCollateralInAuction(currency string) (*big.Int, error) {
	return m.totalGet(totalCollateralKey(currency))
}

// SetTotalCollateralInAuction stores the per-currency collateral total.
func (m *Manager) SetTotalCollateralInAuction(currency string, total *big.Int) error {
	return m.totalSet(totalCollateralKey(currency), total)
}

// TotalTargetInAuction returns the summed target of active collateral
// auctions.
func (m *Manager) TotalTargetInAuction() (*big.Int, error) {
	return m.totalGet(totalTargetInAuctionKey)
}

// SetTotalTargetInAuction stores the summed target.
func (m *Manager) SetTotalTargetInAuction(total *big.Int) error {
	return m.totalSet(totalTargetInAuctionKey, total)
}

// TotalSurplusInAuction returns the stablecoin held by active surplus
// auctions.
func (m *Manager) TotalSurplusInAuction() (*big.Int, error) {
	return m.totalGet(totalSurplusKey)
}

// SetTotalSurplusInAuction stores the surplus total.
func (m *Manager) SetTotalSurplusInAuction(total *big.Int) error {
	return m.totalSet(totalSurplusKey, total)
}

// TotalDebitInAuction returns the summed fix of active debit auctions.
func (m *Manager) TotalDebitInAuction() (*big.Int, error) {
	return m.totalGet(totalDebitKey)
}

// SetTotalDebitInAuction stores the debit total.
func (m *Manager) SetTotalDebitInAuction(total *big.Int) error {
	return m.totalSet(totalDebitKey, total)
}

// ShutdownFlag reports whether the global shutdown has triggered.
func (m *Manager) ShutdownFlag() (bool, error) {
	var flag bool
	if _, err := m.KVGet(shutdownFlagKey, &flag); err != nil {
		return false, err
	}
	return flag, nil
}

// SetShutdownFlag records the irreversible shutdown transition.
func (m *Manager) SetShutdownFlag() error {
	return m.KVPut(shutdownFlagKey, true)
}

func (m *Manager) totalGet(key []byte) (*big.Int, error) {
	total := new(big.Int)
	if _, err := m.KVGet(key, total); err != nil {
		return nil, err
	}
	return total, nil
}

func (m *Manager) totalSet(key []byte, total *big.Int) error {
	if total == nil {
		total = big.NewInt(0)
	}
	return m.KVPut(key, total)
}

func (m *Manager) indexList(key []byte) ([]uint64, error) {
	var ids []uint64
	if _, err := m.KVGet(key, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (m *Manager) indexAdd(key []byte, id uint64) error {
	ids, err := m.indexList(key)
	if err != nil {
		return err
	}
	for _, existing := range ids {
		if existing == id {
			return nil
		}
	}
	return m.KVPut(key, append(ids, id))
}

func (m *Manager) indexRemove(key []byte, id uint64) error {
	ids, err := m.indexList(key)
	if err != nil {
		return err
	}
	filtered := ids[:0]
	for _, existing := range ids {
		if existing != id {
			filtered = append(filtered, existing)
		}
	}
	return m.KVPut(key, filtered)
}
