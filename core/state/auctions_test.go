package state

import (
	"math/big"
	"testing"

	"github.com/AcalaNetwork/Acala-sub008/native/auction"
	"github.com/AcalaNetwork/Acala-sub008/native/auctionmanager"
	"github.com/AcalaNetwork/Acala-sub008/storage"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(storage.NewMemDB())
}

func TestNextAuctionIDMonotonic(t *testing.T) {
	manager := newTestManager(t)
	for want := uint64(0); want < 5; want++ {
		got, err := manager.NextAuctionID()
		if err != nil {
			t.Fatalf("next auction id: %v", err)
		}
		if got != want {
			t.Fatalf("auction id = %d, want %d", got, want)
		}
	}
}

func TestAuctionRoundTrip(t *testing.T) {
	manager := newTestManager(t)

	record, err := manager.AuctionGet(7)
	if err != nil {
		t.Fatalf("get missing auction: %v", err)
	}
	if record != nil {
		t.Fatalf("expected nil for missing auction, got %+v", record)
	}

	open := &auction.Auction{Start: 10, End: 0}
	if err := manager.AuctionPut(7, open); err != nil {
		t.Fatalf("put auction: %v", err)
	}
	record, err = manager.AuctionGet(7)
	if err != nil {
		t.Fatalf("get auction: %v", err)
	}
	if record.Bid != nil || record.Start != 10 || record.End != 0 {
		t.Fatalf("unexpected auction after round trip: %+v", record)
	}

	bidder := [20]byte{0xAA}
	withBid := &auction.Auction{
		Bid:   &auction.Bid{Bidder: bidder, Price: big.NewInt(250)},
		Start: 10,
		End:   42,
	}
	if err := manager.AuctionPut(7, withBid); err != nil {
		t.Fatalf("put auction with bid: %v", err)
	}
	record, err = manager.AuctionGet(7)
	if err != nil {
		t.Fatalf("get auction with bid: %v", err)
	}
	if record.Bid == nil {
		t.Fatal("expected bid to survive round trip")
	}
	if record.Bid.Bidder != bidder || record.Bid.Price.Cmp(big.NewInt(250)) != 0 {
		t.Fatalf("unexpected bid after round trip: %+v", record.Bid)
	}
	if record.End != 42 {
		t.Fatalf("end = %d, want 42", record.End)
	}
}

func TestAuctionIndexTracksLiveIDs(t *testing.T) {
	manager := newTestManager(t)
	for _, id := range []uint64{1, 2, 3} {
		if err := manager.AuctionPut(id, &auction.Auction{Start: id}); err != nil {
			t.Fatalf("put auction %d: %v", id, err)
		}
	}
	// Overwriting must not duplicate the index entry.
	if err := manager.AuctionPut(2, &auction.Auction{Start: 99}); err != nil {
		t.Fatalf("overwrite auction: %v", err)
	}
	ids, err := manager.AuctionIDs()
	if err != nil {
		t.Fatalf("auction ids: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("got %d ids, want 3: %v", len(ids), ids)
	}

	if err := manager.AuctionDelete(2); err != nil {
		t.Fatalf("delete auction: %v", err)
	}
	ids, err = manager.AuctionIDs()
	if err != nil {
		t.Fatalf("auction ids after delete: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("got %d ids after delete, want 2: %v", len(ids), ids)
	}
	for _, id := range ids {
		if id == 2 {
			t.Fatal("deleted id still indexed")
		}
	}
	record, err := manager.AuctionGet(2)
	if err != nil {
		t.Fatalf("get deleted auction: %v", err)
	}
	if record != nil {
		t.Fatalf("deleted auction still readable: %+v", record)
	}
}

func TestCollateralItemRoundTrip(t *testing.T) {
	manager := newTestManager(t)
	owner := [20]byte{0x01}
	item := &auctionmanager.CollateralAuctionItem{
		RefundRecipient: owner,
		Currency:        "DOT",
		InitialAmount:   big.NewInt(100),
		Amount:          big.NewInt(100),
		Base:            big.NewInt(900),
		Penalty:         big.NewInt(100),
		StartTime:       5,
	}
	if err := manager.CollateralAuctionPut(3, item); err != nil {
		t.Fatalf("put collateral item: %v", err)
	}
	got, err := manager.CollateralAuctionGet(3)
	if err != nil {
		t.Fatalf("get collateral item: %v", err)
	}
	if got.RefundRecipient != owner || got.Currency != "DOT" {
		t.Fatalf("unexpected item identity: %+v", got)
	}
	if got.Target().Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("target = %s, want 1000", got.Target())
	}
	ids, err := manager.CollateralAuctionIDs()
	if err != nil {
		t.Fatalf("collateral ids: %v", err)
	}
	if len(ids) != 1 || ids[0] != 3 {
		t.Fatalf("unexpected collateral index: %v", ids)
	}
	if err := manager.CollateralAuctionDelete(3); err != nil {
		t.Fatalf("delete collateral item: %v", err)
	}
	if got, _ := manager.CollateralAuctionGet(3); got != nil {
		t.Fatalf("deleted item still readable: %+v", got)
	}
}

func TestSurplusAndDebitItemRoundTrip(t *testing.T) {
	manager := newTestManager(t)

	surplus := &auctionmanager.SurplusAuctionItem{Amount: big.NewInt(50), StartTime: 1}
	if err := manager.SurplusAuctionPut(10, surplus); err != nil {
		t.Fatalf("put surplus item: %v", err)
	}
	gotSurplus, err := manager.SurplusAuctionGet(10)
	if err != nil {
		t.Fatalf("get surplus item: %v", err)
	}
	if gotSurplus.Amount.Cmp(big.NewInt(50)) != 0 || gotSurplus.StartTime != 1 {
		t.Fatalf("unexpected surplus item: %+v", gotSurplus)
	}

	debit := &auctionmanager.DebitAuctionItem{
		InitialAmount: big.NewInt(200),
		Amount:        big.NewInt(220),
		Fix:           big.NewInt(1000),
		StartTime:     2,
	}
	if err := manager.DebitAuctionPut(11, debit); err != nil {
		t.Fatalf("put debit item: %v", err)
	}
	gotDebit, err := manager.DebitAuctionGet(11)
	if err != nil {
		t.Fatalf("get debit item: %v", err)
	}
	if gotDebit.Amount.Cmp(big.NewInt(220)) != 0 || gotDebit.Fix.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("unexpected debit item: %+v", gotDebit)
	}
}

func TestTotalsDefaultToZero(t *testing.T) {
	manager := newTestManager(t)

	total, err := manager.TotalCollateralInAuction("DOT")
	if err != nil {
		t.Fatalf("collateral total: %v", err)
	}
	if total.Sign() != 0 {
		t.Fatalf("collateral total = %s, want 0", total)
	}

	if err := manager.SetTotalCollateralInAuction("dot", big.NewInt(77)); err != nil {
		t.Fatalf("set collateral total: %v", err)
	}
	// Currency keys are case-insensitive.
	total, err = manager.TotalCollateralInAuction("DOT")
	if err != nil {
		t.Fatalf("collateral total after set: %v", err)
	}
	if total.Cmp(big.NewInt(77)) != 0 {
		t.Fatalf("collateral total = %s, want 77", total)
	}

	if err := manager.SetTotalTargetInAuction(big.NewInt(5)); err != nil {
		t.Fatalf("set target total: %v", err)
	}
	target, err := manager.TotalTargetInAuction()
	if err != nil {
		t.Fatalf("target total: %v", err)
	}
	if target.Cmp(big.NewInt(5)) != 0 {
		t.Fatalf("target total = %s, want 5", target)
	}

	surplus, err := manager.TotalSurplusInAuction()
	if err != nil {
		t.Fatalf("surplus total: %v", err)
	}
	if surplus.Sign() != 0 {
		t.Fatalf("surplus total = %s, want 0", surplus)
	}
	debit, err := manager.TotalDebitInAuction()
	if err != nil {
		t.Fatalf("debit total: %v", err)
	}
	if debit.Sign() != 0 {
		t.Fatalf("debit total = %s, want 0", debit)
	}
}

func TestShutdownFlagLatches(t *testing.T) {
	manager := newTestManager(t)
	flag, err := manager.ShutdownFlag()
	if err != nil {
		t.Fatalf("shutdown flag: %v", err)
	}
	if flag {
		t.Fatal("shutdown flag set on fresh state")
	}
	if err := manager.SetShutdownFlag(); err != nil {
		t.Fatalf("set shutdown flag: %v", err)
	}
	flag, err = manager.ShutdownFlag()
	if err != nil {
		t.Fatalf("shutdown flag after set: %v", err)
	}
	if !flag {
		t.Fatal("shutdown flag did not latch")
	}
}
