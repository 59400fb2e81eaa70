package auctionmanager

import (
	"errors"
	"log/slog"
	"math/big"

	"github.com/AcalaNetwork/Acala-sub008/core/events"
	"github.com/AcalaNetwork/Acala-sub008/core/types"
	"github.com/AcalaNetwork/Acala-sub008/native/auction"
	nativecommon "github.com/AcalaNetwork/Acala-sub008/native/common"
	"github.com/AcalaNetwork/Acala-sub008/observability"
)

var (
	// ErrAuctionNotFound is returned when the id does not belong to any of
	// the three auction kinds.
	ErrAuctionNotFound = errors.New("auction manager: auction not found")
	// ErrInvalidAmount rejects zero or negative auction amounts.
	ErrInvalidAmount = errors.New("auction manager: amount must be positive")
	// ErrInvalidBidPrice rejects bids failing the type-specific acceptance
	// rule.
	ErrInvalidBidPrice = errors.New("auction manager: invalid bid price")

	errNilState    = errors.New("auction manager: state not configured")
	errNilLedger   = errors.New("auction manager: ledger not configured")
	errNilTreasury = errors.New("auction manager: treasury not configured")
	errNilCurrency = errors.New("auction manager: currency not configured")
)

const basisPoints = 10_000

type engineState interface {
	CollateralAuctionGet(id uint64) (*CollateralAuctionItem, error)
	CollateralAuctionPut(id uint64, item *CollateralAuctionItem) error
	CollateralAuctionDelete(id uint64) error
	CollateralAuctionIDs() ([]uint64, error)
	SurplusAuctionGet(id uint64) (*SurplusAuctionItem, error)
	SurplusAuctionPut(id uint64, item *SurplusAuctionItem) error
	SurplusAuctionDelete(id uint64) error
	SurplusAuctionIDs() ([]uint64, error)
	DebitAuctionGet(id uint64) (*DebitAuctionItem, error)
	DebitAuctionPut(id uint64, item *DebitAuctionItem) error
	DebitAuctionDelete(id uint64) error
	DebitAuctionIDs() ([]uint64, error)
	TotalCollateralInAuction(currency string) (*big.Int, error)
	SetTotalCollateralInAuction(currency string, total *big.Int) error
	TotalTargetInAuction() (*big.Int, error)
	SetTotalTargetInAuction(total *big.Int) error
	TotalSurplusInAuction() (*big.Int, error)
	SetTotalSurplusInAuction(total *big.Int) error
	TotalDebitInAuction() (*big.Int, error)
	SetTotalDebitInAuction(total *big.Int) error
}

// Ledger is the generic bidding primitive the manager plugs into.
type Ledger interface {
	NewAuction(start, end uint64) (uint64, error)
	AuctionInfo(id uint64) (*auction.Auction, error)
	RemoveAuction(id uint64) error
}

// Treasury custodies the protocol's stablecoin and collateral reserve. The
// manager only orchestrates transfers through it and never holds balances
// itself.
type Treasury interface {
	// DepositSurplus pulls stablecoin from the account into the treasury's
	// surplus holding.
	DepositSurplus(from [20]byte, amount *big.Int) error
	// WithdrawCollateral pays collateral out of the treasury reserve.
	WithdrawCollateral(to [20]byte, currency string, amount *big.Int) error
	// IssueDebit mints unbacked stablecoin to the account, recording the
	// matching debit against the treasury.
	IssueDebit(to [20]byte, amount *big.Int) error
	// OffsetDebit applies raised stablecoin against the treasury's debit
	// pool.
	OffsetDebit(amount *big.Int) error
}

// Currency is the multi-currency balance ledger used to move funds between
// bidders and to burn or mint the native token.
type Currency interface {
	Transfer(currency string, from, to [20]byte, amount *big.Int) error
	Deposit(currency string, to [20]byte, amount *big.Int) error
	Withdraw(currency string, from [20]byte, amount *big.Int) error
}

// Params groups the governance controlled auction rules used by the three
// settlement policies.
type Params struct {
	// StableCurrency is the stablecoin symbol raised by collateral and
	// debit auctions.
	StableCurrency string
	// NativeCurrency is the governance token symbol bid in surplus auctions
	// and sold by debit auctions.
	NativeCurrency string
	// MinimumIncrementBps is the target-aware bid increment floor in basis
	// points: a new bid must exceed the last by at least
	// max(last, target) * increment.
	MinimumIncrementBps uint64
	// AuctionTimeToClose is the scheduled duration, in blocks, of a debit
	// auction and of the close horizon a first bid sets on open-ended
	// auctions.
	AuctionTimeToClose uint64
	// AuctionDurationSoftCap doubles the minimum increment once an auction
	// outlives it, pushing long auctions to converge.
	AuctionDurationSoftCap uint64
	// DebitAuctionSizeAdjustmentBps scales the native amount up when a
	// debit auction closes short of its fix and re-opens.
	DebitAuctionSizeAdjustmentBps uint64
	// MaxAuctionSize bounds the collateral amount of a single auction per
	// currency; larger liquidations split into lots. Zero or absent
	// disables splitting.
	MaxAuctionSize map[string]*big.Int
}

type managerEvent struct {
	evt *types.Event
}

func (e managerEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e managerEvent) Event() *types.Event { return e.evt }

// Engine implements the three settlement policies (collateral, surplus,
// debit) on top of the generic auction ledger. It satisfies auction.Handler.
type Engine struct {
	state       engineState
	ledger      Ledger
	treasury    Treasury
	currency    Currency
	shutdown    nativecommon.ShutdownView
	emitter     events.Emitter
	logger      *slog.Logger
	params      Params
	blockHeight uint64
}

// NewEngine constructs a manager engine with the supplied auction rules.
func NewEngine(params Params) *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		params:  params,
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetLedger wires the generic auction primitive.
func (e *Engine) SetLedger(ledger Ledger) { e.ledger = ledger }

// SetTreasury wires the treasury collaborator.
func (e *Engine) SetTreasury(treasury Treasury) { e.treasury = treasury }

// SetCurrency wires the multi-currency balance ledger.
func (e *Engine) SetCurrency(currency Currency) { e.currency = currency }

// SetShutdownView wires the global shutdown flag consulted by the creation
// entry points.
func (e *Engine) SetShutdownView(v nativecommon.ShutdownView) {
	if e == nil {
		return
	}
	e.shutdown = v
}

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if e == nil {
		return
	}
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetLogger configures the logger used for best-effort settlement transfers.
func (e *Engine) SetLogger(logger *slog.Logger) {
	if e == nil {
		return
	}
	e.logger = logger
}

// SetBlockHeight records the block height used as the start time of newly
// created auctions.
func (e *Engine) SetBlockHeight(height uint64) {
	if e == nil {
		return
	}
	e.blockHeight = height
}

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(managerEvent{evt: event})
}

func (e *Engine) log() *slog.Logger {
	if e == nil || e.logger == nil {
		return slog.Default()
	}
	return e.logger
}

func (e *Engine) ensureWired() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.ledger == nil {
		return errNilLedger
	}
	if e.treasury == nil {
		return errNilTreasury
	}
	if e.currency == nil {
		return errNilCurrency
	}
	return nil
}

type collateralLot struct {
	amount  *big.Int
	base    *big.Int
	penalty *big.Int
}

// splitLots divides an oversized liquidation into lots of at most maxSize
// collateral, allocating base and penalty proportionally. The final lot
// carries the rounding remainders so the sums are conserved exactly.
func splitLots(amount, base, penalty, maxSize *big.Int) []collateralLot {
	if maxSize == nil || maxSize.Sign() == 0 || amount.Cmp(maxSize) <= 0 {
		return []collateralLot{{amount: amount, base: base, penalty: penalty}}
	}
	var lots []collateralLot
	allocatedAmount := new(big.Int)
	allocatedBase := new(big.Int)
	allocatedPenalty := new(big.Int)
	remaining := new(big.Int).Set(amount)
	for remaining.Cmp(maxSize) > 0 {
		lotBase := new(big.Int).Mul(base, maxSize)
		lotBase.Quo(lotBase, amount)
		lotPenalty := new(big.Int).Mul(penalty, maxSize)
		lotPenalty.Quo(lotPenalty, amount)
		lots = append(lots, collateralLot{
			amount:  new(big.Int).Set(maxSize),
			base:    lotBase,
			penalty: lotPenalty,
		})
		allocatedAmount.Add(allocatedAmount, maxSize)
		allocatedBase.Add(allocatedBase, lotBase)
		allocatedPenalty.Add(allocatedPenalty, lotPenalty)
		remaining.Sub(remaining, maxSize)
	}
	lots = append(lots, collateralLot{
		amount:  remaining,
		base:    new(big.Int).Sub(base, allocatedBase),
		penalty: new(big.Int).Sub(penalty, allocatedPenalty),
	})
	return lots
}

// NewCollateralAuction opens one or more collateral auctions selling the
// liquidated position's collateral for base+penalty stablecoin. Auctions are
// open-ended until the first bid schedules a close.
func (e *Engine) NewCollateralAuction(refundRecipient [20]byte, currency string, amount, base, penalty *big.Int) error {
	if err := e.ensureWired(); err != nil {
		return err
	}
	if err := nativecommon.GuardBeforeShutdown(e.shutdown); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	base = cloneBigInt(base)
	penalty = cloneBigInt(penalty)
	if base.Sign() < 0 || penalty.Sign() < 0 {
		return ErrInvalidAmount
	}

	lots := splitLots(new(big.Int).Set(amount), base, penalty, e.params.MaxAuctionSize[currency])
	for _, lot := range lots {
		if err := e.addTotalCollateral(currency, lot.amount); err != nil {
			return err
		}
		item := &CollateralAuctionItem{
			RefundRecipient: refundRecipient,
			Currency:        currency,
			InitialAmount:   new(big.Int).Set(lot.amount),
			Amount:          new(big.Int).Set(lot.amount),
			Base:            lot.base,
			Penalty:         lot.penalty,
			StartTime:       e.blockHeight,
		}
		target := item.Target()
		if target.Sign() > 0 {
			if err := e.addTotalTarget(target); err != nil {
				return err
			}
		}
		id, err := e.ledger.NewAuction(e.blockHeight, 0)
		if err != nil {
			return err
		}
		if err := e.state.CollateralAuctionPut(id, item); err != nil {
			return err
		}
		e.emit(events.NewCollateralAuctionCreatedEvent(id, refundRecipient, currency, item.Amount, target))
		observability.Auctions().RecordCreated(observability.KindCollateral)
	}
	return nil
}

// NewSurplusAuction opens an auction selling a fixed stablecoin surplus for
// the highest native-token bid.
func (e *Engine) NewSurplusAuction(amount *big.Int) error {
	if err := e.ensureWired(); err != nil {
		return err
	}
	if err := nativecommon.GuardBeforeShutdown(e.shutdown); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if err := e.addTotalSurplus(amount); err != nil {
		return err
	}
	id, err := e.ledger.NewAuction(e.blockHeight, 0)
	if err != nil {
		return err
	}
	item := &SurplusAuctionItem{Amount: new(big.Int).Set(amount), StartTime: e.blockHeight}
	if err := e.state.SurplusAuctionPut(id, item); err != nil {
		return err
	}
	e.emit(events.NewSurplusAuctionCreatedEvent(id, amount))
	observability.Auctions().RecordCreated(observability.KindSurplus)
	return nil
}

// NewDebitAuction opens an auction raising exactly fix stablecoin against an
// initial native-token amount. The amount grows across re-auctions whenever
// bidding falls short of fix.
func (e *Engine) NewDebitAuction(initialAmount, fix *big.Int) error {
	if err := e.ensureWired(); err != nil {
		return err
	}
	if err := nativecommon.GuardBeforeShutdown(e.shutdown); err != nil {
		return err
	}
	if initialAmount == nil || initialAmount.Sign() <= 0 || fix == nil || fix.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if err := e.addTotalDebit(fix); err != nil {
		return err
	}
	id, err := e.ledger.NewAuction(e.blockHeight, e.blockHeight+e.params.AuctionTimeToClose)
	if err != nil {
		return err
	}
	item := &DebitAuctionItem{
		InitialAmount: new(big.Int).Set(initialAmount),
		Amount:        new(big.Int).Set(initialAmount),
		Fix:           new(big.Int).Set(fix),
		StartTime:     e.blockHeight,
	}
	if err := e.state.DebitAuctionPut(id, item); err != nil {
		return err
	}
	e.emit(events.NewDebitAuctionCreatedEvent(id, initialAmount, fix))
	observability.Auctions().RecordCreated(observability.KindDebit)
	return nil
}

// CancelAuction force-closes an auction with no settlement effect: the
// current bidder is refunded in full and remaining collateral returns to the
// refund recipient. Used by the emergency shutdown sweep.
func (e *Engine) CancelAuction(id uint64) error {
	if err := e.ensureWired(); err != nil {
		return err
	}
	if item, err := e.state.CollateralAuctionGet(id); err != nil {
		return err
	} else if item != nil {
		return e.cancelCollateralAuction(id, item)
	}
	if item, err := e.state.DebitAuctionGet(id); err != nil {
		return err
	} else if item != nil {
		return e.cancelDebitAuction(id, item)
	}
	if item, err := e.state.SurplusAuctionGet(id); err != nil {
		return err
	} else if item != nil {
		return e.cancelSurplusAuction(id, item)
	}
	return ErrAuctionNotFound
}

func (e *Engine) cancelCollateralAuction(id uint64, item *CollateralAuctionItem) error {
	last, err := e.lastBid(id)
	if err != nil {
		return err
	}
	if last != nil {
		payment := item.paymentAmount(last.Price)
		if payment.Sign() > 0 {
			if err := e.treasury.IssueDebit(last.Bidder, payment); err != nil {
				return err
			}
		}
	}
	if item.Amount.Sign() > 0 {
		if err := e.treasury.WithdrawCollateral(item.RefundRecipient, item.Currency, item.Amount); err != nil {
			return err
		}
	}
	if err := e.state.CollateralAuctionDelete(id); err != nil {
		return err
	}
	if err := e.subTotalCollateral(item.Currency, item.Amount); err != nil {
		return err
	}
	if err := e.subTotalTarget(item.Target()); err != nil {
		return err
	}
	if err := e.ledger.RemoveAuction(id); err != nil {
		return err
	}
	e.emit(events.NewAuctionCancelledEvent(id))
	observability.Auctions().RecordCancelled(observability.KindCollateral)
	return nil
}

func (e *Engine) cancelDebitAuction(id uint64, item *DebitAuctionItem) error {
	last, err := e.lastBid(id)
	if err != nil {
		return err
	}
	if last != nil {
		if err := e.treasury.IssueDebit(last.Bidder, last.Price); err != nil {
			return err
		}
	}
	if err := e.state.DebitAuctionDelete(id); err != nil {
		return err
	}
	if err := e.subTotalDebit(item.Fix); err != nil {
		return err
	}
	if err := e.ledger.RemoveAuction(id); err != nil {
		return err
	}
	e.emit(events.NewAuctionCancelledEvent(id))
	observability.Auctions().RecordCancelled(observability.KindDebit)
	return nil
}

func (e *Engine) cancelSurplusAuction(id uint64, item *SurplusAuctionItem) error {
	last, err := e.lastBid(id)
	if err != nil {
		return err
	}
	if last != nil {
		// The bidder's native tokens were burned as the bids climbed, so
		// the refund is a fresh mint of the full bid price.
		if err := e.currency.Deposit(e.params.NativeCurrency, last.Bidder, last.Price); err != nil {
			return err
		}
	}
	if err := e.state.SurplusAuctionDelete(id); err != nil {
		return err
	}
	if err := e.subTotalSurplus(item.Amount); err != nil {
		return err
	}
	if err := e.ledger.RemoveAuction(id); err != nil {
		return err
	}
	e.emit(events.NewAuctionCancelledEvent(id))
	observability.Auctions().RecordCancelled(observability.KindSurplus)
	return nil
}

// LiveAuctionIDs returns the ids of every open auction across the three
// kinds. The shutdown sweep enumerates this instead of scanning storage.
func (e *Engine) LiveAuctionIDs() ([]uint64, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	collateral, err := e.state.CollateralAuctionIDs()
	if err != nil {
		return nil, err
	}
	debit, err := e.state.DebitAuctionIDs()
	if err != nil {
		return nil, err
	}
	surplus, err := e.state.SurplusAuctionIDs()
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(collateral)+len(debit)+len(surplus))
	ids = append(ids, collateral...)
	ids = append(ids, debit...)
	ids = append(ids, surplus...)
	return ids, nil
}

func (e *Engine) lastBid(id uint64) (*auction.Bid, error) {
	record, err := e.ledger.AuctionInfo(id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}
	return record.Bid, nil
}

// TotalCollateralInAuction returns the collateral amount locked in active
// auctions for the given currency.
func (e *Engine) TotalCollateralInAuction(currency string) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.TotalCollateralInAuction(currency)
}

// TotalTargetInAuction returns the summed stablecoin target of all active
// collateral auctions.
func (e *Engine) TotalTargetInAuction() (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.TotalTargetInAuction()
}

// TotalSurplusInAuction returns the stablecoin amount held by active surplus
// auctions.
func (e *Engine) TotalSurplusInAuction() (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.TotalSurplusInAuction()
}

// TotalDebitInAuction returns the summed fix of all active debit auctions.
func (e *Engine) TotalDebitInAuction() (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.TotalDebitInAuction()
}

func (e *Engine) addTotalCollateral(currency string, delta *big.Int) error {
	total, err := e.state.TotalCollateralInAuction(currency)
	if err != nil {
		return err
	}
	return e.state.SetTotalCollateralInAuction(currency, new(big.Int).Add(cloneBigInt(total), delta))
}

func (e *Engine) subTotalCollateral(currency string, delta *big.Int) error {
	total, err := e.state.TotalCollateralInAuction(currency)
	if err != nil {
		return err
	}
	return e.state.SetTotalCollateralInAuction(currency, saturatingSub(total, delta))
}

func (e *Engine) addTotalTarget(delta *big.Int) error {
	total, err := e.state.TotalTargetInAuction()
	if err != nil {
		return err
	}
	return e.state.SetTotalTargetInAuction(new(big.Int).Add(cloneBigInt(total), delta))
}

func (e *Engine) subTotalTarget(delta *big.Int) error {
	total, err := e.state.TotalTargetInAuction()
	if err != nil {
		return err
	}
	return e.state.SetTotalTargetInAuction(saturatingSub(total, delta))
}

func (e *Engine) addTotalSurplus(delta *big.Int) error {
	total, err := e.state.TotalSurplusInAuction()
	if err != nil {
		return err
	}
	return e.state.SetTotalSurplusInAuction(new(big.Int).Add(cloneBigInt(total), delta))
}

func (e *Engine) subTotalSurplus(delta *big.Int) error {
	total, err := e.state.TotalSurplusInAuction()
	if err != nil {
		return err
	}
	return e.state.SetTotalSurplusInAuction(saturatingSub(total, delta))
}

func (e *Engine) addTotalDebit(delta *big.Int) error {
	total, err := e.state.TotalDebitInAuction()
	if err != nil {
		return err
	}
	return e.state.SetTotalDebitInAuction(new(big.Int).Add(cloneBigInt(total), delta))
}

func (e *Engine) subTotalDebit(delta *big.Int) error {
	total, err := e.state.TotalDebitInAuction()
	if err != nil {
		return err
	}
	return e.state.SetTotalDebitInAuction(saturatingSub(total, delta))
}

func saturatingSub(total, delta *big.Int) *big.Int {
	result := new(big.Int).Sub(cloneBigInt(total), delta)
	if result.Sign() < 0 {
		result.SetInt64(0)
	}
	return result
}
