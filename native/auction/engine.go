package auction

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/AcalaNetwork/Acala-sub008/core/events"
	"github.com/AcalaNetwork/Acala-sub008/core/types"
)

var (
	// ErrAuctionNotFound is returned when an operation references an
	// unknown auction id.
	ErrAuctionNotFound = errors.New("auction engine: auction not found")
	// ErrAuctionNotStarted is returned for bids placed before the auction's
	// start block.
	ErrAuctionNotStarted = errors.New("auction engine: auction not started")
	// ErrAuctionExpired is returned for bids placed at or after the
	// scheduled end block.
	ErrAuctionExpired = errors.New("auction engine: auction expired")
	// ErrBidNotAccepted is returned when a bid fails the generic monotonic
	// price rule or the handler's type-specific acceptance rule.
	ErrBidNotAccepted = errors.New("auction engine: bid not accepted")

	errNilState      = errors.New("auction engine: state not configured")
	errNilHandler    = errors.New("auction engine: handler not configured")
	errInvalidTiming = errors.New("auction engine: end block not after start block")
)

type engineState interface {
	NextAuctionID() (uint64, error)
	AuctionGet(id uint64) (*Auction, error)
	AuctionPut(id uint64, a *Auction) error
	AuctionDelete(id uint64) error
	AuctionIDs() ([]uint64, error)
}

// Handler is the pluggable settlement policy invoked by the ledger. OnNewBid
// performs the type-specific acceptance check and moves funds between the new
// bidder, the previous bidder and the treasury; returning an error rejects the
// bid with no state change. OnAuctionEnded settles (winner != nil) or closes
// the auction with no effect (winner == nil).
type Handler interface {
	OnNewBid(now uint64, id uint64, bidder [20]byte, price *big.Int, last *Bid) error
	OnAuctionEnded(id uint64, winner *Bid)
}

type auctionEvent struct {
	evt *types.Event
}

func (e auctionEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e auctionEvent) Event() *types.Event { return e.evt }

// Engine is the generic auction ledger. It owns the id generator and the
// per-auction bid cursor, enforces the monotonic price rule and the
// anti-sniping extension, and delegates pricing policy and settlement to the
// configured Handler.
type Engine struct {
	state   engineState
	handler Handler
	emitter events.Emitter
	params  Params
}

// NewEngine constructs a ledger engine with the supplied bidding rules.
func NewEngine(params Params) *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		params:  params,
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetHandler configures the settlement policy consulted on bids and closes.
func (e *Engine) SetHandler(handler Handler) { e.handler = handler }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(auctionEvent{evt: event})
}

// NewAuction allocates a fresh id and stores an empty record. An end of zero
// leaves the auction open-ended: the first accepted bid schedules the close.
func (e *Engine) NewAuction(start, end uint64) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	if end != 0 && end <= start {
		return 0, errInvalidTiming
	}
	id, err := e.state.NextAuctionID()
	if err != nil {
		return 0, err
	}
	if err := e.state.AuctionPut(id, &Auction{Start: start, End: end}); err != nil {
		return 0, err
	}
	return id, nil
}

// AuctionInfo returns a copy of the stored record, or nil when unknown.
func (e *Engine) AuctionInfo(id uint64) (*Auction, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	record, err := e.state.AuctionGet(id)
	if err != nil {
		return nil, err
	}
	return record.Clone(), nil
}

// Bid places or replaces the highest bid on an auction. The previous bidder,
// if any, is refunded in full by the handler before the new deposit is taken.
func (e *Engine) Bid(now, id uint64, bidder [20]byte, price *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.handler == nil {
		return errNilHandler
	}
	record, err := e.state.AuctionGet(id)
	if err != nil {
		return err
	}
	if record == nil {
		return ErrAuctionNotFound
	}
	if now < record.Start {
		return ErrAuctionNotStarted
	}
	if record.End != 0 && now >= record.End {
		return ErrAuctionExpired
	}
	if !bidPriceAcceptable(record, price) {
		return ErrBidNotAccepted
	}
	if err := e.handler.OnNewBid(now, id, bidder, price, record.Bid.Clone()); err != nil {
		return fmt.Errorf("%w: %v", ErrBidNotAccepted, err)
	}

	record.Bid = &Bid{Bidder: bidder, Price: new(big.Int).Set(price)}
	record.End = e.extendedEndTime(now, record)
	if err := e.state.AuctionPut(id, record); err != nil {
		return err
	}
	e.emit(events.NewAuctionBidEvent(id, bidder, price))
	return nil
}

// RemoveAuction deletes the record without consulting the handler. Forced
// cancellation flows call this after performing their own refunds.
func (e *Engine) RemoveAuction(id uint64) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	record, err := e.state.AuctionGet(id)
	if err != nil {
		return err
	}
	if record == nil {
		return ErrAuctionNotFound
	}
	return e.state.AuctionDelete(id)
}

// OnFinalize sweeps every auction whose scheduled end has passed, invoking the
// handler's settlement callback. It must run before the next block's
// transactions so a closed auction can never accept another bid.
func (e *Engine) OnFinalize(now uint64) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.handler == nil {
		return errNilHandler
	}
	ids, err := e.state.AuctionIDs()
	if err != nil {
		return err
	}
	for _, id := range ids {
		record, err := e.state.AuctionGet(id)
		if err != nil {
			return err
		}
		if record == nil || record.End == 0 || record.End > now {
			continue
		}
		if err := e.state.AuctionDelete(id); err != nil {
			return err
		}
		e.handler.OnAuctionEnded(id, record.Bid)
	}
	return nil
}

// bidPriceAcceptable enforces the generic price rule: a bid must be positive
// and strictly exceed the previous bid. Increment floors are settlement
// policy and belong to the handler, which sees the auction's target.
func bidPriceAcceptable(record *Auction, price *big.Int) bool {
	if price == nil || price.Sign() <= 0 {
		return false
	}
	if record.Bid == nil || record.Bid.Price == nil {
		return true
	}
	return price.Cmp(record.Bid.Price) > 0
}

// extendedEndTime applies the anti-sniping rule: a bid landing inside the
// soft-cap window pushes the close to now+TimeToClose, never past the hard
// duration cap measured from the auction's start. The result never shrinks
// below the existing end, which a live bid already precedes.
func (e *Engine) extendedEndTime(now uint64, record *Auction) uint64 {
	end := record.End
	if end != 0 && end-now >= e.params.DurationSoftCap {
		return end
	}
	extended := now + e.params.TimeToClose
	if e.params.DurationHardCap != 0 {
		if limit := record.Start + e.params.DurationHardCap; extended > limit {
			extended = limit
		}
	}
	if extended < end {
		return end
	}
	return extended
}
