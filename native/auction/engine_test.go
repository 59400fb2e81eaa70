package auction

import (
	"errors"
	"math/big"
	"sort"
	"testing"

	"github.com/AcalaNetwork/Acala-sub008/core/events"
)

type mockState struct {
	nextID   uint64
	auctions map[uint64]*Auction
}

func newMockState() *mockState {
	return &mockState{auctions: make(map[uint64]*Auction)}
}

func (m *mockState) NextAuctionID() (uint64, error) {
	id := m.nextID
	m.nextID++
	return id, nil
}

func (m *mockState) AuctionGet(id uint64) (*Auction, error) {
	return m.auctions[id].Clone(), nil
}

func (m *mockState) AuctionPut(id uint64, a *Auction) error {
	m.auctions[id] = a.Clone()
	return nil
}

func (m *mockState) AuctionDelete(id uint64) error {
	delete(m.auctions, id)
	return nil
}

func (m *mockState) AuctionIDs() ([]uint64, error) {
	ids := make([]uint64, 0, len(m.auctions))
	for id := range m.auctions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

type endedCall struct {
	id     uint64
	winner *Bid
}

type mockHandler struct {
	rejectWith error
	bids       int
	ended      []endedCall
}

func (h *mockHandler) OnNewBid(now, id uint64, bidder [20]byte, price *big.Int, last *Bid) error {
	if h.rejectWith != nil {
		return h.rejectWith
	}
	h.bids++
	return nil
}

func (h *mockHandler) OnAuctionEnded(id uint64, winner *Bid) {
	h.ended = append(h.ended, endedCall{id: id, winner: winner})
}

type recordingEmitter struct {
	events []events.Event
}

func (r *recordingEmitter) Emit(evt events.Event) { r.events = append(r.events, evt) }

func newTestEngine(params Params) (*Engine, *mockState, *mockHandler) {
	state := newMockState()
	handler := &mockHandler{}
	engine := NewEngine(params)
	engine.SetState(state)
	engine.SetHandler(handler)
	return engine, state, handler
}

func defaultParams() Params {
	return Params{
		TimeToClose:     10,
		DurationSoftCap: 20,
		DurationHardCap: 50,
	}
}

func TestNewAuctionAssignsSequentialIDs(t *testing.T) {
	engine, _, _ := newTestEngine(defaultParams())
	for want := uint64(0); want < 3; want++ {
		id, err := engine.NewAuction(0, 0)
		if err != nil {
			t.Fatalf("new auction: %v", err)
		}
		if id != want {
			t.Fatalf("id = %d, want %d", id, want)
		}
	}
}

func TestNewAuctionRejectsEndBeforeStart(t *testing.T) {
	engine, _, _ := newTestEngine(defaultParams())
	if _, err := engine.NewAuction(10, 10); err == nil {
		t.Fatal("expected error for end == start")
	}
	if _, err := engine.NewAuction(10, 5); err == nil {
		t.Fatal("expected error for end < start")
	}
}

func TestBidValidatesAuctionWindow(t *testing.T) {
	engine, _, _ := newTestEngine(defaultParams())
	bidder := [20]byte{0x01}

	if err := engine.Bid(0, 99, bidder, big.NewInt(100)); !errors.Is(err, ErrAuctionNotFound) {
		t.Fatalf("bid on unknown auction: %v, want ErrAuctionNotFound", err)
	}

	id, err := engine.NewAuction(10, 30)
	if err != nil {
		t.Fatalf("new auction: %v", err)
	}
	if err := engine.Bid(5, id, bidder, big.NewInt(100)); !errors.Is(err, ErrAuctionNotStarted) {
		t.Fatalf("early bid: %v, want ErrAuctionNotStarted", err)
	}
	if err := engine.Bid(30, id, bidder, big.NewInt(100)); !errors.Is(err, ErrAuctionExpired) {
		t.Fatalf("bid at end block: %v, want ErrAuctionExpired", err)
	}
	if err := engine.Bid(10, id, bidder, big.NewInt(100)); err != nil {
		t.Fatalf("bid at start block: %v", err)
	}
}

func TestBidRequiresStrictlyHigherPrice(t *testing.T) {
	engine, _, _ := newTestEngine(defaultParams())
	alice, bob := [20]byte{0x01}, [20]byte{0x02}

	id, err := engine.NewAuction(0, 0)
	if err != nil {
		t.Fatalf("new auction: %v", err)
	}
	if err := engine.Bid(0, id, alice, big.NewInt(0)); !errors.Is(err, ErrBidNotAccepted) {
		t.Fatalf("zero bid: %v, want ErrBidNotAccepted", err)
	}
	if err := engine.Bid(0, id, alice, big.NewInt(1000)); err != nil {
		t.Fatalf("first bid: %v", err)
	}
	if err := engine.Bid(1, id, bob, big.NewInt(999)); !errors.Is(err, ErrBidNotAccepted) {
		t.Fatalf("lower bid: %v, want ErrBidNotAccepted", err)
	}
	if err := engine.Bid(1, id, bob, big.NewInt(1000)); !errors.Is(err, ErrBidNotAccepted) {
		t.Fatalf("equal bid: %v, want ErrBidNotAccepted", err)
	}
	// Any strict increase clears: the increment floor is the handler's rule.
	if err := engine.Bid(1, id, bob, big.NewInt(1001)); err != nil {
		t.Fatalf("one-unit raise: %v", err)
	}
}

func TestHandlerRejectionLeavesNoState(t *testing.T) {
	engine, state, handler := newTestEngine(defaultParams())
	bidder := [20]byte{0x01}

	id, err := engine.NewAuction(0, 0)
	if err != nil {
		t.Fatalf("new auction: %v", err)
	}
	handler.rejectWith = errors.New("insufficient balance")
	err = engine.Bid(0, id, bidder, big.NewInt(100))
	if !errors.Is(err, ErrBidNotAccepted) {
		t.Fatalf("rejected bid: %v, want ErrBidNotAccepted", err)
	}
	record := state.auctions[id]
	if record.Bid != nil {
		t.Fatalf("rejected bid was stored: %+v", record.Bid)
	}
	if record.End != 0 {
		t.Fatalf("rejected bid scheduled a close: end=%d", record.End)
	}
}

func TestAntiSnipingExtension(t *testing.T) {
	engine, state, _ := newTestEngine(defaultParams())
	bidder := [20]byte{0x01}

	// Open-ended auction: the first bid schedules the close.
	id, err := engine.NewAuction(0, 0)
	if err != nil {
		t.Fatalf("new auction: %v", err)
	}
	if err := engine.Bid(5, id, bidder, big.NewInt(100)); err != nil {
		t.Fatalf("first bid: %v", err)
	}
	if end := state.auctions[id].End; end != 15 {
		t.Fatalf("end after first bid = %d, want 15", end)
	}

	// A bid well before the close leaves the schedule alone.
	scheduled, err := engine.NewAuction(0, 30)
	if err != nil {
		t.Fatalf("new auction: %v", err)
	}
	if err := engine.Bid(5, scheduled, bidder, big.NewInt(100)); err != nil {
		t.Fatalf("early bid: %v", err)
	}
	if end := state.auctions[scheduled].End; end != 30 {
		t.Fatalf("end after early bid = %d, want 30", end)
	}

	// Inside the soft-cap window the close moves to now+TimeToClose, but
	// never backwards.
	if err := engine.Bid(15, scheduled, bidder, big.NewInt(200)); err != nil {
		t.Fatalf("window bid: %v", err)
	}
	if end := state.auctions[scheduled].End; end != 30 {
		t.Fatalf("end must not shrink: got %d, want 30", end)
	}
	if err := engine.Bid(25, scheduled, bidder, big.NewInt(300)); err != nil {
		t.Fatalf("sniping bid: %v", err)
	}
	if end := state.auctions[scheduled].End; end != 35 {
		t.Fatalf("end after extension = %d, want 35", end)
	}

	// Extensions stop at start+DurationHardCap.
	if err := engine.Bid(34, scheduled, bidder, big.NewInt(400)); err != nil {
		t.Fatalf("late bid: %v", err)
	}
	if end := state.auctions[scheduled].End; end != 44 {
		t.Fatalf("end after second extension = %d, want 44", end)
	}
	if err := engine.Bid(43, scheduled, bidder, big.NewInt(500)); err != nil {
		t.Fatalf("later bid: %v", err)
	}
	if end := state.auctions[scheduled].End; end != 50 {
		t.Fatalf("end at hard cap = %d, want 50", end)
	}
	// A last-block bid still clamps to the cap and never moves the close.
	if err := engine.Bid(49, scheduled, bidder, big.NewInt(600)); err != nil {
		t.Fatalf("last-block bid: %v", err)
	}
	if end := state.auctions[scheduled].End; end != 50 {
		t.Fatalf("end after last-block bid = %d, want 50", end)
	}
	if err := engine.Bid(50, scheduled, bidder, big.NewInt(700)); !errors.Is(err, ErrAuctionExpired) {
		t.Fatalf("bid at hard cap close: %v, want ErrAuctionExpired", err)
	}

	// A schedule already past the cap is left alone rather than shortened.
	long, err := engine.NewAuction(0, 100)
	if err != nil {
		t.Fatalf("new auction: %v", err)
	}
	if err := engine.Bid(85, long, bidder, big.NewInt(100)); err != nil {
		t.Fatalf("bid past hard cap: %v", err)
	}
	if end := state.auctions[long].End; end != 100 {
		t.Fatalf("end of long schedule = %d, want 100", end)
	}
}

func TestOnFinalizeSettlesDueAuctions(t *testing.T) {
	engine, state, handler := newTestEngine(defaultParams())
	bidder := [20]byte{0x01}

	withBid, err := engine.NewAuction(0, 10)
	if err != nil {
		t.Fatalf("new auction: %v", err)
	}
	if err := engine.Bid(0, withBid, bidder, big.NewInt(100)); err != nil {
		t.Fatalf("bid: %v", err)
	}
	noBid, err := engine.NewAuction(0, 10)
	if err != nil {
		t.Fatalf("new auction: %v", err)
	}
	openEnded, err := engine.NewAuction(0, 0)
	if err != nil {
		t.Fatalf("new auction: %v", err)
	}
	future, err := engine.NewAuction(0, 40)
	if err != nil {
		t.Fatalf("new auction: %v", err)
	}

	if err := engine.OnFinalize(9); err != nil {
		t.Fatalf("finalize before due: %v", err)
	}
	if len(handler.ended) != 0 {
		t.Fatalf("premature settlement: %+v", handler.ended)
	}

	if err := engine.OnFinalize(10); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if len(handler.ended) != 2 {
		t.Fatalf("settled %d auctions, want 2: %+v", len(handler.ended), handler.ended)
	}
	byID := map[uint64]*Bid{}
	for _, call := range handler.ended {
		byID[call.id] = call.winner
	}
	winner, ok := byID[withBid]
	if !ok || winner == nil || winner.Price.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("unexpected winner for auction %d: %+v", withBid, winner)
	}
	if loser, ok := byID[noBid]; !ok || loser != nil {
		t.Fatalf("expected nil winner for auction %d, got %+v (present=%v)", noBid, loser, ok)
	}
	if _, gone := state.auctions[withBid]; gone {
		t.Fatal("settled auction still stored")
	}
	if _, alive := state.auctions[openEnded]; !alive {
		t.Fatal("open-ended auction removed by finalize")
	}
	if _, alive := state.auctions[future]; !alive {
		t.Fatal("future auction removed by finalize")
	}
}

func TestRemoveAuctionSkipsHandler(t *testing.T) {
	engine, state, handler := newTestEngine(defaultParams())
	bidder := [20]byte{0x01}

	id, err := engine.NewAuction(0, 0)
	if err != nil {
		t.Fatalf("new auction: %v", err)
	}
	if err := engine.Bid(0, id, bidder, big.NewInt(100)); err != nil {
		t.Fatalf("bid: %v", err)
	}
	if err := engine.RemoveAuction(id); err != nil {
		t.Fatalf("remove auction: %v", err)
	}
	if len(handler.ended) != 0 {
		t.Fatalf("remove invoked settlement: %+v", handler.ended)
	}
	if _, alive := state.auctions[id]; alive {
		t.Fatal("removed auction still stored")
	}
	if err := engine.RemoveAuction(id); !errors.Is(err, ErrAuctionNotFound) {
		t.Fatalf("double remove: %v, want ErrAuctionNotFound", err)
	}
}

func TestBidEmitsEvent(t *testing.T) {
	engine, _, _ := newTestEngine(defaultParams())
	emitter := &recordingEmitter{}
	engine.SetEmitter(emitter)
	bidder := [20]byte{0x01}

	id, err := engine.NewAuction(0, 0)
	if err != nil {
		t.Fatalf("new auction: %v", err)
	}
	if err := engine.Bid(0, id, bidder, big.NewInt(100)); err != nil {
		t.Fatalf("bid: %v", err)
	}
	if len(emitter.events) != 1 {
		t.Fatalf("emitted %d events, want 1", len(emitter.events))
	}
	if got := emitter.events[0].EventType(); got != events.TypeAuctionBid {
		t.Fatalf("event type = %q, want %q", got, events.TypeAuctionBid)
	}
}
