package shutdown

import (
	"errors"
	"log/slog"

	"github.com/AcalaNetwork/Acala-sub008/core/events"
	"github.com/AcalaNetwork/Acala-sub008/core/types"
	nativecommon "github.com/AcalaNetwork/Acala-sub008/native/common"
)

var (
	// ErrAlreadyShutdown rejects a second shutdown: the transition is
	// one-shot and irreversible.
	ErrAlreadyShutdown = errors.New("shutdown engine: system already shutdown")

	errNilState   = errors.New("shutdown engine: state not configured")
	errNilManager = errors.New("shutdown engine: auction manager not configured")
)

type engineState interface {
	ShutdownFlag() (bool, error)
	SetShutdownFlag() error
}

// AuctionManager is the subset of the manager engine the shutdown sweep
// drives: enumerate every live auction and force-cancel it.
type AuctionManager interface {
	LiveAuctionIDs() ([]uint64, error)
	CancelAuction(id uint64) error
}

type shutdownEvent struct {
	evt *types.Event
}

func (e shutdownEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e shutdownEvent) Event() *types.Event { return e.evt }

// Engine owns the global Normal/Shutdown state machine. Entering shutdown
// unwinds every open auction; afterwards only the cancel path stays callable.
type Engine struct {
	state   engineState
	manager AuctionManager
	emitter events.Emitter
	logger  *slog.Logger
}

// NewEngine creates a shutdown engine with a no-op emitter.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetAuctionManager wires the auction manager whose open auctions the
// shutdown transition unwinds.
func (e *Engine) SetAuctionManager(manager AuctionManager) { e.manager = manager }

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

// SetLogger configures the logger used by the cancellation sweep.
func (e *Engine) SetLogger(logger *slog.Logger) {
	if e == nil {
		return
	}
	e.logger = logger
}

func (e *Engine) log() *slog.Logger {
	if e == nil || e.logger == nil {
		return slog.Default()
	}
	return e.logger
}

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(shutdownEvent{evt: event})
}

// IsShutdown implements common.ShutdownView for the other engines' guards.
func (e *Engine) IsShutdown() bool {
	if e == nil || e.state == nil {
		return false
	}
	flag, err := e.state.ShutdownFlag()
	if err != nil {
		e.log().Error("read shutdown flag", "err", err)
		return false
	}
	return flag
}

// Shutdown performs the one-shot Normal to Shutdown transition and cancels
// every open auction. Individual cancellation failures are logged and do not
// abort the sweep; the failed auctions remain for a later Cancel call.
func (e *Engine) Shutdown(now uint64) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.manager == nil {
		return errNilManager
	}
	flag, err := e.state.ShutdownFlag()
	if err != nil {
		return err
	}
	if flag {
		return ErrAlreadyShutdown
	}
	if err := e.state.SetShutdownFlag(); err != nil {
		return err
	}

	ids, err := e.manager.LiveAuctionIDs()
	if err != nil {
		return err
	}
	cancelled := 0
	for _, id := range ids {
		if err := e.manager.CancelAuction(id); err != nil {
			e.log().Warn("cancel auction during shutdown", "id", id, "err", err)
			continue
		}
		cancelled++
	}
	e.emit(events.NewSystemShutdownEvent(now, cancelled))
	return nil
}

// Cancel force-closes a single auction. It is the system-only dispatch used
// to finish unwinding after shutdown and fails while the system is live.
func (e *Engine) Cancel(id uint64) error {
	if e == nil || e.manager == nil {
		return errNilManager
	}
	if err := nativecommon.GuardAfterShutdown(e); err != nil {
		return err
	}
	return e.manager.CancelAuction(id)
}
