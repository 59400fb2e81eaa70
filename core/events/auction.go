package events

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"github.com/AcalaNetwork/Acala-sub008/core/types"
)

const (
	// TypeCollateralAuctionCreated is emitted when the risk engine opens a
	// collateral auction for a liquidated position.
	TypeCollateralAuctionCreated = "auction.collateral.created"
	// TypeSurplusAuctionCreated is emitted when treasury surplus is put up
	// for auction.
	TypeSurplusAuctionCreated = "auction.surplus.created"
	// TypeDebitAuctionCreated is emitted when a debit-covering auction opens.
	TypeDebitAuctionCreated = "auction.debit.created"
	// TypeAuctionBid is emitted for every accepted bid.
	TypeAuctionBid = "auction.bid"
	// TypeCollateralAuctionSettled is emitted when a collateral auction
	// closes with a winner.
	TypeCollateralAuctionSettled = "auction.collateral.settled"
	// TypeSurplusAuctionSettled is emitted when a surplus auction closes
	// with a winner.
	TypeSurplusAuctionSettled = "auction.surplus.settled"
	// TypeDebitAuctionSettled is emitted when a debit auction closes with a
	// winning bid that reached the fixed target.
	TypeDebitAuctionSettled = "auction.debit.settled"
	// TypeDebitAuctionReopened is emitted when a debit auction closes short
	// of its target and restarts with a larger native amount.
	TypeDebitAuctionReopened = "auction.debit.reopened"
	// TypeAuctionCancelled is emitted when an auction closes with no
	// settlement effect, either unsold or force-cancelled after shutdown.
	TypeAuctionCancelled = "auction.cancelled"
)

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func formatAddress(addr [20]byte) string {
	return hex.EncodeToString(addr[:])
}

func formatAuctionID(id uint64) string {
	return strconv.FormatUint(id, 10)
}

// NewCollateralAuctionCreatedEvent returns the canonical payload for a newly
// opened collateral auction.
func NewCollateralAuctionCreatedEvent(id uint64, refundRecipient [20]byte, currency string, amount, target *big.Int) *types.Event {
	return &types.Event{
		Type: TypeCollateralAuctionCreated,
		Attributes: map[string]string{
			"id":              formatAuctionID(id),
			"refundRecipient": formatAddress(refundRecipient),
			"currency":        currency,
			"amount":          formatAmount(amount),
			"target":          formatAmount(target),
		},
	}
}

// NewSurplusAuctionCreatedEvent returns the canonical payload for a newly
// opened surplus auction.
func NewSurplusAuctionCreatedEvent(id uint64, amount *big.Int) *types.Event {
	return &types.Event{
		Type: TypeSurplusAuctionCreated,
		Attributes: map[string]string{
			"id":     formatAuctionID(id),
			"amount": formatAmount(amount),
		},
	}
}

// NewDebitAuctionCreatedEvent returns the canonical payload for a newly opened
// debit auction.
func NewDebitAuctionCreatedEvent(id uint64, amount, fix *big.Int) *types.Event {
	return &types.Event{
		Type: TypeDebitAuctionCreated,
		Attributes: map[string]string{
			"id":     formatAuctionID(id),
			"amount": formatAmount(amount),
			"fix":    formatAmount(fix),
		},
	}
}

// NewAuctionBidEvent returns the canonical payload emitted for an accepted bid.
func NewAuctionBidEvent(id uint64, bidder [20]byte, price *big.Int) *types.Event {
	return &types.Event{
		Type: TypeAuctionBid,
		Attributes: map[string]string{
			"id":     formatAuctionID(id),
			"bidder": formatAddress(bidder),
			"price":  formatAmount(price),
		},
	}
}

// NewCollateralAuctionSettledEvent returns the payload emitted when a
// collateral auction is dealt to its winner.
func NewCollateralAuctionSettledEvent(id uint64, winner [20]byte, currency string, amount, payment *big.Int) *types.Event {
	return &types.Event{
		Type: TypeCollateralAuctionSettled,
		Attributes: map[string]string{
			"id":       formatAuctionID(id),
			"winner":   formatAddress(winner),
			"currency": currency,
			"amount":   formatAmount(amount),
			"payment":  formatAmount(payment),
		},
	}
}

// NewSurplusAuctionSettledEvent returns the payload emitted when a surplus
// auction is dealt to its winner.
func NewSurplusAuctionSettledEvent(id uint64, winner [20]byte, amount, price *big.Int) *types.Event {
	return &types.Event{
		Type: TypeSurplusAuctionSettled,
		Attributes: map[string]string{
			"id":     formatAuctionID(id),
			"winner": formatAddress(winner),
			"amount": formatAmount(amount),
			"price":  formatAmount(price),
		},
	}
}

// NewDebitAuctionSettledEvent returns the payload emitted when a debit auction
// is dealt to its winner.
func NewDebitAuctionSettledEvent(id uint64, winner [20]byte, amount, fix *big.Int) *types.Event {
	return &types.Event{
		Type: TypeDebitAuctionSettled,
		Attributes: map[string]string{
			"id":     formatAuctionID(id),
			"winner": formatAddress(winner),
			"amount": formatAmount(amount),
			"fix":    formatAmount(fix),
		},
	}
}

// NewDebitAuctionReopenedEvent returns the payload emitted when a debit
// auction restarts with a larger native amount under a fresh id.
func NewDebitAuctionReopenedEvent(oldID, newID uint64, amount, fix *big.Int) *types.Event {
	return &types.Event{
		Type: TypeDebitAuctionReopened,
		Attributes: map[string]string{
			"id":     formatAuctionID(oldID),
			"newId":  formatAuctionID(newID),
			"amount": formatAmount(amount),
			"fix":    formatAmount(fix),
		},
	}
}

// NewAuctionCancelledEvent returns the payload emitted when an auction closes
// without settlement.
func NewAuctionCancelledEvent(id uint64) *types.Event {
	return &types.Event{
		Type: TypeAuctionCancelled,
		Attributes: map[string]string{
			"id": formatAuctionID(id),
		},
	}
}
