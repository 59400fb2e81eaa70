package auction

import "math/big"

// Bid is the highest accepted bid on an auction. At most one bid is active per
// auction; accepting a replacement refunds this one first.
type Bid struct {
	Bidder [20]byte
	Price  *big.Int
}

// Clone returns a deep copy so callers can mutate the copy safely.
func (b *Bid) Clone() *Bid {
	if b == nil {
		return nil
	}
	clone := *b
	if b.Price != nil {
		clone.Price = new(big.Int).Set(b.Price)
	} else {
		clone.Price = big.NewInt(0)
	}
	return &clone
}

// Auction is the generic bid state of one open auction. End is a block number;
// zero means the auction is open-ended until the first accepted bid schedules
// a close.
type Auction struct {
	Bid   *Bid
	Start uint64
	End   uint64
}

// Clone returns a deep copy of the auction record.
func (a *Auction) Clone() *Auction {
	if a == nil {
		return nil
	}
	clone := *a
	clone.Bid = a.Bid.Clone()
	return &clone
}

// Params groups the governance controlled timing rules enforced by the
// ledger. Pricing floors beyond strict monotonicity belong to the Handler.
type Params struct {
	// TimeToClose is the number of blocks an accepted bid pushes the close
	// out to when the auction is inside the soft-cap window.
	TimeToClose uint64
	// DurationSoftCap is the anti-sniping window: a bid landing fewer than
	// this many blocks before the scheduled end extends the auction.
	DurationSoftCap uint64
	// DurationHardCap bounds the total auction duration measured from its
	// start block. Extensions never push the end past Start+DurationHardCap.
	DurationHardCap uint64
}
