package auctionmanager

import "math/big"

// CollateralAuctionItem is the settlement state of one collateral sale. Amount
// only ever shrinks: once a bid covers the target, the engine claims less
// collateral instead of accepting a larger payment, returning the freed
// collateral to the refund recipient.
type CollateralAuctionItem struct {
	// RefundRecipient is the owner of the liquidated position, entitled to
	// any collateral the auction does not need to sell.
	RefundRecipient [20]byte
	// Currency is the collateral currency on sale.
	Currency string
	// InitialAmount is the collateral amount the auction opened with.
	InitialAmount *big.Int
	// Amount is the collateral still claimable by the highest bidder.
	Amount *big.Int
	// Base is the stablecoin debt the sale must recover.
	Base *big.Int
	// Penalty is the liquidation penalty collected on top of Base.
	Penalty *big.Int
	// StartTime is the block the auction opened at.
	StartTime uint64
}

// Target returns the total stablecoin amount the auction aims to raise.
func (item *CollateralAuctionItem) Target() *big.Int {
	target := new(big.Int)
	if item.Base != nil {
		target.Add(target, item.Base)
	}
	if item.Penalty != nil {
		target.Add(target, item.Penalty)
	}
	return target
}

// alwaysForward reports whether the auction has no target and therefore never
// enters the reverse stage.
func (item *CollateralAuctionItem) alwaysForward() bool {
	return item.Target().Sign() == 0
}

// inReverseStage reports whether the given bid price covers the target, which
// switches the auction from price discovery to collateral reduction.
func (item *CollateralAuctionItem) inReverseStage(price *big.Int) bool {
	return !item.alwaysForward() && price.Cmp(item.Target()) >= 0
}

// paymentAmount returns the stablecoin a bidder at the given price actually
// pays: the full price before the target is reached, capped at the target
// afterwards.
func (item *CollateralAuctionItem) paymentAmount(price *big.Int) *big.Int {
	if item.alwaysForward() {
		return new(big.Int).Set(price)
	}
	target := item.Target()
	if price.Cmp(target) < 0 {
		return new(big.Int).Set(price)
	}
	return target
}

// collateralAmount returns the collateral claimable after a bid at newPrice
// replaces one at lastPrice. In the reverse stage the claim shrinks to
// amount * max(lastPrice, target) / newPrice, keeping the raised stablecoin at
// the target while returning the difference to the refund recipient.
func (item *CollateralAuctionItem) collateralAmount(lastPrice, newPrice *big.Int) *big.Int {
	if !item.inReverseStage(newPrice) || newPrice.Cmp(lastPrice) <= 0 {
		return new(big.Int).Set(item.Amount)
	}
	numerator := item.Target()
	if lastPrice.Cmp(numerator) > 0 {
		numerator = new(big.Int).Set(lastPrice)
	}
	claimed := new(big.Int).Mul(item.Amount, numerator)
	claimed.Quo(claimed, newPrice)
	return claimed
}

// Clone returns a deep copy of the collateral item.
func (item *CollateralAuctionItem) Clone() *CollateralAuctionItem {
	if item == nil {
		return nil
	}
	clone := *item
	clone.InitialAmount = cloneBigInt(item.InitialAmount)
	clone.Amount = cloneBigInt(item.Amount)
	clone.Base = cloneBigInt(item.Base)
	clone.Penalty = cloneBigInt(item.Penalty)
	return &clone
}

// DebitAuctionItem is the settlement state of one debit-covering sale: a fixed
// stablecoin amount to raise against a native-token amount that grows across
// re-auctions whenever bidding falls short.
type DebitAuctionItem struct {
	// InitialAmount is the native amount this auction round opened with.
	InitialAmount *big.Int
	// Amount is the native amount currently offered to the winner.
	Amount *big.Int
	// Fix is the stablecoin amount the auction must raise to settle.
	Fix *big.Int
	// StartTime is the block the auction opened at.
	StartTime uint64
}

// Clone returns a deep copy of the debit item.
func (item *DebitAuctionItem) Clone() *DebitAuctionItem {
	if item == nil {
		return nil
	}
	clone := *item
	clone.InitialAmount = cloneBigInt(item.InitialAmount)
	clone.Amount = cloneBigInt(item.Amount)
	clone.Fix = cloneBigInt(item.Fix)
	return &clone
}

// SurplusAuctionItem is the settlement state of one surplus sale: a fixed
// stablecoin amount sold for the highest native-token bid.
type SurplusAuctionItem struct {
	// Amount is the stablecoin amount on sale.
	Amount *big.Int
	// StartTime is the block the auction opened at.
	StartTime uint64
}

// Clone returns a deep copy of the surplus item.
func (item *SurplusAuctionItem) Clone() *SurplusAuctionItem {
	if item == nil {
		return nil
	}
	clone := *item
	clone.Amount = cloneBigInt(item.Amount)
	return &clone
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
