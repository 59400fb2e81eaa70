package auctionmanager

import (
	"math/big"

	"github.com/AcalaNetwork/Acala-sub008/core/events"
	"github.com/AcalaNetwork/Acala-sub008/native/auction"
	"github.com/AcalaNetwork/Acala-sub008/observability"
)

// OnNewBid implements auction.Handler, dispatching the bid to the settlement
// policy that owns the auction id.
func (e *Engine) OnNewBid(now, id uint64, bidder [20]byte, price *big.Int, last *auction.Bid) error {
	if err := e.ensureWired(); err != nil {
		return err
	}
	if item, err := e.state.CollateralAuctionGet(id); err != nil {
		return err
	} else if item != nil {
		return e.collateralBidHandler(now, id, item, bidder, price, last)
	}
	if item, err := e.state.DebitAuctionGet(id); err != nil {
		return err
	} else if item != nil {
		return e.debitBidHandler(now, id, item, bidder, price, last)
	}
	if item, err := e.state.SurplusAuctionGet(id); err != nil {
		return err
	} else if item != nil {
		return e.surplusBidHandler(now, item, bidder, price, last)
	}
	return ErrAuctionNotFound
}

// OnAuctionEnded implements auction.Handler. Settlement transfers are
// best-effort: a failed payout must not abort the finalize sweep, so failures
// are logged for the treasury council to repair.
func (e *Engine) OnAuctionEnded(id uint64, winner *auction.Bid) {
	if err := e.ensureWired(); err != nil {
		return
	}
	if item, err := e.state.CollateralAuctionGet(id); err == nil && item != nil {
		if err := e.state.CollateralAuctionDelete(id); err != nil {
			e.log().Error("drop collateral auction item", "id", id, "err", err)
		}
		e.collateralAuctionEndHandler(id, item, winner)
		return
	}
	if item, err := e.state.DebitAuctionGet(id); err == nil && item != nil {
		if err := e.state.DebitAuctionDelete(id); err != nil {
			e.log().Error("drop debit auction item", "id", id, "err", err)
		}
		e.debitAuctionEndHandler(id, item, winner)
		return
	}
	if item, err := e.state.SurplusAuctionGet(id); err == nil && item != nil {
		if err := e.state.SurplusAuctionDelete(id); err != nil {
			e.log().Error("drop surplus auction item", "id", id, "err", err)
		}
		e.surplusAuctionEndHandler(id, item, winner)
	}
}

// minimumIncrementSatisfied applies the target-aware increment rule: the new
// bid must exceed the last by at least max(last, target) * increment. The
// increment doubles once the auction outlives the soft cap.
func (e *Engine) minimumIncrementSatisfied(now, startTime uint64, newPrice, lastPrice, targetPrice *big.Int) bool {
	incrementBps := e.params.MinimumIncrementBps
	if e.params.AuctionDurationSoftCap != 0 && now >= startTime+e.params.AuctionDurationSoftCap {
		incrementBps *= 2
	}
	reference := cloneBigInt(lastPrice)
	if targetPrice != nil && targetPrice.Cmp(reference) > 0 {
		reference = new(big.Int).Set(targetPrice)
	}
	threshold := new(big.Int).Mul(reference, new(big.Int).SetUint64(incrementBps))
	diff := new(big.Int).Sub(newPrice, cloneBigInt(lastPrice))
	if diff.Sign() < 0 {
		return false
	}
	return new(big.Int).Mul(diff, big.NewInt(basisPoints)).Cmp(threshold) >= 0
}

func lastBidPrice(last *auction.Bid) *big.Int {
	if last == nil || last.Price == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(last.Price)
}

func (e *Engine) collateralBidHandler(now, id uint64, item *CollateralAuctionItem, bidder [20]byte, price *big.Int, last *auction.Bid) error {
	if price == nil || price.Sign() <= 0 {
		return ErrInvalidBidPrice
	}
	lastPrice := lastBidPrice(last)
	if !e.minimumIncrementSatisfied(now, item.StartTime, price, lastPrice, item.Target()) {
		return ErrInvalidBidPrice
	}

	payment := item.paymentAmount(price)
	if last != nil {
		// Return the previous bidder's deposit from the new bidder before
		// taking the new deposit.
		refund := item.paymentAmount(lastPrice)
		if refund.Sign() > 0 {
			if err := e.currency.Transfer(e.params.StableCurrency, bidder, last.Bidder, refund); err != nil {
				return err
			}
		}
		payment = new(big.Int).Sub(payment, refund)
		if payment.Sign() < 0 {
			return ErrInvalidBidPrice
		}
	}
	if payment.Sign() > 0 {
		if err := e.treasury.DepositSurplus(bidder, payment); err != nil {
			return err
		}
	}

	if item.inReverseStage(price) {
		newAmount := item.collateralAmount(lastPrice, price)
		refundCollateral := new(big.Int).Sub(item.Amount, newAmount)
		if refundCollateral.Sign() > 0 {
			if err := e.treasury.WithdrawCollateral(item.RefundRecipient, item.Currency, refundCollateral); err != nil {
				return err
			}
			if err := e.subTotalCollateral(item.Currency, refundCollateral); err != nil {
				return err
			}
			item.Amount = newAmount
		}
	}
	if err := e.state.CollateralAuctionPut(id, item); err != nil {
		return err
	}
	observability.Auctions().RecordBid(observability.KindCollateral)
	return nil
}

func (e *Engine) debitBidHandler(now, id uint64, item *DebitAuctionItem, bidder [20]byte, price *big.Int, last *auction.Bid) error {
	if price == nil || price.Sign() <= 0 || price.Cmp(item.Fix) > 0 {
		return ErrInvalidBidPrice
	}
	lastPrice := lastBidPrice(last)
	if !e.minimumIncrementSatisfied(now, item.StartTime, price, lastPrice, item.Fix) {
		// A bid of exactly fix caps the auction; the increment rule would
		// otherwise make the final step unreachable.
		if price.Cmp(item.Fix) != 0 || price.Cmp(lastPrice) <= 0 {
			return ErrInvalidBidPrice
		}
	}
	if last != nil {
		if err := e.currency.Transfer(e.params.StableCurrency, bidder, last.Bidder, lastPrice); err != nil {
			return err
		}
		delta := new(big.Int).Sub(price, lastPrice)
		if delta.Sign() > 0 {
			if err := e.treasury.DepositSurplus(bidder, delta); err != nil {
				return err
			}
		}
	} else {
		if err := e.treasury.DepositSurplus(bidder, price); err != nil {
			return err
		}
	}
	observability.Auctions().RecordBid(observability.KindDebit)
	return nil
}

func (e *Engine) surplusBidHandler(now uint64, item *SurplusAuctionItem, bidder [20]byte, price *big.Int, last *auction.Bid) error {
	if price == nil || price.Sign() <= 0 {
		return ErrInvalidBidPrice
	}
	lastPrice := lastBidPrice(last)
	if !e.minimumIncrementSatisfied(now, item.StartTime, price, lastPrice, nil) {
		return ErrInvalidBidPrice
	}
	burn := new(big.Int).Set(price)
	if last != nil {
		if err := e.currency.Transfer(e.params.NativeCurrency, bidder, last.Bidder, lastPrice); err != nil {
			return err
		}
		burn.Sub(burn, lastPrice)
	}
	// Burn the increment immediately; the deflationary sink does not wait
	// for settlement.
	if burn.Sign() > 0 {
		if err := e.currency.Withdraw(e.params.NativeCurrency, bidder, burn); err != nil {
			return err
		}
	}
	observability.Auctions().RecordBid(observability.KindSurplus)
	return nil
}

func (e *Engine) collateralAuctionEndHandler(id uint64, item *CollateralAuctionItem, winner *auction.Bid) {
	if winner != nil {
		if item.Amount.Sign() > 0 {
			if err := e.treasury.WithdrawCollateral(winner.Bidder, item.Currency, item.Amount); err != nil {
				e.log().Error("pay out auctioned collateral", "id", id, "err", err)
			}
		}
		payment := item.paymentAmount(winner.Price)
		// The raised stablecoin splits into the debt share and the
		// penalty share; the penalty stays in the surplus pool where the
		// bids deposited it.
		baseShare := cloneBigInt(item.Base)
		if payment.Cmp(baseShare) < 0 {
			baseShare = payment
		}
		if baseShare.Sign() > 0 {
			if err := e.treasury.OffsetDebit(baseShare); err != nil {
				e.log().Error("offset debit with auction proceeds", "id", id, "err", err)
			}
		}
		e.emit(events.NewCollateralAuctionSettledEvent(id, winner.Bidder, item.Currency, item.Amount, payment))
		observability.Auctions().RecordSettled(observability.KindCollateral)
	} else {
		// No bids: the unsold collateral stays in the treasury reserve as
		// inventory.
		e.emit(events.NewAuctionCancelledEvent(id))
		observability.Auctions().RecordCancelled(observability.KindCollateral)
	}
	if err := e.subTotalCollateral(item.Currency, item.Amount); err != nil {
		e.log().Error("update collateral totals", "id", id, "err", err)
	}
	if err := e.subTotalTarget(item.Target()); err != nil {
		e.log().Error("update target totals", "id", id, "err", err)
	}
}

func (e *Engine) debitAuctionEndHandler(id uint64, item *DebitAuctionItem, winner *auction.Bid) {
	if winner != nil && winner.Price.Cmp(item.Fix) >= 0 {
		if err := e.currency.Deposit(e.params.NativeCurrency, winner.Bidder, item.Amount); err != nil {
			e.log().Error("mint native to debit auction winner", "id", id, "err", err)
		}
		if err := e.treasury.OffsetDebit(item.Fix); err != nil {
			e.log().Error("offset debit with auction proceeds", "id", id, "err", err)
		}
		e.emit(events.NewDebitAuctionSettledEvent(id, winner.Bidder, item.Amount, item.Fix))
		observability.Auctions().RecordSettled(observability.KindDebit)
		if err := e.subTotalDebit(item.Fix); err != nil {
			e.log().Error("update debit totals", "id", id, "err", err)
		}
		return
	}
	// Bidding fell short of fix: refund any bidder and re-open with a larger
	// native amount under a fresh id.
	if winner != nil {
		if err := e.treasury.IssueDebit(winner.Bidder, winner.Price); err != nil {
			e.log().Error("refund debit auction bidder", "id", id, "err", err)
		}
	}
	e.reopenDebitAuction(id, item)
}

func (e *Engine) reopenDebitAuction(oldID uint64, item *DebitAuctionItem) {
	adjustment := new(big.Int).Mul(item.Amount, new(big.Int).SetUint64(e.params.DebitAuctionSizeAdjustmentBps))
	adjustment.Quo(adjustment, big.NewInt(basisPoints))
	newAmount := new(big.Int).Add(item.Amount, adjustment)

	newID, err := e.ledger.NewAuction(e.blockHeight, e.blockHeight+e.params.AuctionTimeToClose)
	if err != nil {
		e.log().Error("reopen debit auction", "id", oldID, "err", err)
		if err := e.subTotalDebit(item.Fix); err != nil {
			e.log().Error("update debit totals", "id", oldID, "err", err)
		}
		return
	}
	next := &DebitAuctionItem{
		InitialAmount: new(big.Int).Set(newAmount),
		Amount:        newAmount,
		Fix:           new(big.Int).Set(item.Fix),
		StartTime:     e.blockHeight,
	}
	if err := e.state.DebitAuctionPut(newID, next); err != nil {
		e.log().Error("store reopened debit auction", "id", newID, "err", err)
		return
	}
	// The fix stays in auction, so the debit totals carry over unchanged.
	e.emit(events.NewDebitAuctionReopenedEvent(oldID, newID, newAmount, item.Fix))
	observability.Auctions().RecordCreated(observability.KindDebit)
}

func (e *Engine) surplusAuctionEndHandler(id uint64, item *SurplusAuctionItem, winner *auction.Bid) {
	if winner != nil {
		if err := e.treasury.IssueDebit(winner.Bidder, item.Amount); err != nil {
			e.log().Error("pay out auctioned surplus", "id", id, "err", err)
		}
		e.emit(events.NewSurplusAuctionSettledEvent(id, winner.Bidder, item.Amount, winner.Price))
		observability.Auctions().RecordSettled(observability.KindSurplus)
	} else {
		e.emit(events.NewAuctionCancelledEvent(id))
		observability.Auctions().RecordCancelled(observability.KindSurplus)
	}
	if err := e.subTotalSurplus(item.Amount); err != nil {
		e.log().Error("update surplus totals", "id", id, "err", err)
	}
}
