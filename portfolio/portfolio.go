package portfolio

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantegy/alphasim/log"
	"github.com/quantegy/alphasim/portfolio/holdings"
	"github.com/quantegy/alphasim/processor"
)

// New returns a ledger seeded with initial cash. Spread is the fixed
// fractional execution cost applied against the trader on every close;
// shortReserve is the fractional margin reserved per unit of short notional
func New(initialCash, spread, shortReserve decimal.Decimal) (*Portfolio, error) {
	if initialCash.IsNegative() {
		return nil, ErrNegativeInitialCash
	}
	return &Portfolio{
		cash:         initialCash,
		spread:       spread,
		shortReserve: shortReserve,
	}, nil
}

// Cash returns the current cash balance
func (p *Portfolio) Cash() decimal.Decimal {
	return p.cash
}

// Positions returns a copy of all open positions
func (p *Portfolio) Positions() []holdings.Position {
	out := make([]holdings.Position, len(p.positions))
	copy(out, p.positions)
	return out
}

// Position returns the open position for a symbol, if any
func (p *Portfolio) Position(symbol string) (holdings.Position, bool) {
	for x := range p.positions {
		if p.positions[x].Symbol == symbol {
			return p.positions[x], true
		}
	}
	return holdings.Position{}, false
}

// WinCount returns the number of closes realised at a gain
func (p *Portfolio) WinCount() int {
	return p.numWin
}

// LoseCount returns the number of closes realised flat or at a loss
func (p *Portfolio) LoseCount() int {
	return p.numLose
}

// Trades returns every executed close this run in execution order
func (p *Portfolio) Trades() []Trade {
	out := make([]Trade, len(p.trades))
	copy(out, p.trades)
	return out
}

// Equity marks the ledger to market: cash plus every position valued at its
// day close, falling back to entry price for positions without a close yet
func (p *Portfolio) Equity(closes map[string]float64) decimal.Decimal {
	equity := p.cash
	for x := range p.positions {
		price := p.positions[x].EntryPrice
		if c, ok := closes[p.positions[x].Symbol]; ok {
			price = decimal.NewFromFloat(c)
		}
		equity = equity.Add(p.positions[x].MarketValue(price))
	}
	return equity
}

// ProcessActions resolves one interval's batch of actions against the
// ledger. Closes run before opens so capital freed this interval funds opens
// in the same interval. Conflicting actions on the same symbol and phase are
// resolved first-seen, which follows processor registration order
func (p *Portfolio) ProcessActions(now time.Time, actions []processor.Action) ([]Trade, error) {
	for x := range actions {
		// written so NaN fails the range check too
		if !actions[x].Type.Valid() || !(actions[x].Percent > 0 && actions[x].Percent <= 1) {
			return nil, fmt.Errorf("%w: %v %v percent %v from %v",
				ErrMalformedAction, actions[x].Symbol, actions[x].Type, actions[x].Percent, actions[x].Source)
		}
	}

	var closes, opens []processor.Action
	seenClose := make(map[string]string)
	seenOpen := make(map[string]string)
	for x := range actions {
		if actions[x].Type.IsClose() {
			if first, ok := seenClose[actions[x].Symbol]; ok {
				log.Warnf(log.PortfolioMgr, "dropping conflicting close on %v from %v, honouring %v",
					actions[x].Symbol, actions[x].Source, first)
				continue
			}
			seenClose[actions[x].Symbol] = actions[x].Source
			closes = append(closes, actions[x])
			continue
		}
		if first, ok := seenOpen[actions[x].Symbol]; ok {
			log.Warnf(log.PortfolioMgr, "dropping conflicting open on %v from %v, honouring %v",
				actions[x].Symbol, actions[x].Source, first)
			continue
		}
		seenOpen[actions[x].Symbol] = actions[x].Source
		opens = append(opens, actions[x])
	}

	executed := p.closePositions(now, closes)
	p.openPositions(now, opens)
	return executed, nil
}

func (p *Portfolio) closePositions(now time.Time, actions []processor.Action) []Trade {
	var executed []Trade
	for x := range actions {
		action := actions[x]
		position, ok := p.Position(action.Symbol)
		if !ok {
			continue
		}
		// direction must match the held side or the close is dropped
		if action.Type == processor.BuyToClose && !position.IsShort() {
			continue
		}
		if action.Type == processor.SellToClose && !position.IsLong() {
			continue
		}
		p.popPosition(action.Symbol)

		percent := decimal.NewFromFloat(action.Percent)
		removedQty := position.Qty.Mul(percent)
		remaining := position.Qty.Sub(removedQty)
		if remaining.Abs().GreaterThan(residualEpsilon) {
			p.positions = append(p.positions, holdings.Position{
				Symbol:     position.Symbol,
				Qty:        remaining,
				EntryPrice: position.EntryPrice,
				EntryTime:  position.EntryTime,
			})
		}

		price := decimal.NewFromFloat(action.Price)
		one := decimal.NewFromInt(1)
		spreadAdjust := one.Sub(p.spread)
		if action.Type == processor.BuyToClose {
			spreadAdjust = one.Add(p.spread)
		}
		executedPrice := price.Mul(spreadAdjust)
		p.cash = p.cash.Add(executedPrice.Mul(removedQty))

		realised := executedPrice.Div(position.EntryPrice).Sub(one)
		side := "long"
		if action.Type == processor.BuyToClose {
			realised = realised.Neg()
			side = "short"
		}
		if realised.IsPositive() {
			p.numWin++
		} else {
			p.numLose++
		}

		trade := Trade{
			Symbol:     action.Symbol,
			Side:       side,
			Qty:        removedQty,
			EntryPrice: position.EntryPrice,
			ExitPrice:  price,
			EntryTime:  position.EntryTime,
			ExitTime:   now,
			Return:     realised,
			Source:     action.Source,
		}
		p.trades = append(p.trades, trade)
		executed = append(executed, trade)
	}
	return executed
}

func (p *Portfolio) openPositions(now time.Time, actions []processor.Action) {
	if len(actions) == 0 {
		return
	}
	// capital reserved against shorts is unavailable to new opens
	tradableCash := p.cash
	one := decimal.NewFromInt(1)
	for x := range p.positions {
		if p.positions[x].IsShort() {
			tradableCash = tradableCash.Add(
				p.positions[x].EntryPrice.Mul(p.positions[x].Qty).Mul(one.Add(p.shortReserve)))
		}
	}

	count := decimal.NewFromInt(int64(len(actions)))
	for x := range actions {
		action := actions[x]
		percent := decimal.NewFromFloat(action.Percent)
		cashToTrade := decimal.Min(tradableCash.Div(count), tradableCash.Mul(percent))
		if cashToTrade.Abs().LessThan(residualEpsilon) {
			cashToTrade = decimal.Zero
		}
		price := decimal.NewFromFloat(action.Price)
		if !price.IsPositive() {
			log.Warnf(log.PortfolioMgr, "dropping unfillable open on %v from %v, price %v",
				action.Symbol, action.Source, action.Price)
			continue
		}
		qty := cashToTrade.Div(price)
		if action.Type == processor.SellToOpen {
			qty = qty.Neg()
		}

		entryPrice := price
		newQty := qty
		if old, ok := p.Position(action.Symbol); ok {
			p.popPosition(action.Symbol)
			newQty = qty.Add(old.Qty)
			if !old.Qty.IsZero() && !newQty.IsZero() {
				entryPrice = old.EntryPrice.Mul(old.Qty).Add(price.Mul(qty)).Div(newQty)
			}
		}
		p.positions = append(p.positions, holdings.Position{
			Symbol:     action.Symbol,
			Qty:        newQty,
			EntryPrice: entryPrice,
			EntryTime:  now,
		})
		p.cash = p.cash.Sub(price.Mul(qty))
	}
}

func (p *Portfolio) popPosition(symbol string) {
	for x := range p.positions {
		if p.positions[x].Symbol == symbol {
			p.positions = append(p.positions[:x], p.positions[x+1:]...)
			return
		}
	}
}
