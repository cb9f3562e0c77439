package portfolio

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantegy/alphasim/processor"
)

var noSpread = decimal.Zero

func testPortfolio(t *testing.T, cash float64) *Portfolio {
	t.Helper()
	p, err := New(decimal.NewFromFloat(cash), noSpread, decimal.NewFromFloat(0.04))
	require.NoError(t, err, "New must not error")
	return p
}

func mustProcess(t *testing.T, p *Portfolio, actions ...processor.Action) []Trade {
	t.Helper()
	trades, err := p.ProcessActions(time.Date(2023, 3, 6, 15, 0, 0, 0, time.UTC), actions)
	require.NoError(t, err, "ProcessActions must not error")
	return trades
}

func TestNew(t *testing.T) {
	t.Parallel()
	_, err := New(decimal.NewFromInt(-1), noSpread, decimal.Zero)
	assert.ErrorIs(t, err, ErrNegativeInitialCash)
}

func TestMalformedActionIsFatal(t *testing.T) {
	t.Parallel()
	p := testPortfolio(t, 1000)
	_, err := p.ProcessActions(time.Now(), []processor.Action{
		{Symbol: "TEST", Type: processor.ActionType(9), Percent: 1, Price: 10},
	})
	assert.ErrorIs(t, err, ErrMalformedAction)

	_, err = p.ProcessActions(time.Now(), []processor.Action{
		{Symbol: "TEST", Type: processor.BuyToOpen, Percent: 1.5, Price: 10},
	})
	assert.ErrorIs(t, err, ErrMalformedAction)

	_, err = p.ProcessActions(time.Now(), []processor.Action{
		{Symbol: "TEST", Type: processor.BuyToOpen, Percent: 0, Price: 10},
	})
	assert.ErrorIs(t, err, ErrMalformedAction)

	_, err = p.ProcessActions(time.Now(), []processor.Action{
		{Symbol: "TEST", Type: processor.BuyToOpen, Percent: math.NaN(), Price: 10},
	})
	assert.ErrorIs(t, err, ErrMalformedAction)
}

func TestMalformedActionLeavesLedgerUntouched(t *testing.T) {
	t.Parallel()
	p := testPortfolio(t, 1000)
	mustProcess(t, p, processor.Action{Symbol: "AAA", Type: processor.BuyToOpen, Percent: 1, Price: 10})
	cashBefore := p.Cash()

	// one bad action fails the whole batch before any close runs
	_, err := p.ProcessActions(time.Now(), []processor.Action{
		{Symbol: "AAA", Type: processor.SellToClose, Percent: 1, Price: 12},
		{Symbol: "BBB", Type: processor.BuyToOpen, Percent: math.NaN(), Price: 10},
	})
	require.ErrorIs(t, err, ErrMalformedAction)

	assert.True(t, p.Cash().Equal(cashBefore), "got %v", p.Cash())
	_, ok := p.Position("AAA")
	assert.True(t, ok, "the held long must survive a rejected batch")
	assert.Empty(t, p.Trades())
}

func TestZeroPriceOpenDropped(t *testing.T) {
	t.Parallel()
	p := testPortfolio(t, 1000)
	mustProcess(t, p,
		processor.Action{Symbol: "AAA", Type: processor.BuyToOpen, Percent: 1, Price: 0},
	)
	_, ok := p.Position("AAA")
	assert.False(t, ok, "an open without a price is unfillable")
	assert.True(t, p.Cash().Equal(decimal.NewFromInt(1000)), "got %v", p.Cash())
}

func TestEqualSplitCap(t *testing.T) {
	t.Parallel()
	p := testPortfolio(t, 1000)
	mustProcess(t, p,
		processor.Action{Symbol: "AAA", Type: processor.BuyToOpen, Percent: 1, Price: 10},
		processor.Action{Symbol: "BBB", Type: processor.BuyToOpen, Percent: 1, Price: 20},
	)

	aaa, ok := p.Position("AAA")
	require.True(t, ok)
	bbb, ok := p.Position("BBB")
	require.True(t, ok)
	// each open receives at most half the tradable cash regardless of percent
	assert.True(t, aaa.Qty.Mul(aaa.EntryPrice).LessThanOrEqual(decimal.NewFromInt(500)))
	assert.True(t, bbb.Qty.Mul(bbb.EntryPrice).LessThanOrEqual(decimal.NewFromInt(500)))
	assert.True(t, aaa.Qty.Equal(decimal.NewFromInt(50)), "got %v", aaa.Qty)
	assert.True(t, bbb.Qty.Equal(decimal.NewFromInt(25)), "got %v", bbb.Qty)
	assert.True(t, p.cash.IsZero(), "got %v", p.cash)
}

func TestPercentCapsAllocation(t *testing.T) {
	t.Parallel()
	p := testPortfolio(t, 1000)
	mustProcess(t, p,
		processor.Action{Symbol: "AAA", Type: processor.BuyToOpen, Percent: 0.1, Price: 10},
	)
	aaa, ok := p.Position("AAA")
	require.True(t, ok)
	assert.True(t, aaa.Qty.Equal(decimal.NewFromInt(10)), "percent should cap below the equal split, got %v", aaa.Qty)
}

func TestCloseValidity(t *testing.T) {
	t.Parallel()
	p := testPortfolio(t, 1000)
	mustProcess(t, p, processor.Action{Symbol: "AAA", Type: processor.BuyToOpen, Percent: 1, Price: 10})

	// buy-to-close against a long must be dropped
	trades := mustProcess(t, p, processor.Action{Symbol: "AAA", Type: processor.BuyToClose, Percent: 1, Price: 11})
	assert.Empty(t, trades)
	_, ok := p.Position("AAA")
	assert.True(t, ok, "the long must survive a mismatched close")

	// close on a symbol without a position is dropped
	trades = mustProcess(t, p, processor.Action{Symbol: "GONE", Type: processor.SellToClose, Percent: 1, Price: 11})
	assert.Empty(t, trades)

	trades = mustProcess(t, p, processor.Action{Symbol: "AAA", Type: processor.SellToClose, Percent: 1, Price: 11})
	assert.Len(t, trades, 1)
	_, ok = p.Position("AAA")
	assert.False(t, ok)
}

func TestPartialCloseResidual(t *testing.T) {
	t.Parallel()
	p := testPortfolio(t, 500)
	mustProcess(t, p, processor.Action{Symbol: "AAA", Type: processor.BuyToOpen, Percent: 1, Price: 50})
	position, ok := p.Position("AAA")
	require.True(t, ok)
	require.True(t, position.Qty.Equal(decimal.NewFromInt(10)))

	trades := mustProcess(t, p, processor.Action{Symbol: "AAA", Type: processor.SellToClose, Percent: 0.6, Price: 50})
	require.Len(t, trades, 1)
	assert.True(t, trades[0].Qty.Equal(decimal.NewFromInt(6)), "got %v", trades[0].Qty)

	residual, ok := p.Position("AAA")
	require.True(t, ok, "a partial close must re-insert the remainder")
	assert.True(t, residual.Qty.Equal(decimal.NewFromInt(4)), "got %v", residual.Qty)
	assert.True(t, residual.EntryPrice.Equal(decimal.NewFromInt(50)), "entry price must be unchanged")
}

func TestSpreadAppliedAgainstTrader(t *testing.T) {
	t.Parallel()
	spread := decimal.NewFromFloat(0.001)
	p, err := New(decimal.NewFromInt(100), spread, decimal.Zero)
	require.NoError(t, err)
	mustProcess(t, p, processor.Action{Symbol: "AAA", Type: processor.BuyToOpen, Percent: 1, Price: 100})

	trades := mustProcess(t, p, processor.Action{Symbol: "AAA", Type: processor.SellToClose, Percent: 1, Price: 100})
	require.Len(t, trades, 1)
	// a flat exit still loses the spread
	assert.True(t, trades[0].Return.IsNegative())
	assert.True(t, p.Cash().LessThan(decimal.NewFromInt(100)), "got %v", p.Cash())
	assert.Equal(t, 1, p.LoseCount())
	assert.Zero(t, p.WinCount())
}

func TestShortRoundTrip(t *testing.T) {
	t.Parallel()
	p := testPortfolio(t, 1000)
	mustProcess(t, p, processor.Action{Symbol: "AAA", Type: processor.SellToOpen, Percent: 1, Price: 100})
	position, ok := p.Position("AAA")
	require.True(t, ok)
	assert.True(t, position.IsShort())
	assert.True(t, position.Qty.Equal(decimal.NewFromInt(-10)), "got %v", position.Qty)
	assert.True(t, p.Cash().Equal(decimal.NewFromInt(2000)), "short proceeds land in cash, got %v", p.Cash())

	// cover at a lower price for a win
	trades := mustProcess(t, p, processor.Action{Symbol: "AAA", Type: processor.BuyToClose, Percent: 1, Price: 90})
	require.Len(t, trades, 1)
	assert.Equal(t, "short", trades[0].Side)
	assert.True(t, trades[0].Return.IsPositive())
	assert.Equal(t, 1, p.WinCount())
	assert.True(t, p.Cash().Equal(decimal.NewFromInt(1100)), "got %v", p.Cash())
}

func TestShortReserveReducesTradableCash(t *testing.T) {
	t.Parallel()
	p := testPortfolio(t, 1000)
	mustProcess(t, p, processor.Action{Symbol: "SSS", Type: processor.SellToOpen, Percent: 1, Price: 100})
	require.True(t, p.Cash().Equal(decimal.NewFromInt(2000)))

	mustProcess(t, p, processor.Action{Symbol: "AAA", Type: processor.BuyToOpen, Percent: 1, Price: 10})
	aaa, ok := p.Position("AAA")
	require.True(t, ok)
	// tradable = 2000 + 100*-10*1.04 = 960
	assert.True(t, aaa.Qty.Equal(decimal.NewFromInt(96)), "got %v", aaa.Qty)
}

func TestFirstSeenConflictResolution(t *testing.T) {
	t.Parallel()
	p := testPortfolio(t, 1000)
	mustProcess(t, p, processor.Action{Symbol: "AAA", Type: processor.BuyToOpen, Percent: 1, Price: 10, Source: "first"})

	trades := mustProcess(t, p,
		processor.Action{Symbol: "AAA", Type: processor.SellToClose, Percent: 0.5, Price: 12, Source: "first"},
		processor.Action{Symbol: "AAA", Type: processor.SellToClose, Percent: 1, Price: 12, Source: "second"},
	)
	require.Len(t, trades, 1, "only the first close per symbol is honoured")
	assert.Equal(t, "first", trades[0].Source)
	residual, ok := p.Position("AAA")
	require.True(t, ok)
	assert.True(t, residual.Qty.Equal(decimal.NewFromInt(50)), "got %v", residual.Qty)
}

func TestOpenMergeWeightedAverage(t *testing.T) {
	t.Parallel()
	p := testPortfolio(t, 1000)
	mustProcess(t, p, processor.Action{Symbol: "AAA", Type: processor.BuyToOpen, Percent: 0.5, Price: 10})
	position, _ := p.Position("AAA")
	require.True(t, position.Qty.Equal(decimal.NewFromInt(50)))

	mustProcess(t, p, processor.Action{Symbol: "AAA", Type: processor.BuyToOpen, Percent: 1, Price: 20})
	merged, ok := p.Position("AAA")
	require.True(t, ok)
	// 500 remaining cash buys 25 more at 20: entry (50*10+25*20)/75
	assert.True(t, merged.Qty.Equal(decimal.NewFromInt(75)), "got %v", merged.Qty)
	expected := decimal.NewFromInt(1000).Div(decimal.NewFromInt(75))
	assert.True(t, merged.EntryPrice.Equal(expected), "got %v", merged.EntryPrice)
}

func TestLedgerConservation(t *testing.T) {
	t.Parallel()
	p := testPortfolio(t, 1000)
	mustProcess(t, p,
		processor.Action{Symbol: "AAA", Type: processor.BuyToOpen, Percent: 1, Price: 10},
		processor.Action{Symbol: "BBB", Type: processor.SellToOpen, Percent: 1, Price: 20},
	)
	// with no spread, cash + entry notional is conserved across opens
	total := p.Cash()
	for _, position := range p.Positions() {
		total = total.Add(position.Qty.Mul(position.EntryPrice))
	}
	assert.True(t, total.Equal(decimal.NewFromInt(1000)), "got %v", total)

	mustProcess(t, p, processor.Action{Symbol: "AAA", Type: processor.SellToClose, Percent: 1, Price: 10})
	total = p.Cash()
	for _, position := range p.Positions() {
		total = total.Add(position.Qty.Mul(position.EntryPrice))
	}
	assert.True(t, total.Equal(decimal.NewFromInt(1000)), "flat close must not create capital, got %v", total)
}

func TestEquityFallsBackToEntryPrice(t *testing.T) {
	t.Parallel()
	p := testPortfolio(t, 1000)
	mustProcess(t, p,
		processor.Action{Symbol: "AAA", Type: processor.BuyToOpen, Percent: 1, Price: 10},
		processor.Action{Symbol: "BBB", Type: processor.BuyToOpen, Percent: 1, Price: 20},
	)
	equity := p.Equity(map[string]float64{"AAA": 12})
	// AAA marks at 12 (50 shares), BBB falls back to entry notional 500
	assert.True(t, equity.Equal(decimal.NewFromInt(1100)), "got %v", equity)
}
