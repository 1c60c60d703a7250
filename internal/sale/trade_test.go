package sale

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/launchcurve/internal/curve"
	"github.com/rovshanmuradov/launchcurve/internal/fees"
	"github.com/rovshanmuradov/launchcurve/internal/valuation"
)

var noFees = fees.Schedule{}

func TestBuyLinearScenario(t *testing.T) {
	s := mustCreate(t, linearParams())

	out, err := Buy(s, 100, math.MaxUint64, noFees, valuation.Identity())
	require.NoError(t, err)
	assert.Equal(t, uint64(10_049_500), out.CounterAmount)
	assert.Equal(t, uint64(100), out.TokenAmount)
	assert.Zero(t, out.TotalFee())
	assert.Equal(t, uint64(100), out.Sale.Curve.TokensSold)
	assert.Equal(t, uint64(10_049_500), out.Sale.Curve.RealBaseReserve)

	// the input is untouched
	assert.Zero(t, s.Curve.TokensSold)
}

func TestBuyLinearChargesFeeOnTop(t *testing.T) {
	s := mustCreate(t, linearParams())

	out, err := Buy(s, 100, math.MaxUint64, fees.DefaultSchedule(), valuation.Identity())
	require.NoError(t, err)

	// total = floor(10_049_500 * 100 / 10_000) = 100_495
	assert.Equal(t, uint64(50_247), out.ProtocolFee)
	assert.Equal(t, uint64(50_248), out.LiquidityFee)
	assert.Equal(t, uint64(10_049_500+100_495), out.CounterAmount)
	assert.Equal(t, uint64(10_049_500), out.Sale.Curve.RealBaseReserve, "fees stay out of the curve")
	assert.Equal(t, uint64(50_248), out.Sale.LiquidityFees)
}

func TestBuyConstantProductScenario(t *testing.T) {
	p := linearParams()
	p.Curve = curve.NewConstantProduct(30, 1_000_000_000)
	p.TotalSupply = 1_000_000_000
	s := mustCreate(t, p)

	out, err := Buy(s, 1, 0, noFees, valuation.Identity())
	require.NoError(t, err)
	assert.Equal(t, uint64(32_258_065), out.TokenAmount)
	assert.Equal(t, uint64(1), out.CounterAmount)
	assert.Equal(t, uint64(32_258_065), out.Sale.Curve.RealTokenReserve)
	assert.Equal(t, uint64(1), out.Sale.Curve.RealBaseReserve)
}

func TestConstantProductValuedAtFloorPrice(t *testing.T) {
	p := linearParams()
	p.Curve = curve.NewConstantProduct(30, 1_000_000_000)
	p.TotalSupply = 1_000_000_000
	p.GraduationThreshold = 1
	s := mustCreate(t, p)

	// 31/967_741_935 floors to a zero price, so 32_258_065 tokens are worth nothing
	out, err := Buy(s, 1, 0, noFees, valuation.Identity())
	require.NoError(t, err)
	assert.Zero(t, out.MarketCap)
	assert.False(t, out.GraduatedThisTrade)
	assert.Equal(t, StatusActive, out.Sale.Status)

	p.Curve = curve.NewConstantProduct(2_000, 1_000)
	p.TotalSupply = 1_000
	tests := []struct {
		threshold uint64
		graduates bool
	}{
		{4_000, true},
		{4_001, false},
	}
	for _, tt := range tests {
		p.GraduationThreshold = tt.threshold
		out, err := Buy(mustCreate(t, p), 2_000, 0, noFees, valuation.Identity())
		require.NoError(t, err)

		// reserves 4_000/500 price 8 per token and 500 circulate
		assert.Equal(t, uint64(500), out.TokenAmount)
		assert.Equal(t, uint64(4_000), out.MarketCap)
		assert.Equal(t, tt.graduates, out.GraduatedThisTrade, "threshold %d", tt.threshold)
	}
}

func TestBuyConstantProductDeductsFeeFromInput(t *testing.T) {
	s := mustCreate(t, constantProductParams())

	withFee, err := Buy(s, 1_000_000_000, 0, fees.DefaultSchedule(), valuation.Identity())
	require.NoError(t, err)
	atNet, err := Buy(s, 990_000_000, 0, noFees, valuation.Identity())
	require.NoError(t, err)

	assert.Equal(t, atNet.TokenAmount, withFee.TokenAmount)
	assert.Equal(t, uint64(990_000_000), withFee.Sale.Curve.RealBaseReserve)
	assert.Equal(t, uint64(5_000_000), withFee.ProtocolFee)
	assert.Equal(t, uint64(5_000_000), withFee.Sale.LiquidityFees)
}

func TestSlippage(t *testing.T) {
	lin := mustCreate(t, linearParams())

	_, err := Buy(lin, 100, 10_049_499, noFees, valuation.Identity())
	require.ErrorIs(t, err, ErrSlippageExceeded)
	var slip *SlippageExceededError
	require.True(t, errors.As(err, &slip))
	assert.Equal(t, uint64(10_049_500), slip.Actual)
	assert.Equal(t, DirectionBuy, slip.Direction)

	_, err = Buy(lin, 100, 10_049_500, noFees, valuation.Identity())
	assert.NoError(t, err, "limit is inclusive")

	bought, err := Buy(lin, 100, math.MaxUint64, fees.DefaultSchedule(), valuation.Identity())
	require.NoError(t, err)
	_, err = Sell(bought.Sale, 100, 10_049_500, fees.DefaultSchedule())
	assert.True(t, IsSlippageExceededError(err), "sell fee lowers the proceeds below the refund")

	cp := mustCreate(t, constantProductParams())
	quote, err := Buy(cp, 1_000_000, 0, noFees, valuation.Identity())
	require.NoError(t, err)
	_, err = Buy(cp, 1_000_000, quote.TokenAmount+1, noFees, valuation.Identity())
	assert.ErrorIs(t, err, ErrSlippageExceeded)
}

func TestOversellLeavesSaleUnchanged(t *testing.T) {
	lin := mustCreate(t, linearParams())
	bought, err := Buy(lin, 50, math.MaxUint64, fees.DefaultSchedule(), valuation.Identity())
	require.NoError(t, err)
	before := bought.Sale

	out, err := Sell(bought.Sale, 51, 0, fees.DefaultSchedule())
	assert.ErrorIs(t, err, ErrInsufficientLiquidity)
	assert.Equal(t, TradeOutcome{}, out)
	assert.Equal(t, before, bought.Sale)

	cp := mustCreate(t, constantProductParams())
	bought, err = Buy(cp, 1_000_000_000, 0, fees.DefaultSchedule(), valuation.Identity())
	require.NoError(t, err)
	before = bought.Sale

	_, err = Sell(bought.Sale, bought.Sale.Curve.RealTokenReserve+1, 0, fees.DefaultSchedule())
	assert.ErrorIs(t, err, ErrInsufficientLiquidity)
	assert.Equal(t, before, bought.Sale)
}

func TestBuyBeyondSupply(t *testing.T) {
	lin := mustCreate(t, linearParams())
	_, err := Buy(lin, lin.TotalSupply+1, math.MaxUint64, noFees, valuation.Identity())
	assert.ErrorIs(t, err, ErrInsufficientLiquidity)

	// the curve could issue more than the cap allows
	p := constantProductParams()
	p.TotalSupply = 1_000
	cp := mustCreate(t, p)
	_, err = Buy(cp, 1_000_000_000, 0, noFees, valuation.Identity())
	assert.ErrorIs(t, err, ErrInsufficientLiquidity)
}

func TestInvalidAmounts(t *testing.T) {
	lin := mustCreate(t, linearParams())
	_, err := Buy(lin, 0, math.MaxUint64, noFees, valuation.Identity())
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = Sell(lin, 0, 0, noFees)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	everything, err := fees.NewSchedule(fees.MaxBps, 0)
	require.NoError(t, err)
	cp := mustCreate(t, constantProductParams())
	_, err = Buy(cp, 100, 0, everything, valuation.Identity())
	assert.ErrorIs(t, err, ErrInvalidAmount, "fee consumed the whole input")

	_, err = Buy(lin, 1, math.MaxUint64, noFees, valuation.Rate{})
	assert.ErrorIs(t, err, valuation.ErrInvalidRate)

	_, err = Buy(lin, 1, math.MaxUint64, fees.Schedule{TotalFeeBps: 10, ProtocolFeeBps: 20}, valuation.Identity())
	assert.ErrorIs(t, err, fees.ErrInvalidSchedule)
}

func TestRoundTripIsLossy(t *testing.T) {
	schedules := []fees.Schedule{noFees, fees.DefaultSchedule(), {TotalFeeBps: 250, ProtocolFeeBps: 100}}

	for _, schedule := range schedules {
		lin := mustCreate(t, linearParams())
		seed, err := Buy(lin, 1_234, math.MaxUint64, schedule, valuation.Identity())
		require.NoError(t, err)

		for _, n := range []uint64{1, 7, 500, 10_000} {
			bought, err := Buy(seed.Sale, n, math.MaxUint64, schedule, valuation.Identity())
			require.NoError(t, err)
			sold, err := Sell(bought.Sale, n, 0, schedule)
			require.NoError(t, err)
			assert.LessOrEqual(t, sold.CounterAmount, bought.CounterAmount, "linear n=%d fees=%+v", n, schedule)
		}
	}

	// constant product rounds down on both legs, so the check runs with fees
	for _, schedule := range schedules[1:] {
		cp := mustCreate(t, constantProductParams())
		seed, err := Buy(cp, 5_000_000_000, 0, schedule, valuation.Identity())
		require.NoError(t, err)

		for _, x := range []uint64{100, 12_345, 1_000_000_000, 20_000_000_000} {
			bought, err := Buy(seed.Sale, x, 0, schedule, valuation.Identity())
			require.NoError(t, err)
			sold, err := Sell(bought.Sale, bought.TokenAmount, 0, schedule)
			require.NoError(t, err)
			assert.LessOrEqual(t, sold.CounterAmount, bought.CounterAmount, "cp x=%d fees=%+v", x, schedule)
		}
	}
}

func TestGraduationFiresExactlyOnce(t *testing.T) {
	p := linearParams()
	p.Curve = curve.NewLinear(1_000, 1)
	p.TotalSupply = 1_000_000
	p.GraduationThreshold = 1_000_000_000
	s := mustCreate(t, p)

	const step = 10_000
	expectedAt := -1
	for i := 0; i < 10; i++ {
		sold := uint64(i+1) * step
		if (1_000+sold)*sold >= p.GraduationThreshold {
			expectedAt = i
			break
		}
	}
	require.Equal(t, 3, expectedAt)

	graduatedAt := -1
	for i := 0; i <= expectedAt; i++ {
		out, err := Execute(s, TradeRequest{Direction: DirectionBuy, Amount: step, Limit: math.MaxUint64, At: int64(100 + i)},
			fees.DefaultSchedule(), valuation.Identity())
		require.NoError(t, err)
		if out.GraduatedThisTrade {
			require.Equal(t, -1, graduatedAt, "graduated twice")
			graduatedAt = i
			assert.GreaterOrEqual(t, out.MarketCap, p.GraduationThreshold)
		} else {
			assert.Less(t, out.MarketCap, p.GraduationThreshold)
		}
		s = out.Sale
	}

	assert.Equal(t, expectedAt, graduatedAt)
	assert.Equal(t, StatusGraduated, s.Status)
	assert.Equal(t, int64(100+expectedAt), s.GraduatedAt)

	_, err := Buy(s, 1, math.MaxUint64, fees.DefaultSchedule(), valuation.Identity())
	assert.ErrorIs(t, err, ErrAlreadyGraduated)
	_, err = Sell(s, 1, 0, fees.DefaultSchedule())
	assert.ErrorIs(t, err, ErrAlreadyGraduated)
	_, err = Execute(s, TradeRequest{Direction: DirectionSell, Amount: 1}, fees.DefaultSchedule(), valuation.Identity())
	assert.ErrorIs(t, err, ErrAlreadyGraduated)
}

func TestSellNeverGraduates(t *testing.T) {
	s := mustCreate(t, linearParams())
	bought, err := Buy(s, 1_000, math.MaxUint64, noFees, valuation.Identity())
	require.NoError(t, err)
	require.False(t, bought.GraduatedThisTrade)

	// a lowered threshold is only ever checked on buys
	trading := bought.Sale
	trading.GraduationThreshold = 1
	out, err := Sell(trading, 1, 0, noFees)
	require.NoError(t, err)
	assert.False(t, out.GraduatedThisTrade)
	assert.True(t, out.Sale.Active())
}
