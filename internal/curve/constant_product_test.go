package curve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstantProductBuyScenario(t *testing.T) {
	c := ConstantProduct{VirtualBaseReserve: 30, VirtualTokenReserve: 1_000_000_000}

	out, err := c.TokensOut(1)
	require.NoError(t, err)

	// 1e9 - floor(3e10/31) = 1e9 - 967_741_935
	assert.Equal(t, uint64(1_000_000_000-30_000_000_000/31), out)
	assert.Equal(t, uint64(32_258_065), out)
}

func TestConstantProductProductNeverIncreases(t *testing.T) {
	c := NewConstantProduct(30_000_000_000, 1_073_000_000_000_000)

	buys := []uint64{1, 999, 1_000_000_000, 123_456_789, 7_000_000_000}
	for _, x := range buys {
		before, err := c.Product()
		require.NoError(t, err)

		fill, err := c.BuyWithBase(x)
		require.NoError(t, err)
		after, err := fill.Next.Product()
		require.NoError(t, err)

		assert.LessOrEqual(t, after.Cmp(before), 0, "buy of %d increased k", x)
		c = fill.Next
	}

	// sell back in uneven chunks
	for c.RealTokenReserve > 0 {
		n := c.RealTokenReserve/3 + 1
		if n > c.RealTokenReserve {
			n = c.RealTokenReserve
		}
		before, err := c.Product()
		require.NoError(t, err)

		fill, err := c.Sell(n)
		if err != nil {
			// the final unit can round one base unit beyond the real reserve
			require.ErrorIs(t, err, ErrInsufficientLiquidity)
			break
		}
		after, err := fill.Next.Product()
		require.NoError(t, err)

		assert.LessOrEqual(t, after.Cmp(before), 0, "sell of %d increased k", n)
		c = fill.Next
	}
}

func TestConstantProductSellBounds(t *testing.T) {
	c := NewConstantProduct(30_000_000_000, 1_073_000_000_000_000)

	_, err := c.Sell(1)
	assert.ErrorIs(t, err, ErrInsufficientLiquidity, "nothing issued yet")

	fill, err := c.BuyWithBase(1_000_000_000)
	require.NoError(t, err)
	c = fill.Next

	_, err = c.Sell(c.RealTokenReserve + 1)
	assert.ErrorIs(t, err, ErrInsufficientLiquidity)

	_, err = c.Sell(0)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	half, err := c.Sell(c.RealTokenReserve / 2)
	require.NoError(t, err)
	assert.Less(t, half.Base, uint64(1_000_000_000))
	assert.Equal(t, c.RealBaseReserve-half.Base, half.Next.RealBaseReserve)
}

func TestConstantProductExhaustedTokenSide(t *testing.T) {
	c := ConstantProduct{VirtualBaseReserve: 10, VirtualTokenReserve: 5, RealTokenReserve: 5}

	_, err := c.TokensOut(1)
	assert.ErrorIs(t, err, ErrInsufficientLiquidity)

	p, err := c.SpotPrice()
	require.NoError(t, err)
	assert.Zero(t, p)
}

func TestConstantProductSpotPrice(t *testing.T) {
	c := ConstantProduct{VirtualBaseReserve: 1_000, VirtualTokenReserve: 30, RealBaseReserve: 50, RealTokenReserve: 10}

	p, err := c.SpotPrice()
	require.NoError(t, err)
	assert.Equal(t, uint64(1_050/20), p)
}
