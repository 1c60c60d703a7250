package fees

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultScheduleSplit(t *testing.T) {
	split, err := DefaultSchedule().Split(1_000_000_000)
	require.NoError(t, err)

	assert.Equal(t, uint64(10_000_000), split.Total)
	assert.Equal(t, uint64(5_000_000), split.Protocol)
	assert.Equal(t, uint64(5_000_000), split.Liquidity)

	net, err := split.Net(1_000_000_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(990_000_000), net)
}

func TestSplitSumsExactly(t *testing.T) {
	values := []uint64{0, 1, 99, 100, 101, 12_345, 999_999_937, 1 << 40, math.MaxUint64}
	bps := []uint16{0, 1, 3, 33, 50, 99, 100, 250, 3_333, 9_999, 10_000}

	for _, v := range values {
		for _, total := range bps {
			for _, protocol := range bps {
				if protocol > total {
					continue
				}
				s, err := NewSchedule(total, protocol)
				require.NoError(t, err)

				split, err := s.Split(v)
				require.NoError(t, err)
				if !assert.Equal(t, split.Total, split.Protocol+split.Liquidity,
					"v=%d total=%d protocol=%d", v, total, protocol) {
					return
				}
				assert.LessOrEqual(t, split.Total, v)
			}
		}
	}
}

func TestSplitRounding(t *testing.T) {
	s, err := NewSchedule(100, 33)
	require.NoError(t, err)

	// total = floor(1234*100/10000) = 12, protocol = floor(12*33/100) = 3
	split, err := s.Split(1_234)
	require.NoError(t, err)
	assert.Equal(t, Split{Total: 12, Protocol: 3, Liquidity: 9}, split)

	// below one unit of fee nothing is charged
	split, err = s.Split(99)
	require.NoError(t, err)
	assert.Zero(t, split.Total)
}

func TestScheduleValidation(t *testing.T) {
	_, err := NewSchedule(10_001, 0)
	assert.ErrorIs(t, err, ErrInvalidSchedule)

	_, err = NewSchedule(100, 101)
	assert.ErrorIs(t, err, ErrInvalidSchedule)

	_, err = Schedule{TotalFeeBps: 50, ProtocolFeeBps: 60}.Split(1_000)
	assert.ErrorIs(t, err, ErrInvalidSchedule)

	s, err := NewSchedule(0, 0)
	require.NoError(t, err)
	split, err := s.Split(math.MaxUint64)
	require.NoError(t, err)
	assert.Zero(t, split)
}
