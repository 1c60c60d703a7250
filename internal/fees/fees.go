// internal/fees/fees.go
package fees

import (
	"errors"
	"fmt"

	"github.com/rovshanmuradov/launchcurve/internal/utils/checked"
)

// MaxBps is 100% in basis points.
const MaxBps = 10_000

const (
	DefaultTotalFeeBps    = 100 // 1%
	DefaultProtocolFeeBps = 50  // half of the total goes to the treasury
)

var ErrInvalidSchedule = errors.New("invalid fee schedule")

// Schedule is the platform fee configuration. It is set once and passed
// explicitly into every trade.
type Schedule struct {
	TotalFeeBps    uint16
	ProtocolFeeBps uint16
}

// NewSchedule validates protocol <= total <= MaxBps.
func NewSchedule(totalBps, protocolBps uint16) (Schedule, error) {
	s := Schedule{TotalFeeBps: totalBps, ProtocolFeeBps: protocolBps}
	if err := s.Validate(); err != nil {
		return Schedule{}, err
	}
	return s, nil
}

// DefaultSchedule is 1% total split evenly between protocol and liquidity.
func DefaultSchedule() Schedule {
	return Schedule{TotalFeeBps: DefaultTotalFeeBps, ProtocolFeeBps: DefaultProtocolFeeBps}
}

func (s Schedule) Validate() error {
	if s.TotalFeeBps > MaxBps {
		return fmt.Errorf("%w: total %d bps exceeds %d", ErrInvalidSchedule, s.TotalFeeBps, MaxBps)
	}
	if s.ProtocolFeeBps > s.TotalFeeBps {
		return fmt.Errorf("%w: protocol %d bps exceeds total %d", ErrInvalidSchedule, s.ProtocolFeeBps, s.TotalFeeBps)
	}
	return nil
}

// Split is the fee taken from one trade. Protocol + Liquidity == Total.
type Split struct {
	Total     uint64
	Protocol  uint64
	Liquidity uint64
}

// Split decomposes the fee on a gross value v:
//
//	total     = floor(v * total_bps / 10000)
//	protocol  = floor(total * protocol_bps / total_bps)
//	liquidity = total - protocol
func (s Schedule) Split(v uint64) (Split, error) {
	if err := s.Validate(); err != nil {
		return Split{}, err
	}
	if s.TotalFeeBps == 0 {
		return Split{}, nil
	}

	total, err := checked.MulDiv(v, uint64(s.TotalFeeBps), MaxBps)
	if err != nil {
		return Split{}, err
	}
	protocol, err := checked.MulDiv(total, uint64(s.ProtocolFeeBps), uint64(s.TotalFeeBps))
	if err != nil {
		return Split{}, err
	}

	return Split{
		Total:     total,
		Protocol:  protocol,
		Liquidity: total - protocol,
	}, nil
}

// Net returns v minus the total fee.
func (f Split) Net(v uint64) (uint64, error) {
	return checked.Sub(v, f.Total)
}

// Gross returns v plus the total fee.
func (f Split) Gross(v uint64) (uint64, error) {
	return checked.Add(v, f.Total)
}
