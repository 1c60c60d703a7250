package launchpad

import (
	"go.uber.org/atomic"
)

// Stats is a snapshot of platform counters.
type Stats struct {
	TokensCreated uint64
	Trades        uint64
	Volume        uint64 // base units, fees included
	Graduations   uint64
	Migrations    uint64
	ProtocolFees  uint64
}

type counters struct {
	tokensCreated *atomic.Uint64
	trades        *atomic.Uint64
	volume        *atomic.Uint64
	graduations   *atomic.Uint64
	migrations    *atomic.Uint64
	protocolFees  *atomic.Uint64
}

func newCounters() *counters {
	return &counters{
		tokensCreated: atomic.NewUint64(0),
		trades:        atomic.NewUint64(0),
		volume:        atomic.NewUint64(0),
		graduations:   atomic.NewUint64(0),
		migrations:    atomic.NewUint64(0),
		protocolFees:  atomic.NewUint64(0),
	}
}

// Stats returns the counters accumulated since the service started.
func (s *Service) Stats() Stats {
	return Stats{
		TokensCreated: s.stats.tokensCreated.Load(),
		Trades:        s.stats.trades.Load(),
		Volume:        s.stats.volume.Load(),
		Graduations:   s.stats.graduations.Load(),
		Migrations:    s.stats.migrations.Load(),
		ProtocolFees:  s.stats.protocolFees.Load(),
	}
}
