package valuation

import (
	"context"
	"sync"
)

// StaticSource serves a fixed rate that can be swapped at runtime.
type StaticSource struct {
	mu   sync.RWMutex
	rate Rate
}

func NewStaticSource(r Rate) *StaticSource {
	return &StaticSource{rate: r}
}

func (s *StaticSource) Rate(context.Context) (Rate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.rate.Validate(); err != nil {
		return Rate{}, err
	}
	return s.rate, nil
}

func (s *StaticSource) Set(r Rate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rate = r
}
