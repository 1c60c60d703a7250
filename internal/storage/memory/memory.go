// internal/storage/memory/memory.go
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/launchcurve/internal/sale"
	"github.com/rovshanmuradov/launchcurve/internal/storage"
)

// SaleStore keeps encoded sale accounts in memory. Values go through the
// account codec so stored and loaded sales behave as with a real backend.
type SaleStore struct {
	mu       sync.RWMutex
	accounts map[solana.PublicKey][]byte
}

// NewSaleStore creates an empty store.
func NewSaleStore() *SaleStore {
	return &SaleStore{accounts: make(map[solana.PublicKey][]byte)}
}

var _ storage.SaleStore = (*SaleStore)(nil)

func (m *SaleStore) Insert(_ context.Context, s sale.Sale) error {
	data, err := storage.EncodeSale(s)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[s.Mint]; ok {
		return storage.ErrDuplicateKey
	}
	m.accounts[s.Mint] = data
	return nil
}

func (m *SaleStore) Get(_ context.Context, mint solana.PublicKey) (sale.Sale, error) {
	m.mu.RLock()
	data, ok := m.accounts[mint]
	m.mu.RUnlock()
	if !ok {
		return sale.Sale{}, storage.ErrNotFound
	}
	return storage.DecodeSale(data)
}

func (m *SaleStore) Update(_ context.Context, s sale.Sale) error {
	data, err := storage.EncodeSale(s)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[s.Mint]; !ok {
		return storage.ErrNotFound
	}
	m.accounts[s.Mint] = data
	return nil
}

func (m *SaleStore) List(_ context.Context) ([]sale.Sale, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sales := make([]sale.Sale, 0, len(m.accounts))
	for _, data := range m.accounts {
		s, err := storage.DecodeSale(data)
		if err != nil {
			return nil, err
		}
		sales = append(sales, s)
	}

	sort.Slice(sales, func(i, j int) bool {
		if sales[i].CreatedAt != sales[j].CreatedAt {
			return sales[i].CreatedAt < sales[j].CreatedAt
		}
		return sales[i].Mint.String() < sales[j].Mint.String()
	})
	return sales, nil
}

// Len returns the number of stored sales.
func (m *SaleStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.accounts)
}
