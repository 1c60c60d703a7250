// internal/storage/storage.go
package storage

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/launchcurve/internal/sale"
)

var (
	// ErrNotFound is returned when no sale exists for a mint.
	ErrNotFound = errors.New("sale not found")

	// ErrDuplicateKey is returned when a sale already exists for a mint.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrCorruptAccount is returned when stored bytes do not decode as a sale.
	ErrCorruptAccount = errors.New("corrupt sale account")
)

// SaleStore persists sale accounts keyed by mint. Implementations do not
// serialize concurrent writers; the caller holds the per-sale lock.
type SaleStore interface {
	// Insert stores a new sale. Returns ErrDuplicateKey if the mint exists.
	Insert(ctx context.Context, s sale.Sale) error

	// Get loads the sale for mint. Returns ErrNotFound if absent.
	Get(ctx context.Context, mint solana.PublicKey) (sale.Sale, error)

	// Update overwrites an existing sale. Returns ErrNotFound if absent.
	Update(ctx context.Context, s sale.Sale) error

	// List returns all sales ordered by creation time, then mint.
	List(ctx context.Context) ([]sale.Sale, error)
}
