// internal/ledger/ledger.go
package ledger

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrZeroAccount         = errors.New("zero account")
)

// BaseLedger moves base-coin units (lamports) between accounts.
type BaseLedger interface {
	Transfer(ctx context.Context, from, to solana.PublicKey, amount uint64) error
	Balance(ctx context.Context, owner solana.PublicKey) (uint64, error)
}

// TokenLedger holds balances of launched tokens, keyed by mint and owner.
type TokenLedger interface {
	MintTo(ctx context.Context, mint, to solana.PublicKey, amount uint64) error
	Burn(ctx context.Context, mint, from solana.PublicKey, amount uint64) error
	Transfer(ctx context.Context, mint, from, to solana.PublicKey, amount uint64) error
	Balance(ctx context.Context, mint, owner solana.PublicKey) (uint64, error)
}

// PoolMigration moves the final reserves of a graduated sale from its vault
// into an external pool.
type PoolMigration struct {
	Mint   solana.PublicKey
	Vault  solana.PublicKey
	Base   uint64
	Tokens uint64
}

// Migrator seeds the external pool. Migrate must be safe to call again for
// a mint it already migrated and return the same pool.
type Migrator interface {
	Migrate(ctx context.Context, m PoolMigration) (pool solana.PublicKey, err error)
}
