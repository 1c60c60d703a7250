// internal/ledger/memory/migrator.go
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/launchcurve/internal/ledger"
)

// ErrPoolUnavailable is returned by injected failures.
var ErrPoolUnavailable = errors.New("pool unavailable")

// Migrator creates one pool account per mint, derived under poolProgram,
// and moves the vault reserves into it.
type Migrator struct {
	mu          sync.Mutex
	base        *BaseLedger
	tokens      *TokenLedger
	poolProgram solana.PublicKey
	pools       map[solana.PublicKey]solana.PublicKey
	failures    int
	calls       int
}

var _ ledger.Migrator = (*Migrator)(nil)

func NewMigrator(base *BaseLedger, tokens *TokenLedger, poolProgram solana.PublicKey) *Migrator {
	return &Migrator{
		base:        base,
		tokens:      tokens,
		poolProgram: poolProgram,
		pools:       make(map[solana.PublicKey]solana.PublicKey),
	}
}

// FailNext makes the next n calls to Migrate fail with ErrPoolUnavailable.
func (m *Migrator) FailNext(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = n
}

// Calls returns how many times Migrate was invoked.
func (m *Migrator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Pool returns the pool of a migrated mint.
func (m *Migrator) Pool(mint solana.PublicKey) (solana.PublicKey, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pool, ok := m.pools[mint]
	return pool, ok
}

func (m *Migrator) Migrate(ctx context.Context, req ledger.PoolMigration) (solana.PublicKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.failures > 0 {
		m.failures--
		return solana.PublicKey{}, ErrPoolUnavailable
	}
	if pool, ok := m.pools[req.Mint]; ok {
		return pool, nil
	}

	pool, _, err := solana.FindProgramAddress([][]byte{[]byte("pool"), req.Mint[:]}, m.poolProgram)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive pool address: %w", err)
	}

	// both legs are checked up front so a short vault moves nothing
	haveBase, _ := m.base.Balance(ctx, req.Vault)
	haveTokens, _ := m.tokens.Balance(ctx, req.Mint, req.Vault)
	if haveBase < req.Base || haveTokens < req.Tokens {
		return solana.PublicKey{}, fmt.Errorf("%w: vault holds %d base / %d tokens, migration needs %d / %d",
			ledger.ErrInsufficientBalance, haveBase, haveTokens, req.Base, req.Tokens)
	}
	if err := m.base.Transfer(ctx, req.Vault, pool, req.Base); err != nil {
		return solana.PublicKey{}, err
	}
	if err := m.tokens.Transfer(ctx, req.Mint, req.Vault, pool, req.Tokens); err != nil {
		// put the base back, the vault was checked above so this only fails on overflow
		_ = m.base.Transfer(ctx, pool, req.Vault, req.Base)
		return solana.PublicKey{}, err
	}

	m.pools[req.Mint] = pool
	return pool, nil
}
