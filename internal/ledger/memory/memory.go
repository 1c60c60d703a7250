// internal/ledger/memory/memory.go
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/launchcurve/internal/ledger"
	"github.com/rovshanmuradov/launchcurve/internal/utils/checked"
)

// BaseLedger is an in-process lamport ledger.
type BaseLedger struct {
	mu       sync.Mutex
	balances map[solana.PublicKey]uint64
}

var _ ledger.BaseLedger = (*BaseLedger)(nil)

func NewBaseLedger() *BaseLedger {
	return &BaseLedger{balances: make(map[solana.PublicKey]uint64)}
}

// Fund credits amount to owner out of thin air. Used to seed wallets.
func (l *BaseLedger) Fund(owner solana.PublicKey, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	next, err := checked.Add(l.balances[owner], amount)
	if err != nil {
		return err
	}
	l.balances[owner] = next
	return nil
}

func (l *BaseLedger) Transfer(_ context.Context, from, to solana.PublicKey, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return transfer(l.balances, from, to, amount)
}

func (l *BaseLedger) Balance(_ context.Context, owner solana.PublicKey) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[owner], nil
}

// TokenLedger keeps one balance table per mint.
type TokenLedger struct {
	mu       sync.Mutex
	balances map[solana.PublicKey]map[solana.PublicKey]uint64
}

var _ ledger.TokenLedger = (*TokenLedger)(nil)

func NewTokenLedger() *TokenLedger {
	return &TokenLedger{balances: make(map[solana.PublicKey]map[solana.PublicKey]uint64)}
}

func (l *TokenLedger) table(mint solana.PublicKey) map[solana.PublicKey]uint64 {
	t, ok := l.balances[mint]
	if !ok {
		t = make(map[solana.PublicKey]uint64)
		l.balances[mint] = t
	}
	return t
}

func (l *TokenLedger) MintTo(_ context.Context, mint, to solana.PublicKey, amount uint64) error {
	if to.IsZero() {
		return ledger.ErrZeroAccount
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	t := l.table(mint)
	next, err := checked.Add(t[to], amount)
	if err != nil {
		return err
	}
	t[to] = next
	return nil
}

func (l *TokenLedger) Burn(_ context.Context, mint, from solana.PublicKey, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	t := l.table(mint)
	if t[from] < amount {
		return fmt.Errorf("%w: %s has %d, burn needs %d", ledger.ErrInsufficientBalance, from, t[from], amount)
	}
	t[from] -= amount
	return nil
}

func (l *TokenLedger) Transfer(_ context.Context, mint, from, to solana.PublicKey, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return transfer(l.table(mint), from, to, amount)
}

func (l *TokenLedger) Balance(_ context.Context, mint, owner solana.PublicKey) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[mint][owner], nil
}

func transfer(balances map[solana.PublicKey]uint64, from, to solana.PublicKey, amount uint64) error {
	if from.IsZero() || to.IsZero() {
		return ledger.ErrZeroAccount
	}
	if amount == 0 || from == to {
		return nil
	}
	have := balances[from]
	if have < amount {
		return fmt.Errorf("%w: %s has %d, needs %d", ledger.ErrInsufficientBalance, from, have, amount)
	}
	credited, err := checked.Add(balances[to], amount)
	if err != nil {
		return err
	}
	balances[from] = have - amount
	balances[to] = credited
	return nil
}
