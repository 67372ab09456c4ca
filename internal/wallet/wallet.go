// Package wallet declares the external player-economy capability the squad
// subsystem charges for creation costs. The real implementation lives in the
// host game server; Memory backs tests and local development.
package wallet

import (
	"context"
	"sync"
)

// Wallet is the external economy interface. Calls are never assumed to
// succeed; callers must check the returned status.
type Wallet interface {
	Balance(ctx context.Context, playerID string) (int64, error)
	Withdraw(ctx context.Context, playerID string, amount int64) (bool, error)
	Deposit(ctx context.Context, playerID string, amount int64) (bool, error)
}

// Memory is an in-memory wallet for tests and local development.
type Memory struct {
	mu       sync.Mutex
	balances map[string]int64
}

var _ Wallet = (*Memory)(nil)

// NewMemory creates an empty in-memory wallet.
func NewMemory() *Memory {
	return &Memory{balances: make(map[string]int64)}
}

// Credit seeds a player balance.
func (w *Memory) Credit(playerID string, amount int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.balances[playerID] += amount
}

func (w *Memory) Balance(_ context.Context, playerID string) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balances[playerID], nil
}

func (w *Memory) Withdraw(_ context.Context, playerID string, amount int64) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if amount < 0 || w.balances[playerID] < amount {
		return false, nil
	}
	w.balances[playerID] -= amount
	return true, nil
}

func (w *Memory) Deposit(_ context.Context, playerID string, amount int64) (bool, error) {
	if amount < 0 {
		return false, nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.balances[playerID] += amount
	return true, nil
}
