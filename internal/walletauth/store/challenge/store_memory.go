package challenge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"medfund/internal/walletauth/models"
	id "medfund/pkg/domain"
	"medfund/pkg/platform/sentinel"
)

// Error Contract:
// - Take returns ErrNotFound when no live challenge exists for the address.
// - Put always succeeds, replacing any prior challenge for the address.

// InMemoryStore stores wallet auth challenges in memory for tests/dev.
type InMemoryStore struct {
	mu         sync.Mutex
	challenges map[id.WalletAddress]*models.Challenge
}

// NewInMemory constructs an empty in-memory challenge store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		challenges: make(map[id.WalletAddress]*models.Challenge),
	}
}

// Put stores the challenge, replacing any unconsumed one for the same
// address. One live challenge per address is a store-level invariant.
func (s *InMemoryStore) Put(_ context.Context, ch *models.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.challenges[ch.Wallet] = ch
	return nil
}

// Take atomically removes and returns the live challenge for the address.
// The removal happens regardless of what the caller does with the result,
// which is what makes the nonce single-use even under racing requests.
func (s *InMemoryStore) Take(_ context.Context, wallet id.WalletAddress) (*models.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.challenges[wallet]
	if !ok {
		return nil, fmt.Errorf("challenge for %s: %w", wallet, sentinel.ErrNotFound)
	}
	delete(s.challenges, wallet)
	return ch, nil
}

// DeleteExpired removes challenges past their expiry. Correctness never
// depends on this sweep; it exists for storage hygiene only.
func (s *InMemoryStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for wallet, ch := range s.challenges {
		if ch.ExpiresAt.Before(now) {
			delete(s.challenges, wallet)
			deleted++
		}
	}
	return deleted, nil
}
