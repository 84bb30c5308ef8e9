package challenge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"medfund/internal/walletauth/models"
	id "medfund/pkg/domain"
	"medfund/pkg/platform/sentinel"
)

const challengeKeyPrefix = "wac:addr:"

// RedisStore is the production challenge store for distributed deployments.
// Redis gives us the two properties the nonce needs for free: SET replaces
// any prior value (one live challenge per address) and GETDEL is an atomic
// fetch-and-delete (consume at most once, even across instances).
type RedisStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

type redisChallenge struct {
	Nonce     []byte    `json:"nonce"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *RedisStore) Put(ctx context.Context, ch *models.Challenge) error {
	payload, err := json.Marshal(redisChallenge{
		Nonce:     ch.Nonce,
		IssuedAt:  ch.IssuedAt,
		ExpiresAt: ch.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("marshal challenge: %w", err)
	}
	// Key TTL slightly outlives the logical expiry; expiry is still enforced
	// at consumption time, the TTL only bounds storage.
	ttl := time.Until(ch.ExpiresAt) + time.Minute
	if err := s.client.Set(ctx, challengeKeyPrefix+ch.Wallet.String(), payload, ttl).Err(); err != nil {
		return fmt.Errorf("store challenge: %w", err)
	}
	return nil
}

func (s *RedisStore) Take(ctx context.Context, wallet id.WalletAddress) (*models.Challenge, error) {
	raw, err := s.client.GetDel(ctx, challengeKeyPrefix+wallet.String()).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("challenge for %s: %w", wallet, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("take challenge: %w", err)
	}
	var stored redisChallenge
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, fmt.Errorf("unmarshal challenge: %w", err)
	}
	return &models.Challenge{
		Wallet:    wallet,
		Nonce:     stored.Nonce,
		IssuedAt:  stored.IssuedAt,
		ExpiresAt: stored.ExpiresAt,
	}, nil
}
