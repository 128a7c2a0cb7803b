package cache

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const oauthStateTTL = 10 * time.Minute

// OAuthStateStore hands out single-use state nonces for social login and
// verifies them on callback.
type OAuthStateStore struct {
	client *redis.Client
}

func NewOAuthStateStore(client *redis.Client) *OAuthStateStore {
	return &OAuthStateStore{client: client}
}

func (s *OAuthStateStore) Issue(ctx context.Context, provider string) (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	state := base64.RawURLEncoding.EncodeToString(buf)

	key := fmt.Sprintf("oauth:state:%s:%s", provider, state)
	if err := s.client.Set(ctx, key, "1", oauthStateTTL).Err(); err != nil {
		return "", fmt.Errorf("store state: %w", err)
	}
	return state, nil
}

// Consume validates and deletes the state in one step so it cannot be replayed.
func (s *OAuthStateStore) Consume(ctx context.Context, provider string, state string) (bool, error) {
	if state == "" {
		return false, nil
	}
	key := fmt.Sprintf("oauth:state:%s:%s", provider, state)
	deleted, err := s.client.Del(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("consume state: %w", err)
	}
	return deleted == 1, nil
}
