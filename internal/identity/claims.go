package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/meridian-pos/meridian-access/internal/access"
	"github.com/meridian-pos/meridian-access/internal/shared"
)

const claimsKeyPrefix = "claims:"

// RedisClaimsStore holds the custom claim document the identity provider
// embeds into tokens at issuance. Writes are full replacements; claims carry
// no TTL and persist until the next write.
type RedisClaimsStore struct {
	client *redis.Client
}

// NewClaimsStore constructs a RedisClaimsStore.
func NewClaimsStore(client *redis.Client) *RedisClaimsStore {
	return &RedisClaimsStore{client: client}
}

// SetClaims replaces the stored claim set for uid.
func (s *RedisClaimsStore) SetClaims(ctx context.Context, uid string, claims access.ClaimSet) error {
	payload, err := json.Marshal(claims)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, claimsKey(uid), payload, 0).Err(); err != nil {
		return fmt.Errorf("set claims for %s: %w", uid, err)
	}
	return nil
}

// GetClaims fetches the stored claim set for uid, or shared.ErrNotFound.
func (s *RedisClaimsStore) GetClaims(ctx context.Context, uid string) (access.ClaimSet, error) {
	payload, err := s.client.Get(ctx, claimsKey(uid)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return access.ClaimSet{}, shared.ErrNotFound
		}
		return access.ClaimSet{}, fmt.Errorf("get claims for %s: %w", uid, err)
	}
	var claims access.ClaimSet
	if err := json.Unmarshal(payload, &claims); err != nil {
		return access.ClaimSet{}, err
	}
	return claims, nil
}

func claimsKey(uid string) string {
	return claimsKeyPrefix + uid
}

var _ access.ClaimsStore = (*RedisClaimsStore)(nil)
