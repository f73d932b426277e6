package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// RedisDraftStore keeps each draft under wizard:draft:{user}:{form} with a TTL,
// plus a per-user set of form ids for listing
type RedisDraftStore struct {
	client redis.Cmdable
}

// NewRedisDraftStore creates a store on client
func NewRedisDraftStore(client redis.Cmdable) *RedisDraftStore {
	return &RedisDraftStore{client: client}
}

func draftRedisKey(userID, formID uuid.UUID) string {
	return fmt.Sprintf("wizard:draft:%s:%s", userID, formID)
}

func userDraftsKey(userID uuid.UUID) string {
	return fmt.Sprintf("wizard:drafts:%s", userID)
}

func (s *RedisDraftStore) Load(ctx context.Context, userID, formID uuid.UUID) (*Draft, error) {
	raw, err := s.client.Get(ctx, draftRedisKey(userID, formID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrDraftNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}
	var d Draft
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("failed to decode draft: %w", err)
	}
	return &d, nil
}

func (s *RedisDraftStore) Save(ctx context.Context, draft *Draft, ttl time.Duration) error {
	draft.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(draft)
	if err != nil {
		return err
	}

	userID, formID := draft.Snapshot.UserID, draft.Snapshot.FormID
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, draftRedisKey(userID, formID), data, ttl)
		pipe.SAdd(ctx, userDraftsKey(userID), formID.String())
		pipe.Expire(ctx, userDraftsKey(userID), ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}

func (s *RedisDraftStore) Delete(ctx context.Context, userID, formID uuid.UUID) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, draftRedisKey(userID, formID))
		pipe.SRem(ctx, userDraftsKey(userID), formID.String())
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}

// FormsWithDrafts reads the user's set and drops members whose draft key has expired
func (s *RedisDraftStore) FormsWithDrafts(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	members, err := s.client.SMembers(ctx, userDraftsKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}

	var out []uuid.UUID
	for _, m := range members {
		formID, err := uuid.Parse(m)
		if err != nil {
			continue
		}
		n, err := s.client.Exists(ctx, draftRedisKey(userID, formID)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to check draft: %w", err)
		}
		if n == 0 {
			if err := s.client.SRem(ctx, userDraftsKey(userID), m).Err(); err != nil {
				return nil, fmt.Errorf("failed to prune expired draft: %w", err)
			}
			continue
		}
		out = append(out, formID)
	}
	return out, nil
}
