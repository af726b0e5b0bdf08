package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/99minutos/restaurant-directory/internal/core/domain"
)

const defaultFilterTTL = 2 * time.Hour

// FilterStore keeps each session's directory filter in Redis.
// Key format: directory:session:<session_id>:search (string)
//
//	directory:session:<session_id>:roles  (set)
type FilterStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewFilterStore creates a FilterStore wrapping the given Redis client. Keys
// expire ttl after the last write; defaultFilterTTL is used when ttl <= 0.
func NewFilterStore(client *redis.Client, ttl time.Duration) *FilterStore {
	if ttl <= 0 {
		ttl = defaultFilterTTL
	}
	return &FilterStore{client: client, ttl: ttl}
}

// Load returns the stored filter, or an empty one when nothing is stored.
func (s *FilterStore) Load(ctx context.Context, sessionID string) (domain.FilterState, error) {
	var (
		searchCmd *redis.StringCmd
		rolesCmd  *redis.StringSliceCmd
	)
	_, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		searchCmd = p.Get(ctx, s.searchKey(sessionID))
		rolesCmd = p.SMembers(ctx, s.rolesKey(sessionID))
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return domain.FilterState{}, fmt.Errorf("filter load: %w", err)
	}
	// a missing search key surfaces as redis.Nil and may hide a roles error
	if err := rolesCmd.Err(); err != nil {
		return domain.FilterState{}, fmt.Errorf("filter load: %w", err)
	}

	return domain.FilterState{
		Search: searchCmd.Val(),
		Roles:  domain.NormalizeRoleNames(rolesCmd.Val()),
	}, nil
}

// Save overwrites both keys atomically.
func (s *FilterStore) Save(ctx context.Context, sessionID string, state domain.FilterState) error {
	searchKey, rolesKey := s.searchKey(sessionID), s.rolesKey(sessionID)

	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, searchKey, state.Search, s.ttl)
		p.Del(ctx, rolesKey)
		if len(state.Roles) > 0 {
			members := make([]any, 0, len(state.Roles))
			for _, r := range state.Roles {
				members = append(members, r)
			}
			p.SAdd(ctx, rolesKey, members...)
			p.Expire(ctx, rolesKey, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("filter save: %w", err)
	}
	return nil
}

// Clear removes the stored filter. Clearing a session without one is a no-op.
func (s *FilterStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.searchKey(sessionID), s.rolesKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("filter clear: %w", err)
	}
	return nil
}

func (s *FilterStore) searchKey(sessionID string) string {
	return fmt.Sprintf("directory:session:%s:search", sessionID)
}

func (s *FilterStore) rolesKey(sessionID string) string {
	return fmt.Sprintf("directory:session:%s:roles", sessionID)
}
