package notify

import (
	"context" // Context for blocking calls
	"strconv" // String conversion
	"time"    // Time handling

	"group_fund/internal/utils" // Cache helpers

	"github.com/sirupsen/logrus" // Structured logging
)

// MembershipResolver lists the users of a group. It is used for fan-out
// only, never for authorization.
type MembershipResolver interface {
	ListMembers(ctx context.Context, groupID uint) ([]uint, error)
}

// CachedMembers serves member lists from Redis and falls back to the store.
// Cache errors are logged and treated as misses.
type CachedMembers struct {
	store MembershipResolver
	cache *utils.Cache
	ttl   time.Duration
	log   logrus.FieldLogger
}

func NewCachedMembers(store MembershipResolver, cache *utils.Cache, ttl time.Duration, log logrus.FieldLogger) *CachedMembers {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &CachedMembers{store: store, cache: cache, ttl: ttl, log: log}
}

func membersKey(groupID uint) string {
	return "group_members:" + strconv.FormatUint(uint64(groupID), 10)
}

func (m *CachedMembers) ListMembers(ctx context.Context, groupID uint) ([]uint, error) {
	var ids []uint
	hit, err := m.cache.Get(ctx, membersKey(groupID), &ids)
	if err != nil {
		m.log.WithFields(logrus.Fields{"group_id": groupID, "error": err.Error()}).Warn("Member cache read failed")
	}
	if hit && err == nil {
		return ids, nil
	}
	ids, err = m.store.ListMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if err := m.cache.Set(ctx, membersKey(groupID), ids, m.ttl); err != nil {
		m.log.WithFields(logrus.Fields{"group_id": groupID, "error": err.Error()}).Warn("Member cache write failed")
	}
	return ids, nil
}

// Invalidate drops the cached member list after membership changes.
func (m *CachedMembers) Invalidate(ctx context.Context, groupID uint) error {
	return m.cache.Delete(ctx, membersKey(groupID))
}
