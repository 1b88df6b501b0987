// Package metadata implements the flat KV Metadata Store described in
// spec §6: cross-group indices the Router maintains outside any single
// Group Actor's transaction, so "groups I own or belong to" and
// "bookmarked groups" can be answered without scanning every actor.
package metadata

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dilbagh/theunfairwheel/internal/logger"
)

// GroupRecord mirrors the group:{id} JSON value.
type GroupRecord struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	CreatedAt   time.Time `json:"createdAt"`
	OwnerUserID string    `json:"ownerUserId"`
	OwnerEmail  string    `json:"ownerEmail"`
}

// Store is a thin wrapper over a Redis client implementing the exact key
// layout from spec §6. Methods return their errors to the caller. The
// Router treats index writes that follow a Group Actor mutation as
// best-effort (it logs the failure and still answers with the actor's
// result); the bookmark endpoints, whose whole result lives here, answer
// a failure with a 500.
type Store struct {
	rdb    *redis.Client
	log    logger.Logger
	prefix string
}

func New(rdb *redis.Client, log logger.Logger, prefix string) *Store {
	return &Store{rdb: rdb, log: log, prefix: prefix}
}

func (s *Store) key(parts ...string) string {
	return s.prefix + strings.Join(parts, ":")
}

// PutGroup writes group:{id}.
func (s *Store) PutGroup(ctx context.Context, rec GroupRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.key("group", rec.ID), b, 0).Err()
}

// GetGroup reads group:{id}; ok is false on miss.
func (s *Store) GetGroup(ctx context.Context, groupID string) (GroupRecord, bool, error) {
	var rec GroupRecord
	b, err := s.rdb.Get(ctx, s.key("group", groupID)).Bytes()
	if err == redis.Nil {
		return rec, false, nil
	}
	if err != nil {
		return rec, false, err
	}
	if err := json.Unmarshal(b, &rec); err != nil {
		return rec, false, err
	}
	return rec, true, nil
}

// MarkOwner writes owner-group:{userId}:{id} on create.
func (s *Store) MarkOwner(ctx context.Context, userID, groupID string) error {
	return s.rdb.Set(ctx, s.key("owner-group", userID, groupID), "1", 0).Err()
}

// OwnedGroupIDs scans owner-group:{userId}:* and returns the matched group ids.
func (s *Store) OwnedGroupIDs(ctx context.Context, userID string) ([]string, error) {
	return s.scanSuffixes(ctx, s.key("owner-group", userID, ""))
}

// SetParticipantIndex replaces participant-index:{groupId} and diffs the
// previous vs. new email set, writing/deleting participant-group:{email}:
// {groupId} keys accordingly, per spec §4.2's synchronization rule.
func (s *Store) SetParticipantIndex(ctx context.Context, groupID string, emails []string) error {
	normalized := normalizeEmails(emails)

	prev, err := s.getParticipantIndex(ctx, groupID)
	if err != nil {
		return err
	}

	prevSet := toSet(prev)
	nextSet := toSet(normalized)

	for email := range prevSet {
		if !nextSet[email] {
			if err := s.rdb.Del(ctx, s.key("participant-group", email, groupID)).Err(); err != nil {
				return err
			}
		}
	}
	for email := range nextSet {
		if !prevSet[email] {
			if err := s.rdb.Set(ctx, s.key("participant-group", email, groupID), "1", 0).Err(); err != nil {
				return err
			}
		}
	}

	b, err := json.Marshal(normalized)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.key("participant-index", groupID), b, 0).Err()
}

func (s *Store) getParticipantIndex(ctx context.Context, groupID string) ([]string, error) {
	b, err := s.rdb.Get(ctx, s.key("participant-index", groupID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var emails []string
	if err := json.Unmarshal(b, &emails); err != nil {
		return nil, err
	}
	return emails, nil
}

// ParticipantGroupIDs returns groups where email matches a participant,
// via the participant-group:{email}:* index.
func (s *Store) ParticipantGroupIDs(ctx context.Context, email string) ([]string, error) {
	return s.scanSuffixes(ctx, s.key("participant-group", normalizeEmail(email), ""))
}

// Bookmarks reads bookmarks:{userId}, defaulting to an empty slice.
func (s *Store) Bookmarks(ctx context.Context, userID string) ([]string, error) {
	b, err := s.rdb.Get(ctx, s.key("bookmarks", userID)).Bytes()
	if err == redis.Nil {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal(b, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// SetBookmarks writes bookmarks:{userId}, deduplicated and sorted, per
// spec §4.2.
func (s *Store) SetBookmarks(ctx context.Context, userID string, groupIDs []string) ([]string, error) {
	set := map[string]bool{}
	var normalized []string
	for _, id := range groupIDs {
		if id == "" || set[id] {
			continue
		}
		set[id] = true
		normalized = append(normalized, id)
	}
	sort.Strings(normalized)
	if normalized == nil {
		normalized = []string{}
	}
	b, err := json.Marshal(normalized)
	if err != nil {
		return nil, err
	}
	if err := s.rdb.Set(ctx, s.key("bookmarks", userID), b, 0).Err(); err != nil {
		return nil, err
	}
	return normalized, nil
}

// scanSuffixes finds keys under prefix+"*" and returns their trailing
// segment (the group id), using SCAN rather than KEYS so it stays safe
// against a large keyspace.
func (s *Store) scanSuffixes(ctx context.Context, prefix string) ([]string, error) {
	var out []string
	iter := s.rdb.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		idx := strings.LastIndex(key, ":")
		if idx < 0 || idx+1 >= len(key) {
			continue
		}
		out = append(out, key[idx+1:])
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

func normalizeEmails(emails []string) []string {
	set := map[string]bool{}
	var out []string
	for _, e := range emails {
		n := normalizeEmail(e)
		if n == "" || set[n] {
			continue
		}
		set[n] = true
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func toSet(ss []string) map[string]bool {
	m := make(map[string]bool, len(ss))
	for _, s := range ss {
		m[s] = true
	}
	return m
}
