package store

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/chatvault/chatvault/internal/model"
	"github.com/chatvault/chatvault/pkg/logger"
	"github.com/chatvault/chatvault/pkg/metrics"
)

const (
	conversationsKey = "conversations"
	settingsKey      = "settings"

	// DefaultCapacityBytes mirrors the quota browser-local storage gives
	// an extension, the environment the archive format comes from.
	DefaultCapacityBytes = 5 * 1024 * 1024

	// cleanupThreshold is the usage fraction that triggers eviction.
	cleanupThreshold = 0.9
	// evictionFraction is the share of non-favorites removed per cleanup.
	evictionFraction = 0.1
)

// Store manages conversations and settings over a KV backend.
//
// The store holds no cached state: every read goes to the backend, and
// every composite write re-reads the full list, mutates a copy, and
// writes the whole list back. Concurrent writers racing on the same
// backend can lose updates (last-write-wins over the whole collection);
// the intended usage is a single interactive user, so that trade is
// accepted over locking across I/O suspension points.
type Store struct {
	kv       KV
	log      *logger.Logger
	capacity int64
}

// New creates a store over the given backend. capacityBytes bounds the
// serialized conversation list; pass 0 for the default ceiling.
func New(kv KV, capacityBytes int64, log *logger.Logger) *Store {
	if capacityBytes <= 0 {
		capacityBytes = DefaultCapacityBytes
	}
	return &Store{kv: kv, log: log, capacity: capacityBytes}
}

// GetAllConversations returns every stored conversation. A backend
// failure degrades to an empty list: listing the archive must never
// crash a caller that can simply show nothing.
func (s *Store) GetAllConversations(ctx context.Context) []model.Conversation {
	list, err := s.readConversations(ctx)
	if err != nil {
		s.log.Error("failed to read conversations, returning empty list", zap.Error(err))
		return []model.Conversation{}
	}
	return list
}

// GetConversation returns the conversation with the given id, or
// ErrNotFound.
func (s *Store) GetConversation(ctx context.Context, id string) (model.Conversation, error) {
	list, err := s.readConversations(ctx)
	if err != nil {
		return model.Conversation{}, err
	}
	for _, c := range list {
		if c.ID == id {
			return c, nil
		}
	}
	return model.Conversation{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// SaveConversation stores a new conversation. The record gets a freshly
// generated id, missing optional fields are defaulted, and the capacity
// check runs over the updated list before the persisting write, so
// eviction is atomic with the save that triggered it. Backend write
// failures propagate.
func (s *Store) SaveConversation(ctx context.Context, data model.Conversation) (model.Conversation, error) {
	defer s.timeOp("save")()

	list, err := s.readConversations(ctx)
	if err != nil {
		return model.Conversation{}, fmt.Errorf("save conversation: %w", err)
	}

	conv := data
	conv.ID = newID()
	if conv.Timestamp == 0 {
		conv.Timestamp = time.Now().UnixMilli()
	}
	if conv.Title == "" {
		conv.Title = "Untitled"
	}
	if conv.Provider == "" {
		conv.Provider = "unknown"
	}
	if conv.Tags == nil {
		conv.Tags = []string{}
	}
	if len(conv.Messages) > 0 {
		conv.MessageCount = len(conv.Messages)
	}

	list = append(list, conv)
	list = s.checkAndCleanupStorage(list)

	if err := s.writeConversations(ctx, list); err != nil {
		return model.Conversation{}, fmt.Errorf("save conversation: %w", err)
	}

	s.log.Info("conversation saved",
		zap.String("id", conv.ID),
		zap.String("provider", conv.Provider),
		zap.Int("messages", conv.MessageCount),
	)
	return conv, nil
}

// UpdateConversation shallow-merges updates over the stored record,
// stamps modifiedAt, and persists. The id never changes. Returns
// ErrNotFound when the id is absent, leaving the collection untouched.
func (s *Store) UpdateConversation(ctx context.Context, id string, updates model.ConversationUpdate) (model.Conversation, error) {
	defer s.timeOp("update")()

	list, err := s.readConversations(ctx)
	if err != nil {
		return model.Conversation{}, fmt.Errorf("update conversation: %w", err)
	}

	idx := -1
	for i := range list {
		if list[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return model.Conversation{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	updates.Apply(&list[idx])
	list[idx].ID = id
	list[idx].ModifiedAt = time.Now().UnixMilli()

	if err := s.writeConversations(ctx, list); err != nil {
		return model.Conversation{}, fmt.Errorf("update conversation: %w", err)
	}
	return list[idx], nil
}

// DeleteConversation removes one conversation. Deleting an absent id is
// not an error.
func (s *Store) DeleteConversation(ctx context.Context, id string) error {
	return s.DeleteConversations(ctx, []string{id})
}

// DeleteConversations removes every conversation whose id is in ids.
// Idempotent: absent ids are ignored.
func (s *Store) DeleteConversations(ctx context.Context, ids []string) error {
	defer s.timeOp("delete")()

	list, err := s.readConversations(ctx)
	if err != nil {
		return fmt.Errorf("delete conversations: %w", err)
	}

	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	kept := list[:0]
	for _, c := range list {
		if _, gone := drop[c.ID]; !gone {
			kept = append(kept, c)
		}
	}

	if err := s.writeConversations(ctx, kept); err != nil {
		return fmt.Errorf("delete conversations: %w", err)
	}
	return nil
}

// FindDuplicate returns the stored conversation representing the given
// platform conversation id, or nil. An empty id never matches: records
// without a platform id are not duplicates of each other.
func (s *Store) FindDuplicate(ctx context.Context, conversationID string) (*model.Conversation, error) {
	if conversationID == "" {
		return nil, nil
	}
	list, err := s.readConversations(ctx)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].ConversationID == conversationID {
			c := list[i]
			return &c, nil
		}
	}
	return nil, nil
}

// SearchConversations returns conversations matching the query and
// filters, most recent first regardless of stored order. The query is a
// case-insensitive substring match ORed across title, content, notes,
// and tags; filters are ANDed. Backend failure degrades to empty.
func (s *Store) SearchConversations(ctx context.Context, query string, filters model.SearchFilters) []model.Conversation {
	list := s.GetAllConversations(ctx)

	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]model.Conversation, 0, len(list))
	for _, c := range list {
		if q != "" && !matchesQuery(c, q) {
			continue
		}
		if !matchesFilters(c, filters) {
			continue
		}
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp > out[j].Timestamp
	})
	return out
}

func matchesQuery(c model.Conversation, q string) bool {
	if strings.Contains(strings.ToLower(c.Title), q) ||
		strings.Contains(strings.ToLower(c.Content), q) ||
		strings.Contains(strings.ToLower(c.Notes), q) {
		return true
	}
	for _, t := range c.Tags {
		if strings.Contains(strings.ToLower(t), q) {
			return true
		}
	}
	return false
}

func matchesFilters(c model.Conversation, f model.SearchFilters) bool {
	if f.Provider != "" && c.Provider != f.Provider {
		return false
	}
	if f.Favorite != nil && c.IsFavorite != *f.Favorite {
		return false
	}
	if f.StartDate != 0 && c.Timestamp < f.StartDate {
		return false
	}
	if f.EndDate != 0 && c.Timestamp > f.EndDate {
		return false
	}
	if len(f.Tags) > 0 {
		want := make(map[string]struct{}, len(f.Tags))
		for _, t := range f.Tags {
			want[t] = struct{}{}
		}
		found := false
		for _, t := range c.Tags {
			if _, ok := want[t]; ok {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// GetStatistics summarizes the archive. The storage-usage estimate covers
// the entire backend namespace, not just the conversation list.
func (s *Store) GetStatistics(ctx context.Context) (model.Statistics, error) {
	list, err := s.readConversations(ctx)
	if err != nil {
		return model.Statistics{}, fmt.Errorf("statistics: %w", err)
	}

	stats := model.Statistics{
		TotalConversations: len(list),
		ByProvider:         map[string]int{},
	}
	for _, c := range list {
		if c.IsFavorite {
			stats.FavoriteCount++
		}
		stats.ByProvider[c.Provider]++
		stats.TotalMessages += c.MessageCount
		if stats.OldestTimestamp == nil || c.Timestamp < *stats.OldestTimestamp {
			ts := c.Timestamp
			stats.OldestTimestamp = &ts
		}
		if stats.NewestTimestamp == nil || c.Timestamp > *stats.NewestTimestamp {
			ts := c.Timestamp
			stats.NewestTimestamp = &ts
		}
	}

	namespace, err := s.kv.GetAll(ctx)
	if err != nil {
		return model.Statistics{}, fmt.Errorf("statistics: %w", err)
	}
	var used int64
	for k, v := range namespace {
		used += int64(len(k)) + int64(len(v))
	}
	stats.StorageUsage = model.StorageUsage{
		Bytes:   used,
		KB:      math.Round(float64(used)/1024*100) / 100,
		Percent: math.Round(float64(used)/float64(s.capacity)*10000) / 100,
	}
	metrics.StorageUsageBytes.Set(float64(used))
	return stats, nil
}

// checkAndCleanupStorage evicts the oldest non-favorites when the
// serialized list passes the usage threshold. Favorites are never
// auto-evicted; when everything is a favorite, the pressure persists and
// later saves may exceed the ceiling.
func (s *Store) checkAndCleanupStorage(list []model.Conversation) []model.Conversation {
	data, err := json.Marshal(list)
	if err != nil || float64(len(data)) <= cleanupThreshold*float64(s.capacity) {
		return list
	}

	sorted := make([]model.Conversation, len(list))
	copy(sorted, list)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp > sorted[j].Timestamp
	})

	var favorites, others []model.Conversation
	for _, c := range sorted {
		if c.IsFavorite {
			favorites = append(favorites, c)
		} else {
			others = append(others, c)
		}
	}
	if len(others) == 0 {
		s.log.Warn("storage over threshold but all conversations are favorites")
		return list
	}

	remove := int(math.Ceil(float64(len(others)) * evictionFraction))
	if remove < 1 {
		remove = 1
	}
	// others is newest-first, so the oldest sit at the tail.
	kept := others[:len(others)-remove]

	s.log.Info("evicted conversations under storage pressure",
		zap.Int("evicted", remove),
		zap.Int("kept", len(favorites)+len(kept)),
	)
	metrics.ConversationsEvicted.Add(float64(remove))

	merged := append(favorites, kept...)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp > merged[j].Timestamp
	})
	return merged
}

// ClearAllConversations irreversibly replaces the stored list with an
// empty one.
func (s *Store) ClearAllConversations(ctx context.Context) error {
	return s.writeConversations(ctx, []model.Conversation{})
}

// GetAllTags returns the sorted set of tags across all conversations.
func (s *Store) GetAllTags(ctx context.Context) []string {
	seen := map[string]struct{}{}
	for _, c := range s.GetAllConversations(ctx) {
		for _, t := range c.Tags {
			seen[t] = struct{}{}
		}
	}
	tags := make([]string, 0, len(seen))
	for t := range seen {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

// GetSettings returns stored settings merged with defaults, so callers
// never observe a missing field. Backend failure degrades to defaults.
func (s *Store) GetSettings(ctx context.Context) model.Settings {
	settings := model.DefaultSettings()

	raw, found, err := s.kv.Get(ctx, settingsKey)
	if err != nil {
		s.log.Error("failed to read settings, returning defaults", zap.Error(err))
		return settings
	}
	if !found {
		return settings
	}

	var partial model.SettingsUpdate
	if err := json.Unmarshal(raw, &partial); err != nil {
		s.log.Error("stored settings are malformed, returning defaults", zap.Error(err))
		return settings
	}
	partial.Apply(&settings)
	return settings
}

// SaveSettings merges the partial update over current settings and
// persists the union, provided values taking precedence.
func (s *Store) SaveSettings(ctx context.Context, partial model.SettingsUpdate) (model.Settings, error) {
	settings := s.GetSettings(ctx)
	partial.Apply(&settings)

	raw, err := json.Marshal(settings)
	if err != nil {
		return model.Settings{}, fmt.Errorf("save settings: %w", err)
	}
	if err := s.kv.Set(ctx, map[string]json.RawMessage{settingsKey: raw}); err != nil {
		return model.Settings{}, fmt.Errorf("save settings: %w", err)
	}
	return settings, nil
}

func (s *Store) readConversations(ctx context.Context) ([]model.Conversation, error) {
	raw, found, err := s.kv.Get(ctx, conversationsKey)
	if err != nil {
		return nil, err
	}
	if !found {
		return []model.Conversation{}, nil
	}
	var list []model.Conversation
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, err
	}
	if list == nil {
		list = []model.Conversation{}
	}
	return list, nil
}

func (s *Store) writeConversations(ctx context.Context, list []model.Conversation) error {
	raw, err := json.Marshal(list)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, map[string]json.RawMessage{conversationsKey: raw}); err != nil {
		return err
	}
	metrics.ConversationsStored.Set(float64(len(list)))
	return nil
}

func (s *Store) timeOp(op string) func() {
	start := time.Now()
	return func() {
		metrics.RecordStoreOperation(op, time.Since(start).Seconds())
	}
}

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// newID generates a record id from the creation time plus a random
// suffix. Collisions are statistically negligible, not formally ruled
// out, which matches what the archive format has always used.
func newID() string {
	var sb strings.Builder
	sb.WriteString(strconv.FormatInt(time.Now().UnixMilli(), 36))
	sb.WriteByte('-')
	for i := 0; i < 7; i++ {
		sb.WriteByte(idAlphabet[rand.Intn(len(idAlphabet))])
	}
	return sb.String()
}
