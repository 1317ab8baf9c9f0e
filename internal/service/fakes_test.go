package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gymnotifier/internal/entity"

	"github.com/google/uuid"
)

// memStore is an in-memory NotificationStore mirroring the SQL store's
// semantics: atomic conditional stamps, COALESCE-style idempotence.
type memStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]*entity.Notification
	names   map[uuid.UUID]string

	failBatch func(batch []entity.Notification) bool
}

func newMemStore() *memStore {
	return &memStore{
		records: make(map[uuid.UUID]*entity.Notification),
		names:   make(map[uuid.UUID]string),
	}
}

func (m *memStore) Create(_ context.Context, n entity.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[n.ID]; ok {
		return entity.ErrConflictingData
	}
	m.records[n.ID] = &n
	return nil
}

func (m *memStore) CreateBatch(_ context.Context, batch []entity.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failBatch != nil && m.failBatch(batch) {
		return fmt.Errorf("simulated insert failure")
	}
	for _, n := range batch {
		rec := n
		m.records[n.ID] = &rec
	}
	return nil
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*entity.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.records[id]
	if !ok {
		return nil, entity.ErrDataNotFound
	}
	cp := *n
	return &cp, nil
}

func (m *memStore) all() []entity.Notification {
	out := make([]entity.Notification, 0, len(m.records))
	for _, n := range m.records {
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *memStore) ListByRecipient(_ context.Context, userID uuid.UUID, page, limit uint64) ([]entity.Notification, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var owned []entity.Notification
	for _, n := range m.all() {
		if n.UserID == userID {
			owned = append(owned, n)
		}
	}

	total := int64(len(owned))
	if page == 0 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= uint64(len(owned)) {
		return nil, total, nil
	}
	end := min(start+limit, uint64(len(owned)))
	return owned[start:end], total, nil
}

func (m *memStore) UnreadCount(_ context.Context, userID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, n := range m.records {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (m *memStore) MarkRead(_ context.Context, id uuid.UUID, now time.Time) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.records[id]
	if !ok {
		return uuid.Nil, entity.ErrDataNotFound
	}
	n.Read = true
	if n.ReadAt == nil {
		n.ReadAt = &now
	}
	if n.OpenedAt == nil {
		n.OpenedAt = &now
	}
	return n.UserID, nil
}

func (m *memStore) MarkAllRead(_ context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var updated int64
	for _, n := range m.records {
		if n.UserID != userID || n.Read {
			continue
		}
		n.Read = true
		if n.ReadAt == nil {
			n.ReadAt = &now
		}
		if n.OpenedAt == nil {
			n.OpenedAt = &now
		}
		updated++
	}
	return updated, nil
}

func (m *memStore) MarkClicked(_ context.Context, id uuid.UUID, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.records[id]
	if !ok {
		return entity.ErrDataNotFound
	}
	if n.ClickedAt == nil {
		n.ClickedAt = &now
	}
	if n.OpenedAt == nil {
		n.OpenedAt = &now
	}
	return nil
}

func (m *memStore) MarkUnsubscribed(_ context.Context, id uuid.UUID, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.records[id]
	if !ok {
		return entity.ErrDataNotFound
	}
	if n.UnsubscribedAt == nil {
		n.UnsubscribedAt = &now
	}
	return nil
}

func (m *memStore) SetTransportError(_ context.Context, id uuid.UUID, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.records[id]
	if !ok {
		return entity.ErrDataNotFound
	}
	n.TransportError = message
	return nil
}

func (m *memStore) Delete(_ context.Context, id uuid.UUID) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.records[id]
	if !ok {
		return uuid.Nil, entity.ErrDataNotFound
	}
	delete(m.records, id)
	return n.UserID, nil
}

func (m *memStore) ClaimDue(_ context.Context, now time.Time, limit int) ([]entity.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var due []*entity.Notification
	for _, n := range m.records {
		if n.SentAt == nil && n.ScheduledAt != nil && !n.ScheduledAt.After(now) {
			due = append(due, n)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ScheduledAt.Before(*due[j].ScheduledAt) })
	if len(due) > limit {
		due = due[:limit]
	}

	claimed := make([]entity.Notification, 0, len(due))
	for _, n := range due {
		sent := now
		n.SentAt = &sent
		claimed = append(claimed, *n)
	}
	return claimed, nil
}

func (m *memStore) RecipientStats(_ context.Context, userID uuid.UUID) (*entity.RecipientStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := entity.RecipientStats{
		ByType:    make(map[entity.Type]int64),
		ByChannel: make(map[entity.Channel]int64),
	}
	for _, n := range m.records {
		if n.UserID != userID {
			continue
		}
		stats.Total++
		if n.Read {
			stats.Read++
		} else {
			stats.Unread++
		}
		if n.OpenedAt != nil {
			stats.Opened++
		}
		if n.ClickedAt != nil {
			stats.Clicked++
		}
		if n.UnsubscribedAt != nil {
			stats.Unsubscribed++
		}
		stats.ByType[n.Type]++
		for _, c := range n.Channels {
			stats.ByChannel[c]++
		}
	}
	return &stats, nil
}

func (m *memStore) DeliveryCounts(_ context.Context, campaign string) (*entity.DeliveryCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var counts entity.DeliveryCounts
	for _, n := range m.records {
		if campaign != "" && n.Campaign != campaign {
			continue
		}
		if n.SentAt != nil {
			counts.Sent++
		}
		if n.OpenedAt != nil {
			counts.Opened++
		}
		if n.ClickedAt != nil {
			counts.Clicked++
		}
		if n.UnsubscribedAt != nil {
			counts.Unsubscribed++
		}
	}
	return &counts, nil
}

func (m *memStore) RecentActivity(_ context.Context, limit uint64) ([]entity.ActivitySource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var sources []entity.ActivitySource
	for _, n := range m.all() {
		name := m.names[n.UserID]
		sources = append(sources, entity.ActivitySource{
			ID:             n.ID,
			UserName:       name,
			Title:          n.Title,
			Read:           n.Read,
			SentAt:         n.SentAt,
			ReadAt:         n.ReadAt,
			OpenedAt:       n.OpenedAt,
			ClickedAt:      n.ClickedAt,
			UnsubscribedAt: n.UnsubscribedAt,
			CreatedAt:      n.CreatedAt,
		})
		if uint64(len(sources)) == limit {
			break
		}
	}
	return sources, nil
}

// memUsers evaluates segment predicates over an in-memory population,
// matching the SQL predicates in the user repository.
type memUsers struct {
	mu    sync.Mutex
	users []entity.User

	segmentCalls int
}

func (m *memUsers) SegmentIDs(_ context.Context, segment entity.Segment, now time.Time) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.segmentCalls++

	var ids []uuid.UUID
	for _, u := range m.users {
		match := false
		switch segment {
		case entity.SegmentAll:
			match = true
		case entity.SegmentNew:
			match = u.CreatedAt.After(now.Add(-entity.NewMemberWindow))
		case entity.SegmentInactive:
			match = u.Status == entity.UserInactive
		case entity.SegmentTrial:
			match = u.Membership == entity.MembershipTrial
		case entity.SegmentVIP:
			match = u.TrainerID != nil
		default:
			return nil, entity.ErrInvalidSegment
		}
		if match {
			ids = append(ids, u.ID)
		}
	}
	return ids, nil
}

func (m *memUsers) SegmentCounts(ctx context.Context, now time.Time) (map[entity.Segment]int64, error) {
	counts := make(map[entity.Segment]int64)
	for _, seg := range entity.Segments() {
		ids, err := m.SegmentIDs(ctx, seg, now)
		if err != nil {
			return nil, err
		}
		counts[seg] = int64(len(ids))
	}
	return counts, nil
}

func (m *memUsers) UsersByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[uuid.UUID]entity.User)
	for _, u := range m.users {
		for _, id := range ids {
			if u.ID == id {
				out[u.ID] = u
			}
		}
	}
	return out, nil
}

type memCache struct {
	mu      sync.Mutex
	unread  map[uuid.UUID]int64
	global  *entity.CampaignStats
	invalid int
}

func newMemCache() *memCache {
	return &memCache{unread: make(map[uuid.UUID]int64)}
}

func (m *memCache) UnreadCount(_ context.Context, userID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count, ok := m.unread[userID]
	if !ok {
		return 0, fmt.Errorf("cache miss")
	}
	return count, nil
}

func (m *memCache) SetUnreadCount(_ context.Context, userID uuid.UUID, count int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unread[userID] = count
	return nil
}

func (m *memCache) InvalidateUnread(_ context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.unread, userID)
	m.invalid++
	return nil
}

func (m *memCache) GlobalStats(_ context.Context) (*entity.CampaignStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.global == nil {
		return nil, fmt.Errorf("cache miss")
	}
	return m.global, nil
}

func (m *memCache) SetGlobalStats(_ context.Context, stats *entity.CampaignStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.global = stats
	return nil
}

type memPublisher struct {
	mu       sync.Mutex
	messages []entity.DeliveryMessage
	fail     bool
}

func (m *memPublisher) PublishDelivery(_ context.Context, msg entity.DeliveryMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return fmt.Errorf("simulated publish failure")
	}
	m.messages = append(m.messages, msg)
	return nil
}

func (m *memPublisher) sent() []entity.DeliveryMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]entity.DeliveryMessage(nil), m.messages...)
}

// fakeClock is a manually advanced clock for scheduling tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
