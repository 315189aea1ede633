package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/hitoshi/dealwatch/internal/model"
)

// MemorySubscriberRepo はプロセス内メモリに保持する購読者リポジトリ。
// 返却値は複製なので、呼び出し元が変更しても保存済みの値には影響しない。
type MemorySubscriberRepo struct {
	mu       sync.RWMutex
	profiles map[int64]*model.FilterProfile
}

// NewMemorySubscriberRepo はMemorySubscriberRepoを生成する。
func NewMemorySubscriberRepo() *MemorySubscriberRepo {
	return &MemorySubscriberRepo{profiles: make(map[int64]*model.FilterProfile)}
}

func (r *MemorySubscriberRepo) ListIDs(ctx context.Context) ([]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]int64, 0, len(r.profiles))
	for id := range r.profiles {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

func (r *MemorySubscriberRepo) FindProfile(ctx context.Context, subscriberID int64) (*model.FilterProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[subscriberID]
	if !ok {
		return nil, nil
	}
	return p.Clone(), nil
}

func (r *MemorySubscriberRepo) SaveProfile(ctx context.Context, profile *model.FilterProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[profile.SubscriberID] = profile.Clone()
	return nil
}

type seenKey struct {
	subscriberID int64
	listingID    int64
}

// MemorySeenRepo はプロセス内メモリに保持する重複排除ストア。
type MemorySeenRepo struct {
	mu   sync.Mutex
	seen map[seenKey]time.Time
	now  func() time.Time
}

// NewMemorySeenRepo はMemorySeenRepoを生成する。nowがnilの場合はtime.Nowを使う。
func NewMemorySeenRepo(now func() time.Time) *MemorySeenRepo {
	if now == nil {
		now = time.Now
	}
	return &MemorySeenRepo{seen: make(map[seenKey]time.Time), now: now}
}

func (r *MemorySeenRepo) HasSeen(ctx context.Context, subscriberID, listingID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.seen[seenKey{subscriberID, listingID}]
	return ok, nil
}

func (r *MemorySeenRepo) MarkSeen(ctx context.Context, subscriberID, listingID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := seenKey{subscriberID, listingID}
	if _, ok := r.seen[k]; !ok {
		r.seen[k] = r.now()
	}
	return nil
}

func (r *MemorySeenRepo) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, at := range r.seen {
		if at.Before(cutoff) {
			delete(r.seen, k)
			n++
		}
	}
	return n, nil
}

// Len は保持しているマーカー数を返す。
func (r *MemorySeenRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}

// Records は保持しているマーカーのスナップショットを返す。順序は不定。
func (r *MemorySeenRepo) Records() []model.SeenRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.SeenRecord, 0, len(r.seen))
	for k, at := range r.seen {
		out = append(out, model.SeenRecord{SubscriberID: k.subscriberID, ListingID: k.listingID, SeenAt: at})
	}
	return out
}

// MemoryNotificationRepo はプロセス内メモリに保持する通知ログ。
type MemoryNotificationRepo struct {
	mu    sync.Mutex
	items []model.Notification
}

// NewMemoryNotificationRepo はMemoryNotificationRepoを生成する。
func NewMemoryNotificationRepo() *MemoryNotificationRepo {
	return &MemoryNotificationRepo{}
}

func (r *MemoryNotificationRepo) Save(ctx context.Context, n *model.Notification) error {
	prepareNotification(n, time.Now())
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, *n)
	return nil
}

// List は記録済みの通知を記録順に返す。
func (r *MemoryNotificationRepo) List() []model.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.items)
}
