package alerts

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/synheart/wardwatch/internal/models"
)

const (
	DefaultDedupSize = 1024
	DefaultDedupTTL  = 10 * time.Minute
)

// Dedup suppresses repeated deliveries of the same alert id within a TTL window.
// Alerts without an id are never treated as duplicates.
type Dedup struct {
	cache *lru.Cache[int64, time.Time]
	ttl   time.Duration
	now   func() time.Time
}

func NewDedup(size int, ttl time.Duration, now func() time.Time) (*Dedup, error) {
	if size <= 0 {
		size = DefaultDedupSize
	}
	if ttl <= 0 {
		ttl = DefaultDedupTTL
	}
	if now == nil {
		now = time.Now
	}
	cache, err := lru.New[int64, time.Time](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create alert dedup cache: %w", err)
	}
	return &Dedup{cache: cache, ttl: ttl, now: now}, nil
}

// Seen records the alert and reports whether it was already delivered.
func (d *Dedup) Seen(a models.Alert) bool {
	if !a.HasID() {
		return false
	}
	now := d.now()
	if last, ok := d.cache.Get(a.ID); ok && now.Sub(last) < d.ttl {
		return true
	}
	d.cache.Add(a.ID, now)
	return false
}

// Filter returns the alerts not seen before, preserving order.
func (d *Dedup) Filter(batch []models.Alert) (fresh []models.Alert, duplicates int) {
	fresh = make([]models.Alert, 0, len(batch))
	for _, a := range batch {
		if d.Seen(a) {
			duplicates++
			continue
		}
		fresh = append(fresh, a)
	}
	return fresh, duplicates
}
