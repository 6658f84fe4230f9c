package presence

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

const DefaultTTL = 5 * time.Minute

// Scanner is an operator seen validating at an event recently.
type Scanner struct {
	OperatorID string    `json:"operator_id"`
	LastSeen   time.Time `json:"last_seen"`
}

// Tracker records operator heartbeats per event. An entry disappears once
// the operator has been idle for the TTL.
type Tracker struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

func NewTracker(store Store, ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Tracker{store: store, ttl: ttl, now: time.Now}
}

func prefix(eventID uint) string {
	return fmt.Sprintf("presence:%d:", eventID)
}

func (t *Tracker) Touch(ctx context.Context, eventID uint, operatorID string) error {
	return t.store.Set(ctx, prefix(eventID)+operatorID, t.now().UTC().Format(time.RFC3339Nano), t.ttl)
}

// Active lists operators seen within the TTL, most recent first.
func (t *Tracker) Active(ctx context.Context, eventID uint) ([]Scanner, error) {
	p := prefix(eventID)
	keys, err := t.store.Keys(ctx, p)
	if err != nil {
		return nil, err
	}

	scanners := make([]Scanner, 0, len(keys))
	for _, k := range keys {
		v, err := t.store.Get(ctx, k)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		seen, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			continue
		}
		scanners = append(scanners, Scanner{OperatorID: strings.TrimPrefix(k, p), LastSeen: seen})
	}
	sort.Slice(scanners, func(i, j int) bool { return scanners[i].LastSeen.After(scanners[j].LastSeen) })
	return scanners, nil
}
