package pubsub

import (
	"fmt"
	"sync"
)

// Subscription selects events by table, kind and param values. Empty
// fields match everything.
type Subscription struct {
	Table  Table                  `json:"table"`
	Kind   Kind                   `json:"kind"`
	Filter map[string]interface{} `json:"filter"`
}

// Matches reports whether the event is selected by the subscription.
func (s Subscription) Matches(event *Event) bool {
	if s.Table != "" && s.Table != event.Table {
		return false
	}

	if s.Kind != "" && s.Kind != event.Kind {
		return false
	}

	for key, want := range s.Filter {
		got, ok := event.Params[key]
		if !ok {
			return false
		}

		// JSON decoding turns numbers into float64, compare printed values.
		if fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}

	return true
}

// Deduplicator drops events that were already seen, or that are older than
// the latest version seen for the same entity. Delivery from the bus may be
// duplicated or reordered.
type Deduplicator struct {
	mux sync.Mutex

	versions map[string]int64
	order    []string
	capacity int
}

func NewDeduplicator(capacity int) *Deduplicator {
	return &Deduplicator{
		versions: make(map[string]int64),
		order:    make([]string, 0, capacity),
		capacity: capacity,
	}
}

// Fresh records the event and reports whether it is newer than anything
// seen before for its entity.
func (d *Deduplicator) Fresh(event *Event) bool {
	d.mux.Lock()
	defer d.mux.Unlock()

	key := event.Key()
	last, ok := d.versions[key]
	if ok && event.Version <= last {
		return false
	}

	if !ok {
		d.order = append(d.order, key)
		if len(d.order) > d.capacity {
			delete(d.versions, d.order[0])
			d.order = d.order[1:]
		}
	}

	d.versions[key] = event.Version
	return true
}
