package timeline

import (
	"fmt"
	"slices"
	"sync"
)

// Trigger is a non-DMX cue: a media server clip, an audio stinger, a
// hazer burst. Payload is free-form and passed through untouched.
type Trigger struct {
	Frame    int            `json:"frame"`
	DeviceID string         `json:"deviceid"`
	Action   string         `json:"func,omitempty"`
	Source   string         `json:"src,omitempty"`
	Payload  map[string]any `json:"payload,omitempty"`
}

// EventList collects triggers alongside a timeline.
type EventList struct {
	mu       sync.Mutex
	triggers []Trigger
}

// NewEventList returns an empty list.
func NewEventList() *EventList {
	return &EventList{}
}

// AddTrigger appends tr. The trigger's payload map is copied.
func (el *EventList) AddTrigger(tr Trigger) error {
	if tr.Frame < 0 {
		return fmt.Errorf("%w: trigger at %d", ErrInvalidFrame, tr.Frame)
	}
	if tr.Payload != nil {
		p := make(map[string]any, len(tr.Payload))
		for k, v := range tr.Payload {
			p[k] = v
		}
		tr.Payload = p
	}

	el.mu.Lock()
	defer el.mu.Unlock()
	el.triggers = append(el.triggers, tr)
	return nil
}

// Triggers returns the triggers ordered by frame, ties kept in insertion order.
func (el *EventList) Triggers() []Trigger {
	el.mu.Lock()
	out := slices.Clone(el.triggers)
	el.mu.Unlock()

	slices.SortStableFunc(out, func(a, b Trigger) int { return a.Frame - b.Frame })
	return out
}

// Len returns the number of triggers.
func (el *EventList) Len() int {
	el.mu.Lock()
	defer el.mu.Unlock()
	return len(el.triggers)
}

// LastFrame returns the highest trigger frame, or -1 when empty.
func (el *EventList) LastFrame() int {
	el.mu.Lock()
	defer el.mu.Unlock()

	last := -1
	for _, tr := range el.triggers {
		last = max(last, tr.Frame)
	}
	return last
}

// Within returns the triggers whose frame is below totalFrames and the
// number that were cut.
func (el *EventList) Within(totalFrames int) ([]Trigger, int) {
	all := el.Triggers()
	i, _ := slices.BinarySearchFunc(all, totalFrames, func(tr Trigger, n int) int { return tr.Frame - n })
	return all[:i], len(all) - i
}
