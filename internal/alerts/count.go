// Package alerts owns the emergency alert lifecycle: the unacknowledged count, the
// modal state machine, the audible cue and duplicate suppression.
package alerts

// CountView renders the alert count.
type CountView interface {
	SetCount(n int)
}

// CountStore is the single owner of the unacknowledged alert count. The count is
// never negative.
type CountStore struct {
	view     CountView
	value    int
	observer func(int)
}

func NewCountStore(view CountView) *CountStore {
	return &CountStore{view: view}
}

// OnChange registers a callback run after every change.
func (s *CountStore) OnChange(fn func(int)) {
	s.observer = fn
}

// Add increases the count by n. Non-positive n is ignored.
func (s *CountStore) Add(n int) {
	if n <= 0 {
		return
	}
	s.set(s.value + n)
}

// Decrement lowers the count by one, stopping at zero.
func (s *CountStore) Decrement() {
	s.set(s.value - 1)
}

// Reset replaces the count, typically from the active-alerts snapshot.
func (s *CountStore) Reset(n int) {
	s.set(n)
}

func (s *CountStore) Value() int {
	return s.value
}

func (s *CountStore) set(n int) {
	if n < 0 {
		n = 0
	}
	s.value = n
	if s.view != nil {
		s.view.SetCount(n)
	}
	if s.observer != nil {
		s.observer(n)
	}
}
