package behavior

import (
	"sync"
	"time"

	"RiskAnalyticsService/internal/model"
)

// Configuration constants
const (
	// RecentOrderCapacity bounds the per-user recent-order history.
	RecentOrderCapacity = 100

	// RecentActivityWindow is the window used for order-frequency checks.
	RecentActivityWindow = 5 * time.Minute
)

// Tracker maintains per-user order history and aggregate statistics for the
// process lifetime. Profiles are created lazily and never deleted.
//
// Sessions serialize the read-score-write cycle per user: two concurrent
// analyses for the same user cannot interleave, while different users proceed
// independently.
type Tracker struct {
	users map[string]*userEntry
	mu    sync.Mutex
	now   func() time.Time
}

type userEntry struct {
	mu      sync.Mutex
	profile model.UserProfile
}

// NewTracker creates a new user behavior tracker
func NewTracker() *Tracker {
	return NewTrackerWithClock(time.Now)
}

// NewTrackerWithClock creates a tracker with a custom clock
func NewTrackerWithClock(now func() time.Time) *Tracker {
	return &Tracker{
		users: make(map[string]*userEntry),
		now:   now,
	}
}

// Session locks the user's profile for one analysis and returns a handle over
// it. Callers must call Close when the analysis is done.
func (t *Tracker) Session(userID string) *Session {
	t.mu.Lock()
	entry, ok := t.users[userID]
	if !ok {
		entry = &userEntry{profile: model.UserProfile{UserID: userID}}
		t.users[userID] = entry
	}
	t.mu.Unlock()

	entry.mu.Lock()
	return &Session{entry: entry, now: t.now}
}

// Profile returns a snapshot of a user's profile, or false if the user has
// never been seen.
func (t *Tracker) Profile(userID string) (model.UserProfile, bool) {
	t.mu.Lock()
	entry, ok := t.users[userID]
	t.mu.Unlock()

	if !ok {
		return model.UserProfile{}, false
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	snapshot := entry.profile
	snapshot.RecentOrders = make([]model.OrderSummary, len(entry.profile.RecentOrders))
	copy(snapshot.RecentOrders, entry.profile.RecentOrders)
	return snapshot, true
}

// UserCount returns the number of distinct users seen so far.
func (t *Tracker) UserCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.users)
}

// Session is an exclusive view of one user's profile for the duration of a
// single order analysis.
type Session struct {
	entry  *userEntry
	now    func() time.Time
	closed bool
}

// Close releases the per-user lock.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.entry.mu.Unlock()
}

// RecentOrderCount returns how many of the user's recorded orders fall within
// the trailing activity window.
func (s *Session) RecentOrderCount() int {
	cutoff := s.now().Add(-RecentActivityWindow)

	count := 0
	for _, o := range s.entry.profile.RecentOrders {
		if o.Timestamp.After(cutoff) {
			count++
		}
	}
	return count
}

// AverageNotional returns the user's historical average order notional, or 0
// when the user has no prior orders.
func (s *Session) AverageNotional() float64 {
	p := s.entry.profile
	if p.TotalOrders == 0 {
		return 0
	}
	return p.TotalVolume / float64(p.TotalOrders)
}

// IsFirstOrder reports whether this is the user's first-ever order.
func (s *Session) IsFirstOrder() bool {
	return s.entry.profile.TotalOrders == 0
}

// Record applies the outcome of a scored order to the profile: counters,
// bounded recent-order history, last activity, and the risk-event count when
// the verdict was not an accept.
func (s *Session) Record(order model.Order, analysis model.RiskAnalysis) {
	p := &s.entry.profile

	p.TotalOrders++
	p.TotalVolume += order.Notional()
	p.LastActivity = s.now()

	p.RecentOrders = append(p.RecentOrders, model.OrderSummary{
		OrderID:   order.OrderID,
		Timestamp: order.Timestamp,
		Notional:  order.Notional(),
		RiskScore: analysis.RiskScore,
	})
	if len(p.RecentOrders) > RecentOrderCapacity {
		p.RecentOrders = p.RecentOrders[len(p.RecentOrders)-RecentOrderCapacity:]
	}

	if analysis.Verdict != model.VerdictAccept {
		p.RiskEvents++
	}
}
