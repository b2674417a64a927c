package app

import (
	"context"
	"sync"
	"time"

	"github.com/facebookgo/clock"
	"rider.badgertransit.org/internal/models"
	"rider.badgertransit.org/internal/smartlaunch"
)

// navigationSink records where a launch session navigated to.
type navigationSink struct {
	mu     sync.Mutex
	stopID string
	at     time.Time
	clock  clock.Clock
}

func (n *navigationSink) NavigateTo(stopID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stopID = stopID
	n.at = n.clock.Now()
}

// noticeSink keeps the countdown notice so the UI can render it when polling.
type noticeSink struct {
	mu      sync.Mutex
	notice  *smartlaunch.LaunchNotice
	visible bool
}

func (n *noticeSink) ShowLaunchNotice(notice smartlaunch.LaunchNotice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notice = &notice
	n.visible = true
}

func (n *noticeSink) DismissLaunchNotice() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.visible = false
}

// LaunchSession is one SmartLaunch cycle started by a client.
type LaunchSession struct {
	ID        string
	CreatedAt time.Time
	Started   bool

	ctrl   *smartlaunch.Controller
	nav    *navigationSink
	notice *noticeSink
}

// NoticeView is the countdown shown while a launch is pending.
type NoticeView struct {
	RuleID   string `json:"ruleId"`
	RuleName string `json:"ruleName"`
	StopID   string `json:"stopId"`
	DelayMs  int64  `json:"delayMs"`
	Visible  bool   `json:"visible"`
}

// SessionView is the JSON form of a launch session.
type SessionView struct {
	ID          string               `json:"id"`
	State       string               `json:"state"`
	Started     bool                 `json:"started"`
	CreatedAt   time.Time            `json:"createdAt"`
	Rule        *models.GeofenceRule `json:"rule,omitempty"`
	MatchedAt   *time.Time           `json:"matchedAt,omitempty"`
	Destination string               `json:"destination,omitempty"`
	NavigatedAt *time.Time           `json:"navigatedAt,omitempty"`
	Notice      *NoticeView          `json:"notice,omitempty"`
}

func (s *LaunchSession) View() SessionView {
	st := s.ctrl.Status()
	v := SessionView{
		ID:        s.ID,
		State:     st.State.String(),
		Started:   s.Started,
		CreatedAt: s.CreatedAt,
		Rule:      st.Rule,
	}
	if !st.MatchedAt.IsZero() {
		at := st.MatchedAt
		v.MatchedAt = &at
	}

	s.nav.mu.Lock()
	if s.nav.stopID != "" {
		v.Destination = s.nav.stopID
		at := s.nav.at
		v.NavigatedAt = &at
	}
	s.nav.mu.Unlock()

	s.notice.mu.Lock()
	if n := s.notice.notice; n != nil {
		v.Notice = &NoticeView{
			RuleID:   n.RuleID,
			RuleName: n.RuleName,
			StopID:   n.StopID,
			DelayMs:  n.Delay.Milliseconds(),
			Visible:  s.notice.visible,
		}
	}
	s.notice.mu.Unlock()
	return v
}

// SessionStore holds the launch sessions started over HTTP.
//
// Sessions are keyed by id. Each one owns a controller that must be torn
// down when the session is removed, either explicitly or by ClearRoutine.
type SessionStore struct {
	Mu       sync.RWMutex
	sessions map[string]*LaunchSession
	clock    clock.Clock
}

func NewSessionStore(c clock.Clock) *SessionStore {
	if c == nil {
		c = clock.New()
	}
	return &SessionStore{
		sessions: make(map[string]*LaunchSession),
		clock:    c,
	}
}

// Add stores s, stamping its creation time.
func (store *SessionStore) Add(s *LaunchSession) {
	store.Mu.Lock()
	defer store.Mu.Unlock()
	s.CreatedAt = store.clock.Now()
	store.sessions[s.ID] = s
}

func (store *SessionStore) Get(id string) (*LaunchSession, bool) {
	store.Mu.RLock()
	defer store.Mu.RUnlock()
	s, ok := store.sessions[id]
	return s, ok
}

// Remove tears the session down and forgets it.
func (store *SessionStore) Remove(id string) (*LaunchSession, bool) {
	store.Mu.Lock()
	s, ok := store.sessions[id]
	delete(store.sessions, id)
	store.Mu.Unlock()

	if ok {
		s.ctrl.Teardown()
	}
	return s, ok
}

func (store *SessionStore) Count() int {
	store.Mu.RLock()
	defer store.Mu.RUnlock()
	return len(store.sessions)
}

// ClearRoutine periodically removes sessions older than ttl until ctx is
// done. All remaining sessions are torn down on exit.
func (store *SessionStore) ClearRoutine(ctx context.Context, interval, ttl time.Duration) {
	ticker := store.clock.Ticker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			store.clear(ttl)
		case <-ctx.Done():
			store.clear(0)
			return
		}
	}
}

// clear tears down sessions older than ttl. A zero ttl clears everything.
func (store *SessionStore) clear(ttl time.Duration) int {
	now := store.clock.Now()

	store.Mu.Lock()
	var expired []*LaunchSession
	for id, s := range store.sessions {
		if ttl == 0 || now.Sub(s.CreatedAt) > ttl {
			expired = append(expired, s)
			delete(store.sessions, id)
		}
	}
	store.Mu.Unlock()

	for _, s := range expired {
		s.ctrl.Teardown()
	}
	return len(expired)
}
