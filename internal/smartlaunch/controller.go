package smartlaunch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/facebookgo/clock"
	"rider.badgertransit.org/internal/location"
	"rider.badgertransit.org/internal/metrics"
	"rider.badgertransit.org/internal/models"
)

// DefaultLaunchDelay matches the UI transition shown before the stop page opens.
const DefaultLaunchDelay = 1100 * time.Millisecond

type State int

const (
	StateIdle State = iota
	StateAwaitingLocation
	StatePending
	StateNavigated
	StateCanceled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingLocation:
		return "awaiting_location"
	case StatePending:
		return "pending"
	case StateNavigated:
		return "navigated"
	case StateCanceled:
		return "canceled"
	}
	return "unknown"
}

// Navigator opens the page for a stop. Calls are fire and forget and must not
// call back into the controller.
type Navigator interface {
	NavigateTo(stopID string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(stopID string)

func (f NavigatorFunc) NavigateTo(stopID string) { f(stopID) }

// LaunchNotice describes the cancelable countdown shown while a launch is pending.
type LaunchNotice struct {
	RuleID   string
	RuleName string
	StopID   string
	Delay    time.Duration
}

// Notifier surfaces the pending launch to the rider. DismissLaunchNotice runs
// while the controller holds its navigation lock and must not call back into it.
type Notifier interface {
	ShowLaunchNotice(n LaunchNotice)
	DismissLaunchNotice()
}

// PendingLaunch is the navigation scheduled after a geofence match.
type PendingLaunch struct {
	Rule     models.GeofenceRule
	FiredAt  time.Time
	Canceled bool
}

// Status is a point in time view of a controller.
type Status struct {
	State     State
	Rule      *models.GeofenceRule
	MatchedAt time.Time
}

// ControllerOptions wires a Controller. Rules and Navigator are required.
type ControllerOptions struct {
	Rules           RuleStore
	Location        location.Provider
	LocationOptions location.Options
	Navigator       Navigator
	Notifier        Notifier
	Clock           clock.Clock
	Delay           time.Duration
	TimeZone        *time.Location
	Logger          *slog.Logger
}

// Controller runs one SmartLaunch cycle: acquire a location, match it against
// the rules, then navigate after a cancelable delay. A controller is used for
// a single cycle; Teardown guarantees that no navigation happens afterwards,
// even when a timer or location callback is already in flight.
type Controller struct {
	rules     RuleStore
	provider  location.Provider
	locOpts   location.Options
	navigator Navigator
	notifier  Notifier
	clock     clock.Clock
	delay     time.Duration
	tz        *time.Location
	logger    *slog.Logger

	// navMu is held from the final guard check in fire until NavigateTo
	// returns. Cancel and Teardown take it first, so once they return a
	// navigation has either completed or can no longer happen.
	navMu sync.Mutex

	mu          sync.Mutex
	state       State
	started     bool
	disposed    bool
	pending     *PendingLaunch
	matched     *models.GeofenceRule
	matchedAt   time.Time
	timer       *clock.Timer
	cancel      context.CancelFunc
	noticeShown bool

	done     chan struct{}
	doneOnce sync.Once
}

func NewController(opts ControllerOptions) *Controller {
	c := &Controller{
		rules:     opts.Rules,
		provider:  opts.Location,
		locOpts:   opts.LocationOptions,
		navigator: opts.Navigator,
		notifier:  opts.Notifier,
		clock:     opts.Clock,
		delay:     opts.Delay,
		tz:        opts.TimeZone,
		logger:    opts.Logger,
		done:      make(chan struct{}),
	}
	if c.clock == nil {
		c.clock = clock.New()
	}
	if c.delay <= 0 {
		c.delay = DefaultLaunchDelay
	}
	if c.tz == nil {
		c.tz = time.Local
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Start begins the cycle. It returns false, leaving the controller idle, when
// it was already started or torn down, when no location provider is
// available, or when no enabled rule exists.
func (c *Controller) Start(ctx context.Context) bool {
	c.mu.Lock()
	if c.started || c.disposed {
		c.mu.Unlock()
		return false
	}
	c.started = true

	if c.provider == nil || c.rules == nil || !hasEnabled(c.rules.LoadRules()) {
		c.mu.Unlock()
		metrics.SmartLaunchEvaluations.WithLabelValues(metrics.OutcomeNoRules).Inc()
		c.finish()
		return false
	}

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.state = StateAwaitingLocation
	c.mu.Unlock()

	go func() {
		defer cancel()
		c.evaluate(ctx)
	}()
	return true
}

func (c *Controller) evaluate(ctx context.Context) {
	coord, err := location.Acquire(ctx, c.provider, c.locOpts)

	var (
		rule models.GeofenceRule
		ok   bool
	)
	if err == nil {
		// The snapshot is taken once here; later edits do not affect this cycle.
		rule, ok = FindMatch(coord, c.rules.LoadRules(), c.clock.Now().In(c.tz))
	}

	c.mu.Lock()
	if c.disposed {
		c.state = StateCanceled
		c.mu.Unlock()
		metrics.SmartLaunchEvaluations.WithLabelValues(metrics.OutcomeAborted).Inc()
		c.finish()
		return
	}

	if err != nil {
		c.state = StateIdle
		c.mu.Unlock()
		c.logger.Warn("smartlaunch location unavailable", "error", err)
		metrics.SmartLaunchEvaluations.WithLabelValues(metrics.OutcomeLocationError).Inc()
		c.finish()
		return
	}

	if !ok {
		c.state = StateIdle
		c.mu.Unlock()
		metrics.SmartLaunchEvaluations.WithLabelValues(metrics.OutcomeNoMatch).Inc()
		c.finish()
		return
	}

	p := &PendingLaunch{Rule: rule, FiredAt: c.clock.Now()}
	c.pending = p
	c.matched = &rule
	c.matchedAt = p.FiredAt
	c.mu.Unlock()

	metrics.SmartLaunchEvaluations.WithLabelValues(metrics.OutcomeMatched).Inc()
	c.logger.Info("smartlaunch rule matched", "rule_id", rule.ID, "stop_id", rule.StopID, "delay", c.delay)

	if c.notifier != nil {
		c.notifier.ShowLaunchNotice(LaunchNotice{
			RuleID:   rule.ID,
			RuleName: rule.Name,
			StopID:   rule.StopID,
			Delay:    c.delay,
		})
	}

	// The countdown starts once the notice is visible. Cancel or Teardown may
	// have run in between; they did not dismiss a notice they never saw.
	c.mu.Lock()
	if p.Canceled {
		c.mu.Unlock()
		if c.notifier != nil {
			c.notifier.DismissLaunchNotice()
		}
		c.finish()
		return
	}
	c.noticeShown = true
	c.state = StatePending
	c.timer = c.clock.AfterFunc(c.delay, func() { c.fire(p) })
	c.mu.Unlock()
}

// fire runs when the delay elapses. The guards are checked here regardless of
// whether stopping the timer succeeded.
func (c *Controller) fire(p *PendingLaunch) {
	c.navMu.Lock()
	defer c.navMu.Unlock()

	c.mu.Lock()
	if c.disposed || c.pending != p || p.Canceled {
		c.mu.Unlock()
		return
	}
	c.pending = nil
	c.timer = nil
	c.state = StateNavigated
	c.mu.Unlock()

	metrics.SmartLaunchLaunches.WithLabelValues(metrics.LaunchNavigated).Inc()
	c.logger.Info("smartlaunch navigating", "rule_id", p.Rule.ID, "stop_id", p.Rule.StopID)

	if c.notifier != nil {
		c.notifier.DismissLaunchNotice()
	}
	c.navigator.NavigateTo(p.Rule.StopID)
	c.finish()
}

// Cancel aborts a pending launch. It is a no-op when nothing is pending,
// including after the navigation has already happened.
func (c *Controller) Cancel() {
	c.navMu.Lock()
	defer c.navMu.Unlock()

	c.mu.Lock()
	p := c.abortPendingLocked()
	shown := c.noticeShown
	c.mu.Unlock()

	if p != nil {
		c.afterAbort(p, "canceled by rider", shown)
	}
}

// Teardown disposes the controller. No navigation can happen once it returns;
// a navigation already in progress is waited for.
func (c *Controller) Teardown() {
	c.navMu.Lock()
	defer c.navMu.Unlock()

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	if c.cancel != nil {
		c.cancel()
	}
	p := c.abortPendingLocked()
	started := c.started
	shown := c.noticeShown
	c.mu.Unlock()

	if p != nil {
		c.afterAbort(p, "torn down", shown)
	}
	if !started {
		c.finish()
	}
}

func (c *Controller) abortPendingLocked() *PendingLaunch {
	p := c.pending
	if p == nil {
		return nil
	}
	p.Canceled = true
	c.pending = nil
	c.state = StateCanceled
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	return p
}

// afterAbort records the abort. The notice is dismissed and the cycle
// finished here only when the notice was already visible; otherwise evaluate
// does both once ShowLaunchNotice returns.
func (c *Controller) afterAbort(p *PendingLaunch, reason string, noticeShown bool) {
	metrics.SmartLaunchLaunches.WithLabelValues(metrics.LaunchCanceled).Inc()
	c.logger.Info("smartlaunch launch canceled", "rule_id", p.Rule.ID, "stop_id", p.Rule.StopID, "reason", reason)
	if !noticeShown {
		return
	}
	if c.notifier != nil {
		c.notifier.DismissLaunchNotice()
	}
	c.finish()
}

func (c *Controller) finish() {
	c.doneOnce.Do(func() { close(c.done) })
}

// Done is closed once the cycle reaches a terminal state.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := Status{State: c.state, MatchedAt: c.matchedAt}
	if c.matched != nil {
		r := *c.matched
		st.Rule = &r
	}
	return st
}
