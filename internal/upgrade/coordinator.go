package upgrade

import (
	"context"
	"strings"
	"sync"

	"github.com/juju/errors"
	"github.com/juju/loggo"

	"github.com/egoavara/repo-upgrade/internal/i18n"
	"github.com/egoavara/repo-upgrade/internal/progress"
)

var logger = loggo.GetLogger("repoupgrade.upgrade")

// Config holds the collaborators of a Coordinator
type Config struct {
	Targets  []Record
	Channel  Channel
	Runner   Runner
	Prompter Prompter
	// Metrics is optional
	Metrics Metrics
	// Topic defaults to progress.UpgradeTopic
	Topic string
}

// Validate checks that all required collaborators are present
func (c Config) Validate() error {
	if len(c.Targets) == 0 {
		return errors.NotValidf("empty targets")
	}
	for i, t := range c.Targets {
		if t == nil {
			return errors.NotValidf("nil target at %d", i)
		}
	}
	if c.Channel == nil {
		return errors.NotValidf("nil Channel")
	}
	if c.Runner == nil {
		return errors.NotValidf("nil Runner")
	}
	if c.Prompter == nil {
		return errors.NotValidf("nil Prompter")
	}
	return nil
}

// Coordinator drives the upgrade lifecycle of one view session: it starts
// and resets jobs through the Runner and folds progress messages into the
// view state and the target records.
type Coordinator struct {
	targets  []Record
	channel  Channel
	runner   Runner
	prompter Prompter
	metrics  Metrics
	topic    string

	mu          sync.Mutex
	output      strings.Builder
	status      progress.Status
	percent     int
	unsubscribe func()
	onChange    func(State)
}

// New creates a coordinator over the given targets
func New(config Config) (*Coordinator, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	c := &Coordinator{
		targets:  append([]Record(nil), config.Targets...),
		channel:  config.Channel,
		runner:   config.Runner,
		prompter: config.Prompter,
		metrics:  config.Metrics,
		topic:    config.Topic,
	}
	if c.metrics == nil {
		c.metrics = noopMetrics{}
	}
	if c.topic == "" {
		c.topic = progress.UpgradeTopic
	}
	return c, nil
}

// Attach subscribes the coordinator to the progress topic
func (c *Coordinator) Attach() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unsubscribe != nil {
		return errors.AlreadyExistsf("subscription to %q", c.topic)
	}
	unsubscribe, err := c.channel.Subscribe(c.topic, c.MessageReceived)
	if err != nil {
		return errors.Annotatef(err, "subscribing to %q", c.topic)
	}
	c.unsubscribe = unsubscribe
	logger.Debugf("attached to %q", c.topic)
	return nil
}

// Detach removes the subscription made by Attach. Calling it without an
// active subscription does nothing.
func (c *Coordinator) Detach() {
	c.mu.Lock()
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
		logger.Debugf("detached from %q", c.topic)
	}
}

// OnChange registers fn to be called with a fresh snapshot after every
// state mutation. fn must not call back into the coordinator's mutating
// methods.
func (c *Coordinator) OnChange(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// Targets returns the records shown by this session
func (c *Coordinator) Targets() []Record {
	return append([]Record(nil), c.targets...)
}

// IsBatch reports whether the session covers more than one record
func (c *Coordinator) IsBatch() bool {
	return len(c.targets) > 1
}

// IsUpToDate reports whether every target is up to date
func (c *Coordinator) IsUpToDate() bool {
	for _, t := range c.targets {
		if !t.UpToDate() {
			return false
		}
	}
	return true
}

// IsRunning reports whether any target is upgrading
func (c *Coordinator) IsRunning() bool {
	for _, t := range c.targets {
		if t.Upgrading() {
			return true
		}
	}
	return false
}

func (c *Coordinator) IsComplete() bool {
	return c.State().Status == progress.StatusComplete
}

func (c *Coordinator) IsFailed() bool {
	return c.State().Status == progress.StatusFailed
}

// Title is the display label for the session
func (c *Coordinator) Title() string {
	if c.IsBatch() {
		return i18n.T("upgrade.title.all", nil)
	}
	return i18n.T("upgrade.title.repo", map[string]interface{}{"Name": c.targets[0].Name()})
}

// State returns a snapshot of the view state
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

// Start begins an upgrade of the targets.
//
// In batch mode every target that is not up to date is marked upgrading
// before the job is submitted. In single mode the runner marks the record
// itself once it accepts the job, and a record that is already upgrading
// is left alone.
//
// The returned error only reports that the runner refused the job; the
// outcome of an accepted job arrives on the progress channel.
func (c *Coordinator) Start(ctx context.Context) error {
	if !c.IsBatch() {
		target := c.targets[0]
		if target.Upgrading() {
			logger.Debugf("%s is already upgrading", target.Name())
			return nil
		}

		c.mu.Lock()
		c.resetLocked()
		notify := c.notifyLocked()
		c.mu.Unlock()
		notify()

		c.metrics.UpgradeStarted(ModeSingle)
		if err := c.runner.StartOne(ctx, target); err != nil {
			logger.Warningf("starting upgrade of %s: %v", target.Name(), err)
			return errors.Annotatef(err, "starting upgrade of %s", target.Name())
		}
		return nil
	}

	c.mu.Lock()
	c.resetLocked()
	pending := c.pendingLocked()
	for _, t := range pending {
		t.SetUpgrading(true)
	}
	notify := c.notifyLocked()
	c.mu.Unlock()
	notify()

	c.metrics.UpgradeStarted(ModeBatch)
	if err := c.runner.StartAll(ctx, pending); err != nil {
		logger.Warningf("starting upgrade of %d repositories: %v", len(pending), err)
		// A refused job never reports a terminal status.
		c.mu.Lock()
		for _, t := range pending {
			t.SetUpgrading(false)
		}
		notify := c.notifyLocked()
		c.mu.Unlock()
		notify()
		return errors.Annotate(err, "starting upgrade")
	}
	return nil
}

// MessageReceived folds one progress message into the session.
// Unknown message types are ignored.
func (c *Coordinator) MessageReceived(msg progress.Message) {
	c.mu.Lock()
	switch msg.Type {
	case progress.MessageLog:
		c.output.WriteString(msg.Text())
		c.output.WriteString("\n")
	case progress.MessagePercent:
		// Later values win even when smaller.
		c.percent = msg.Percent()
	case progress.MessageStatus:
		c.applyStatusLocked(msg.Status())
	default:
		c.mu.Unlock()
		logger.Tracef("ignoring %q message", msg.Type)
		return
	}
	notify := c.notifyLocked()
	c.mu.Unlock()
	notify()

	if msg.Type == progress.MessageStatus {
		c.metrics.StatusReceived(msg.Status())
	}
}

func (c *Coordinator) applyStatusLocked(status progress.Status) {
	c.status = status

	// Versions advance before the upgrading flags are cleared.
	if status == progress.StatusComplete {
		for _, t := range c.targets {
			if !t.Upgrading() {
				continue
			}
			if latest, ok := t.LatestVersion(); ok {
				t.SetVersion(latest)
			}
		}
	}
	if status.Terminal() {
		for _, t := range c.targets {
			t.SetUpgrading(false)
		}
	}
}

// ResetUpgrade asks for confirmation and then resets the upgrade.
//
// In batch mode local state and every target's upgrading flag are cleared
// after the reset request settles, whether or not it failed. In single
// mode local state is cleared once the reset request succeeds. The
// returned error is informational; a declined prompt returns nil.
func (c *Coordinator) ResetUpgrade(ctx context.Context) error {
	message := i18n.T("upgrade.reset.warning", nil)
	err := c.prompter.Confirm(ctx, message, func(ctx context.Context) error {
		if c.IsBatch() {
			return c.resetAll(ctx)
		}
		return c.resetOne(ctx)
	})
	return errors.Trace(err)
}

func (c *Coordinator) resetAll(ctx context.Context) (err error) {
	c.mu.Lock()
	pending := c.pendingLocked()
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.resetLocked()
		for _, t := range c.targets {
			t.SetUpgrading(false)
		}
		notify := c.notifyLocked()
		c.mu.Unlock()
		notify()
		c.metrics.ResetFinished(ModeBatch, err)
	}()

	if err := c.runner.ResetAll(ctx, pending); err != nil {
		logger.Warningf("resetting %d repositories: %v", len(pending), err)
		return errors.Annotate(err, "resetting upgrade")
	}
	return nil
}

func (c *Coordinator) resetOne(ctx context.Context) error {
	target := c.targets[0]
	if err := c.runner.ResetOne(ctx, target); err != nil {
		c.metrics.ResetFinished(ModeSingle, err)
		return errors.Annotatef(err, "resetting upgrade of %s", target.Name())
	}

	c.mu.Lock()
	c.resetLocked()
	notify := c.notifyLocked()
	c.mu.Unlock()
	notify()
	c.metrics.ResetFinished(ModeSingle, nil)
	return nil
}

// pendingLocked returns the targets that have an upgrade available
func (c *Coordinator) pendingLocked() []Record {
	pending := make([]Record, 0, len(c.targets))
	for _, t := range c.targets {
		if !t.UpToDate() {
			pending = append(pending, t)
		}
	}
	return pending
}

func (c *Coordinator) resetLocked() {
	c.output.Reset()
	c.status = progress.StatusNone
	c.percent = 0
}

func (c *Coordinator) stateLocked() State {
	return State{
		Output:  c.output.String(),
		Status:  c.status,
		Percent: c.percent,
	}
}

// notifyLocked captures the observer call so it can run after unlocking
func (c *Coordinator) notifyLocked() func() {
	if c.onChange == nil {
		return func() {}
	}
	fn, state := c.onChange, c.stateLocked()
	return func() { fn(state) }
}
