package runner

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"

	"github.com/juju/errors"
	"github.com/juju/loggo"

	"github.com/egoavara/repo-upgrade/internal/git"
	"github.com/egoavara/repo-upgrade/internal/progress"
	"github.com/egoavara/repo-upgrade/internal/repo"
	"github.com/egoavara/repo-upgrade/internal/upgrade"
)

var logger = loggo.GetLogger("repoupgrade.runner")

var _ upgrade.Runner = (*LocalRunner)(nil)
var _ Checkout = (*repo.Repo)(nil)
var _ Journal = (*repo.Catalog)(nil)

// Checkout is a record backed by a local git working copy
type Checkout interface {
	upgrade.Record
	Path() string
}

// Publisher receives job progress
type Publisher interface {
	Log(line string)
	Percent(percent int)
	Status(status progress.Status)
}

// Timestamper records that a repository was upgraded
type Timestamper interface {
	UpdateTimestamp(name string) error
}

// Journal keeps rollback points across processes
type Journal interface {
	RememberRollback(name, rev string) error
	RollbackPoint(name string) (string, bool)
	ForgetRollback(name string) error
}

// Config holds the collaborators of a LocalRunner
type Config struct {
	Git       git.Client
	Publisher Publisher
	// Timestamper is optional
	Timestamper Timestamper
	// Journal is optional. Without it rollback points live only as long
	// as the runner.
	Journal Journal
}

// Validate checks that all required collaborators are present
func (c Config) Validate() error {
	if c.Git == nil {
		return errors.NotValidf("nil Git")
	}
	if c.Publisher == nil {
		return errors.NotValidf("nil Publisher")
	}
	return nil
}

type job struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// LocalRunner upgrades checkouts in-process with git and reports progress
// through its publisher. Only one job runs at a time.
type LocalRunner struct {
	git         git.Client
	pub         Publisher
	timestamper Timestamper
	journal     Journal

	mu       sync.Mutex
	job      *job
	previous map[string]string
}

// New creates a LocalRunner
func New(config Config) (*LocalRunner, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &LocalRunner{
		git:         config.Git,
		pub:         config.Publisher,
		timestamper: config.Timestamper,
		journal:     config.Journal,
		previous:    make(map[string]string),
	}, nil
}

// StartAll upgrades records in order as a single job
func (r *LocalRunner) StartAll(ctx context.Context, records []upgrade.Record) error {
	checkouts, err := asCheckouts(records)
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(r.submit(ctx, checkouts))
}

// StartOne upgrades a single record, marking it upgrading once accepted
func (r *LocalRunner) StartOne(ctx context.Context, record upgrade.Record) error {
	checkouts, err := asCheckouts([]upgrade.Record{record})
	if err != nil {
		return errors.Trace(err)
	}
	if record.Upgrading() {
		return errors.AlreadyExistsf("upgrade of %s", record.Name())
	}
	return errors.Trace(r.submit(ctx, checkouts, func() { record.SetUpgrading(true) }))
}

// ResetAll stops the running job and rolls back records it already moved
func (r *LocalRunner) ResetAll(ctx context.Context, records []upgrade.Record) error {
	return errors.Trace(r.reset(ctx, records))
}

// ResetOne stops the running job, clears record's upgrading flag and
// rolls it back if it was moved
func (r *LocalRunner) ResetOne(ctx context.Context, record upgrade.Record) error {
	return errors.Trace(r.reset(ctx, []upgrade.Record{record}))
}

// Busy reports whether a job is running
func (r *LocalRunner) Busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.job != nil
}

// Wait blocks until the running job, if any, has finished
func (r *LocalRunner) Wait(ctx context.Context) error {
	r.mu.Lock()
	j := r.job
	r.mu.Unlock()
	if j == nil {
		return nil
	}
	select {
	case <-j.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *LocalRunner) submit(ctx context.Context, checkouts []Checkout, accepted ...func()) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.job != nil {
		return errors.AlreadyExistsf("upgrade job")
	}

	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	j := &job{cancel: cancel, done: make(chan struct{})}
	r.job = j
	for _, fn := range accepted {
		fn()
	}

	go func() {
		defer close(j.done)
		defer cancel()
		r.run(jobCtx, checkouts)

		r.mu.Lock()
		if r.job == j {
			r.job = nil
		}
		r.mu.Unlock()
	}()
	return nil
}

func (r *LocalRunner) run(ctx context.Context, checkouts []Checkout) {
	r.pub.Status(progress.StatusRunning)

	total := len(checkouts)
	if total == 0 {
		r.pub.Log("Nothing to upgrade")
		r.pub.Percent(100)
		r.pub.Status(progress.StatusComplete)
		return
	}

	for i, c := range checkouts {
		if ctx.Err() != nil {
			logger.Infof("upgrade cancelled before %s", c.Name())
			return
		}
		if err := r.upgradeOne(ctx, c); err != nil {
			if ctx.Err() != nil {
				logger.Infof("upgrade of %s cancelled", c.Name())
				return
			}
			r.pub.Log(fmt.Sprintf("FAILED to upgrade %s: %v", c.Name(), err))
			r.pub.Status(progress.StatusFailed)
			return
		}
		r.pub.Percent((i + 1) * 100 / total)
	}

	// A finished job has nothing left to roll back.
	for _, c := range checkouts {
		r.forget(c.Name())
	}

	r.pub.Log("Upgrade complete")
	r.pub.Status(progress.StatusComplete)
}

func (r *LocalRunner) upgradeOne(ctx context.Context, c Checkout) error {
	r.pub.Log(fmt.Sprintf("*** Upgrading %s", c.Name()))

	before, err := r.git.GetCurrentCommit(ctx, c.Path())
	if err != nil {
		return errors.Trace(err)
	}
	r.remember(c.Name(), before)

	output, err := r.git.Pull(ctx, c.Path())
	for _, line := range strings.Split(output, "\n") {
		if line = strings.TrimRight(line, "\r"); line != "" {
			r.pub.Log(line)
		}
	}
	if err != nil {
		return errors.Trace(err)
	}

	after, err := r.git.GetCurrentCommit(ctx, c.Path())
	if err != nil {
		return errors.Trace(err)
	}
	r.pub.Log(fmt.Sprintf("*** %s is now at %s", c.Name(), git.ShortCommit(after)))

	if r.timestamper != nil {
		if err := r.timestamper.UpdateTimestamp(c.Name()); err != nil {
			logger.Warningf("recording upgrade time of %s: %v", c.Name(), err)
		}
	}
	return nil
}

func (r *LocalRunner) reset(ctx context.Context, records []upgrade.Record) error {
	r.mu.Lock()
	j := r.job
	r.mu.Unlock()

	if j != nil {
		j.cancel()
		select {
		case <-j.done:
		case <-ctx.Done():
			return errors.Annotate(ctx.Err(), "waiting for upgrade job to stop")
		}
	}

	// The stopped job publishes no terminal status, so nothing else
	// would clear the flag StartOne set.
	for _, record := range records {
		record.SetUpgrading(false)
	}

	var errs []error
	for _, record := range records {
		rev, ok := r.rollbackPoint(record.Name())
		if !ok {
			continue
		}

		c, isCheckout := record.(Checkout)
		if !isCheckout {
			errs = append(errs, errors.NotSupportedf("resetting %T", record))
			continue
		}
		if err := r.git.ResetHard(ctx, c.Path(), rev); err != nil {
			errs = append(errs, errors.Annotatef(err, "resetting %s", c.Name()))
			continue
		}
		logger.Infof("reset %s to %s", c.Name(), git.ShortCommit(rev))
		r.forget(record.Name())
	}

	r.mu.Lock()
	if r.job == j {
		r.job = nil
	}
	r.mu.Unlock()

	return stderrors.Join(errs...)
}

// remember keeps the first rollback point of name until it is forgotten
func (r *LocalRunner) remember(name, rev string) {
	if rev == "" {
		return
	}
	if _, ok := r.rollbackPoint(name); ok {
		return
	}
	r.mu.Lock()
	r.previous[name] = rev
	r.mu.Unlock()
	if r.journal != nil {
		if err := r.journal.RememberRollback(name, rev); err != nil {
			logger.Warningf("recording rollback point of %s: %v", name, err)
		}
	}
}

func (r *LocalRunner) rollbackPoint(name string) (string, bool) {
	r.mu.Lock()
	rev, ok := r.previous[name]
	r.mu.Unlock()
	if ok || r.journal == nil {
		return rev, ok
	}
	return r.journal.RollbackPoint(name)
}

func (r *LocalRunner) forget(name string) {
	r.mu.Lock()
	delete(r.previous, name)
	r.mu.Unlock()
	if r.journal != nil {
		if err := r.journal.ForgetRollback(name); err != nil {
			logger.Warningf("clearing rollback point of %s: %v", name, err)
		}
	}
}

func asCheckouts(records []upgrade.Record) ([]Checkout, error) {
	checkouts := make([]Checkout, 0, len(records))
	for _, record := range records {
		c, ok := record.(Checkout)
		if !ok {
			return nil, errors.NotSupportedf("upgrading %T", record)
		}
		checkouts = append(checkouts, c)
	}
	return checkouts, nil
}
