package upgrade

import (
	"context"

	"github.com/egoavara/repo-upgrade/internal/progress"
)

// Record is a repository tracked by a catalog. The coordinator holds
// references to records it does not own and only writes the installed
// version and the upgrading flag.
type Record interface {
	Name() string
	Version() string
	SetVersion(version string)
	// LatestVersion returns the upstream version, if known
	LatestVersion() (string, bool)
	UpToDate() bool
	Upgrading() bool
	SetUpgrading(upgrading bool)
}

// Channel delivers progress messages for a topic in FIFO order
type Channel interface {
	// Subscribe returns a function that removes this subscription
	Subscribe(topic string, handler progress.Handler) (func(), error)
}

// Runner submits upgrade and reset jobs.
// StartAll and StartOne only report submission errors; job outcome
// arrives on the progress channel. ResetAll and ResetOne block until the
// reset has settled.
type Runner interface {
	StartAll(ctx context.Context, records []Record) error
	StartOne(ctx context.Context, record Record) error
	ResetAll(ctx context.Context, records []Record) error
	ResetOne(ctx context.Context, record Record) error
}

// Prompter asks the user to confirm a destructive action.
// onConfirmed is invoked only when the user accepts, and its error is
// returned from Confirm.
type Prompter interface {
	Confirm(ctx context.Context, message string, onConfirmed func(context.Context) error) error
}

// Metrics observes coordinator activity
type Metrics interface {
	UpgradeStarted(mode string)
	StatusReceived(status progress.Status)
	ResetFinished(mode string, err error)
}

const (
	ModeSingle = "single"
	ModeBatch  = "batch"
)

// State is a snapshot of the coordinator's view state
type State struct {
	Output  string
	Status  progress.Status
	Percent int
}

type noopMetrics struct{}

func (noopMetrics) UpgradeStarted(string)          {}
func (noopMetrics) StatusReceived(progress.Status) {}
func (noopMetrics) ResetFinished(string, error)    {}
