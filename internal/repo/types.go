package repo

import (
	"sync"
	"time"
)

// Repo is a tracked repository. Records are shared between the catalog
// and upgrade sessions, so every accessor is safe for concurrent use.
type Repo struct {
	name   string
	path   string
	url    string
	branch string

	mu        sync.RWMutex
	version   string
	latest    string
	upToDate  bool
	upgrading bool
	// unfinished is set while a rollback point from an interrupted
	// upgrade is on record
	unfinished bool
	checkedAt  time.Time
}

// NewRepo creates a record for the checkout at path
func NewRepo(name, path, url, branch string) *Repo {
	return &Repo{
		name:     name,
		path:     path,
		url:      url,
		branch:   branch,
		upToDate: true,
	}
}

func (r *Repo) Name() string   { return r.name }
func (r *Repo) Path() string   { return r.path }
func (r *Repo) URL() string    { return r.url }
func (r *Repo) Branch() string { return r.branch }

// Version returns the installed version
func (r *Repo) Version() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// SetVersion records a new installed version
func (r *Repo) SetVersion(version string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.version = version
	r.recomputeLocked()
}

// LatestVersion returns the upstream version, if one has been seen
func (r *Repo) LatestVersion() (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latest, r.latest != ""
}

// SetLatestVersion records the upstream version
func (r *Repo) SetLatestVersion(latest string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.latest = latest
	r.checkedAt = time.Now()
	r.recomputeLocked()
}

// UpToDate reports whether no upgrade is available
func (r *Repo) UpToDate() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.upToDate
}

// Upgrading reports whether an upgrade job is in flight for this record
func (r *Repo) Upgrading() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.upgrading
}

func (r *Repo) SetUpgrading(upgrading bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upgrading = upgrading
}

// Unfinished reports whether an earlier upgrade did not complete
func (r *Repo) Unfinished() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.unfinished
}

// SetUnfinished marks whether an earlier upgrade did not complete.
// An unfinished repository is never up to date.
func (r *Repo) SetUnfinished(unfinished bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unfinished = unfinished
	r.recomputeLocked()
}

// CheckedAt returns when the upstream version was last recorded
func (r *Repo) CheckedAt() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.checkedAt
}

func (r *Repo) recomputeLocked() {
	r.upToDate = !r.unfinished && (r.latest == "" || r.latest == r.version)
}
