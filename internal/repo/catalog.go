package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/juju/errors"
	"github.com/juju/loggo"
	"golang.org/x/sync/errgroup"

	"github.com/egoavara/repo-upgrade/internal/config"
	"github.com/egoavara/repo-upgrade/internal/git"
)

var logger = loggo.GetLogger("repoupgrade.repo")

var (
	catalog     *Catalog
	catalogOnce sync.Once
)

// SaveFunc persists the configuration
type SaveFunc func(*config.Config) error

// Catalog owns the tracked repository records. Records keep their
// identity across Load calls so sessions holding them stay current.
type Catalog struct {
	mu    sync.RWMutex
	cfg   *config.Config
	save  SaveFunc
	git   git.Client
	repos map[string]*Repo
}

// GetCatalog returns the singleton catalog backed by the user configuration
func GetCatalog() *Catalog {
	catalogOnce.Do(func() {
		catalog = NewCatalog(config.Get(), config.Save, git.NewClient())
	})
	return catalog
}

// NewCatalog creates a catalog over cfg's repositories
func NewCatalog(cfg *config.Config, save SaveFunc, client git.Client) *Catalog {
	c := &Catalog{
		cfg:   cfg,
		save:  save,
		git:   client,
		repos: make(map[string]*Repo),
	}
	c.Load()
	return c
}

// Load syncs records with the configuration, keeping existing records
func (c *Catalog) Load() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for name, entry := range c.cfg.Repositories {
		r, ok := c.repos[name]
		if !ok {
			r = NewRepo(name, entry.InstallLocation, entry.Source.URL, entry.Source.Branch)
			c.repos[name] = r
		}
		r.SetUnfinished(entry.RollbackCommit != "")
	}
	for name := range c.repos {
		if _, ok := c.cfg.Repositories[name]; !ok {
			delete(c.repos, name)
		}
	}
}

// List returns all records sorted by name
func (c *Catalog) List() []*Repo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	repos := make([]*Repo, 0, len(c.repos))
	for _, r := range c.repos {
		repos = append(repos, r)
	}
	sort.Slice(repos, func(i, j int) bool {
		return repos[i].Name() < repos[j].Name()
	})
	return repos
}

// Names returns the sorted record names
func (c *Catalog) Names() []string {
	repos := c.List()
	names := make([]string, 0, len(repos))
	for _, r := range repos {
		names = append(names, r.Name())
	}
	return names
}

// Get returns a single record by name
func (c *Catalog) Get(name string) (*Repo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	r, ok := c.repos[name]
	if !ok {
		return nil, errors.NotFoundf("repository %q", name)
	}
	return r, nil
}

// Add starts tracking the checkout at location
func (c *Catalog) Add(name, url, branch, location string) (*Repo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.repos[name]; ok {
		return nil, errors.AlreadyExistsf("repository %q", name)
	}

	c.cfg.Repositories[name] = config.Repository{
		Source: config.RepositorySource{
			URL:    url,
			Branch: branch,
		},
		InstallLocation: location,
		LastUpdated:     time.Now().Format(time.RFC3339),
	}
	if err := c.save(c.cfg); err != nil {
		delete(c.cfg.Repositories, name)
		return nil, errors.Annotatef(err, "saving repository %q", name)
	}

	r := NewRepo(name, location, url, branch)
	c.repos[name] = r
	return r, nil
}

// Remove stops tracking a repository
func (c *Catalog) Remove(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.cfg.Repositories[name]
	if !ok {
		return errors.NotFoundf("repository %q", name)
	}

	delete(c.cfg.Repositories, name)
	if err := c.save(c.cfg); err != nil {
		c.cfg.Repositories[name] = entry
		return errors.Annotatef(err, "removing repository %q", name)
	}
	delete(c.repos, name)
	return nil
}

// UpdateTimestamp updates the last updated timestamp for a repository
func (c *Catalog) UpdateTimestamp(name string) error {
	return c.updateEntry(name, func(entry *config.Repository) {
		entry.LastUpdated = time.Now().Format(time.RFC3339)
	})
}

// LastUpdated returns the stored timestamp of the last upgrade
func (c *Catalog) LastUpdated(name string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg.Repositories[name].LastUpdated
}

// RememberRollback stores the commit an unfinished upgrade of name can
// be reset to
func (c *Catalog) RememberRollback(name, rev string) error {
	err := c.updateEntry(name, func(entry *config.Repository) {
		entry.RollbackCommit = rev
	})
	if err != nil {
		return err
	}
	c.markUnfinished(name, true)
	return nil
}

// RollbackPoint returns the stored rollback commit of name
func (c *Catalog) RollbackPoint(name string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rev := c.cfg.Repositories[name].RollbackCommit
	return rev, rev != ""
}

// ForgetRollback clears the rollback commit of name
func (c *Catalog) ForgetRollback(name string) error {
	if _, ok := c.RollbackPoint(name); !ok {
		return nil
	}
	err := c.updateEntry(name, func(entry *config.Repository) {
		entry.RollbackCommit = ""
	})
	if err != nil {
		return err
	}
	c.markUnfinished(name, false)
	return nil
}

func (c *Catalog) markUnfinished(name string, unfinished bool) {
	c.mu.RLock()
	r, ok := c.repos[name]
	c.mu.RUnlock()
	if ok {
		r.SetUnfinished(unfinished)
	}
}

func (c *Catalog) updateEntry(name string, fn func(*config.Repository)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.cfg.Repositories[name]
	if !ok {
		return errors.NotFoundf("repository %q", name)
	}
	previous := entry
	fn(&entry)
	c.cfg.Repositories[name] = entry
	if err := c.save(c.cfg); err != nil {
		c.cfg.Repositories[name] = previous
		return errors.Annotatef(err, "saving repository %q", name)
	}
	return nil
}

// Refresh reads the installed and upstream versions of every record.
// Failures are collected per repository and do not stop other checks.
func (c *Catalog) Refresh(ctx context.Context) []error {
	repos := c.List()

	var (
		mu   sync.Mutex
		errs []error
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency())
	for _, r := range repos {
		r := r
		g.Go(func() error {
			if err := c.RefreshRepo(ctx, r); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

// RefreshRepo reads the installed and upstream versions of one record
func (c *Catalog) RefreshRepo(ctx context.Context, r *Repo) error {
	current, err := c.git.GetCurrentCommit(ctx, r.Path())
	if err != nil {
		return errors.Annotatef(err, "checking %s", r.Name())
	}
	if err := c.git.Fetch(ctx, r.Path()); err != nil {
		return errors.Annotatef(err, "fetching %s", r.Name())
	}
	branch, err := c.upstreamBranch(ctx, r)
	if err != nil {
		return errors.Annotatef(err, "checking branch of %s", r.Name())
	}
	latest, err := c.git.GetRemoteCommit(ctx, r.Path(), branch)
	if err != nil {
		return errors.Annotatef(err, "checking upstream of %s", r.Name())
	}

	r.SetVersion(current)
	r.SetLatestVersion(latest)
	logger.Debugf("%s: installed %s, latest %s", r.Name(), git.ShortCommit(current), git.ShortCommit(latest))
	return nil
}

// upstreamBranch is the branch a pull of r follows: the configured one,
// else the checked out one. A detached checkout falls back to the remote
// default branch.
func (c *Catalog) upstreamBranch(ctx context.Context, r *Repo) (string, error) {
	if r.Branch() != "" {
		return r.Branch(), nil
	}
	branch, err := c.git.CurrentBranch(ctx, r.Path())
	if err != nil {
		return "", errors.Trace(err)
	}
	if branch == "HEAD" {
		return "", nil
	}
	return branch, nil
}

func (c *Catalog) concurrency() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.cfg.Runner.Concurrency > 0 {
		return c.cfg.Runner.Concurrency
	}
	return 1
}
