package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egoavara/repo-upgrade/internal/config"
	"github.com/egoavara/repo-upgrade/internal/git"
	"github.com/egoavara/repo-upgrade/internal/repo"
	"github.com/egoavara/repo-upgrade/internal/tui"
)

type fakeGit struct {
	git.Client

	mu       sync.Mutex
	commits  map[string]string
	upstream map[string]string
	pullErr  map[string]error
}

func newFakeGit() *fakeGit {
	return &fakeGit{
		commits:  map[string]string{},
		upstream: map[string]string{},
		pullErr:  map[string]error{},
	}
}

func (f *fakeGit) set(path, current, upstream string) {
	f.commits[path] = current
	f.upstream[path] = upstream
}

func (f *fakeGit) GetCurrentCommit(_ context.Context, path string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.commits[path], nil
}

func (f *fakeGit) Fetch(context.Context, string) error { return nil }

func (f *fakeGit) CurrentBranch(context.Context, string) (string, error) { return "main", nil }

func (f *fakeGit) GetRemoteCommit(_ context.Context, path, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.upstream[path], nil
}

// Pull moves the checkout even when it fails, like a merge gone wrong
func (f *fakeGit) Pull(_ context.Context, path string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commits[path] = f.upstream[path]
	if err := f.pullErr[path]; err != nil {
		return "CONFLICT (content): Merge conflict", err
	}
	return "Fast-forward", nil
}

func (f *fakeGit) ResetHard(_ context.Context, path, rev string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commits[path] = rev
	return nil
}

func (f *fakeGit) commit(path string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.commits[path]
}

func newTestCatalog(t *testing.T, client git.Client) *repo.Catalog {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Repositories["app"] = config.Repository{
		Source:          config.RepositorySource{URL: "https://example.com/org/app.git"},
		InstallLocation: "/srv/app",
	}
	cfg.Repositories["docker_manager"] = config.Repository{
		Source:          config.RepositorySource{URL: "https://example.com/org/docker_manager.git"},
		InstallLocation: "/srv/docker_manager",
	}
	c := repo.NewCatalog(cfg, func(*config.Config) error { return nil }, client)
	require.Empty(t, c.Refresh(context.Background()))
	return c
}

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var out bytes.Buffer
	previous := cmdOut
	cmdOut = &out
	t.Cleanup(func() { cmdOut = previous })
	return &out
}

func TestUpgradePlainBatch(t *testing.T) {
	client := newFakeGit()
	client.set("/srv/app", "a1", "a2")
	client.set("/srv/docker_manager", "d1", "d1")
	catalog := newTestCatalog(t, client)
	out := captureOutput(t)

	s, err := newSession(catalog, client, catalog.List(), tui.StaticPrompter{Accept: true})
	require.NoError(t, err)
	require.NoError(t, upgradePlain(context.Background(), s))

	app, err := catalog.Get("app")
	require.NoError(t, err)
	assert.Equal(t, "a2", app.Version())
	assert.True(t, app.UpToDate())
	assert.False(t, app.Upgrading())
	assert.False(t, app.Unfinished())

	assert.Contains(t, out.String(), "upgrade.title.all")
	assert.Contains(t, out.String(), "*** Upgrading app")
	assert.NotContains(t, out.String(), "*** Upgrading docker_manager")
	assert.Contains(t, out.String(), "upgrade.status.complete")
}

func TestUpgradePlainUpToDate(t *testing.T) {
	client := newFakeGit()
	client.set("/srv/app", "a1", "a1")
	catalog := newTestCatalog(t, client)
	out := captureOutput(t)

	app, err := catalog.Get("app")
	require.NoError(t, err)
	s, err := newSession(catalog, client, []*repo.Repo{app}, tui.StaticPrompter{})
	require.NoError(t, err)

	require.NoError(t, upgradePlain(context.Background(), s))
	assert.Contains(t, out.String(), "upgrade.upToDate")
	assert.False(t, s.runner.Busy())
}

func TestFailedUpgradeThenReset(t *testing.T) {
	client := newFakeGit()
	client.set("/srv/app", "a1", "a2")
	client.set("/srv/docker_manager", "d1", "d2")
	client.pullErr["/srv/docker_manager"] = errors.New("merge conflict")
	catalog := newTestCatalog(t, client)
	out := captureOutput(t)

	s, err := newSession(catalog, client, catalog.List(), tui.StaticPrompter{Accept: true})
	require.NoError(t, err)
	err = upgradePlain(context.Background(), s)
	assert.EqualError(t, err, "upgrade.status.failed")
	assert.Contains(t, out.String(), "FAILED to upgrade docker_manager")

	app, _ := catalog.Get("app")
	dm, _ := catalog.Get("docker_manager")
	assert.False(t, app.Upgrading())
	assert.True(t, app.Unfinished())
	assert.True(t, dm.Unfinished())

	// A later session, as from a separate reset command, rolls both back.
	s, err = newSession(catalog, client, catalog.List(), tui.StaticPrompter{Accept: true})
	require.NoError(t, err)
	require.NoError(t, resetSession(context.Background(), s))

	assert.Contains(t, out.String(), "reset.done")
	assert.Equal(t, "a1", client.commit("/srv/app"))
	assert.Equal(t, "d1", client.commit("/srv/docker_manager"))
	assert.False(t, app.Unfinished())
	assert.False(t, dm.Unfinished())
}

func TestResetDeclined(t *testing.T) {
	client := newFakeGit()
	client.set("/srv/app", "a1", "a2")
	catalog := newTestCatalog(t, client)
	out := captureOutput(t)

	app, _ := catalog.Get("app")
	s, err := newSession(catalog, client, []*repo.Repo{app}, tui.StaticPrompter{Accept: false})
	require.NoError(t, err)

	require.NoError(t, resetSession(context.Background(), s))
	assert.Contains(t, out.String(), "reset.cancelled")
}

func TestSelectTargets(t *testing.T) {
	catalog := newTestCatalog(t, newFakeGit())

	targets, err := selectTargets(catalog, []string{"app"}, false, false)
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, "app", targets[0].Name())

	targets, err = selectTargets(catalog, nil, true, false)
	require.NoError(t, err)
	assert.Len(t, targets, 2)

	_, err = selectTargets(catalog, nil, false, false)
	assert.EqualError(t, err, "upgrade.noTarget")
}

func TestLookupRepoSuggests(t *testing.T) {
	catalog := newTestCatalog(t, newFakeGit())

	_, err := lookupRepo(catalog, "dockermanager")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.NotFound))
	assert.Contains(t, err.Error(), "repo.notFound")
	assert.Contains(t, err.Error(), "repo.didYouMean")
}

func TestExtractRepoName(t *testing.T) {
	tests := map[string]string{
		"https://github.com/discourse/docker_manager":     "docker_manager",
		"https://github.com/discourse/docker_manager.git": "docker_manager",
		"git@github.com:org/app.git":                      "app",
		"github.com/org/app/":                             "app",
		"git@example.com:app":                             "app",
	}
	for url, want := range tests {
		assert.Equal(t, want, extractRepoName(url), url)
	}
}

func TestOwnedCheckout(t *testing.T) {
	home := t.TempDir()
	t.Setenv("REPO_UPGRADE_HOME", home)

	assert.True(t, ownedCheckout(filepath.Join(home, "repositories", "app")))
	assert.False(t, ownedCheckout(filepath.Join(home, "repositories")))
	assert.False(t, ownedCheckout("/var/www/app"))
	assert.False(t, ownedCheckout(""))
}

func TestPrintRepos(t *testing.T) {
	client := newFakeGit()
	client.set("/srv/app", "a1111111111", "a2222222222")
	client.set("/srv/docker_manager", "d1", "d1")
	catalog := newTestCatalog(t, client)
	out := captureOutput(t)

	printRepos(catalog, true)

	assert.Contains(t, out.String(), "  app  [list.behind]")
	assert.Contains(t, out.String(), "  docker_manager  [list.upToDate]")
	assert.Contains(t, out.String(), "Installed: a111111")
	assert.Contains(t, out.String(), "Checked: ")
}

func TestConfirmByDefault(t *testing.T) {
	t.Setenv("REPO_UPGRADE_HOME", t.TempDir())
	cfg := config.Get()
	previous := cfg.Prompt.AssumeYes
	t.Cleanup(func() {
		cfg.Prompt.AssumeYes = previous
		assumeYes = false
	})

	cfg.Prompt.AssumeYes, assumeYes = false, false
	assert.False(t, confirmByDefault())

	cfg.Prompt.AssumeYes = true
	assert.True(t, confirmByDefault())
	assert.Equal(t, tui.StaticPrompter{Accept: true}, newPrompter())

	cfg.Prompt.AssumeYes, assumeYes = false, true
	assert.True(t, confirmByDefault())
}
