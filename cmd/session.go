package cmd

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/juju/errors"

	"github.com/egoavara/repo-upgrade/internal/config"
	"github.com/egoavara/repo-upgrade/internal/git"
	"github.com/egoavara/repo-upgrade/internal/i18n"
	"github.com/egoavara/repo-upgrade/internal/metrics"
	"github.com/egoavara/repo-upgrade/internal/progress"
	"github.com/egoavara/repo-upgrade/internal/repo"
	"github.com/egoavara/repo-upgrade/internal/runner"
	"github.com/egoavara/repo-upgrade/internal/search"
	"github.com/egoavara/repo-upgrade/internal/tui"
	"github.com/egoavara/repo-upgrade/internal/upgrade"
)

// session wires one coordinator to a runner over a private progress hub
type session struct {
	hub         *progress.Hub
	runner      *runner.LocalRunner
	coordinator *upgrade.Coordinator
	collector   *metrics.Collector
}

func newSession(catalog *repo.Catalog, client git.Client, targets []*repo.Repo, prompter upgrade.Prompter) (*session, error) {
	hub := progress.NewHub()
	collector := metrics.New()

	r, err := runner.New(runner.Config{
		Git:         client,
		Publisher:   progress.NewPublisher(hub, progress.UpgradeTopic),
		Timestamper: catalog,
		Journal:     catalog,
	})
	if err != nil {
		return nil, errors.Trace(err)
	}

	records := make([]upgrade.Record, len(targets))
	for i, t := range targets {
		records[i] = t
	}
	coordinator, err := upgrade.New(upgrade.Config{
		Targets:  records,
		Channel:  hub,
		Runner:   r,
		Prompter: prompter,
		Metrics:  collector,
	})
	if err != nil {
		return nil, errors.Trace(err)
	}

	return &session{
		hub:         hub,
		runner:      r,
		coordinator: coordinator,
		collector:   collector,
	}, nil
}

// serveMetrics exposes the session's metrics until the returned func is
// called. Without a configured address it does nothing.
func (s *session) serveMetrics() func() {
	addr := metricsAddr
	if addr == "" {
		addr = config.Get().Metrics.Listen
	}
	if addr == "" {
		return func() {}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", s.collector.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warningf("serving metrics on %s: %v", addr, err)
		}
	}()
	logger.Infof("serving metrics on %s", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Debugf("stopping metrics server: %v", err)
		}
	}
}

// newPrompter picks how destructive actions are confirmed outside the
// upgrade view
func newPrompter() upgrade.Prompter {
	if confirmByDefault() {
		return tui.StaticPrompter{Accept: true}
	}
	if interactive() {
		return tui.ConfirmPrompter{}
	}
	return &tui.LinePrompter{In: os.Stdin, Out: os.Stdout}
}

// confirmByDefault reports whether prompts are skipped by --yes or the
// prompt.assumeYes setting
func confirmByDefault() bool {
	return assumeYes || config.Get().Prompt.AssumeYes
}

// lookupRepo returns a tracked repository, suggesting close names when it
// is missing
func lookupRepo(catalog *repo.Catalog, name string) (*repo.Repo, error) {
	r, err := catalog.Get(name)
	if err == nil {
		return r, nil
	}
	if !errors.Is(err, errors.NotFound) {
		return nil, err
	}

	msg := i18n.T("repo.notFound", map[string]any{"Name": name})
	if suggestions := search.Suggest(catalog.Names(), name, 3); len(suggestions) > 0 {
		msg += " " + i18n.T("repo.didYouMean", map[string]any{"Names": strings.Join(suggestions, ", ")})
	}
	return nil, errors.NewNotFound(nil, msg)
}

// refreshCatalog checks every repository against its upstream, printing
// failures as warnings
func refreshCatalog(ctx context.Context, catalog *repo.Catalog) {
	var spinner *tui.Spinner
	if interactive() {
		spinner = tui.NewSpinner(os.Stdout, i18n.T("refresh.checking", map[string]any{"Count": len(catalog.Names())}))
		spinner.Start()
	}

	errs := catalog.Refresh(ctx)
	if spinner != nil {
		spinner.Stop(len(errs) == 0)
	}

	for _, err := range errs {
		logger.Debugf("refresh: %s", errors.ErrorStack(err))
		os.Stderr.WriteString(i18n.T("refresh.failed", map[string]any{"Error": err.Error()}) + "\n")
	}
}
