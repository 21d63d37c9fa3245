package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/egoavara/repo-upgrade/internal/progress"
	"github.com/egoavara/repo-upgrade/internal/upgrade"
)

func TestCollectorCounts(t *testing.T) {
	c := New()

	c.UpgradeStarted(upgrade.ModeBatch)
	c.UpgradeStarted(upgrade.ModeBatch)
	c.UpgradeStarted(upgrade.ModeSingle)
	c.StatusReceived(progress.StatusComplete)
	c.StatusReceived(progress.StatusNone)
	c.ResetFinished(upgrade.ModeBatch, errors.New("boom"))
	c.ResetFinished(upgrade.ModeSingle, nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.upgradesStarted.WithLabelValues("batch")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.upgradesStarted.WithLabelValues("single")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.statuses.WithLabelValues("complete")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.statuses.WithLabelValues("none")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.resets.WithLabelValues("batch", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.resets.WithLabelValues("single", "success")))
}

func TestHandlerServesMetrics(t *testing.T) {
	c := New()
	c.UpgradeStarted(upgrade.ModeSingle)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `repo_upgrade_upgrades_started_total{mode="single"} 1`))
}
