package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslate(t *testing.T) {
	require.NoError(t, Init("en-US"))

	assert.Equal(t, "Upgrade All", T("upgrade.title.all", nil))
	assert.Equal(t, "Upgrade docker_manager", T("upgrade.title.repo", map[string]interface{}{"Name": "docker_manager"}))
	assert.Equal(t, "no.such.message", T("no.such.message", nil))
	assert.Equal(t, "Found 1 repository", T("search.results", map[string]interface{}{"Count": 1}, 1))
	assert.Equal(t, "Found 3 repositories", T("search.results", map[string]interface{}{"Count": 3}, 3))

	SetLocale("ko-KR")
	defer SetLocale("en-US")
	assert.Equal(t, "모두 업그레이드", T("upgrade.title.all", nil))
}
