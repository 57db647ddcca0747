package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvPrefersLoadedMap(t *testing.T) {
	t.Setenv("BIZDESK_TEST_KEY", "from-os")
	Env = map[string]string{"BIZDESK_TEST_KEY": "from-file"}
	t.Cleanup(func() { Env = nil })

	assert.Equal(t, "from-file", GetEnv("BIZDESK_TEST_KEY", "def"))
}

func TestGetEnvFallsBackToOSThenDefault(t *testing.T) {
	Env = map[string]string{}
	t.Cleanup(func() { Env = nil })
	t.Setenv("BIZDESK_TEST_KEY", "from-os")

	assert.Equal(t, "from-os", GetEnv("BIZDESK_TEST_KEY", "def"))
	assert.Equal(t, "def", GetEnv("BIZDESK_TEST_MISSING", "def"))
}
