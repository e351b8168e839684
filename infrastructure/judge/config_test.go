package judge

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "judges.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigs(t *testing.T) {
	t.Run("valid judge set loads", func(t *testing.T) {
		path := writeConfigFile(t, `
judges:
  - name: eval_gpt
    base_url: https://judge-gpt.example.com
    api_key: app-key-1
    model: gpt-4o
    timeout_seconds: 90
  - name: eval_claude
    base_url: https://judge-claude.example.com
    api_key: app-key-2
`)

		configs, err := LoadConfigs(path)
		require.NoError(t, err)
		require.Len(t, configs, 2)

		assert.Equal(t, "eval_gpt", configs[0].Name)
		assert.Equal(t, 90*time.Second, configs[0].Timeout())
		assert.Equal(t, DefaultTimeout, configs[1].Timeout())
	})

	t.Run("duplicate names rejected", func(t *testing.T) {
		path := writeConfigFile(t, `
judges:
  - name: eval_gpt
    base_url: https://a.example.com
    api_key: k1
  - name: eval_gpt
    base_url: https://b.example.com
    api_key: k2
`)

		_, err := LoadConfigs(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate judge name")
	})

	t.Run("missing api key rejected", func(t *testing.T) {
		path := writeConfigFile(t, `
judges:
  - name: eval_gpt
    base_url: https://a.example.com
`)

		_, err := LoadConfigs(path)
		assert.Error(t, err)
	})

	t.Run("invalid base url rejected", func(t *testing.T) {
		path := writeConfigFile(t, `
judges:
  - name: eval_gpt
    base_url: not-a-url
    api_key: k1
`)

		_, err := LoadConfigs(path)
		assert.Error(t, err)
	})

	t.Run("empty judge set rejected", func(t *testing.T) {
		path := writeConfigFile(t, "judges: []\n")

		_, err := LoadConfigs(path)
		assert.Error(t, err)
	})

	t.Run("missing file surfaces read error", func(t *testing.T) {
		_, err := LoadConfigs(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})
}
