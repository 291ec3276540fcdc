package hostconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTmpConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func TestLoadResolvesBatchSection(t *testing.T) {
	path := writeTmpConfig(t, `{
		"name": "agent-1",
		"control_socket": "/tmp/taskctl.sock",
		"batch_config": {
			"TaskManager": {
				"shell": true,
				"scheduler": false,
				"telegram": {"started": true, "token": "xxxx", "users": ["1", "2"]},
				"tasklist": [
					{"name": "hello", "command": ["echo", "hi"]}
				]
			}
		}
	}`)

	cfg, err := Load(path, "TaskManager", nil)
	require.NoError(t, err)

	assert.Equal(t, "agent-1", cfg.Name)
	assert.True(t, cfg.ShellEnabled)
	assert.False(t, cfg.SchedulerEnabled)
	assert.True(t, cfg.Telegram.Started)
	assert.Equal(t, []string{"1", "2"}, cfg.Telegram.Users)
	assert.Equal(t, "/tmp/taskctl.sock", cfg.ControlSocket)
	require.Len(t, cfg.Tasks, 1)
	assert.Equal(t, "hello", cfg.Tasks[0].Name)
	assert.Equal(t, "subprocess", cfg.Tasks[0].Type)
}

func TestLoadUnknownBatchNameErrors(t *testing.T) {
	path := writeTmpConfig(t, `{"name": "agent-1", "batch_config": {}}`)

	_, err := Load(path, "TaskManager", nil)
	assert.Error(t, err)
}

func TestLoadDefaultsControlSocketAndDataDir(t *testing.T) {
	path := writeTmpConfig(t, `{
		"name": "agent-1",
		"batch_config": {"TaskManager": {"shell": false, "scheduler": false}}
	}`)

	cfg, err := Load(path, "TaskManager", nil)
	require.NoError(t, err)
	assert.Equal(t, "taskctl.sock", cfg.ControlSocket)
	assert.Equal(t, ".", cfg.DataDir)
	assert.Empty(t, cfg.Tasks)
}

func TestLoadExpandsBracketFieldsAgainstRuntimeContext(t *testing.T) {
	path := writeTmpConfig(t, `{
		"name": "agent-1",
		"[control_socket]": "/run/${env}.sock",
		"batch_config": {
			"TaskManager": {
				"[[shell]]": "${enable_shell}"
			}
		}
	}`)

	cfg, err := Load(path, "TaskManager", map[string]any{"env": "prod", "enable_shell": "true"})
	require.NoError(t, err)
	assert.Equal(t, "/run/prod.sock", cfg.ControlSocket)
	assert.True(t, cfg.ShellEnabled)
}

func TestLoadBatchNameIsCaseInsensitive(t *testing.T) {
	path := writeTmpConfig(t, `{
		"batch_config": {
			"taskmanager": {"shell": true}
		}
	}`)

	cfg, err := Load(path, "TaskManager", nil)
	require.NoError(t, err)
	assert.True(t, cfg.ShellEnabled)
}

func TestLoadLogConfigAppliesDefaults(t *testing.T) {
	path := writeTmpConfig(t, `{"level": "debug"}`)

	cfg, err := LoadLogConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, "stdout", cfg.Appender)
	assert.NotEmpty(t, cfg.Pattern)
}
