// Package hostconfig loads the host's static configuration: the
// per-surface enablement flags, the telegram section, the control
// socket path, and the catalog document embedded under
// batch_config.<name> (spec.md §6), plus the separate log-config file
// (-l/--log-config).
//
// Per spec.md §2's data flow ("the Host loads a configuration tree via
// C2, passes the task list to C3"), viper only supplies the raw decoded
// document, env-var overlay, and top-level defaults; every field read
// out of it goes through a configview.View bound to the same runtime
// context cmd/root.go binds the catalog to, so "[f]"/"[[f]]" bracket
// substitution and "@f" includes on config fields (spec.md §4.2) are
// live in the running host, not just in internal/configview's own tests.
package hostconfig

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/firestige/taskctl/internal/catalog"
	"github.com/firestige/taskctl/internal/configview"
)

// TelegramConfig mirrors spec.md §6's telegram section. Token is stored
// still-encoded (base64(base64(utf8(token)))); callers decode it via
// internal/security before handing it to the chat driver.
type TelegramConfig struct {
	Started bool
	Token   string
	Users   []string
}

// HostConfig is the resolved configuration for one batch run.
type HostConfig struct {
	Name             string
	ShellEnabled     bool
	SchedulerEnabled bool
	Telegram         TelegramConfig
	Tasks            []*catalog.Task
	ControlSocket    string
	DataDir          string
}

// Load reads path (JSON, per spec.md §6) and resolves the batch_config
// section named batchName — the CLASS_PATH selected by -b/--batch —
// through a config view bound to runtimeCtx (the same KEY=VALUE
// trailing-positional context the catalog binds task args to).
func Load(path, batchName string, runtimeCtx map[string]any) (*HostConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("hostconfig: read %s: %w", path, err)
	}

	v.SetEnvPrefix("TASKCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults for control_socket/data_dir are supplied by the
	// GetStringDefault calls below, not viper.SetDefault: a viper
	// default would populate the plain "control_socket" key in
	// AllSettings unconditionally, which would shadow a config file
	// that only sets the substitutable "[control_socket]" form (C2's
	// field-lookup order checks the plain key first).
	root := configview.New(v.AllSettings(), runtimeCtx)

	batchConfig, ok := root.Get("batch_config")
	if !ok {
		return nil, fmt.Errorf("hostconfig: batch_config not found in %s", path)
	}
	// viper folds every config key to lower case in AllSettings, so the
	// section lookup must fold batchName the same way.
	section, ok := batchConfig.Get(strings.ToLower(batchName))
	if !ok {
		return nil, fmt.Errorf("hostconfig: batch_config.%s not found in %s", batchName, path)
	}

	var telegram TelegramConfig
	if telegramView, ok := section.Get("telegram"); ok {
		telegram = TelegramConfig{
			Started: telegramView.GetBoolDefault("started", false),
			Token:   telegramView.GetStringDefault("token", ""),
			Users:   telegramView.GetStringSlice("users"),
		}
	}

	tasklistView, _ := section.Get("tasklist")
	tasks, err := decodeTasklist(tasklistView)
	if err != nil {
		return nil, fmt.Errorf("hostconfig: decode batch_config.%s.tasklist: %w", batchName, err)
	}

	return &HostConfig{
		Name:             root.GetStringDefault("name", ""),
		ShellEnabled:     section.GetBoolDefault("shell", false),
		SchedulerEnabled: section.GetBoolDefault("scheduler", false),
		Telegram:         telegram,
		Tasks:            tasks,
		ControlSocket:    root.GetStringDefault("control_socket", "taskctl.sock"),
		DataDir:          root.GetStringDefault("data_dir", "."),
	}, nil
}

// decodeTasklist re-marshals the view's tasklist node back into a
// {"tasklist": [...]} document so it can run through catalog.Parse
// unchanged — the same wire format whether the catalog arrives embedded
// in the host config or as a standalone file (cmd/validate.go's use
// case). The tasklist itself is plain-keyed, so the view passes it
// through untouched (spec.md §4.2's bracket substitution applies to
// scalar config fields, not to C3's own task-level templating).
func decodeTasklist(v *configview.View) ([]*catalog.Task, error) {
	if v == nil {
		return nil, nil
	}
	wrapped, err := json.Marshal(map[string]any{"tasklist": v.Raw()})
	if err != nil {
		return nil, err
	}
	return catalog.Parse(wrapped)
}
