package hostconfig

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/firestige/taskctl/internal/log"
)

// LoadLogConfig reads -l/--log-config's target file into a
// log.LoggerConfig, applying the teacher's defaults where the file
// omits a field.
func LoadLogConfig(path string) (*log.LoggerConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.SetDefault("pattern", "%time% [%level%] %msg%")
	v.SetDefault("time", "2006-01-02T15:04:05.000Z07:00")
	v.SetDefault("level", "info")
	v.SetDefault("appender", "stdout")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("hostconfig: read log config %s: %w", path, err)
	}

	cfg := &log.LoggerConfig{
		Pattern:  v.GetString("pattern"),
		Time:     v.GetString("time"),
		Level:    v.GetString("level"),
		Appender: v.GetString("appender"),
	}
	return cfg, nil
}
