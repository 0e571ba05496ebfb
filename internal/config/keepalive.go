package config

import (
	"fmt"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// KeepAlive models the wire config's `keep_alive: int|false` field: an
// SSE keep-alive ping period in seconds, or false to disable it.
type KeepAlive struct {
	Enabled  bool
	Interval time.Duration
}

// UnmarshalYAML accepts `false` (disabled) or an integer number of
// seconds (enabled, that period).
func (k *KeepAlive) UnmarshalYAML(value *yaml.Node) error {
	switch value.Tag {
	case "!!bool":
		enabled, err := strconv.ParseBool(value.Value)
		if err != nil {
			return fmt.Errorf("config: invalid keep_alive %q: %w", value.Value, err)
		}
		if enabled {
			return fmt.Errorf("config: keep_alive must be false or a number of seconds, got %q", value.Value)
		}
		k.Enabled = false
		k.Interval = 0
		return nil
	case "!!int":
		secs, err := strconv.Atoi(value.Value)
		if err != nil {
			return fmt.Errorf("config: invalid keep_alive %q: %w", value.Value, err)
		}
		k.Enabled = secs > 0
		k.Interval = time.Duration(secs) * time.Second
		return nil
	case "!!null":
		k.Enabled = false
		return nil
	default:
		return fmt.Errorf("config: invalid keep_alive value %q", value.Value)
	}
}
