package config

import (
	"fmt"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so it can be written as "60s" / "1h" in
// YAML instead of a raw nanosecond integer.
type Duration time.Duration

// UnmarshalYAML accepts either a duration string ("60s") or a bare
// integer number of seconds, for operator convenience.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	switch value.Tag {
	case "!!int":
		secs, err := strconv.Atoi(value.Value)
		if err != nil {
			return fmt.Errorf("config: invalid duration %q: %w", value.Value, err)
		}
		*d = Duration(time.Duration(secs) * time.Second)
		return nil
	default:
		parsed, err := time.ParseDuration(value.Value)
		if err != nil {
			return fmt.Errorf("config: invalid duration %q: %w", value.Value, err)
		}
		*d = Duration(parsed)
		return nil
	}
}

// Std returns the time.Duration value.
func (d Duration) Std() time.Duration { return time.Duration(d) }
