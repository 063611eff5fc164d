// Package logging builds the plugin logger from the [logging] section.
package logging

import (
	"io"
	"log/syslog"
	"os"

	hclog "github.com/hashicorp/go-hclog"

	"gatekit/internal/platform/configuration"
)

var levelNames = []string{"debug", "info", "warning", "error", "critical"}

var hclogLevels = map[string]hclog.Level{
	"debug":    hclog.Debug,
	"info":     hclog.Info,
	"warning":  hclog.Warn,
	"error":    hclog.Error,
	"critical": hclog.Error,
}

// New returns a named logger configured by [logging] log_level and
// destination. destination=messages routes through the local syslog daemon,
// matching the appliance log; anything writing to stderr is captured by the
// plugin host.
func New(name string, cfg *configuration.Configuration) (hclog.Logger, error) {
	level, err := cfg.GetIEnum("logging", "log_level", levelNames, "info")
	if err != nil {
		return nil, err
	}
	destination, err := cfg.GetIEnum("logging", "destination", []string{"stderr", "messages"}, "stderr")
	if err != nil {
		return nil, err
	}
	var output io.Writer = os.Stderr
	if destination == "messages" {
		writer, err := syslog.New(syslog.LOG_AUTHPRIV|syslog.LOG_INFO, name)
		if err != nil {
			return nil, err
		}
		output = writer
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   name,
		Level:  hclogLevels[level],
		Output: output,
	}), nil
}
