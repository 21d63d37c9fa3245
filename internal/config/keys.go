package config

import (
	"strconv"

	"github.com/juju/errors"
	"github.com/juju/loggo"
)

var logger = loggo.GetLogger("repoupgrade.config")

// Keys lists the settable configuration keys
var Keys = []string{"locale", "prompt.assumeYes", "runner.concurrency", "metrics.listen"}

// Set assigns value to key on c
func (c *Config) Set(key, value string) error {
	switch key {
	case "locale":
		c.Locale = value
	case "prompt.assumeYes":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return errors.NotValidf("value %q for %s", value, key)
		}
		c.Prompt.AssumeYes = b
	case "runner.concurrency":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return errors.NotValidf("value %q for %s", value, key)
		}
		c.Runner.Concurrency = n
	case "metrics.listen":
		c.Metrics.Listen = value
	default:
		return errors.NotFoundf("config key %q", key)
	}
	return nil
}
