package main

import (
	"fmt"
	"os"

	"github.com/jeandeaual/go-locale"

	"github.com/egoavara/repo-upgrade/cmd"
	"github.com/egoavara/repo-upgrade/internal/config"
	"github.com/egoavara/repo-upgrade/internal/i18n"
)

func main() {
	if err := i18n.Init(getLocale()); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: loading translations: %v\n", err)
	}

	cmd.Execute()
}

// getLocale returns the locale based on config
func getLocale() string {
	configLocale := config.GetLocale()

	// If "auto", detect system locale
	if configLocale == "auto" || configLocale == "" {
		userLocale, err := locale.GetLocale()
		if err != nil || userLocale == "" {
			return "en-US"
		}
		return userLocale
	}

	return configLocale
}
