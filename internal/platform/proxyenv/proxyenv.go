// Package proxyenv exports the [https-proxy] configuration to the process
// environment so HTTP clients inside user hooks pick it up transparently.
package proxyenv

import (
	"fmt"
	"net/url"
	"os"

	"gatekit/internal/platform/configuration"
)

// Apply sets https_proxy and HTTPS_PROXY from the [https-proxy] section.
// Without a configured server the environment is left untouched.
func Apply(cfg *configuration.Configuration) error {
	server, err := cfg.Get("https-proxy", "server", "")
	if err != nil {
		return err
	}
	if server == "" {
		return nil
	}
	port, err := cfg.GetInt("https-proxy", "port", 3128)
	if err != nil {
		return err
	}
	username, err := cfg.Get("https-proxy", "username", "")
	if err != nil {
		return err
	}
	password, err := cfg.Get("https-proxy", "password", "")
	if err != nil {
		return err
	}

	proxyURL := &url.URL{Scheme: "http", Host: fmt.Sprintf("%s:%d", server, port)}
	if username != "" {
		proxyURL.User = url.UserPassword(username, password)
	}
	for _, name := range []string{"https_proxy", "HTTPS_PROXY"} {
		if err := os.Setenv(name, proxyURL.String()); err != nil {
			return err
		}
	}
	return nil
}
