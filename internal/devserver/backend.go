package devserver

import (
	"net/url"
	"regexp"
	"strings"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

var devHostPattern = regexp.MustCompile(`(?i)[\\/]([\w_-]+\.dev)[\\/]markup?`)

// Backend is what the dev server fronts: a proxied app or a static directory.
type Backend struct {
	Port       int
	Proxy      *url.URL
	StaticRoot string
}

// Proxied reports whether requests are forwarded to another server.
func (b Backend) Proxied() bool { return b.Proxy != nil }

// DetectDevHost returns the `<name>.dev` host embedded in a working directory
// such as /srv/shop.dev/markup, or "" when there is none.
func DetectDevHost(cwd string) string {
	m := devHostPattern.FindStringSubmatch(cwd)
	if m == nil {
		return ""
	}
	return m[1]
}

// PlanBackend chooses the backend for cfg. An express app wins; external mode
// proxies to the configured or detected host; otherwise destination.html is served.
func PlanBackend(cfg *config.Resolved, cwd string) (Backend, error) {
	port := cfg.Server.Port
	if port == 0 {
		port = config.DefaultServerPort
	}
	externalPort := cfg.Server.ExternalPort
	if externalPort == 0 {
		externalPort = config.DefaultExternalServerPort
	}
	root, _ := cfg.Dst(config.PathHTML)

	if target := cfg.Express.Target(); target != "" {
		u, err := parseProxy(target)
		if err != nil {
			return Backend{}, err
		}
		return Backend{Port: port, Proxy: u}, nil
	}
	if cfg.External {
		host := cfg.Proxy
		if host == "" {
			host = DetectDevHost(cwd)
		}
		if host != "" {
			u, err := parseProxy(host)
			if err != nil {
				return Backend{}, err
			}
			return Backend{Port: externalPort, Proxy: u}, nil
		}
		return Backend{Port: externalPort, StaticRoot: root}, nil
	}
	return Backend{Port: port, StaticRoot: root}, nil
}

func parseProxy(raw string) (*url.URL, error) {
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil, ferrors.ConfigError("invalid proxy target").
			WithContext("target", raw).
			WithCause(err).Build()
	}
	return u, nil
}
