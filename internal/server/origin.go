// Package server validates HTTP origins for WebSocket requests to enforce
// the configured allow-list.
package server

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/Tyrowin/gossipgrid/internal/config"
)

type originPolicy struct {
	allowAll bool
	allowed  map[string]struct{}
	log      logrus.FieldLogger
}

func newOriginPolicy(cfg *config.Config, log logrus.FieldLogger) *originPolicy {
	origins, allowAll := config.NormalizeOrigins(cfg.AllowedOrigins)
	p := &originPolicy{
		allowAll: allowAll || cfg.AllowAllOrigins,
		allowed:  make(map[string]struct{}, len(origins)),
		log:      log,
	}
	for _, origin := range origins {
		p.allowed[origin] = struct{}{}
	}
	return p
}

func (p *originPolicy) isOriginAllowed(r *http.Request) bool {
	originHeader := r.Header.Get("Origin")
	if originHeader == "" {
		return false
	}

	normalizedOrigin, ok := config.NormalizeOrigin(originHeader)
	if !ok {
		return false
	}

	if p.allowAll {
		return true
	}

	_, exists := p.allowed[normalizedOrigin]
	return exists
}

func (p *originPolicy) checkOrigin(r *http.Request) bool {
	if p.isOriginAllowed(r) {
		return true
	}

	p.log.WithField("origin", r.Header.Get("Origin")).Warn("Blocked WebSocket connection from disallowed origin")
	return false
}
