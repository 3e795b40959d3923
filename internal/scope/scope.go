// Package scope enforces engagement boundaries: which hosts an agent
// pipeline is authorized to touch and which it must never touch.
//
// The difference between authorized reconnaissance and illegal scanning
// is the scope file.
package scope

import (
	"fmt"
	"path"
	"strings"
)

// Config defines allowed and forbidden target patterns.
//
// Patterns support glob-style wildcards:
//
//	"example.com"    matches exactly example.com
//	"*.example.com"  matches any subdomain of example.com
//	"prod.*"         matches any host starting with "prod."
//
// Forbidden always takes precedence over allowed.
type Config struct {
	Allowed   []string `json:"allowed" mapstructure:"allowed"`
	Forbidden []string `json:"forbidden" mapstructure:"forbidden"`
}

// Checker evaluates hosts against a scope configuration.
type Checker struct {
	config Config
}

// NewChecker creates a Checker for the given configuration.
func NewChecker(config Config) *Checker {
	return &Checker{config: config}
}

// Config returns the configuration this checker enforces.
func (c *Checker) Config() Config {
	return c.config
}

// IsAllowed reports whether host is within scope, with a human-readable
// reason. Forbidden patterns win over allowed ones; an empty allowed list
// means everything not forbidden is in scope.
func (c *Checker) IsAllowed(host string) (bool, string) {
	host = strings.ToLower(host)

	for _, pattern := range c.config.Forbidden {
		if matchPattern(host, pattern) {
			return false, fmt.Sprintf("matches forbidden pattern: %s", pattern)
		}
	}

	if len(c.config.Allowed) == 0 {
		return true, "no allowed patterns defined, default allow"
	}

	for _, pattern := range c.config.Allowed {
		if matchPattern(host, pattern) {
			return true, fmt.Sprintf("matches allowed pattern: %s", pattern)
		}
	}

	return false, "does not match any allowed pattern"
}

// FilterHosts splits hosts into in-scope and out-of-scope lists,
// preserving input order.
func (c *Checker) FilterHosts(hosts []string) (allowed, blocked []string) {
	for _, host := range hosts {
		if ok, _ := c.IsAllowed(host); ok {
			allowed = append(allowed, host)
		} else {
			blocked = append(blocked, host)
		}
	}
	return allowed, blocked
}

// matchPattern performs case-insensitive glob matching. Hostnames contain
// no slashes, so path.Match wildcards behave like shell globs here.
func matchPattern(host, pattern string) bool {
	matched, err := path.Match(strings.ToLower(pattern), host)
	if err != nil {
		return false
	}
	return matched
}
