package domain

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// AllowedOriginSet is the immutable set of hosts the media proxy may fetch from.
// Entries are exact host names, or "*.example.com" to admit any subdomain of example.com.
type AllowedOriginSet struct {
	exact    map[string]struct{}
	suffixes []string
}

// NewAllowedOriginSet builds the set from configured host entries
func NewAllowedOriginSet(hosts []string) *AllowedOriginSet {
	set := &AllowedOriginSet{exact: make(map[string]struct{})}
	for _, h := range hosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" {
			continue
		}
		if strings.HasPrefix(h, "*.") {
			set.suffixes = append(set.suffixes, h[1:])
			continue
		}
		set.exact[h] = struct{}{}
	}
	return set
}

// Allows reports whether host is in the set
func (s *AllowedOriginSet) Allows(host string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if host == "" {
		return false
	}
	if _, ok := s.exact[host]; ok {
		return true
	}
	for _, suffix := range s.suffixes {
		if strings.HasSuffix(host, suffix) {
			return true
		}
	}
	return false
}

// Check parses rawURL and validates its scheme and host
func (s *AllowedOriginSet) Check(rawURL string) (*url.URL, error) {
	target, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || target.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMediaURL, rawURL)
	}
	if target.Scheme != "http" && target.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidMediaURL, target.Scheme)
	}
	if !s.Allows(target.Hostname()) {
		return nil, &DisallowedOriginError{Host: target.Hostname()}
	}
	return target, nil
}

// Hosts returns the configured entries, sorted
func (s *AllowedOriginSet) Hosts() []string {
	hosts := make([]string, 0, len(s.exact)+len(s.suffixes))
	for h := range s.exact {
		hosts = append(hosts, h)
	}
	for _, suffix := range s.suffixes {
		hosts = append(hosts, "*"+suffix)
	}
	sort.Strings(hosts)
	return hosts
}
