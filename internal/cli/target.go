package cli

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"golang.org/x/term"
)

// Target is the parsed connection destination. Host aliases are resolved
// before parsing, so this always holds a full URL.
type Target struct {
	URL *url.URL
}

// ParseTarget parses a destination. A bare host defaults to the tcp scheme.
func ParseTarget(raw string) (*Target, error) {
	if raw == "" {
		return nil, fmt.Errorf("empty connection target")
	}
	if !strings.Contains(raw, "://") {
		raw = "tcp://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid target %q: %w", raw, err)
	}
	return &Target{URL: u}, nil
}

// CacheKey is the identity the persistent cache is keyed by: scheme and
// host/port, credentials stripped so the key is stable across logins.
func (t *Target) CacheKey() string {
	return t.URL.Scheme + "://" + t.URL.Host
}

// EnsurePassword prompts for a password when the target names a user without
// one. Outside a terminal the target passes through untouched.
func (t *Target) EnsurePassword(in *os.File, out io.Writer) error {
	user := t.URL.User
	if user == nil || user.Username() == "" {
		return nil
	}
	if _, set := user.Password(); set {
		return nil
	}
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return nil
	}
	fmt.Fprintf(out, "Password for %s: ", user.Username())
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}
	t.URL.User = url.UserPassword(user.Username(), string(pw))
	return nil
}
