package main

import (
	"net/url"
	"regexp"
	"strings"
)

var passwordParam = regexp.MustCompile(`(?i)password=\S+`)

// redactURL drops the password from a connection URL. A URL with only a
// password (redis://:secret@host) keeps a "redacted" placeholder user.
func redactURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}
	if u.User != nil {
		name := u.User.Username()
		if name == "" {
			name = "redacted"
		}
		u.User = url.User(name)
	}
	return u.String()
}

// sanitizeError renders err with every secret replaced by its redacted
// form and any password=... parameter masked.
func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, s := range secrets {
		if s == "" {
			continue
		}
		r := redactURL(s)
		if r == "" {
			r = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, s, r)
	}
	return passwordParam.ReplaceAllString(msg, "password=redacted")
}
