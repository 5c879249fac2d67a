package common

import (
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// MaxCommentRunes is the longest comment kept; longer input is cut.
const MaxCommentRunes = 250

// GetIPAddr returns the client address, preferring the first X-Forwarded-For hop.
func GetIPAddr(r *http.Request) string {
	if headerIP := r.Header.Get("X-Forwarded-For"); headerIP != "" {
		first, _, _ := strings.Cut(headerIP, ",")
		return strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// Clean trims s and composes it to NFC so that a character typed as base+accent counts once.
func Clean(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// Truncate cuts s to at most n characters.
func Truncate(s string, n int) string {
	if n < 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// FirstName is the first word of a full name.
func FirstName(full string) string {
	fields := strings.Fields(full)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// FormatDate renders an ISO timestamp as dd.mm.yy, or "" when it does not parse.
func FormatDate(iso string) string {
	for _, layout := range []string{"2006-01-02T15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, iso); err == nil {
			return t.Format("02.01.06")
		}
	}
	return ""
}

// SafeRedirect returns next when it is a same-site absolute path, otherwise fallback.
func SafeRedirect(next, fallback string) string {
	next = strings.TrimSpace(next)
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return fallback
	}
	return next
}
