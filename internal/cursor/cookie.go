package cursor

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
)

// ErrEmptyCookie is returned when the cookie string holds no pairs.
var ErrEmptyCookie = errors.New("cookie string contains no name=value pairs")

// ParseCookies splits a browser cookie header ("a=1; b=2") into cookies.
// Values are URL-unescaped, with '+' read as a space. Malformed pairs are
// skipped.
func ParseCookies(raw string) ([]*http.Cookie, error) {
	var cookies []*http.Cookie
	for _, part := range strings.Split(raw, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			continue
		}
		if unescaped, err := url.QueryUnescape(strings.TrimSpace(value)); err == nil {
			value = unescaped
		}
		cookies = append(cookies, &http.Cookie{Name: name, Value: value})
	}
	if len(cookies) == 0 {
		return nil, ErrEmptyCookie
	}
	return cookies, nil
}

// cookieHeader rebuilds a Cookie header from the raw string, dropping
// malformed pairs but leaving values exactly as the browser sent them.
func cookieHeader(raw string) string {
	var pairs []string
	for _, part := range strings.Split(raw, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || strings.TrimSpace(name) == "" {
			continue
		}
		pairs = append(pairs, strings.TrimSpace(name)+"="+strings.TrimSpace(value))
	}
	return strings.Join(pairs, "; ")
}
