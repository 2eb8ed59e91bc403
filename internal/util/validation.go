package util

import (
	"net/url"
	"strings"
)

// IsValidHTTPURL reports whether s is a well-formed absolute http(s) URL.
// Local-file and malformed references are rejected because the platform
// notification layer may throw on them rather than ignoring them.
func IsValidHTTPURL(s string) bool {
	if s == "" {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

func IsValidEnum(value string, validValues []string) bool {
	if value == "" {
		return true
	}
	for _, v := range validValues {
		if value == v {
			return true
		}
	}
	return false
}

// NormalizeSessionID trims whitespace; empty after trimming means the
// payload carried no usable id.
func NormalizeSessionID(s string) string {
	return strings.TrimSpace(s)
}
