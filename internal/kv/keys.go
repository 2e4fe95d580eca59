package kv

import "strings"

const (
	// KeyPrefixProfile is the prefix for per-profile (localStorage-like) keys
	KeyPrefixProfile = "glimpse:profile:"
	// KeyPrefixSession is the prefix for per-session (sessionStorage-like) keys
	KeyPrefixSession = "glimpse:session:"
	// KeySessionSeen is the logical key holding a session's last activity stamp
	KeySessionSeen = "seen"
)

// ProfilePrefix returns the namespace prefix of a browser profile
func ProfilePrefix(profileID string) string {
	return KeyPrefixProfile + profileID + ":"
}

// SessionPrefix returns the namespace prefix of a browsing session
func SessionPrefix(sessionID string) string {
	return KeyPrefixSession + sessionID + ":"
}

// ExtractSessionID returns the session id of a physical session key.
// ok is false for keys outside the session space.
func ExtractSessionID(key string) (string, bool) {
	rest, found := strings.CutPrefix(key, KeyPrefixSession)
	if !found {
		return "", false
	}
	id, _, found := strings.Cut(rest, ":")
	if !found || id == "" {
		return "", false
	}
	return id, true
}
