// Package identity derives anonymous poster identities from request data.
//
// A poster is identified by a hash of their user agent and a device id. When
// the client sends no device id one is derived from the user agent alone, so
// two visitors with the same browser string and no stored device id share an
// identity. That collision is accepted: the board is anonymous and the hash
// only groups posts, it never authenticates anyone.
package identity

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
)

const (
	// UnknownUserAgent stands in for a missing User-Agent header.
	UnknownUserAgent = "Unknown"
	// LocalIP is used when no forwarding header names the client.
	LocalIP = "127.0.0.1"
)

// DeviceID derives a stable 12 hex char device id from a user agent.
func DeviceID(userAgent string) string {
	sum := md5.Sum([]byte(userAgent))
	return hex.EncodeToString(sum[:])[:12]
}

// UserHash derives the 16 hex char user key from a user agent and device id.
func UserHash(userAgent, deviceID string) string {
	sum := sha256.Sum256([]byte(userAgent + ":" + deviceID))
	return hex.EncodeToString(sum[:])[:16]
}

// Resolve returns the device id to use (derived when empty) and the user hash.
func Resolve(userAgent, deviceID string) (string, string) {
	if deviceID == "" {
		deviceID = DeviceID(userAgent)
	}
	return deviceID, UserHash(userAgent, deviceID)
}

// ClientIP returns X-Real-IP, then the first X-Forwarded-For entry, then
// LocalIP. The board runs behind a reverse proxy that sets these headers.
func ClientIP(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	return LocalIP
}

// UserAgent returns the request's user agent or UnknownUserAgent.
func UserAgent(r *http.Request) string {
	if ua := r.UserAgent(); ua != "" {
		return ua
	}
	return UnknownUserAgent
}
