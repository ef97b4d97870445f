// Package id generates expense identifiers.
//
// Identifiers are UUIDv4 bytes encoded as base32 (RFC 4648) with no padding.
// The resulting strings are 26 characters long, lowercase, and safe for use
// in URLs. They replace wall-clock derived ids, whose collision window grows
// with the number of tabs adding expenses at the same time.
package id

import (
	"encoding/base32"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Generator returns a fresh identifier on every call.
type Generator func() (string, error)

// New generates a URL-safe identifier.
func New() (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return strings.ToLower(encoding.EncodeToString(u[:])), nil
}

// Tab returns a short identifier for a tab instance, prefixed for log readability.
func Tab() (string, error) {
	raw, err := New()
	if err != nil {
		return "", err
	}
	return "tab-" + raw[:10], nil
}
