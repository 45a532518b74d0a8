// Package ident generates throwaway names, emails and passwords so repeated
// runs against a shared backend do not collide. Uniqueness is probabilistic.
package ident

import (
	"strings"

	"github.com/google/uuid"
)

// RandomID returns 10 random hex characters.
func RandomID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
}

// RandomName returns prefix followed by a random suffix, e.g. "pizza 3f9c01a2be".
func RandomName(prefix string) string {
	if prefix == "" {
		return RandomID()
	}
	return prefix + " " + RandomID()
}

// RandomEmail returns a random address at domain (jwt.com when empty).
func RandomEmail(domain string) string {
	if domain == "" {
		domain = "jwt.com"
	}
	return RandomID() + "@" + domain
}

// RandomPassword returns a random 32 character password.
func RandomPassword() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
