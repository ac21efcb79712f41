// Package id generates the prefixed identifiers used for engine entities.
package id

import (
	"fmt"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes for engine entities.
const (
	PrefixTeam   = "team"
	PrefixMedia  = "media"
	PrefixGrant  = "grant"
	PrefixReport = "report"
	PrefixClient = "sse"
	PrefixToken  = "token"
)

// alphabet leaves out '-' and '_' so the first hyphen always ends the prefix.
const (
	alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	size     = 21
)

// Generate returns "<prefix>-<nanoid>", e.g. "team-V1StGXR8Z5jdHi6BmyT3q".
// It fails only when the system entropy source does.
func Generate(prefix string) (string, error) {
	n, err := gonanoid.Generate(alphabet, size)
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + n, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}

// Is reports whether id carries prefix and a non-empty remainder. It only
// checks shape; ids from older alphabets still pass.
func Is(id, prefix string) bool {
	rest, ok := strings.CutPrefix(id, prefix+"-")
	return ok && rest != ""
}
