// Package security provides the credential obfuscation scheme used for
// telegram tokens and other secrets embedded in configuration files.
//
// This is obfuscation, not encryption: anyone with the config file can
// recover the plaintext. It exists only to keep credentials out of plain
// sight in version control and log dumps.
package security

import (
	"encoding/base64"
	"fmt"
)

// Encode applies base64 twice over the UTF-8 bytes of value.
func Encode(value string) string {
	inner := base64.StdEncoding.EncodeToString([]byte(value))
	return base64.StdEncoding.EncodeToString([]byte(inner))
}

// Decode reverses Encode: base64-decode twice to recover the plaintext.
func Decode(encoded string) (string, error) {
	outer, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("security: outer base64 decode: %w", err)
	}
	inner, err := base64.StdEncoding.DecodeString(string(outer))
	if err != nil {
		return "", fmt.Errorf("security: inner base64 decode: %w", err)
	}
	return string(inner), nil
}
