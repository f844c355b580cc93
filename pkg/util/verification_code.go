package util

import (
	"crypto/subtle"
	"strings"
	"time"
)

const (
	// PickupCodeAlphabet excludes 0, O, 1, I and L so codes survive being read aloud
	PickupCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	// DefaultCodeLength is the length of codes handed to customers
	DefaultCodeLength = 6
)

// GenerateSecureCode returns a code of the given length drawn from PickupCodeAlphabet.
// A non-positive length falls back to DefaultCodeLength.
func GenerateSecureCode(length int) (string, error) {
	if length <= 0 {
		length = DefaultCodeLength
	}
	code, err := RandomString(PickupCodeAlphabet, length)
	if err != nil {
		return "", err
	}
	return strings.ToUpper(code), nil
}

// NormalizeCode canonicalizes user input before lookup or comparison
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsCodeFormat reports whether code has exactly length characters from the alphabet.
// Input is uppercased first, so "ab3xyz" is accepted.
func IsCodeFormat(code string, length int) bool {
	if length <= 0 {
		length = DefaultCodeLength
	}
	code = strings.ToUpper(code)
	if len(code) != length {
		return false
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(PickupCodeAlphabet, code[i]) < 0 {
			return false
		}
	}
	return true
}

// IsCodeExpired reports whether now is strictly after expiresAt
func IsCodeExpired(expiresAt time.Time) bool {
	return isExpiredAt(expiresAt, time.Now())
}

func isExpiredAt(expiresAt, now time.Time) bool {
	return now.After(expiresAt)
}

// ValidateCode compares submitted against expected case-insensitively.
// Lengths are not secret; for equal lengths the comparison is constant time.
func ValidateCode(submitted, expected string) bool {
	a := strings.ToUpper(submitted)
	b := strings.ToUpper(expected)
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
