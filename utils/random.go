package utils

import (
	"crypto/rand"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

func GenerateCode(n int) (string, error) {
	// Make a slice of nBytes random bytes.
	byt := make([]byte, n)

	// Read into the slice.
	if _, err := rand.Read(byt); err != nil {
		return "", err
	}

	// Return the hexadecimal string.
	return strings.ToUpper(hex.EncodeToString(byt)), nil
}

// NewSessionID returns an id for a booking session, one per seating page.
func NewSessionID() string {
	return "sess_" + uuid.NewString()
}

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,128}$`)

// IsValidSessionID accepts ids the client may send back; they end up in store keys.
func IsValidSessionID(id string) bool {
	return sessionIDPattern.MatchString(id)
}
