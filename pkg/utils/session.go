package utils

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const (
	RequestIDKey    = "request_id"
	UserIDHeader    = "X-User-ID"
	SessionIDHeader = "X-Session-ID"
	RequestIDHeader = "X-Request-ID"
)

// NewSessionID returns a random chat session id.
func NewSessionID() string {
	return uuid.New().String()
}

// ValidateSessionID reports whether id is a well-formed UUID.
func ValidateSessionID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// ParseUserID reads a positive numeric user id. Blank input yields 0 and no
// error so callers can decide whether the id is required.
func ParseUserID(raw string) (uint, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid user id %q", raw)
	}
	return uint(id), nil
}
