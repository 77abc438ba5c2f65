package types

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	UUID_PREFIX_USER         = "user"
	UUID_PREFIX_PLAN         = "plan"
	UUID_PREFIX_SUBSCRIPTION = "subs"
)

// GenerateUUID returns a new lowercase UUID without dashes.
func GenerateUUID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// GenerateUUIDWithPrefix returns a new UUID prefixed with the entity type,
// e.g. "subs_0190fa...".
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return fmt.Sprintf("%s_%s", prefix, GenerateUUID())
}
