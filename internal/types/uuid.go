package types

import (
	"strings"

	"github.com/oklog/ulid/v2"
)

const (
	UUID_PREFIX_SUBSCRIPTION   = "subs"
	UUID_PREFIX_CREDIT_PACKAGE = "cpkg"
	UUID_PREFIX_REQUEST        = "req"
)

// GenerateUUID returns a new lowercase ULID. ULIDs are lexicographically
// sortable by creation time which keeps ordered scans cheap.
func GenerateUUID() string {
	return strings.ToLower(ulid.Make().String())
}

// GenerateUUIDWithPrefix returns a new ULID prefixed with the given entity
// prefix, e.g. "subs_01hv...".
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return prefix + "_" + GenerateUUID()
}
