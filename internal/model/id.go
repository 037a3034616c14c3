package model

import (
	"strings"

	"github.com/google/uuid"
)

const idHexLen = 12

// NewID returns a short random identifier such as "t-1a2b3c4d5e6f", short
// enough to type into a command.
func NewID(prefix string) string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + "-" + raw[:idHexLen]
}

// NewUniqueID draws short ids until taken reports one as free. After a few
// collisions it falls back to the full uuid.
func NewUniqueID(prefix string, taken func(id string) bool) string {
	for i := 0; i < 8; i++ {
		if id := NewID(prefix); !taken(id) {
			return id
		}
	}
	return prefix + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
