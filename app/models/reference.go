package models

import (
	"strings"

	"github.com/oklog/ulid/v2"
)

// NewReference returns a short sortable public reference such as "T-01HZX3K9QF7M2A".
func NewReference(prefix string) string {
	id := ulid.Make().String()
	// 10 timestamp chars + 6 random chars
	return prefix + "-" + strings.ToUpper(id[:16])
}
