package utils

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// NewID returns 32 lowercase hex chars drawn from a random (v4) UUID.
// Collisions are not checked against any store.
func NewID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}
