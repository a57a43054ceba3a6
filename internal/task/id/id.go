// Package id provides unique identifier generation for tasks.
package id

import "github.com/google/uuid"

// Prefix starts every task handle.
const Prefix = "task-"

// Generate creates a new unique task handle.
// Format: task-<uuid>
// Example: task-6f1c2b9e-3d4a-4b8e-9a51-0c7d2e8f1a23
func Generate() string {
	return Prefix + uuid.NewString()
}

// Valid reports whether s has the shape of a generated handle.
func Valid(s string) bool {
	if len(s) <= len(Prefix) || s[:len(Prefix)] != Prefix {
		return false
	}
	_, err := uuid.Parse(s[len(Prefix):])
	return err == nil
}
