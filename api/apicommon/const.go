// Package apicommon provides common types, constants, and helper functions for the API.
package apicommon

// MetadataKey is a type to define the key for the metadata stored in the
// context.
type MetadataKey string

// UserMetadataKey is the key used to store the user in the context.
const UserMetadataKey MetadataKey = "user"

const (
	// DefaultPageSize is the page size applied when per_page is absent.
	DefaultPageSize = 25
	// MaxPageSize bounds the per_page query parameter.
	MaxPageSize = 100
)
