// Package common contains constants and sentinel errors shared by the
// client packages.
package common

// AuthorizationHeaderName carries the bearer credential on outbound requests.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the token in the Authorization header value.
const BearerPrefix = "Bearer "

// Persisted key names. They are shared by every client process that opens
// the same storage file, so they must never change.
const (
	KeyAuthToken = "ace_token"
	KeyAuthRole  = "ace_role"

	KeySearchQuery   = "last_search_query"
	KeySearchResults = "last_search_results"
	KeySearchSaved   = "last_search_saved"

	KeyImagePrompt  = "last_image_prompt"
	KeyImageResults = "last_image_results"
	KeyImageSaved   = "last_image_saved"
)
