// Package common contains shared constants and sentinel errors used across
// password-xl components.
package common

// AppName names the application. It seeds the cipher IV and prefixes remote keys.
const AppName = "password-xl"

// AuthorizationHeaderName carries the bearer token on private-server requests.
const AuthorizationHeaderName = "Authorization"

// Logical blob names in the remote namespace.
const (
	BlobStore   = "store"
	BlobSetting = "setting"
	BlobNote    = "note"
)
