// Package models defines server-side data models persisted in the database.
package models

// Blob is one named document of a user. The server never looks inside
// Content; the client stores ciphertext there.
type Blob struct {
	// Owner is the account the blob belongs to.
	Owner string
	// Name is the client-chosen key, e.g. "store.json".
	Name string
	// Content is the stored text.
	Content string
	// ModifiedAt is the last write time in milliseconds and doubles as the
	// version tag. It grows strictly with every write.
	ModifiedAt int64
}

// Image is an uploaded attachment served back under its object key.
type Image struct {
	// Key is the object key, "/<owner>/images/<prefix>/<id>.<ext>".
	Key         string
	Owner       string
	ContentType string
	Data        []byte
	CreatedAt   int64
}
