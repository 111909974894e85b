// Package api holds the wire types of the private blob server, shared by
// the server and the client backend.
package api

import "encoding/json"

// Envelope codes.
const (
	CodeOK           = 200
	CodeBadRequest   = 400
	CodeUnauthorized = 401
	CodeNotFound     = 404
	CodeTooLarge     = 413
	CodeServerError  = 500
)

// Routes.
const (
	PathLogin       = "/login"
	PathGet         = "/get"
	PathPut         = "/put"
	PathDelete      = "/delete"
	PathGetEtag     = "/getEtag"
	PathUploadImage = "/uploadImage/"
	PathImage       = "/image/"
)

// UploadField is the multipart field of an uploaded image.
const UploadField = "file"

// Envelope wraps every response body.
type Envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type KeyRequest struct {
	Key string `json:"key"`
}

type PutRequest struct {
	Key     string `json:"key"`
	Content string `json:"content"`
}

// BlobData is the data of /get. Etag is the last modification time in
// milliseconds.
type BlobData struct {
	Etag    int64  `json:"etag"`
	Content string `json:"content"`
}

// EtagData is the data of /put and /getEtag.
type EtagData struct {
	Etag int64 `json:"etag"`
}

// UploadData is the data of /uploadImage.
type UploadData struct {
	ObjectKey string `json:"objectKey"`
}
