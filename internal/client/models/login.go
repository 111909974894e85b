package models

// Backend kinds accepted in LoginForm.LoginType.
const (
	LoginTypeS3      = "s3"
	LoginTypeOSS     = "oss"
	LoginTypeCOS     = "cos"
	LoginTypePrivate = "private"
	LoginTypeWebDAV  = "webdav"
	LoginTypeLocal   = "local"
	LoginTypeBridge  = "bridge"
	LoginTypeMemory  = "memory"
)

// LoginForm carries backend credentials. Only the fields of the selected
// LoginType are meaningful.
type LoginForm struct {
	LoginType string `json:"loginType"`

	// object storage
	Region          string `json:"region,omitempty"`
	AccessKeyID     string `json:"accessKeyId,omitempty"`
	AccessKeySecret string `json:"accessKeySecret,omitempty"`
	Bucket          string `json:"bucket,omitempty"`
	Endpoint        string `json:"endpoint,omitempty"`
	PathStyle       bool   `json:"pathStyle,omitempty"`

	// private server and WebDAV
	ServerURL string `json:"serverUrl,omitempty"`
	Username  string `json:"username,omitempty"`
	Password  string `json:"password,omitempty"`
	RootPath  string `json:"rootPath,omitempty"`

	// local file
	FilePath string `json:"filePath,omitempty"`

	// platform bridge
	BridgeAddr string `json:"bridgeAddr,omitempty"`
}
