package models

// MainPasswordType is how the user enters the main secret.
type MainPasswordType string

const (
	MainPasswordStandard MainPasswordType = "standard"
	MainPasswordGesture  MainPasswordType = "gesture"
)

// Valid reports whether t is a known type.
func (t MainPasswordType) Valid() bool {
	return t == MainPasswordStandard || t == MainPasswordGesture
}

// StoreData is the persisted vault snapshot. PasswordData holds the packed
// entries and LabelData the label tree, both encrypted under the main secret.
type StoreData struct {
	PasswordData     string           `json:"passwordData"`
	LabelData        string           `json:"labelData"`
	MainPasswordType MainPasswordType `json:"mainPasswordType"`
}

// BackupFile is the export format for a vault snapshot.
type BackupFile struct {
	Explain    string    `json:"explain"`
	StoreData  StoreData `json:"storeData"`
	BackupTime int64     `json:"backupTime"`
}

// LoginInfo is the persisted auto-login capsule body. LoginForm is the
// serialized login form encrypted under the main secret.
type LoginInfo struct {
	MainPasswordType MainPasswordType `json:"mainPasswordType"`
	LoginForm        string           `json:"loginForm"`
}
