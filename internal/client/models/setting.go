package models

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/peng0105/password-xl/internal/cryptox"
)

// Sort orders.
const (
	SortAscending  = "ascending"
	SortDescending = "descending"
)

// Setting is the plaintext settings blob. Fields the engine does not use are
// kept in Extra so a rewrite does not drop what other clients stored.
type Setting struct {
	SortField            string               `json:"sortField"`
	SortOrder            string               `json:"sortOrder"`
	EnableRecycleBin     bool                 `json:"enableRecycleBin"`
	AutoGeneratePassword bool                 `json:"autoGeneratePassword"`
	GenerateRule         cryptox.GenerateRule `json:"generateRule"`
	EasyConfuseChat      string               `json:"easyConfuseChat"`
	CustomFields         CustomFields         `json:"customFields"`
	TimeoutLock          int                  `json:"timeoutLock"`
	AutoLogin            bool                 `json:"autoLogin"`
	AutoUnlock           bool                 `json:"autoUnlock"`

	Extra map[string]json.RawMessage `json:"-"`
}

// DefaultSetting mirrors the browser client's defaults.
func DefaultSetting() Setting {
	return Setting{
		SortField:            "addTime",
		SortOrder:            SortDescending,
		EnableRecycleBin:     false,
		AutoGeneratePassword: true,
		GenerateRule:         cryptox.DefaultGenerateRule(),
		EasyConfuseChat:      "0OoIil",
		CustomFields:         CustomFields{},
		AutoLogin:            true,
		AutoUnlock:           false,
	}
}

var settingKeys = jsonKeys(reflect.TypeOf(Setting{}))

func jsonKeys(t reflect.Type) map[string]struct{} {
	keys := make(map[string]struct{}, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name != "" && name != "-" {
			keys[name] = struct{}{}
		}
	}
	return keys
}

// UnmarshalJSON overlays b onto s: fields absent from b keep their value.
func (s *Setting) UnmarshalJSON(b []byte) error {
	type plain Setting
	p := plain(*s)
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(b, &all); err != nil {
		return err
	}
	for k, v := range all {
		if _, known := settingKeys[k]; known {
			continue
		}
		if p.Extra == nil {
			p.Extra = make(map[string]json.RawMessage)
		}
		p.Extra[k] = v
	}

	*s = Setting(p)
	return nil
}

func (s Setting) MarshalJSON() ([]byte, error) {
	type plain Setting
	known, err := json.Marshal(plain(s))
	if err != nil || len(s.Extra) == 0 {
		return known, err
	}

	merged := make(map[string]json.RawMessage, len(s.Extra)+len(settingKeys))
	for k, v := range s.Extra {
		merged[k] = v
	}
	var km map[string]json.RawMessage
	if err := json.Unmarshal(known, &km); err != nil {
		return nil, err
	}
	for k, v := range km {
		merged[k] = v
	}
	return json.Marshal(merged)
}
