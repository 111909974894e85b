// Package models defines the vault data shapes shared by the engine, the
// storage adapters and the CLI. JSON field names match the browser client so
// both can read the same remote blobs.
package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"sort"
	"strings"
)

// Status of an entry.
type Status int

const (
	StatusNormal  Status = 0
	StatusDeleted Status = 1
)

var ErrIncorrectCustomField = errors.New("custom field must be key=value")

// CustomField is a user-defined key/value pair on an entry.
type CustomField struct {
	Key string `json:"key"`
	Val string `json:"val"`
}

// CustomFields accepts both the array form and the legacy object form
// ({"key":"val"}) that older demo data was written with. Empty input of
// any form decodes to nil.
type CustomFields []CustomField

func (c *CustomFields) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*c = nil
		return nil
	}

	if b[0] == '{' {
		var m map[string]string
		if err := json.Unmarshal(b, &m); err != nil {
			return err
		}
		if len(m) == 0 {
			*c = nil
			return nil
		}
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(CustomFields, 0, len(keys))
		for _, k := range keys {
			out = append(out, CustomField{Key: k, Val: m[k]})
		}
		*c = out
		return nil
	}

	var arr []CustomField
	if err := json.Unmarshal(b, &arr); err != nil {
		return err
	}
	if len(arr) == 0 {
		arr = nil
	}
	*c = arr
	return nil
}

func (c CustomFields) MarshalJSON() ([]byte, error) {
	if c == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]CustomField(c))
}

// CustomFieldsFromStrings parses "key=value" items.
func CustomFieldsFromStrings(s []string) (CustomFields, error) {
	data := make(CustomFields, len(s))
	for n, item := range s {
		parts := strings.SplitN(item, "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			return nil, ErrIncorrectCustomField
		}
		data[n] = CustomField{Key: parts[0], Val: parts[1]}
	}
	return data, nil
}

// Entry is one stored credential. Timestamps are unix milliseconds.
type Entry struct {
	ID           int64        `json:"id"`
	Title        string       `json:"title"`
	Address      string       `json:"address"`
	Username     string       `json:"username"`
	Password     string       `json:"password"`
	Remark       string       `json:"remark"`
	AddTime      int64        `json:"addTime"`
	UpdateTime   int64        `json:"updateTime"`
	DeleteTime   int64        `json:"deleteTime"`
	FavoriteTime int64        `json:"favoriteTime"`
	Favorite     bool         `json:"favorite"`
	CustomFields CustomFields `json:"customFields"`
	Labels       []int64      `json:"labels"`
	Status       Status       `json:"status"`
	BgColor      string       `json:"bgColor"`
}

// SameContent reports whether e and o carry the same credential, ignoring
// labels, timestamps and presentation.
func (e Entry) SameContent(o Entry) bool {
	return e.Title == o.Title &&
		e.Username == o.Username &&
		e.Address == o.Address &&
		e.Password == o.Password &&
		e.Remark == o.Remark
}

// Deleted reports whether the entry sits in the recycle bin.
func (e Entry) Deleted() bool {
	return e.Status == StatusDeleted
}

// HasLabel reports whether id is among the entry's labels.
func (e Entry) HasLabel(id int64) bool {
	for _, l := range e.Labels {
		if l == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (e Entry) Clone() Entry {
	c := e
	if e.CustomFields != nil {
		c.CustomFields = append(CustomFields(nil), e.CustomFields...)
	}
	if e.Labels != nil {
		c.Labels = append([]int64(nil), e.Labels...)
	}
	return c
}
