package models

import "encoding/json"

// Label is a node of the label tree. Pid 0 marks a root label.
type Label struct {
	ID       int64   `json:"id"`
	Pid      int64   `json:"pid"`
	Name     string  `json:"name"`
	Children []Label `json:"children"`
}

func (l Label) MarshalJSON() ([]byte, error) {
	type plain Label
	p := plain(l)
	if p.Children == nil {
		p.Children = []Label{}
	}
	return json.Marshal(p)
}

// CloneLabels deep-copies a label forest.
func CloneLabels(in []Label) []Label {
	if in == nil {
		return nil
	}
	out := make([]Label, len(in))
	for i, l := range in {
		out[i] = Label{ID: l.ID, Pid: l.Pid, Name: l.Name, Children: CloneLabels(l.Children)}
	}
	return out
}
