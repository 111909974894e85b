// Package labels holds the label tree as an arena of nodes addressed by id.
// Every walk uses an explicit stack, so deep or pathological trees cannot
// exhaust the goroutine stack.
package labels

import (
	"strings"

	"github.com/peng0105/password-xl/internal/client/models"
	"github.com/peng0105/password-xl/internal/common"
)

type node struct {
	id       int64
	pid      int64
	name     string
	parent   *node
	children []*node
}

// Tree is a label forest. A label id appears at most once.
type Tree struct {
	roots []*node
	byID  map[int64]*node
}

type buildItem struct {
	parent *node
	label  models.Label
}

// FromLabels builds a tree from its serialized form. A repeated id keeps
// only its first occurrence; the children of a repeat are moved under that
// first occurrence. Stored pids are kept as they are, the tree position is
// what counts.
func FromLabels(in []models.Label) *Tree {
	t := &Tree{byID: make(map[int64]*node)}

	stack := make([]buildItem, 0, len(in))
	for i := len(in) - 1; i >= 0; i-- {
		stack = append(stack, buildItem{label: in[i]})
	}

	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if first, dup := t.byID[it.label.ID]; dup {
			for i := len(it.label.Children) - 1; i >= 0; i-- {
				stack = append(stack, buildItem{parent: first, label: it.label.Children[i]})
			}
			continue
		}

		n := &node{id: it.label.ID, pid: it.label.Pid, name: it.label.Name}
		t.attach(it.parent, n)

		for i := len(it.label.Children) - 1; i >= 0; i-- {
			stack = append(stack, buildItem{parent: n, label: it.label.Children[i]})
		}
	}

	return t
}

func (t *Tree) attach(parent, n *node) {
	n.parent = parent
	if parent == nil {
		t.roots = append(t.roots, n)
	} else {
		parent.children = append(parent.children, n)
	}
	t.byID[n.id] = n
}

func (t *Tree) siblings(parent *node) []*node {
	if parent == nil {
		return t.roots
	}
	return parent.children
}

type emitFrame struct {
	n    *node
	done bool
}

// Labels serializes the tree.
func (t *Tree) Labels() []models.Label {
	return t.subtrees(t.roots)
}

func (t *Tree) subtrees(tops []*node) []models.Label {
	built := make(map[*node]models.Label)

	stack := make([]emitFrame, 0, len(tops))
	for _, r := range tops {
		stack = append(stack, emitFrame{n: r})
	}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !f.done {
			stack = append(stack, emitFrame{n: f.n, done: true})
			for _, c := range f.n.children {
				stack = append(stack, emitFrame{n: c})
			}
			continue
		}

		l := models.Label{ID: f.n.id, Pid: f.n.pid, Name: f.n.name, Children: make([]models.Label, 0, len(f.n.children))}
		for _, c := range f.n.children {
			l.Children = append(l.Children, built[c])
			delete(built, c)
		}
		built[f.n] = l
	}

	out := make([]models.Label, 0, len(tops))
	for _, r := range tops {
		out = append(out, built[r])
	}
	return out
}

// Has reports whether id is in the tree.
func (t *Tree) Has(id int64) bool {
	_, ok := t.byID[id]
	return ok
}

// Len returns the number of labels.
func (t *Tree) Len() int {
	return len(t.byID)
}

// Find returns the label with id, including its subtree.
func (t *Tree) Find(id int64) (models.Label, bool) {
	n, ok := t.byID[id]
	if !ok {
		return models.Label{}, false
	}
	return t.subtrees([]*node{n})[0], true
}

// FindByName returns the first label, in walk order, whose name equals name
// ignoring case.
func (t *Tree) FindByName(name string) (models.Label, bool) {
	var found models.Label
	ok := false
	t.Walk(func(l models.Label, depth int) bool {
		if strings.EqualFold(l.Name, name) {
			found, ok = l, true
			return false
		}
		return true
	})
	if !ok {
		return models.Label{}, false
	}
	return t.Find(found.ID)
}

// Add inserts a new label under pid (0 for a root label).
func (t *Tree) Add(pid, id int64, name string) error {
	if t.Has(id) {
		return common.ErrInvalidState
	}
	var parent *node
	if pid != 0 {
		p, ok := t.byID[pid]
		if !ok {
			return common.ErrLabelNotFound
		}
		parent = p
	}
	t.attach(parent, &node{id: id, pid: pid, name: name})
	return nil
}

// Rename changes a label's name.
func (t *Tree) Rename(id int64, name string) error {
	n, ok := t.byID[id]
	if !ok {
		return common.ErrLabelNotFound
	}
	n.name = name
	return nil
}

// Remove deletes a label and its subtree and returns every removed id.
func (t *Tree) Remove(id int64) ([]int64, error) {
	n, ok := t.byID[id]
	if !ok {
		return nil, common.ErrLabelNotFound
	}

	parent := n.parent
	list := t.siblings(parent)
	for i, c := range list {
		if c == n {
			list = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if parent == nil {
		t.roots = list
	} else {
		parent.children = list
	}

	var removed []int64
	stack := []*node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		removed = append(removed, cur.id)
		delete(t.byID, cur.id)
		stack = append(stack, cur.children...)
	}
	return removed, nil
}

type walkItem struct {
	n     *node
	depth int
}

// Walk visits labels depth first in tree order. Children are not included
// in the label passed to fn. Returning false stops the walk.
func (t *Tree) Walk(fn func(l models.Label, depth int) bool) {
	stack := make([]walkItem, 0, len(t.roots))
	for i := len(t.roots) - 1; i >= 0; i-- {
		stack = append(stack, walkItem{n: t.roots[i]})
	}

	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !fn(models.Label{ID: it.n.id, Pid: it.n.pid, Name: it.n.name}, it.depth) {
			return
		}
		for i := len(it.n.children) - 1; i >= 0; i-- {
			stack = append(stack, walkItem{n: it.n.children[i], depth: it.depth + 1})
		}
	}
}

type mergeItem struct {
	parent *node
	label  models.Label
}

// Merge folds recovered into the tree. A recovered label matches a sibling
// only when id, name and pid all agree; matched labels merge their children
// the same way. An unmatched label is grafted with its subtree under the
// resolved parent, and any id already in the tree is replaced by one from
// next. The returned map holds every replaced id.
func (t *Tree) Merge(recovered []models.Label, next func(taken func(int64) bool) int64) map[int64]int64 {
	remap := make(map[int64]int64)

	stack := make([]mergeItem, 0, len(recovered))
	for i := len(recovered) - 1; i >= 0; i-- {
		stack = append(stack, mergeItem{label: recovered[i]})
	}

	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		var match *node
		for _, s := range t.siblings(it.parent) {
			if s.id == it.label.ID && s.name == it.label.Name && s.pid == it.label.Pid {
				match = s
				break
			}
		}

		if match == nil {
			t.graft(it.parent, it.label, next, remap)
			continue
		}

		for i := len(it.label.Children) - 1; i >= 0; i-- {
			stack = append(stack, mergeItem{parent: match, label: it.label.Children[i]})
		}
	}

	return remap
}

func (t *Tree) graft(parent *node, sub models.Label, next func(taken func(int64) bool) int64, remap map[int64]int64) {
	stack := []mergeItem{{parent: parent, label: sub}}

	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		id := it.label.ID
		if t.Has(id) {
			id = next(t.Has)
			remap[it.label.ID] = id
		}

		var pid int64
		if it.parent != nil {
			pid = it.parent.id
		}

		n := &node{id: id, pid: pid, name: it.label.Name}
		t.attach(it.parent, n)

		for i := len(it.label.Children) - 1; i >= 0; i-- {
			stack = append(stack, mergeItem{parent: n, label: it.label.Children[i]})
		}
	}
}
