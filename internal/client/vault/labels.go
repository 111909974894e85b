package vault

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/peng0105/password-xl/internal/client/merge"
	"github.com/peng0105/password-xl/internal/client/models"
	"github.com/peng0105/password-xl/internal/common"
)

// Labels returns the label tree.
func (s *Session) Labels() []models.Label {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Unlocked {
		return nil
	}
	return s.tree.Labels()
}

// FindLabel returns a label and its subtree.
func (s *Session) FindLabel(id int64) (models.Label, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Unlocked {
		return models.Label{}, false
	}
	return s.tree.Find(id)
}

// FindLabelByName returns the first label named name, ignoring case.
func (s *Session) FindLabelByName(name string) (models.Label, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Unlocked {
		return models.Label{}, false
	}
	return s.tree.FindByName(name)
}

// WalkLabels visits the label tree depth first.
func (s *Session) WalkLabels(fn func(l models.Label, depth int) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Unlocked {
		return
	}
	s.tree.Walk(fn)
}

// AddLabel creates a label under parentID, 0 for a root label.
func (s *Session) AddLabel(ctx context.Context, parentID int64, name string) (models.Label, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.require(Unlocked); err != nil {
		return models.Label{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Label{}, fmt.Errorf("%w: label name required", common.ErrInvalidState)
	}

	id := merge.NewCounter(s.nowMillis()).Next(s.tree.Has)
	if err := s.tree.Add(parentID, id, name); err != nil {
		return models.Label{}, err
	}

	l, _ := s.tree.Find(id)
	return l, s.resync(ctx)
}

// RenameLabel renames a label.
func (s *Session) RenameLabel(ctx context.Context, id int64, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.require(Unlocked); err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: label name required", common.ErrInvalidState)
	}
	if err := s.tree.Rename(id, name); err != nil {
		return err
	}
	return s.resync(ctx)
}

// RemoveLabel deletes a label with its subtree and detaches the removed
// labels from every entry.
func (s *Session) RemoveLabel(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.require(Unlocked); err != nil {
		return err
	}

	removed, err := s.tree.Remove(id)
	if err != nil {
		return err
	}
	for i := range s.entries {
		s.entries[i].Labels = slices.DeleteFunc(s.entries[i].Labels, func(l int64) bool {
			return slices.Contains(removed, l)
		})
	}

	s.logger.Debug(ctx, "label removed", "id", id, "subtree", len(removed))
	return s.resync(ctx)
}
