package vault

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/peng0105/password-xl/internal/client/merge"
	"github.com/peng0105/password-xl/internal/client/models"
	"github.com/peng0105/password-xl/internal/common"
	"github.com/peng0105/password-xl/internal/cryptox"
)

func (s *Session) nowMillis() int64 {
	return s.now().UnixMilli()
}

func (s *Session) indexOf(id int64) int {
	return slices.IndexFunc(s.entries, func(e models.Entry) bool { return e.ID == id })
}

func (s *Session) hasEntry(id int64) bool {
	return s.indexOf(id) >= 0
}

// nextEntryID hands out one id, seeded from the clock.
func (s *Session) nextEntryID() int64 {
	return merge.NewCounter(s.nowMillis()).Next(s.hasEntry)
}

// AddEntry stores a new entry at the top of the list and returns it with
// its id and timestamps set.
func (s *Session) AddEntry(ctx context.Context, e models.Entry) (models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.require(Unlocked); err != nil {
		return models.Entry{}, err
	}

	now := s.nowMillis()
	e = e.Clone()
	e.ID = s.nextEntryID()
	e.AddTime = now
	e.UpdateTime = now
	e.Status = models.StatusNormal
	e.DeleteTime = 0
	if e.Favorite {
		e.FavoriteTime = now
	}

	s.entries = slices.Insert(s.entries, 0, e)
	s.logger.Debug(ctx, "entry added", "id", e.ID)
	return e.Clone(), s.resync(ctx)
}

// UpdateEntry replaces the editable fields of an existing entry.
func (s *Session) UpdateEntry(ctx context.Context, e models.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.require(Unlocked); err != nil {
		return err
	}
	i := s.indexOf(e.ID)
	if i < 0 {
		return common.ErrEntryNotFound
	}

	old := s.entries[i]
	e = e.Clone()
	e.AddTime = old.AddTime
	e.Status = old.Status
	e.DeleteTime = old.DeleteTime
	e.UpdateTime = s.nowMillis()
	switch {
	case !e.Favorite:
		e.FavoriteTime = 0
	case !old.Favorite:
		e.FavoriteTime = e.UpdateTime
	default:
		e.FavoriteTime = old.FavoriteTime
	}

	s.entries[i] = e
	return s.resync(ctx)
}

// SoftDeleteEntry moves an entry to the recycle bin. An entry already in
// the bin, or any entry while the bin is disabled, is removed for good.
func (s *Session) SoftDeleteEntry(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.require(Unlocked); err != nil {
		return err
	}
	i := s.indexOf(id)
	if i < 0 {
		return common.ErrEntryNotFound
	}

	if !s.setting.EnableRecycleBin || s.entries[i].Deleted() {
		s.entries = slices.Delete(s.entries, i, i+1)
		s.logger.Debug(ctx, "entry purged", "id", id)
	} else {
		s.entries[i].Status = models.StatusDeleted
		s.entries[i].DeleteTime = s.nowMillis()
		s.logger.Debug(ctx, "entry moved to recycle bin", "id", id)
	}
	return s.resync(ctx)
}

// RestoreEntry takes an entry out of the recycle bin.
func (s *Session) RestoreEntry(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.require(Unlocked); err != nil {
		return err
	}
	i := s.indexOf(id)
	if i < 0 {
		return common.ErrEntryNotFound
	}

	s.entries[i].Status = models.StatusNormal
	s.entries[i].DeleteTime = 0
	return s.resync(ctx)
}

// PurgeEntry removes an entry regardless of its status.
func (s *Session) PurgeEntry(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.require(Unlocked); err != nil {
		return err
	}
	i := s.indexOf(id)
	if i < 0 {
		return common.ErrEntryNotFound
	}

	s.entries = slices.Delete(s.entries, i, i+1)
	return s.resync(ctx)
}

// EmptyRecycleBin removes every deleted entry and returns how many.
func (s *Session) EmptyRecycleBin(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.require(Unlocked); err != nil {
		return 0, err
	}

	before := len(s.entries)
	s.entries = slices.DeleteFunc(s.entries, models.Entry.Deleted)
	n := before - len(s.entries)
	if n == 0 {
		return 0, nil
	}
	return n, s.resync(ctx)
}

// SetFavorite marks or unmarks an entry as favorite.
func (s *Session) SetFavorite(ctx context.Context, id int64, favorite bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.require(Unlocked); err != nil {
		return err
	}
	i := s.indexOf(id)
	if i < 0 {
		return common.ErrEntryNotFound
	}

	s.entries[i].Favorite = favorite
	if favorite {
		s.entries[i].FavoriteTime = s.nowMillis()
	} else {
		s.entries[i].FavoriteTime = 0
	}
	return s.resync(ctx)
}

// Entry returns one entry by id.
func (s *Session) Entry(id int64) (models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.require(Unlocked); err != nil {
		return models.Entry{}, err
	}
	i := s.indexOf(id)
	if i < 0 {
		return models.Entry{}, common.ErrEntryNotFound
	}
	return s.entries[i].Clone(), nil
}

// Entries lists the live entries ordered by the sort setting.
func (s *Session) Entries() []models.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.collect(func(e models.Entry) bool { return !e.Deleted() })
	slices.SortStableFunc(out, entryOrder(s.setting.SortField, s.setting.SortOrder))
	return out
}

// Deleted lists the recycle bin, oldest deletion first.
func (s *Session) Deleted() []models.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.collect(models.Entry.Deleted)
	slices.SortStableFunc(out, func(a, b models.Entry) int { return cmp.Compare(a.DeleteTime, b.DeleteTime) })
	return out
}

// Favorites lists live favorite entries in the order they were marked.
func (s *Session) Favorites() []models.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.collect(func(e models.Entry) bool { return e.Favorite && !e.Deleted() })
	slices.SortStableFunc(out, func(a, b models.Entry) int { return cmp.Compare(a.FavoriteTime, b.FavoriteTime) })
	return out
}

// Search lists live entries containing text, ignoring case, in any text
// field or custom field. With labelIDs set, an entry must also carry at
// least one of them. Results follow the sort setting.
func (s *Session) Search(text string, labelIDs []int64) []models.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	needle := strings.ToLower(strings.TrimSpace(text))
	out := s.collect(func(e models.Entry) bool {
		if e.Deleted() {
			return false
		}
		if len(labelIDs) > 0 && !slices.ContainsFunc(labelIDs, e.HasLabel) {
			return false
		}
		return needle == "" || matches(e, needle)
	})
	slices.SortStableFunc(out, entryOrder(s.setting.SortField, s.setting.SortOrder))
	return out
}

func matches(e models.Entry, needle string) bool {
	fields := []string{e.Title, e.Address, e.Username, e.Password, e.Remark}
	for _, f := range e.CustomFields {
		fields = append(fields, f.Key, f.Val)
	}
	return slices.ContainsFunc(fields, func(f string) bool {
		return strings.Contains(strings.ToLower(f), needle)
	})
}

func (s *Session) collect(keep func(models.Entry) bool) []models.Entry {
	if s.state != Unlocked {
		return nil
	}
	out := make([]models.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if keep(e) {
			out = append(out, e.Clone())
		}
	}
	return out
}

func entryOrder(field, order string) func(a, b models.Entry) int {
	var by func(a, b models.Entry) int
	switch field {
	case "title":
		by = func(a, b models.Entry) int { return cmp.Compare(a.Title, b.Title) }
	case "username":
		by = func(a, b models.Entry) int { return cmp.Compare(a.Username, b.Username) }
	case "address":
		by = func(a, b models.Entry) int { return cmp.Compare(a.Address, b.Address) }
	case "updateTime":
		by = func(a, b models.Entry) int { return cmp.Compare(a.UpdateTime, b.UpdateTime) }
	case "strength":
		by = func(a, b models.Entry) int {
			return cmp.Compare(cryptox.Strength(a.Password), cryptox.Strength(b.Password))
		}
	default:
		by = func(a, b models.Entry) int { return cmp.Compare(a.AddTime, b.AddTime) }
	}

	if order == models.SortAscending {
		return by
	}
	return func(a, b models.Entry) int { return by(b, a) }
}
