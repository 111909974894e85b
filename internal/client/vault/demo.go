package vault

import (
	"github.com/peng0105/password-xl/internal/client/merge"
	"github.com/peng0105/password-xl/internal/client/models"
	"github.com/peng0105/password-xl/internal/cryptox"
)

// addDemoData seeds a fresh vault with one label and one entry.
func (s *Session) addDemoData() {
	now := s.nowMillis()
	ids := merge.NewCounter(now)

	labelID := ids.Next(s.tree.Has)
	_ = s.tree.Add(0, labelID, "Example")

	entry := models.Entry{
		ID:         ids.Next(s.hasEntry),
		Title:      "Example account",
		Address:    "https://example.com",
		Username:   "demo@example.com",
		Password:   cryptox.GeneratePassword(s.setting.GenerateRule, s.setting.EasyConfuseChat),
		Remark:     "Created with your vault. Edit or delete it at any time.",
		AddTime:    now,
		UpdateTime: now,
		CustomFields: models.CustomFields{
			{Key: "PIN", Val: "0000"},
		},
		Labels: []int64{labelID},
		Status: models.StatusNormal,
	}
	s.entries = append([]models.Entry{entry}, s.entries...)
}
