package vault

import (
	"context"

	"github.com/peng0105/password-xl/internal/client/labels"
	"github.com/peng0105/password-xl/internal/client/merge"
	"github.com/peng0105/password-xl/internal/client/models"
)

// Backup returns the current encrypted snapshot as a backup file.
func (s *Session) Backup() (models.BackupFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.require(Logged, Unlocked); err != nil {
		return models.BackupFile{}, err
	}
	return merge.NewBackup(s.store, s.now()), nil
}

// RestoreBackup opens a backup with secret, the main secret in use when
// the backup was made, and merges it into the vault. It returns the number
// of entries that were added.
func (s *Session) RestoreBackup(ctx context.Context, b models.BackupFile, secret string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.require(Unlocked); err != nil {
		return 0, err
	}

	recovered, recTree, err := open(secret, b.StoreData)
	if err != nil {
		return 0, err
	}

	now := s.now()
	ids := merge.NewCounter(now.UnixMilli())

	mergedLabels, remap := merge.Labels(s.tree.Labels(), recTree.Labels(), ids)
	merge.RemapLabels(recovered, remap)
	merged := merge.Entries(s.entries, recovered, ids, now)

	added := len(merged) - len(s.entries)
	s.entries = merged
	s.tree = labels.FromLabels(mergedLabels)

	s.logger.Info(ctx, "backup merged", "recovered", len(recovered), "added", added, "relabeled", len(remap))
	return added, s.resync(ctx)
}
