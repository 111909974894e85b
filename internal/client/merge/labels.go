package merge

import (
	"github.com/peng0105/password-xl/internal/client/labels"
	"github.com/peng0105/password-xl/internal/client/models"
)

// Labels merges the recovered label tree into live. It returns the merged
// tree and the ids that were reassigned on the recovered side, keyed by the
// recovered id; pass the map to RemapLabels for the recovered entries.
func Labels(live, recovered []models.Label, ids *Counter) ([]models.Label, map[int64]int64) {
	tree := labels.FromLabels(live)
	remap := tree.Merge(recovered, ids.Next)
	return tree.Labels(), remap
}
