// Package merge reconciles a recovered backup with the live vault and reads
// and writes backup files.
package merge

import (
	"fmt"
	"time"

	"github.com/peng0105/password-xl/internal/client/models"
)

// MarkerLayout formats the time in the note appended to re-keyed entries.
const MarkerLayout = "2006-01-02 15:04"

// Marker returns the note suffix for an entry merged at t.
func Marker(t time.Time) string {
	return fmt.Sprintf(" (merged on %s)", t.Format(MarkerLayout))
}

// Entries merges recovered into live and returns the result; live is not
// modified.
//
//   - an unknown id is inserted as is
//   - a known id with the same content adds the recovered labels to the live
//     entry
//   - a known id with different content is inserted as a new entry with an id
//     from ids and a merge marker appended to its remark
func Entries(live, recovered []models.Entry, ids *Counter, now time.Time) []models.Entry {
	out := make([]models.Entry, 0, len(live)+len(recovered))
	index := make(map[int64]int, len(live)+len(recovered))
	for _, e := range live {
		index[e.ID] = len(out)
		out = append(out, e.Clone())
	}

	// fresh ids also avoid ids still to come from recovered
	pending := make(map[int64]struct{}, len(recovered))
	for _, r := range recovered {
		pending[r.ID] = struct{}{}
	}
	taken := func(id int64) bool {
		_, live := index[id]
		_, queued := pending[id]
		return live || queued
	}

	for _, r := range recovered {
		r = r.Clone()

		i, ok := index[r.ID]
		if !ok {
			index[r.ID] = len(out)
			out = append(out, r)
			continue
		}

		if out[i].SameContent(r) {
			out[i].Labels = unionLabels(out[i].Labels, r.Labels)
			continue
		}

		r.ID = ids.Next(taken)
		r.Remark += Marker(now)
		index[r.ID] = len(out)
		out = append(out, r)
	}

	return out
}

func unionLabels(a, b []int64) []int64 {
	seen := make(map[int64]struct{}, len(a)+len(b))
	out := make([]int64, 0, len(a)+len(b))
	for _, list := range [][]int64{a, b} {
		for _, id := range list {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// RemapLabels rewrites label references in entries using remap.
func RemapLabels(entries []models.Entry, remap map[int64]int64) {
	if len(remap) == 0 {
		return
	}
	for i := range entries {
		for j, id := range entries[i].Labels {
			if to, ok := remap[id]; ok {
				entries[i].Labels[j] = to
			}
		}
	}
}
