// Package conflict implements compare-before-write on top of a storage
// backend.
//
// The guard remembers the last version tag it saw for each blob, from a read
// or from its own write. Before the next write of that blob it fetches the
// remote tag; if the two differ another session changed the blob and the
// write is refused with common.ErrConflict. A blob with no remembered tag is
// written without a check.
//
// The check and the write are separate requests, so a write landing between
// them goes unnoticed.
package conflict

import (
	"context"
	"sync"

	"github.com/peng0105/password-xl/internal/client/storage"
	"github.com/peng0105/password-xl/internal/common"
	"github.com/peng0105/password-xl/internal/logging"
)

// Guard wraps an Adapter with a per-blob version tag cache.
type Guard struct {
	adapter storage.Adapter
	logger  logging.Logger

	mu   sync.Mutex
	tags map[string]string
}

func New(a storage.Adapter, l logging.Logger) *Guard {
	return &Guard{
		adapter: a,
		logger:  logging.OrDiscard(l).With("module", "conflict_guard"),
		tags:    make(map[string]string),
	}
}

// Adapter returns the wrapped backend.
func (g *Guard) Adapter() storage.Adapter {
	return g.adapter
}

// Read reads a blob and remembers its tag.
func (g *Guard) Read(ctx context.Context, name string) (string, error) {
	content, tag, err := g.adapter.Read(ctx, name)
	if err != nil {
		return "", err
	}
	if content != "" {
		g.remember(name, tag)
	}
	return content, nil
}

// Write checks the remote tag, writes content and remembers the new tag.
func (g *Guard) Write(ctx context.Context, name, content string) error {
	if err := g.Check(ctx, name); err != nil {
		return err
	}

	tag, err := g.adapter.Write(ctx, name, content)
	if err != nil {
		return err
	}

	if tag == "" && g.versioned() {
		tag, err = g.adapter.Tag(ctx, name)
		if err != nil {
			// the write landed; without a tag the next write skips the check
			g.logger.Warn(ctx, "could not refresh version tag", "blob", name, "error", storage.UserMessage(err))
			g.forget(name)
			return nil
		}
	}
	g.remember(name, tag)
	return nil
}

// Check compares the remembered tag for name with the remote one.
func (g *Guard) Check(ctx context.Context, name string) error {
	cached, ok := g.Tag(name)
	if !ok || !g.versioned() {
		return nil
	}

	remote, err := g.adapter.Tag(ctx, name)
	if err != nil {
		return err
	}

	if remote != cached {
		g.logger.Warn(ctx, "remote blob changed by another session", "blob", name)
		return storage.NewError(common.ErrConflict, "the vault was updated by another client, reload required", nil)
	}
	return nil
}

// Remove deletes a blob and forgets its tag.
func (g *Guard) Remove(ctx context.Context, name string) error {
	if err := g.adapter.Remove(ctx, name); err != nil {
		return err
	}
	g.forget(name)
	return nil
}

// Tag returns the remembered tag for name.
func (g *Guard) Tag(name string) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	t, ok := g.tags[name]
	return t, ok
}

// Reset forgets every tag. Called on logout.
func (g *Guard) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tags = make(map[string]string)
}

// Snapshot returns a copy of the remembered tags.
func (g *Guard) Snapshot() map[string]string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[string]string, len(g.tags))
	for k, v := range g.tags {
		out[k] = v
	}
	return out
}

// Restore replaces the remembered tags with a Snapshot result.
func (g *Guard) Restore(tags map[string]string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tags = make(map[string]string, len(tags))
	for k, v := range tags {
		g.tags[k] = v
	}
}

func (g *Guard) versioned() bool {
	return g.adapter.Capabilities().Versioning
}

func (g *Guard) remember(name, tag string) {
	if tag == "" {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tags[name] = tag
}

func (g *Guard) forget(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.tags, name)
}
