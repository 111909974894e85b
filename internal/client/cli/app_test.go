package cli

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/peng0105/password-xl/internal/client/autologin"
	"github.com/peng0105/password-xl/internal/client/config"
	"github.com/peng0105/password-xl/internal/client/kv"
	"github.com/peng0105/password-xl/internal/client/models"
	"github.com/peng0105/password-xl/internal/client/storage"
	"github.com/peng0105/password-xl/internal/client/storage/memory"
	"github.com/peng0105/password-xl/internal/client/vault"
	"github.com/peng0105/password-xl/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	app     *App
	out     *bytes.Buffer
	store   *memory.Store
	cache   *autologin.Cache
	secrets *[]string
}

// stubSecrets answers password prompts from a queue.
func stubSecrets(t *testing.T) *[]string {
	t.Helper()
	queue := &[]string{}
	orig := getPassword
	getPassword = func(_ io.Writer, prompt string) ([]byte, error) {
		if len(*queue) == 0 {
			t.Fatalf("unexpected password prompt %q", prompt)
		}
		s := (*queue)[0]
		*queue = (*queue)[1:]
		return []byte(s), nil
	}
	t.Cleanup(func() { getPassword = orig })
	return queue
}

func newHarness(t *testing.T, input string) *harness {
	t.Helper()
	store := memory.New()
	cache := autologin.New(kv.NewMemory(), kv.NewMemory(), "test-device", nil)
	return newHarnessWith(t, input, store, cache)
}

func newHarnessWith(t *testing.T, input string, store *memory.Store, cache *autologin.Cache) *harness {
	t.Helper()
	cfg := &config.Config{
		Backend:        models.LoginTypeMemory,
		RememberLogin:  true,
		RememberSecret: true,
		RequestTimeout: time.Second,
	}
	out := &bytes.Buffer{}
	app := newApp(cfg, nil, store, cache, bufio.NewReader(strings.NewReader(input)), out)
	return &harness{app: app, out: out, store: store, cache: cache, secrets: stubSecrets(t)}
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func (h *harness) answer(secrets ...string) {
	*h.secrets = append(*h.secrets, secrets...)
}

// initVault logs in and creates a vault with secret.
func (h *harness) initVault(t *testing.T, secret string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, h.app.Login(ctx, nil))
	require.Equal(t, vault.WaitInit, h.app.State())

	h.answer(secret, secret)
	require.NoError(t, h.app.Init(ctx, nil))
	require.Equal(t, vault.Unlocked, h.app.State())
}

func TestApp_InitAddAndSearch(t *testing.T) {
	ctx := context.Background()
	input := "GitHub\nhttps://github.com\nalice\nfirst line\n\nWork\nk=v\n\n"
	h := newHarness(t, input)
	h.initVault(t, "pw")

	require.NoError(t, h.app.Label(ctx, []string{"add", "Work"}))

	h.answer("")
	require.NoError(t, h.app.Add(ctx, nil))

	found := h.app.session.Search("github", nil)
	require.Len(t, found, 1)
	e := found[0]
	assert.Equal(t, "alice", e.Username)
	assert.NotEmpty(t, e.Password, "password generated")
	assert.Equal(t, "first line", e.Remark)
	assert.Equal(t, models.CustomFields{{Key: "k", Val: "v"}}, e.CustomFields)

	work, ok := h.app.session.FindLabelByName("Work")
	require.True(t, ok)
	assert.Equal(t, []int64{work.ID}, e.Labels)

	h.out.Reset()
	require.NoError(t, h.app.List(ctx, []string{"#work"}))
	assert.Contains(t, h.out.String(), "GitHub")
	assert.NotContains(t, h.out.String(), "Example account")

	err := h.app.List(ctx, []string{"#nope"})
	assert.ErrorIs(t, err, common.ErrLabelNotFound)
}

func TestApp_InitRejectsMismatch(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "")
	require.NoError(t, h.app.Login(ctx, nil))

	h.answer("one", "two")
	require.Error(t, h.app.Init(ctx, nil))
	assert.Equal(t, vault.WaitInit, h.app.State())
}

func TestApp_RecycleBin(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "")
	h.initVault(t, "pw")

	require.NoError(t, h.app.Set(ctx, []string{"recyclebin", "on"}))
	assert.True(t, h.app.session.Setting().EnableRecycleBin)

	demo := h.app.session.Entries()[0]
	id := []string{formatID(demo.ID)}

	require.NoError(t, h.app.Delete(ctx, id))
	require.Len(t, h.app.session.Deleted(), 1)

	require.NoError(t, h.app.Restore(ctx, id))
	assert.Empty(t, h.app.session.Deleted())

	require.NoError(t, h.app.Delete(ctx, id))
	h.out.Reset()
	require.NoError(t, h.app.EmptyTrash(ctx, nil))
	assert.Contains(t, h.out.String(), "1 entries deleted")
	assert.Empty(t, h.app.session.Entries())

	assert.ErrorIs(t, h.app.Show(ctx, id), common.ErrEntryNotFound)
	assert.ErrorIs(t, h.app.Delete(ctx, nil), errUsage)
}

func TestApp_SetRejectsBadValues(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "")
	h.initVault(t, "pw")

	tag, _ := h.store.Content(common.BlobSetting)

	assert.Error(t, h.app.Set(ctx, []string{"timeout", "soon"}))
	assert.Error(t, h.app.Set(ctx, []string{"sort", "color"}))
	assert.Error(t, h.app.Set(ctx, []string{"nope", "1"}))

	after, _ := h.store.Content(common.BlobSetting)
	assert.Equal(t, tag, after, "rejected values are not written")

	require.NoError(t, h.app.Set(ctx, []string{"sort", "title:asc"}))
	s := h.app.session.Setting()
	assert.Equal(t, "title", s.SortField)
	assert.Equal(t, models.SortAscending, s.SortOrder)
}

func TestApp_AutoLoginWithRememberedSecret(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "")
	h.initVault(t, "pw")

	require.NoError(t, h.app.Set(ctx, []string{"autounlock", "on"}))
	require.NoError(t, h.app.Lock(ctx, nil))
	h.answer("pw")
	require.NoError(t, h.app.Unlock(ctx, nil))

	next := newHarnessWith(t, "", h.store, h.cache)
	require.NoError(t, next.app.autoLogin(ctx))
	assert.Equal(t, vault.Unlocked, next.app.State())

	require.NoError(t, next.app.Logout(ctx, nil))
	_, err := h.cache.Info(ctx)
	assert.ErrorIs(t, err, autologin.ErrNoCapsule)
}

func TestApp_RememberedLoginAsksForSecret(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "")
	h.initVault(t, "pw")

	next := newHarnessWith(t, "", h.store, h.cache)
	assert.ErrorIs(t, next.app.autoLogin(ctx), autologin.ErrNoCapsule)

	next.answer("pw")
	require.NoError(t, next.app.Login(ctx, nil))
	assert.Equal(t, vault.Unlocked, next.app.State())
}

func TestApp_BackupAndImport(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "vault.json.zst")

	h := newHarness(t, "")
	h.initVault(t, "old")
	require.NoError(t, h.app.Backup(ctx, []string{path}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x28, 0xb5, 0x2f, 0xfd}, raw[:4])

	other := newHarness(t, "")
	other.initVault(t, "new")
	id := formatID(other.app.session.Entries()[0].ID)
	require.NoError(t, other.app.Purge(ctx, []string{id}))

	other.answer("wrong")
	assert.ErrorIs(t, other.app.Import(ctx, []string{path}), common.ErrWrongSecret)

	other.answer("old")
	require.NoError(t, other.app.Import(ctx, []string{path}))
	assert.Len(t, other.app.session.Entries(), 1)
}

func TestApp_NoteAndUpload(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "hello\nworld\n\n")
	h.initVault(t, "pw")

	require.NoError(t, h.app.Note(ctx, []string{"edit"}))
	note, ok := h.store.Content(common.BlobNote)
	require.True(t, ok)
	assert.Equal(t, "hello\nworld", note)

	img := filepath.Join(t.TempDir(), "shot.png")
	require.NoError(t, os.WriteFile(img, []byte{1, 2, 3}, 0o600))
	h.out.Reset()
	require.NoError(t, h.app.Upload(ctx, []string{img}))
	assert.Contains(t, h.out.String(), "Uploaded:")

	h.store.WithCapabilities(storage.Capabilities{})
	assert.ErrorIs(t, h.app.Note(ctx, nil), common.ErrUnsupported)
}

func TestApp_LockIfIdle(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "")
	h.initVault(t, "pw")

	now := time.Now()
	assert.False(t, h.app.lockIfIdle(ctx, now.Add(time.Hour)), "timeout 0 never locks")

	require.NoError(t, h.app.Set(ctx, []string{"timeout", "5"}))
	h.app.Touch()
	assert.False(t, h.app.lockIfIdle(ctx, now.Add(time.Minute)))
	assert.True(t, h.app.lockIfIdle(ctx, now.Add(6*time.Minute)))
	assert.Equal(t, vault.Logged, h.app.State())
	assert.False(t, h.app.lockIfIdle(ctx, now.Add(time.Hour)))
}

func TestApp_Passwd(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "")
	h.initVault(t, "old")

	h.answer("wrong", "new", "new")
	assert.ErrorIs(t, h.app.Passwd(ctx, nil), common.ErrWrongSecret)

	h.answer("old", "new", "new")
	require.NoError(t, h.app.Passwd(ctx, nil))
	assert.True(t, h.app.session.VerifySecret("new"))
}

func TestApp_CloseAccountNeedsConfirmation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "no\nDELETE\n")
	h.initVault(t, "pw")

	require.NoError(t, h.app.CloseAccount(ctx, nil))
	assert.Equal(t, vault.Unlocked, h.app.State())

	require.NoError(t, h.app.CloseAccount(ctx, nil))
	assert.Equal(t, vault.NoLogin, h.app.State())
	_, ok := h.store.Content(common.BlobStore)
	assert.False(t, ok)
}
