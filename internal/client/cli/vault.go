package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/peng0105/password-xl/internal/client/merge"
	"github.com/peng0105/password-xl/internal/client/models"
	"github.com/peng0105/password-xl/internal/filex"
)

const notePrefix = "note"

// Note prints the note; "note edit" replaces it.
func (a *App) Note(ctx context.Context, args []string) error {
	tctx, cancel := a.withTimeout(ctx)
	defer cancel()

	note, err := a.session.LoadNote(tctx)
	if err != nil {
		return err
	}

	if len(args) == 0 {
		if note == "" {
			a.println("The note is empty.")
		} else {
			a.println(note)
		}
		return nil
	}
	if args[0] != "edit" {
		return errUsage
	}

	text, err := GetMultiline(a.reader, "New note text", a.out)
	if err != nil {
		return err
	}
	if err := a.session.SyncNote(tctx, text); err != nil {
		return err
	}
	a.println("Note saved.")
	return nil
}

// Upload stores an image for the note and prints where it went.
func (a *App) Upload(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	tctx, cancel := a.withTimeout(ctx)
	defer cancel()

	key, err := a.session.UploadImage(tctx, data, filepath.Base(args[0]), notePrefix)
	if err != nil {
		return err
	}
	a.printf("Uploaded: %s\n", key)
	return nil
}

// Backup writes the encrypted vault to a file, zstd-compressed when the
// name ends in .zst.
func (a *App) Backup(_ context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	b, err := a.session.Backup()
	if err != nil {
		return err
	}

	var buf strings.Builder
	if err := merge.WriteBackup(&buf, b, strings.HasSuffix(args[0], ".zst")); err != nil {
		return err
	}
	if err := filex.WriteFileAtomic(args[0], []byte(buf.String()), 0o600); err != nil {
		return err
	}
	a.printf("Backup written to %s.\n", args[0])
	return nil
}

// Import merges a backup into the vault. The backup opens with the main
// password that was in use when it was made.
func (a *App) Import(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	b, err := merge.ReadBackup(f)
	f.Close()
	if err != nil {
		return err
	}

	a.printf("Backup made %s.\n", time.UnixMilli(b.BackupTime).Format(timeLayout))
	secret, err := askSecret(a.out, "Main password of the backup")
	if err != nil {
		return err
	}

	added, err := a.session.RestoreBackup(ctx, b, secret)
	if err != nil {
		return err
	}
	a.printf("%d entries added.\n", added)
	return nil
}

type settingField struct {
	name  string
	show  func(models.Setting) string
	apply func(s *models.Setting, v string) error
}

var settingFields = []settingField{
	{
		name:  "recyclebin",
		show:  func(s models.Setting) string { return strconv.FormatBool(s.EnableRecycleBin) },
		apply: func(s *models.Setting, v string) error { return parseBool(v, &s.EnableRecycleBin) },
	},
	{
		name:  "autogenerate",
		show:  func(s models.Setting) string { return strconv.FormatBool(s.AutoGeneratePassword) },
		apply: func(s *models.Setting, v string) error { return parseBool(v, &s.AutoGeneratePassword) },
	},
	{
		name: "sort",
		show: func(s models.Setting) string { return s.SortField + " " + s.SortOrder },
		apply: func(s *models.Setting, v string) error {
			field, order, _ := strings.Cut(v, ":")
			switch field {
			case "addTime", "updateTime", "title", "username", "address", "strength":
			default:
				return fmt.Errorf("sort by addTime, updateTime, title, username, address or strength")
			}
			switch order {
			case "":
				order = models.SortDescending
			case "asc":
				order = models.SortAscending
			case "desc":
				order = models.SortDescending
			default:
				return fmt.Errorf("sort order is asc or desc")
			}
			s.SortField, s.SortOrder = field, order
			return nil
		},
	},
	{
		name: "length",
		show: func(s models.Setting) string { return strconv.Itoa(s.GenerateRule.Length) },
		apply: func(s *models.Setting, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil || n < 4 || n > 128 {
				return fmt.Errorf("length must be between 4 and 128")
			}
			s.GenerateRule.Length = n
			return nil
		},
	},
	{
		name: "timeout",
		show: func(s models.Setting) string { return strconv.Itoa(s.TimeoutLock) + "m" },
		apply: func(s *models.Setting, v string) error {
			n, err := strconv.Atoi(strings.TrimSuffix(v, "m"))
			if err != nil || n < 0 {
				return fmt.Errorf("timeout is a number of minutes, 0 to disable")
			}
			s.TimeoutLock = n
			return nil
		},
	},
	{
		name:  "autologin",
		show:  func(s models.Setting) string { return strconv.FormatBool(s.AutoLogin) },
		apply: func(s *models.Setting, v string) error { return parseBool(v, &s.AutoLogin) },
	},
	{
		name:  "autounlock",
		show:  func(s models.Setting) string { return strconv.FormatBool(s.AutoUnlock) },
		apply: func(s *models.Setting, v string) error { return parseBool(v, &s.AutoUnlock) },
	},
}

func parseBool(v string, dst *bool) error {
	switch v {
	case "on", "yes":
		*dst = true
	case "off", "no":
		*dst = false
	default:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("expected on or off, got %q", v)
		}
		*dst = b
	}
	return nil
}

// Set prints the settings, or changes one with "set <name> <value>".
// Auto-login changes reach this device's cache at the next unlock.
func (a *App) Set(ctx context.Context, args []string) error {
	if len(args) == 0 {
		s := a.session.Setting()
		tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		for _, f := range settingFields {
			fmt.Fprintf(tw, "%s\t%s\n", f.name, f.show(s))
		}
		return tw.Flush()
	}
	if len(args) != 2 {
		return errUsage
	}

	for _, f := range settingFields {
		if f.name != args[0] {
			continue
		}
		probe := a.session.Setting()
		if err := f.apply(&probe, args[1]); err != nil {
			return err
		}
		if err := a.session.UpdateSettings(ctx, func(s *models.Setting) { _ = f.apply(s, args[1]) }); err != nil {
			return err
		}
		a.printf("%s = %s\n", f.name, f.show(a.session.Setting()))
		return nil
	}
	return fmt.Errorf("unknown setting %q", args[0])
}
