package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/peng0105/password-xl/internal/client/models"
	"github.com/peng0105/password-xl/internal/common"
	"github.com/peng0105/password-xl/internal/cryptox"
)

const timeLayout = "2006-01-02 15:04"

var errUsage = errors.New("wrong arguments, see 'help'")

func parseID(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, errUsage
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad id %q", args[0])
	}
	return id, nil
}

func formatTime(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return time.UnixMilli(ms).Format(timeLayout)
}

// List searches live entries. Arguments starting with '#' name labels, the
// rest is the search text.
func (a *App) List(_ context.Context, args []string) error {
	var words []string
	var ids []int64
	for _, arg := range args {
		name, ok := strings.CutPrefix(arg, "#")
		if !ok {
			words = append(words, arg)
			continue
		}
		l, found := a.session.FindLabelByName(name)
		if !found {
			return fmt.Errorf("%w: %s", common.ErrLabelNotFound, name)
		}
		ids = append(ids, l.ID)
	}

	a.printEntries(a.session.Search(strings.Join(words, " "), ids))
	return nil
}

func (a *App) Favorites(_ context.Context, _ []string) error {
	a.printEntries(a.session.Favorites())
	return nil
}

func (a *App) Trash(_ context.Context, _ []string) error {
	deleted := a.session.Deleted()
	if len(deleted) == 0 {
		a.println("The recycle bin is empty.")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tUSERNAME\tDELETED")
	for _, e := range deleted {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", e.ID, e.Title, e.Username, formatTime(e.DeleteTime))
	}
	return tw.Flush()
}

func (a *App) printEntries(entries []models.Entry) {
	if len(entries) == 0 {
		a.println("No entries.")
		return
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tUSERNAME\tADDRESS\tLABELS\t")
	for _, e := range entries {
		title := e.Title
		if e.Favorite {
			title = "* " + title
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t\n", e.ID, title, e.Username, e.Address, strings.Join(a.labelNames(e.Labels), ", "))
	}
	tw.Flush()
}

func (a *App) labelNames(ids []int64) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if l, ok := a.session.FindLabel(id); ok {
			names = append(names, l.Name)
		}
	}
	return names
}

// Show prints one entry, password included.
func (a *App) Show(_ context.Context, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}
	e, err := a.session.Entry(id)
	if err != nil {
		return err
	}
	writeEntry(a.out, e, a.labelNames(e.Labels))
	return nil
}

func writeEntry(w io.Writer, e models.Entry, labelNames []string) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Title:\t%s\n", e.Title)
	fmt.Fprintf(tw, "Address:\t%s\n", e.Address)
	fmt.Fprintf(tw, "Username:\t%s\n", e.Username)
	fmt.Fprintf(tw, "Password:\t%s\t(strength %d/3)\n", e.Password, cryptox.Strength(e.Password))
	if e.Remark != "" {
		fmt.Fprintf(tw, "Remark:\t%s\n", strings.ReplaceAll(e.Remark, "\n", "\n\t"))
	}
	for _, f := range e.CustomFields {
		fmt.Fprintf(tw, "%s:\t%s\n", f.Key, f.Val)
	}
	if len(labelNames) > 0 {
		fmt.Fprintf(tw, "Labels:\t%s\n", strings.Join(labelNames, ", "))
	}
	fmt.Fprintf(tw, "Favorite:\t%t\n", e.Favorite)
	fmt.Fprintf(tw, "Added:\t%s\n", formatTime(e.AddTime))
	fmt.Fprintf(tw, "Updated:\t%s\n", formatTime(e.UpdateTime))
	if e.Deleted() {
		fmt.Fprintf(tw, "Deleted:\t%s\n", formatTime(e.DeleteTime))
	}
	tw.Flush()
}

// Add prompts for a new entry. An empty password is generated when the
// settings ask for it.
func (a *App) Add(ctx context.Context, _ []string) error {
	var e models.Entry
	var err error

	if e.Title, err = getSimpleText(a.reader, "Title", a.out); err != nil {
		return err
	}
	if e.Title == "" {
		return errors.New("the title must not be empty")
	}
	if e.Address, err = getSimpleText(a.reader, "Address", a.out); err != nil {
		return err
	}
	if e.Username, err = getSimpleText(a.reader, "Username", a.out); err != nil {
		return err
	}
	if e.Password, err = askSecret(a.out, "Password (empty to generate)"); err != nil {
		return err
	}
	if e.Password == "" && a.session.Setting().AutoGeneratePassword {
		e.Password = a.generate(0)
		a.println("Generated a password, use 'show' to see it.")
	}
	if e.Remark, err = GetMultiline(a.reader, "Remark", a.out); err != nil {
		return err
	}
	if e.Labels, err = a.askLabels(nil); err != nil {
		return err
	}
	lines, err := GetCustomFields(a.reader, a.out)
	if err != nil {
		return err
	}
	if e.CustomFields, err = models.CustomFieldsFromStrings(lines); err != nil {
		return err
	}

	added, err := a.session.AddEntry(ctx, e)
	if err != nil {
		return err
	}
	a.printf("Entry %d added.\n", added.ID)
	return nil
}

// Edit prompts for every field; an empty answer keeps the current value.
func (a *App) Edit(ctx context.Context, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}
	e, err := a.session.Entry(id)
	if err != nil {
		return err
	}

	for _, f := range []struct {
		name string
		v    *string
	}{
		{"Title", &e.Title},
		{"Address", &e.Address},
		{"Username", &e.Username},
	} {
		s, err := getSimpleText(a.reader, fmt.Sprintf("%s [%s]", f.name, *f.v), a.out)
		if err != nil {
			return err
		}
		if s != "" {
			*f.v = s
		}
	}

	pw, err := askSecret(a.out, "Password (empty keeps, '-' generates)")
	if err != nil {
		return err
	}
	switch pw {
	case "":
	case "-":
		e.Password = a.generate(0)
	default:
		e.Password = pw
	}

	if e.Labels, err = a.askLabels(e.Labels); err != nil {
		return err
	}

	if err := a.session.UpdateEntry(ctx, e); err != nil {
		return err
	}
	a.printf("Entry %d updated.\n", e.ID)
	return nil
}

// askLabels reads comma separated label names. An empty answer keeps current.
func (a *App) askLabels(current []int64) ([]int64, error) {
	prompt := "Labels, comma separated"
	if len(current) > 0 {
		prompt += fmt.Sprintf(" [%s]", strings.Join(a.labelNames(current), ", "))
	}
	line, err := getSimpleText(a.reader, prompt, a.out)
	if err != nil {
		return nil, err
	}
	if line == "" {
		return current, nil
	}

	var ids []int64
	for _, name := range strings.Split(line, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		l, ok := a.session.FindLabelByName(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", common.ErrLabelNotFound, name)
		}
		ids = append(ids, l.ID)
	}
	return ids, nil
}

// Delete moves an entry to the recycle bin, or removes it when the bin is
// off or the entry is already in it.
func (a *App) Delete(ctx context.Context, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}
	if err := a.session.SoftDeleteEntry(ctx, id); err != nil {
		return err
	}
	if a.session.Setting().EnableRecycleBin {
		a.printf("Entry %d moved to the recycle bin.\n", id)
	} else {
		a.printf("Entry %d deleted.\n", id)
	}
	return nil
}

func (a *App) Restore(ctx context.Context, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}
	if err := a.session.RestoreEntry(ctx, id); err != nil {
		return err
	}
	a.printf("Entry %d restored.\n", id)
	return nil
}

func (a *App) Purge(ctx context.Context, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}
	if err := a.session.PurgeEntry(ctx, id); err != nil {
		return err
	}
	a.printf("Entry %d deleted.\n", id)
	return nil
}

func (a *App) EmptyTrash(ctx context.Context, _ []string) error {
	n, err := a.session.EmptyRecycleBin(ctx)
	if err != nil {
		return err
	}
	a.printf("%d entries deleted.\n", n)
	return nil
}

// Favorite marks an entry; "fav <id> off" unmarks it.
func (a *App) Favorite(ctx context.Context, args []string) error {
	on := true
	if len(args) == 2 && args[1] == "off" {
		on = false
		args = args[:1]
	}
	id, err := parseID(args)
	if err != nil {
		return err
	}
	return a.session.SetFavorite(ctx, id, on)
}

// Generate prints a password drawn with the generator settings. An optional
// argument overrides the length.
func (a *App) Generate(_ context.Context, args []string) error {
	length := 0
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return fmt.Errorf("bad length %q", args[0])
		}
		length = n
	}
	pw := a.generate(length)
	if pw == "" {
		return errors.New("the generator settings leave no characters to draw from")
	}
	a.printf("%s\t(strength %d/3)\n", pw, cryptox.Strength(pw))
	return nil
}

func (a *App) generate(length int) string {
	s := a.session.Setting()
	rule := s.GenerateRule
	if length > 0 {
		rule.Length = length
	}
	return cryptox.GeneratePassword(rule, s.EasyConfuseChat)
}
