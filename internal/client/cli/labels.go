package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/peng0105/password-xl/internal/client/models"
	"github.com/peng0105/password-xl/internal/common"
)

// Labels prints the label tree, one label per line indented by depth.
func (a *App) Labels(_ context.Context, _ []string) error {
	n := 0
	a.session.WalkLabels(func(l models.Label, depth int) bool {
		a.printf("%s%s\n", strings.Repeat("  ", depth), l.Name)
		n++
		return true
	})
	if n == 0 {
		a.println("No labels.")
	}
	return nil
}

// Label edits the label tree:
//
//	label add <name> [parent]
//	label rename <name> <new name>
//	label rm <name>
func (a *App) Label(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errUsage
	}

	switch args[0] {
	case "add":
		if len(args) > 3 {
			return errUsage
		}
		var parent int64
		if len(args) == 3 {
			p, err := a.labelByName(args[2])
			if err != nil {
				return err
			}
			parent = p.ID
		}
		l, err := a.session.AddLabel(ctx, parent, args[1])
		if err != nil {
			return err
		}
		a.printf("Label %q added.\n", l.Name)

	case "rename":
		if len(args) != 3 {
			return errUsage
		}
		l, err := a.labelByName(args[1])
		if err != nil {
			return err
		}
		if err := a.session.RenameLabel(ctx, l.ID, args[2]); err != nil {
			return err
		}
		a.printf("Label %q renamed to %q.\n", l.Name, args[2])

	case "rm":
		if len(args) != 2 {
			return errUsage
		}
		l, err := a.labelByName(args[1])
		if err != nil {
			return err
		}
		if err := a.session.RemoveLabel(ctx, l.ID); err != nil {
			return err
		}
		a.printf("Label %q removed with its sublabels.\n", l.Name)

	default:
		return errUsage
	}
	return nil
}

func (a *App) labelByName(name string) (models.Label, error) {
	l, ok := a.session.FindLabelByName(name)
	if !ok {
		return models.Label{}, fmt.Errorf("%w: %s", common.ErrLabelNotFound, name)
	}
	return l, nil
}
