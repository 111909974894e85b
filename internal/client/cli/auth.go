package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/peng0105/password-xl/internal/client/autologin"
	"github.com/peng0105/password-xl/internal/client/models"
	"github.com/peng0105/password-xl/internal/client/vault"
)

var (
	loggedOut = []vault.State{vault.NoLogin}
	waitInit  = []vault.State{vault.WaitInit}
	locked    = []vault.State{vault.Logged}
	unlocked  = []vault.State{vault.Unlocked}
	loggedIn  = []vault.State{vault.WaitInit, vault.Logged, vault.Unlocked}
	hasVault  = []vault.State{vault.Logged, vault.Unlocked}
)

// Commands returns the command table of the REPL.
func (a *App) Commands() []Command {
	return []Command{
		{Name: "login", Usage: "login                     connect to the configured storage", States: loggedOut, Run: a.Login},
		{Name: "init", Usage: "init                      create the vault with a new main password", States: waitInit, Run: a.Init},
		{Name: "unlock", Usage: "unlock                    open the vault", States: locked, Run: a.Unlock},
		{Name: "lock", Usage: "lock                      close the vault, stay logged in", States: unlocked, Run: a.Lock},
		{Name: "reload", Usage: "reload                    re-read the vault from storage", States: loggedIn, Run: a.Reload},
		{Name: "logout", Usage: "logout                    forget this login on this device", States: loggedIn, Run: a.Logout},

		{Name: "list", Usage: "list [text] [#label...]   list or search entries", States: unlocked, Run: a.List},
		{Name: "show", Usage: "show <id>                 show one entry with its password", States: unlocked, Run: a.Show},
		{Name: "add", Usage: "add                       add an entry", States: unlocked, Run: a.Add},
		{Name: "edit", Usage: "edit <id>                 edit an entry", States: unlocked, Run: a.Edit},
		{Name: "del", Usage: "del <id>                  move an entry to the recycle bin", States: unlocked, Run: a.Delete},
		{Name: "fav", Usage: "fav <id> [off]            mark or unmark a favorite", States: unlocked, Run: a.Favorite},
		{Name: "favs", Usage: "favs                      list favorites", States: unlocked, Run: a.Favorites},
		{Name: "trash", Usage: "trash                     list the recycle bin", States: unlocked, Run: a.Trash},
		{Name: "restore", Usage: "restore <id>              take an entry out of the recycle bin", States: unlocked, Run: a.Restore},
		{Name: "purge", Usage: "purge <id>                delete an entry for good", States: unlocked, Run: a.Purge},
		{Name: "empty", Usage: "empty                     empty the recycle bin", States: unlocked, Run: a.EmptyTrash},

		{Name: "labels", Usage: "labels                    show the label tree", States: unlocked, Run: a.Labels},
		{Name: "label", Usage: "label add|rename|rm ...   edit labels", States: unlocked, Run: a.Label},

		{Name: "note", Usage: "note [edit]               show or edit the note", States: unlocked, Run: a.Note},
		{Name: "upload", Usage: "upload <file>             upload an image for the note", States: unlocked, Run: a.Upload},
		{Name: "gen", Usage: "gen                       generate a password", States: unlocked, Run: a.Generate},
		{Name: "set", Usage: "set [name value]          show or change settings", States: loggedIn, Run: a.Set},

		{Name: "backup", Usage: "backup <file>             export the encrypted vault (.zst compresses)", States: hasVault, Run: a.Backup},
		{Name: "import", Usage: "import <file>             merge a backup into the vault", States: unlocked, Run: a.Import},
		{Name: "passwd", Usage: "passwd                    change the main password", States: unlocked, Run: a.Passwd},
		{Name: "close", Usage: "close                     delete the vault from storage", States: unlocked, Run: a.CloseAccount},
	}
}

// autoLogin logs in and unlocks with the remembered login and secret.
func (a *App) autoLogin(ctx context.Context) error {
	form, secret, err := a.cache.Load(ctx)
	if err != nil {
		return err
	}
	if err := a.loginWith(ctx, form); err != nil {
		return err
	}
	if a.session.State() == vault.Logged {
		if err := a.session.Unlock(ctx, secret); err != nil {
			return err
		}
		a.println("Vault unlocked with the remembered main password.")
	}
	return nil
}

// Login connects to storage. A remembered login is opened with the main
// password, which then also unlocks the vault; otherwise the configured
// login form is used.
func (a *App) Login(ctx context.Context, _ []string) error {
	if _, err := a.cache.Info(ctx); err == nil {
		secret, err := askSecret(a.out, "Main password (remembered login)")
		if err != nil {
			return err
		}
		form, err := a.cache.LoginForm(ctx, secret)
		if err != nil {
			return err
		}
		if err := a.loginWith(ctx, form); err != nil {
			return err
		}
		if a.session.State() == vault.Logged {
			return a.session.Unlock(ctx, secret)
		}
		return nil
	} else if !errors.Is(err, autologin.ErrNoCapsule) {
		a.logger.Warn(ctx, "remembered login unusable", "error", err)
	}

	form := a.config.LoginForm()
	if err := a.completeForm(&form); err != nil {
		return err
	}
	if a.config.RememberLogin {
		if err := a.cache.StageLoginForm(ctx, form); err != nil {
			a.logger.Warn(ctx, "cannot stage login form", "error", err)
		}
	}
	return a.loginWith(ctx, form)
}

// completeForm asks for the credentials the configuration leaves out.
func (a *App) completeForm(form *models.LoginForm) error {
	var err error
	switch form.LoginType {
	case models.LoginTypeS3, models.LoginTypeOSS, models.LoginTypeCOS:
		if form.AccessKeySecret == "" {
			form.AccessKeySecret, err = askSecret(a.out, "Access key secret")
		}
	case models.LoginTypePrivate, models.LoginTypeWebDAV:
		if form.Username == "" {
			form.Username, err = getSimpleText(a.reader, "Username", a.out)
			if err != nil {
				return err
			}
		}
		if form.Password == "" {
			form.Password, err = askSecret(a.out, "Password")
		}
	}
	return err
}

func (a *App) loginWith(ctx context.Context, form models.LoginForm) error {
	tctx, cancel := a.withTimeout(ctx)
	defer cancel()

	if err := a.session.Login(tctx, form); err != nil {
		return err
	}
	switch a.session.State() {
	case vault.WaitInit:
		a.println("Logged in. No vault yet, run 'init' to create one.")
	case vault.Logged:
		a.println("Logged in. Run 'unlock' to open the vault.")
	}
	return nil
}

// Init creates the vault.
func (a *App) Init(ctx context.Context, _ []string) error {
	secret, err := a.askNewSecret()
	if err != nil {
		return err
	}
	if err := a.session.InitMainSecret(ctx, models.MainPasswordStandard, secret); err != nil {
		return err
	}
	a.println("Vault created and unlocked. An example entry was added.")
	return nil
}

func (a *App) askNewSecret() (string, error) {
	secret, err := askSecret(a.out, "New main password")
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(secret) == "" {
		return "", errors.New("the main password must not be empty")
	}
	confirm, err := askSecret(a.out, "Repeat the main password")
	if err != nil {
		return "", err
	}
	if confirm != secret {
		return "", errors.New("the passwords do not match")
	}
	return secret, nil
}

func (a *App) Unlock(ctx context.Context, _ []string) error {
	secret, err := askSecret(a.out, "Main password")
	if err != nil {
		return err
	}
	if err := a.session.Unlock(ctx, secret); err != nil {
		return err
	}
	a.printf("Vault unlocked, %d entries.\n", len(a.session.Entries()))
	return nil
}

func (a *App) Lock(ctx context.Context, _ []string) error {
	a.session.Lock(ctx)
	a.println("Vault locked.")
	return nil
}

func (a *App) Reload(ctx context.Context, _ []string) error {
	tctx, cancel := a.withTimeout(ctx)
	defer cancel()

	if err := a.session.Reload(tctx); err != nil {
		return err
	}
	a.printf("Reloaded, vault is %s.\n", a.session.State())
	return nil
}

func (a *App) Logout(ctx context.Context, _ []string) error {
	a.session.Logout(ctx)
	a.println("Logged out.")
	return nil
}

// Passwd changes the main password and re-encrypts the vault.
func (a *App) Passwd(ctx context.Context, _ []string) error {
	old, err := askSecret(a.out, "Current main password")
	if err != nil {
		return err
	}
	secret, err := a.askNewSecret()
	if err != nil {
		return err
	}
	if err := a.session.UpdateMainSecret(ctx, old, models.MainPasswordStandard, secret); err != nil {
		return err
	}
	a.println("Main password changed.")
	return nil
}

// CloseAccount deletes the vault after an explicit confirmation.
func (a *App) CloseAccount(ctx context.Context, _ []string) error {
	answer, err := getSimpleText(a.reader, "This deletes the vault from storage. Type DELETE to confirm", a.out)
	if err != nil {
		return err
	}
	if answer != "DELETE" {
		a.println("Cancelled.")
		return nil
	}
	if err := a.session.CloseAccount(ctx); err != nil {
		return fmt.Errorf("close account: %w", err)
	}
	a.println("Vault deleted.")
	return nil
}
