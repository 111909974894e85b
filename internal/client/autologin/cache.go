// Package autologin remembers the backend login of a device so the next
// start can skip the login form.
//
// The login form is staged in session scope wrapped with the device
// fingerprint. Once the vault is unlocked it is wrapped again, first with
// the main secret and then with the fingerprint, and persisted as the login
// capsule. When the user also opts into remembering the main secret, the
// secret itself is kept wrapped with the fingerprint only. The fingerprint
// is a weak key; the capsule is as safe as the main secret, the remembered
// secret is not.
package autologin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/peng0105/password-xl/internal/client/kv"
	"github.com/peng0105/password-xl/internal/client/models"
	"github.com/peng0105/password-xl/internal/common"
	"github.com/peng0105/password-xl/internal/cryptox"
	"github.com/peng0105/password-xl/internal/logging"
)

const (
	keyLoginForm    = "loginForm"
	keyLoginInfo    = "loginInfo"
	keyMainPassword = "mainPassword"
)

// ErrNoCapsule is returned when nothing is remembered.
var ErrNoCapsule = errors.New("no remembered login")

// Cache implements vault.Observer.
type Cache struct {
	durable     kv.Store
	session     kv.Store
	secrets     kv.Store
	fingerprint string
	logger      logging.Logger
}

type Option func(*Cache)

// WithSecretStore keeps the remembered main secret in s instead of the
// durable store, e.g. in the OS keyring.
func WithSecretStore(s kv.Store) Option {
	return func(c *Cache) {
		c.secrets = s
	}
}

func New(durable, session kv.Store, fingerprint string, logger logging.Logger, opts ...Option) *Cache {
	c := &Cache{
		durable:     durable,
		session:     session,
		secrets:     durable,
		fingerprint: fingerprint,
		logger:      logging.OrDiscard(logger).With("module", "autologin"),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// StageLoginForm keeps form for this process until the vault is unlocked.
func (c *Cache) StageLoginForm(ctx context.Context, form models.LoginForm) error {
	raw, err := json.Marshal(form)
	if err != nil {
		return fmt.Errorf("encode login form: %w", err)
	}
	return c.session.Set(ctx, keyLoginForm, cryptox.Encrypt(c.fingerprint, string(raw)))
}

// OnUnlock persists the staged login form when setting allows auto login,
// and the main secret when it also allows auto unlock.
func (c *Cache) OnUnlock(ctx context.Context, secret string, secretType models.MainPasswordType, setting models.Setting) error {
	if !setting.AutoLogin {
		return c.forget(ctx)
	}

	staged, ok, err := c.session.Get(ctx, keyLoginForm)
	if err != nil {
		return err
	}
	if ok {
		form := cryptox.Decrypt(c.fingerprint, staged)
		if form == "" {
			return fmt.Errorf("staged login form: %w", common.ErrDecrypt)
		}
		info := models.LoginInfo{MainPasswordType: secretType, LoginForm: cryptox.Encrypt(secret, form)}
		if err := c.saveInfo(ctx, info); err != nil {
			return err
		}
		c.logger.Info(ctx, "login remembered")
	}

	if !setting.AutoUnlock {
		return c.secrets.Delete(ctx, keyMainPassword)
	}
	if err := c.secrets.Set(ctx, keyMainPassword, cryptox.Encrypt(c.fingerprint, secret)); err != nil {
		return err
	}
	c.logger.Info(ctx, "main secret remembered")
	return nil
}

// Rewrap re-encrypts the capsule after a main secret change. When the
// capsule does not open with oldSecret it is left as it was.
func (c *Cache) Rewrap(ctx context.Context, oldSecret, newSecret string, secretType models.MainPasswordType) error {
	info, err := c.Info(ctx)
	if errors.Is(err, ErrNoCapsule) {
		return nil
	}
	if err != nil {
		return err
	}

	form, err := cryptox.DecryptStrict(oldSecret, info.LoginForm)
	if err != nil {
		return fmt.Errorf("rewrap login: %w", common.ErrWrongSecret)
	}

	info.MainPasswordType = secretType
	info.LoginForm = cryptox.Encrypt(newSecret, form)
	if err := c.saveInfo(ctx, info); err != nil {
		return err
	}

	_, remembered, err := c.secrets.Get(ctx, keyMainPassword)
	if err != nil {
		return err
	}
	if remembered {
		if err := c.secrets.Set(ctx, keyMainPassword, cryptox.Encrypt(c.fingerprint, newSecret)); err != nil {
			return err
		}
	}

	c.logger.Info(ctx, "remembered login rewrapped")
	return nil
}

// OnLogout forgets everything.
func (c *Cache) OnLogout(ctx context.Context) error {
	return c.forget(ctx)
}

// Forget drops the capsule, the staged form and the remembered secret.
func (c *Cache) Forget(ctx context.Context) error {
	return c.forget(ctx)
}

// Load returns the remembered login form together with the remembered main
// secret. Without a remembered secret the form cannot be opened and Load
// reports ErrNoCapsule; callers then ask for the secret and use LoginForm.
func (c *Cache) Load(ctx context.Context) (models.LoginForm, string, error) {
	secret, ok := c.Secret(ctx)
	if !ok {
		return models.LoginForm{}, "", ErrNoCapsule
	}
	form, err := c.LoginForm(ctx, secret)
	if err != nil {
		return models.LoginForm{}, "", err
	}
	return form, secret, nil
}

func (c *Cache) forget(ctx context.Context) error {
	var errs []error
	errs = append(errs, c.session.Delete(ctx, keyLoginForm))
	errs = append(errs, c.durable.Delete(ctx, keyLoginInfo))
	errs = append(errs, c.secrets.Delete(ctx, keyMainPassword))
	return errors.Join(errs...)
}

// Info returns the capsule without opening its login form.
func (c *Cache) Info(ctx context.Context) (models.LoginInfo, error) {
	var info models.LoginInfo

	raw, ok, err := c.durable.Get(ctx, keyLoginInfo)
	if err != nil {
		return info, err
	}
	if !ok {
		return info, ErrNoCapsule
	}

	plain := cryptox.Decrypt(c.fingerprint, raw)
	if plain == "" {
		// another device or a changed environment
		return info, fmt.Errorf("login capsule: %w", common.ErrDecrypt)
	}
	if err := json.Unmarshal([]byte(plain), &info); err != nil {
		return info, fmt.Errorf("login capsule: %w", err)
	}
	return info, nil
}

// Secret returns the remembered main secret when there is one and it opens
// the capsule.
func (c *Cache) Secret(ctx context.Context) (string, bool) {
	info, err := c.Info(ctx)
	if err != nil {
		return "", false
	}
	raw, ok, err := c.secrets.Get(ctx, keyMainPassword)
	if err != nil || !ok {
		return "", false
	}
	secret := cryptox.Decrypt(c.fingerprint, raw)
	if secret == "" || !cryptox.CheckSecret(secret, info.LoginForm) {
		return "", false
	}
	return secret, true
}

// LoginForm opens the capsule with the main secret.
func (c *Cache) LoginForm(ctx context.Context, secret string) (models.LoginForm, error) {
	var form models.LoginForm

	info, err := c.Info(ctx)
	if err != nil {
		return form, err
	}
	plain, err := cryptox.DecryptStrict(secret, info.LoginForm)
	if err != nil {
		return form, common.ErrWrongSecret
	}
	if err := json.Unmarshal([]byte(plain), &form); err != nil {
		return form, fmt.Errorf("login capsule: %w", err)
	}
	return form, nil
}

func (c *Cache) saveInfo(ctx context.Context, info models.LoginInfo) error {
	raw, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("encode login capsule: %w", err)
	}
	return c.durable.Set(ctx, keyLoginInfo, cryptox.Encrypt(c.fingerprint, string(raw)))
}
