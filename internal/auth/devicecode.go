package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/cache"
	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/public"
)

// DeviceCodeAuth provides authentication via the device code flow, with
// tokens persisted to a file cache so later runs can refresh silently.
type DeviceCodeAuth struct {
	client public.Client
	scopes []string
	prompt io.Writer

	mu          sync.Mutex
	cachedToken *Token
	now         func() time.Time
}

// DeviceCodeOption configures a DeviceCodeAuth.
type DeviceCodeOption func(*deviceCodeConfig)

type deviceCodeConfig struct {
	clientID  string
	authority string
	cacheFile string
	prompt    io.Writer
}

// WithClientID overrides DefaultClientID.
func WithClientID(id string) DeviceCodeOption {
	return func(c *deviceCodeConfig) {
		if id != "" {
			c.clientID = id
		}
	}
}

// WithCacheFile overrides the token cache location.
func WithCacheFile(path string) DeviceCodeOption {
	return func(c *deviceCodeConfig) {
		c.cacheFile = path
	}
}

// WithPrompt sets where sign-in instructions are written. Defaults to stderr.
func WithPrompt(w io.Writer) DeviceCodeOption {
	return func(c *deviceCodeConfig) {
		c.prompt = w
	}
}

// NewDeviceCodeAuth creates a new device code auth client.
func NewDeviceCodeAuth(scopes []string, opts ...DeviceCodeOption) (*DeviceCodeAuth, error) {
	cfg := deviceCodeConfig{
		clientID:  DefaultClientID,
		authority: DefaultAuthority,
		prompt:    os.Stderr,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.cacheFile == "" {
		path, err := DefaultCacheFile()
		if err != nil {
			slog.Warn("could not determine token cache path", "error", err)
		}
		cfg.cacheFile = path
	}

	clientOpts := []public.Option{public.WithAuthority(cfg.authority)}
	if cfg.cacheFile != "" {
		clientOpts = append(clientOpts, public.WithCache(&tokenCacheAccessor{path: cfg.cacheFile}))
	}

	client, err := public.New(cfg.clientID, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create MSAL client: %w", err)
	}

	return &DeviceCodeAuth{
		client: client,
		scopes: scopes,
		prompt: cfg.prompt,
		now:    time.Now,
	}, nil
}

// GetToken acquires an access token, using the cached token while it is valid.
func (d *DeviceCodeAuth) GetToken(ctx context.Context) (*Token, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cachedToken.Valid(d.now(), 5*time.Minute) {
		return d.cachedToken, nil
	}

	accounts, err := d.client.Accounts(ctx)
	if err != nil {
		slog.Debug("could not get cached accounts", "error", err)
	}

	for _, acct := range accounts {
		result, err := d.client.AcquireTokenSilent(ctx, d.scopes, public.WithSilentAccount(acct))
		if err == nil {
			d.cachedToken = &Token{
				AccessToken: result.AccessToken,
				ExpiresOn:   result.ExpiresOn,
				AccountID:   acct.HomeAccountID,
			}
			return d.cachedToken, nil
		}
		slog.Debug("silent auth failed for account", "account", acct.PreferredUsername, "error", err)
	}

	slog.Info("no cached credentials, starting device code flow")
	token, err := d.acquireTokenWithDeviceCode(ctx)
	if err != nil {
		return nil, err
	}

	d.cachedToken = token
	return token, nil
}

func (d *DeviceCodeAuth) acquireTokenWithDeviceCode(ctx context.Context) (*Token, error) {
	dc, err := d.client.AcquireTokenByDeviceCode(ctx, d.scopes)
	if err != nil {
		return nil, fmt.Errorf("start device code flow: %w", err)
	}

	fmt.Fprintf(d.prompt, "\n"+
		"To sign in, use a web browser to open the page %s\n"+
		"and enter the code %s to authenticate.\n\n",
		dc.Result.VerificationURL,
		dc.Result.UserCode)

	result, err := dc.AuthenticationResult(ctx)
	if err != nil {
		return nil, fmt.Errorf("device code auth: %w", err)
	}

	return &Token{
		AccessToken: result.AccessToken,
		ExpiresOn:   result.ExpiresOn,
		AccountID:   result.Account.HomeAccountID,
	}, nil
}

// tokenCacheAccessor implements cache.ExportReplace over a file.
type tokenCacheAccessor struct {
	path string
}

func (t *tokenCacheAccessor) Replace(ctx context.Context, c cache.Unmarshaler, hints cache.ReplaceHints) error {
	data, err := os.ReadFile(t.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read token cache: %w", err)
	}
	return c.Unmarshal(data)
}

func (t *tokenCacheAccessor) Export(ctx context.Context, c cache.Marshaler, hints cache.ExportHints) error {
	data, err := c.Marshal()
	if err != nil {
		return fmt.Errorf("marshal token cache: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(t.path), 0700); err != nil {
		return fmt.Errorf("create token cache dir: %w", err)
	}

	tmp := t.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write token cache: %w", err)
	}
	return os.Rename(tmp, t.path)
}

// DefaultCacheFile returns the path of the token cache file.
func DefaultCacheFile() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, "calpick", "msal_token_cache.json"), nil
}
