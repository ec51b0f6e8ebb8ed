package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/google/uuid"
)

// Microsoft Identity Broker on the session bus.
const (
	brokerService   = "com.microsoft.identity.broker1"
	brokerPath      = "/com/microsoft/identity/broker1"
	brokerInterface = "com.microsoft.identity.Broker1"
	brokerProtocol  = "0.0"

	// NativeRedirectURI is the redirect URI registered for public native clients.
	NativeRedirectURI = "https://login.microsoftonline.com/common/oauth2/nativeclient"
)

var (
	ErrBrokerNotAvailable = errors.New("microsoft identity broker not available")
	ErrNoAccounts         = errors.New("no accounts found in broker")
	ErrAuthFailed         = errors.New("authentication failed")
)

// brokerObject is the part of dbus.BusObject the broker client needs.
type brokerObject interface {
	CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...any) *dbus.Call
}

// brokerAccount is an account as the broker reports it. The broker expects
// the full object back, so unknown fields are kept in raw.
type brokerAccount struct {
	raw            map[string]any
	Username       string
	Realm          string
	LocalAccountID string
}

func (a *brokerAccount) UnmarshalJSON(b []byte) error {
	if err := json.Unmarshal(b, &a.raw); err != nil {
		return err
	}
	a.Username, _ = a.raw["username"].(string)
	a.Realm, _ = a.raw["realm"].(string)
	a.LocalAccountID, _ = a.raw["localAccountId"].(string)
	return nil
}

func (a brokerAccount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.raw)
}

type authParams struct {
	Account           brokerAccount `json:"account"`
	Authority         string        `json:"authority"`
	AuthorizationType int           `json:"authorizationType"`
	ClientID          string        `json:"clientId"`
	RedirectURI       string        `json:"redirectUri"`
	RequestedScopes   []string      `json:"requestedScopes"`
	Username          string        `json:"username,omitempty"`
}

type tokenReply struct {
	AccessToken string  `json:"accessToken"`
	ExpiresOn   float64 `json:"expiresOn"`
	AccountID   string  `json:"accountId"`
	Nested      *struct {
		AccessToken string          `json:"accessToken"`
		Error       json.RawMessage `json:"error"`
	} `json:"brokerTokenResponse"`
}

// Broker hands out tokens for accounts the desktop is already signed in to,
// without any user interaction.
type Broker struct {
	conn     *dbus.Conn
	obj      brokerObject
	clientID string
	scopes   []string
	session  string
	now      func() time.Time

	mu      sync.Mutex
	token   *Token
	account *brokerAccount
}

var _ TokenProvider = (*Broker)(nil)

// NewBroker returns a broker client. An empty clientID means DefaultClientID.
func NewBroker(clientID string, scopes []string) *Broker {
	if clientID == "" {
		clientID = DefaultClientID
	}
	if len(scopes) == 0 {
		scopes = []string{"https://graph.microsoft.com/.default"}
	}
	return &Broker{
		clientID: clientID,
		scopes:   scopes,
		session:  uuid.NewString(),
		now:      time.Now,
	}
}

func (b *Broker) dial() error {
	if b.obj != nil {
		return nil
	}
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("connect to session bus: %w", err)
	}
	b.conn = conn
	b.obj = conn.Object(brokerService, brokerPath)
	return nil
}

// Close releases the bus connection, if one was opened.
func (b *Broker) Close() error {
	if b.conn == nil {
		return nil
	}
	return b.conn.Close()
}

// IsAvailable reports whether a broker answers on the session bus.
func (b *Broker) IsAvailable(ctx context.Context) bool {
	if err := b.dial(); err != nil {
		return false
	}
	var reply struct {
		Version string `json:"linuxBrokerVersion"`
	}
	if err := b.call(ctx, "getLinuxBrokerVersion", struct{}{}, &reply); err != nil {
		slog.Debug("identity broker not answering", "error", err)
		return false
	}
	slog.Debug("identity broker found", "version", reply.Version)
	return true
}

// GetToken returns the cached token while it has five minutes left, and
// otherwise tries each broker account in turn.
func (b *Broker) GetToken(ctx context.Context) (*Token, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.token.Valid(b.now(), 5*time.Minute) {
		return b.token, nil
	}
	if err := b.dial(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrokerNotAvailable, err)
	}

	if b.account != nil {
		tok, err := b.silent(ctx, *b.account)
		if err == nil {
			b.token = tok
			return tok, nil
		}
		slog.Debug("silent token for remembered account failed", "error", err)
	}

	var listed struct {
		Accounts []brokerAccount `json:"accounts"`
	}
	req := map[string]string{"clientId": b.clientID, "redirectUri": NativeRedirectURI}
	if err := b.call(ctx, "getAccounts", req, &listed); err != nil {
		return nil, fmt.Errorf("list broker accounts: %w", err)
	}
	if len(listed.Accounts) == 0 {
		return nil, ErrNoAccounts
	}

	for _, acct := range listed.Accounts {
		tok, err := b.silent(ctx, acct)
		if err != nil {
			slog.Debug("silent token failed", "username", acct.Username, "error", err)
			continue
		}
		b.account = &acct
		b.token = tok
		return tok, nil
	}
	return nil, fmt.Errorf("%w: no broker account yielded a token", ErrAuthFailed)
}

func (b *Broker) silent(ctx context.Context, acct brokerAccount) (*Token, error) {
	authority := DefaultAuthority
	if acct.Realm != "" {
		authority = "https://login.microsoftonline.com/" + acct.Realm
	}
	req := struct {
		Params authParams `json:"authParameters"`
	}{authParams{
		Account:           acct,
		Authority:         authority,
		AuthorizationType: 1, // token acquisition
		ClientID:          b.clientID,
		RedirectURI:       NativeRedirectURI,
		RequestedScopes:   b.scopes,
		Username:          acct.Username,
	}}

	var reply tokenReply
	if err := b.call(ctx, "acquireTokenSilently", req, &reply); err != nil {
		return nil, err
	}

	access := reply.AccessToken
	if access == "" && reply.Nested != nil {
		if len(reply.Nested.Error) > 0 && string(reply.Nested.Error) != "null" {
			return nil, fmt.Errorf("token response error: %s", reply.Nested.Error)
		}
		access = reply.Nested.AccessToken
	}
	if access == "" {
		return nil, errors.New("no access token in broker reply")
	}

	expires := b.now().Add(time.Hour)
	if reply.ExpiresOn > 0 {
		expires = time.Unix(int64(reply.ExpiresOn), 0)
	}
	id := reply.AccountID
	if id == "" {
		id = acct.LocalAccountID
	}
	return &Token{AccessToken: access, ExpiresOn: expires, AccountID: id}, nil
}

// call invokes a broker method. Every method takes (protocol, session,
// request JSON) and answers with a JSON string that may carry an "error".
func (b *Broker) call(ctx context.Context, method string, req, reply any) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", method, err)
	}

	c := b.obj.CallWithContext(ctx, brokerInterface+"."+method, 0, brokerProtocol, b.session, string(body))
	if c.Err != nil {
		return fmt.Errorf("call %s: %w", method, c.Err)
	}
	var raw string
	if err := c.Store(&raw); err != nil {
		return fmt.Errorf("read %s reply: %w", method, err)
	}

	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		return fmt.Errorf("decode %s reply: %w", method, err)
	}
	switch e := string(envelope.Error); e {
	case "", "null", `""`:
	default:
		return fmt.Errorf("broker %s: %s", method, e)
	}

	if err := json.Unmarshal([]byte(raw), reply); err != nil {
		return fmt.Errorf("decode %s reply: %w", method, err)
	}
	return nil
}
