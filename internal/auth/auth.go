// Package auth acquires Microsoft Graph access tokens for the MS365
// availability source, from the Microsoft Identity Broker when one is
// running and otherwise through the MSAL device code flow.
package auth

import (
	"context"
	"time"
)

const (
	// DefaultClientID is a public client registered for Graph calendar access.
	DefaultClientID = "d7b530a4-7680-4c23-a8bf-c52c121d2e87"

	// DefaultAuthority is used when no tenant is configured.
	DefaultAuthority = "https://login.microsoftonline.com/common"

	// CalendarReadScope is enough to read free/busy from calendarView.
	CalendarReadScope = "Calendars.Read"
)

// Token represents an OAuth2 access token.
type Token struct {
	AccessToken string
	ExpiresOn   time.Time
	AccountID   string
}

// Valid reports whether the token is usable for at least another margin.
func (t *Token) Valid(now time.Time, margin time.Duration) bool {
	return t != nil && t.AccessToken != "" && now.Add(margin).Before(t.ExpiresOn)
}

// TokenProvider hands out access tokens.
type TokenProvider interface {
	GetToken(ctx context.Context) (*Token, error)
}
