// Package radikoapi is a client for the radiko HTTP API: the two-step
// authentication handshake, station lists, and program guides with a
// per-(station,date) disk cache.
package radikoapi

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/sorabito/timefree/telemetry"
)

const (
	defaultBaseURL = "https://radiko.jp"

	auth1Path = "/v2/api/auth1"
	auth2Path = "/v2/api/auth2"

	// Identification headers required by auth1. These are protocol
	// constants of the pc_html5 player, not configuration.
	appID      = "pc_html5"
	appVersion = "0.0.1"
	deviceType = "pc"
	userID     = "dummy_user"

	// authKey is the shared secret baked into the official player.
	// auth1 answers with an offset/length window into it; the base64
	// of that window is the partial key auth2 expects back.
	authKey = "bcd151073c03b352e1ef2fd66c32209da9ca0afa"

	// HeaderAuthToken carries the session token on auth2 and on every
	// timefree stream request.
	HeaderAuthToken  = "X-Radiko-AuthToken"
	headerPartialKey = "X-Radiko-Partialkey"
	headerKeyOffset  = "X-Radiko-KeyOffset"
	headerKeyLength  = "X-Radiko-KeyLength"
)

// AuthContext is the immutable result of one handshake. The token is
// read-only for the remainder of a session.
type AuthContext struct {
	Token  string
	AreaID string
}

// Client talks to the radiko API. The zero value uses the production
// endpoints and http.DefaultClient; BaseURL and HTTPClient exist for
// tests. The client retains the last AuthContext as a convenience for
// single-session callers; it does not synchronize re-authentication
// against in-flight calls.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Cache      *Cache

	auth *AuthContext
}

// NewClient returns a client with an optional guide cache.
func NewClient(cache *Cache) *Client {
	return &Client{Cache: cache}
}

func (c *Client) baseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return defaultBaseURL
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// AuthSession returns the last AuthContext produced by Authenticate,
// or nil if the client has not authenticated.
func (c *Client) AuthSession() *AuthContext { return c.auth }

// Authenticate runs the two-step handshake and returns the resulting
// token and area id. The context is also retained on the client for
// subsequent Stations calls.
func (c *Client) Authenticate(ctx context.Context) (*AuthContext, error) {
	ctx, span := telemetry.StartSpan(ctx, "radikoapi", "authenticate")
	defer span.End()

	token, offset, length, err := c.authStart(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	partial, err := PartialKey(offset, length)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	areaID, err := c.authConfirm(ctx, token, partial)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	auth := &AuthContext{Token: token, AreaID: areaID}
	c.auth = auth
	telemetry.IncAuthHandshake()
	return auth, nil
}

// authStart issues auth1 and returns the token plus the key window the
// server selected. Every required response header must be present.
func (c *Client) authStart(ctx context.Context) (token string, offset, length int, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL()+auth1Path, nil)
	if err != nil {
		return "", 0, 0, &AuthError{Reason: "build auth1 request", Err: err}
	}
	req.Header.Set("X-Radiko-App", appID)
	req.Header.Set("X-Radiko-App-Version", appVersion)
	req.Header.Set("X-Radiko-Device", deviceType)
	req.Header.Set("X-Radiko-User", userID)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return "", 0, 0, &AuthError{Reason: "auth1 request failed", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", 0, 0, &AuthError{Reason: fmt.Sprintf("auth1 status %s", resp.Status)}
	}

	token = resp.Header.Get(HeaderAuthToken)
	offsetS := resp.Header.Get(headerKeyOffset)
	lengthS := resp.Header.Get(headerKeyLength)
	if token == "" || offsetS == "" || lengthS == "" {
		return "", 0, 0, &AuthError{Reason: "auth1 response missing required headers"}
	}
	offset, err = strconv.Atoi(offsetS)
	if err != nil {
		return "", 0, 0, &AuthError{Reason: "malformed key offset", Err: err}
	}
	length, err = strconv.Atoi(lengthS)
	if err != nil {
		return "", 0, 0, &AuthError{Reason: "malformed key length", Err: err}
	}
	return token, offset, length, nil
}

// authConfirm issues auth2 and returns the area id, the first field of
// the CSV line in the response body.
func (c *Client) authConfirm(ctx context.Context, token, partialKey string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL()+auth2Path, nil)
	if err != nil {
		return "", &AuthError{Reason: "build auth2 request", Err: err}
	}
	req.Header.Set(HeaderAuthToken, token)
	req.Header.Set(headerPartialKey, partialKey)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return "", &AuthError{Reason: "auth2 request failed", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", &AuthError{Reason: fmt.Sprintf("auth2 status %s", resp.Status)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &AuthError{Reason: "read auth2 response", Err: err}
	}
	areaID := strings.TrimSpace(strings.SplitN(string(body), ",", 2)[0])
	if areaID == "" {
		return "", &AuthError{Reason: "auth2 response carries no area id"}
	}
	return areaID, nil
}

// PartialKey derives base64(authKey[offset:offset+length]) for the
// window supplied in the auth1 response.
func PartialKey(offset, length int) (string, error) {
	if offset < 0 || length <= 0 || offset+length > len(authKey) {
		return "", &AuthError{Reason: fmt.Sprintf("key window out of range: offset=%d length=%d", offset, length)}
	}
	return base64.StdEncoding.EncodeToString([]byte(authKey[offset : offset+length])), nil
}
