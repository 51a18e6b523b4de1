package upstream

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/jalgoai/go-auth-gateway/apierror"
	"github.com/jalgoai/go-auth-gateway/cookies"
	"github.com/jalgoai/go-auth-gateway/correlation"
)

// defaultTokenField is where the refresh envelope carries the new access
// token. Deployments whose backend nests it differently override
// Refresher.TokenField.
const defaultTokenField = "accessToken"

// Refresher mints a new access token from the refresh-token cookie by
// calling the backend's refresh endpoint directly, forwarding the inbound
// Cookie header so the backend can read (and possibly rotate) the refresh
// token.
type Refresher struct {
	client     *http.Client
	refreshURL string
	tokenField string
	log        zerolog.Logger
}

func NewRefresher(client *http.Client, baseURL, refreshPath string, log zerolog.Logger) *Refresher {
	return &Refresher{
		client:     client,
		refreshURL: baseURL + refreshPath,
		tokenField: defaultTokenField,
		log:        log,
	}
}

// User is the optional identity block some refresh responses include.
type User struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
}

// MintResult carries the outcome of a refresh call. SetCookies holds every
// rotated cookie, and is populated even when Mint also returns an error so
// callers can still forward mutations (e.g. a cleared refresh cookie).
type MintResult struct {
	AccessToken string
	User        *User
	SetCookies  []string
}

// Mint performs the refresh call. When the inbound Cookie header carries no
// recognized refresh-token name it short-circuits with an empty token and
// no network call: there is nothing to refresh with.
func (rf *Refresher) Mint(ctx context.Context, inbound http.Header, corr correlation.Correlation) (*MintResult, error) {
	cookieHdr := inbound.Get("Cookie")
	if !cookies.HasAny(cookieHdr, cookies.RefreshNames) {
		rf.log.Debug().Str("requestId", corr.RequestID).Msg("no refresh cookie, skipping refresh call")
		return &MintResult{}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rf.refreshURL, nil)
	if err != nil {
		return &MintResult{}, apierror.New(500, "Invalid refresh URL", apierror.CodeConfigError, nil, corr).WithCause(err)
	}
	corr.Apply(req.Header)
	req.Header.Set("Cookie", cookieHdr)
	copyForwardHeaders(req.Header, inbound)

	resp, err := rf.client.Do(req)
	if err != nil {
		return &MintResult{}, apierror.FromTransport(err, "Failed to connect to backend (refresh)", corr)
	}

	result := &MintResult{SetCookies: collectSetCookies(resp)}

	payload, err := Normalize(resp, "Failed to refresh token", corr, rf.log)
	if err != nil {
		// Refresh failure is an expected outcome; the staged cookies
		// still travel with it.
		return result, err
	}

	result.AccessToken, result.User = extractToken(payload.Raw(), rf.tokenField)
	return result, nil
}

// extractToken pulls the minted token out of the refresh payload, checking
// the configured field directly on data and then nested under data.user.
func extractToken(data json.RawMessage, field string) (string, *User) {
	if len(data) == 0 {
		return "", nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return "", nil
	}

	token := stringField(m, field)

	var user *User
	if rawUser, ok := m["user"]; ok {
		var u User
		if err := json.Unmarshal(rawUser, &u); err == nil && u.UserID != "" {
			user = &u
		}
		if token == "" {
			var um map[string]json.RawMessage
			if err := json.Unmarshal(rawUser, &um); err == nil {
				token = stringField(um, field)
			}
		}
	} else {
		// Flat shape: user fields directly on data.
		var u User
		if err := json.Unmarshal(data, &u); err == nil && u.UserID != "" {
			user = &u
		}
	}
	return token, user
}

func stringField(m map[string]json.RawMessage, field string) string {
	raw, ok := m[field]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// copyForwardHeaders carries the browser's identity headers through to the
// backend.
func copyForwardHeaders(dst, src http.Header) {
	if ua := src.Get("User-Agent"); ua != "" {
		dst.Set("User-Agent", ua)
	}
	if xff := src.Get("X-Forwarded-For"); xff != "" {
		dst.Set("X-Forwarded-For", xff)
	}
}

// collectSetCookies splits every Set-Cookie header on the response into
// individual mutations, in arrival order.
func collectSetCookies(resp *http.Response) []string {
	var out []string
	for _, v := range resp.Header.Values("Set-Cookie") {
		out = append(out, cookies.SplitSetCookie(v)...)
	}
	return out
}
