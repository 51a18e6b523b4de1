package server

import (
	"net/http"

	"github.com/jalgoai/go-auth-gateway/apierror"
	"github.com/jalgoai/go-auth-gateway/cookies"
	"github.com/jalgoai/go-auth-gateway/correlation"
	"github.com/jalgoai/go-auth-gateway/upstream"
)

// refreshResult is the data block returned by the refresh route.
type refreshResult struct {
	AccessToken string         `json:"accessToken"`
	User        *upstream.User `json:"user,omitempty"`
}

// RefreshHandler is the browser-facing silent session restore: it forwards
// the refresh-token cookie to the backend, sets the freshly minted access
// token as an HttpOnly cookie and forwards any rotated cookies (e.g. a new
// refresh token) alongside.
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		corr := correlation.FromContext(r.Context())
		if corr.RequestID == "" {
			corr = correlation.FromHeaders(r.Header)
		}
		log := s.requestLogger(r, corr)

		if s.config.GetAPIBaseURL() == "" {
			s.writeError(w, log, apierror.New(500, "Server misconfiguration: API_BASE_URL is not set",
				apierror.CodeConfigError, nil, corr))
			return
		}

		mint, err := s.refresher.Mint(r.Context(), r.Header, corr)
		if mint != nil {
			for _, c := range mint.SetCookies {
				w.Header().Add("Set-Cookie", c)
			}
		}
		if err != nil {
			s.writeError(w, log, apierror.FromUnknown(err, corr))
			return
		}
		if mint.AccessToken == "" {
			s.writeError(w, log, apierror.New(401, "Unauthorized (refresh failed)",
				apierror.CodeTokenRefreshFailed, nil, corr))
			return
		}

		http.SetCookie(w, cookies.NewAccessCookie(mint.AccessToken, cookies.AccessCookieConfig{
			CrossSite:    s.config.IsCrossSite(),
			ParentDomain: s.config.GetParentDomain(),
			MaxAge:       s.config.GetAccessTokenExpiry(),
		}))

		userID := ""
		if mint.User != nil {
			userID = mint.User.UserID
		}
		log.Info().Str("userId", userID).Msg("auth.refresh.success")

		s.writeSuccess(w, corr, "TOKEN_REFRESHED", "Access token refreshed", refreshResult{
			AccessToken: mint.AccessToken,
			User:        mint.User,
		})
	}
}
