package upstream

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/jalgoai/go-auth-gateway/apierror"
	"github.com/jalgoai/go-auth-gateway/cookies"
	"github.com/jalgoai/go-auth-gateway/correlation"
)

// Request describes one upstream call on behalf of an inbound browser
// request. Header is the inbound request's header set; the fetcher reads
// the Cookie, User-Agent, X-Forwarded-For, Content-Type and Accept values
// from it. Body is buffered so a post-refresh retry can replay it.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Result is what the orchestrator hands back: the final upstream response
// (body unread) plus every Set-Cookie mutation staged along the way, in
// order. The caller appends each mutation onto the browser-facing response.
//
// On failure the returned error is an *APIError and the Result, when
// non-nil, still carries the staged cookies: a backend that clears cookies
// on a failed attempt has that mutation honored.
type Result struct {
	Response   *http.Response
	SetCookies []string
}

// Fetcher performs "fetch with automatic authentication": attach the
// access-token cookie as a bearer token, call, on 401 refresh and retry
// exactly once. It holds no per-request state; one Do call per inbound
// request.
type Fetcher struct {
	client    *http.Client
	refresher *Refresher
	tracer    trace.Tracer
	log       zerolog.Logger
}

func NewFetcher(client *http.Client, refresher *Refresher, tracer trace.Tracer, log zerolog.Logger) *Fetcher {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("upstream")
	}
	return &Fetcher{client: client, refresher: refresher, tracer: tracer, log: log}
}

// Do runs the auto-auth state machine:
//
//	START      -> token present ? ATTEMPT_1 : REFRESHING
//	ATTEMPT_1  -> non-401: DONE; 401: REFRESHING
//	REFRESHING -> no token minted: FAIL(TOKEN_REFRESH_FAILED)
//	ATTEMPT_2  -> 401: FAIL(INVALID_ACCESS_TOKEN); otherwise DONE
//
// At most one refresh and one retry happen per call, and only a 401 ever
// triggers the refresh path; timeouts and transport failures surface
// directly as UPSTREAM_TIMEOUT / NETWORK_ERROR.
func (f *Fetcher) Do(ctx context.Context, in *Request) (*Result, error) {
	corr := correlation.FromContext(ctx)
	if corr.RequestID == "" {
		corr = correlation.FromHeaders(in.Header)
	}

	ctx, span := f.tracer.Start(ctx, "upstream.fetch", trace.WithAttributes(
		attribute.String("http.request.method", in.Method),
		attribute.String("url.full", in.URL),
		attribute.String("gateway.request_id", corr.RequestID),
	))
	defer span.End()

	var staged []string
	cookieHdr := in.Header.Get("Cookie")

	token, hasToken := cookies.ReadFirst(cookieHdr, cookies.AccessNames)

	if hasToken {
		resp, err := f.attempt(ctx, in, corr, token)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "upstream unreachable")
			return &Result{SetCookies: staged}, err
		}
		staged = append(staged, collectSetCookies(resp)...)

		if resp.StatusCode != http.StatusUnauthorized {
			span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
			return &Result{Response: resp, SetCookies: staged}, nil
		}
		drain(resp)
		f.log.Debug().Str("requestId", corr.RequestID).Str("url", in.URL).Msg("upstream returned 401, refreshing access token")
	}

	span.SetAttributes(attribute.Bool("gateway.refreshed", true))

	mint, err := f.refresher.Mint(ctx, in.Header, corr)
	if mint != nil {
		staged = append(staged, mint.SetCookies...)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "token refresh failed")
		return &Result{SetCookies: staged}, err
	}
	if mint.AccessToken == "" {
		err := apierror.New(401, "Unauthorized (refresh failed)", apierror.CodeTokenRefreshFailed, nil, corr)
		span.RecordError(err)
		span.SetStatus(codes.Error, "no token minted")
		return &Result{SetCookies: staged}, err
	}

	retry, err := f.attempt(ctx, in, corr, mint.AccessToken)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upstream unreachable on retry")
		return &Result{SetCookies: staged}, err
	}
	staged = append(staged, collectSetCookies(retry)...)

	if retry.StatusCode == http.StatusUnauthorized {
		// The freshly minted token was rejected too; retrying further
		// would loop.
		drain(retry)
		err := apierror.New(401, "Unauthorized", apierror.CodeInvalidAccessToken, nil, corr)
		span.RecordError(err)
		span.SetStatus(codes.Error, "minted token rejected")
		return &Result{SetCookies: staged}, err
	}

	span.SetAttributes(attribute.Int("http.response.status_code", retry.StatusCode))
	return &Result{Response: retry, SetCookies: staged}, nil
}

// attempt performs one upstream call with the given bearer token.
func (f *Fetcher) attempt(ctx context.Context, in *Request, corr correlation.Correlation, token string) (*http.Response, error) {
	var body io.Reader
	if len(in.Body) > 0 {
		body = bytes.NewReader(in.Body)
	}
	req, err := http.NewRequestWithContext(ctx, in.Method, in.URL, body)
	if err != nil {
		return nil, apierror.New(500, "Invalid upstream URL", apierror.CodeConfigError, nil, corr).WithCause(err)
	}

	corr.Apply(req.Header)
	copyForwardHeaders(req.Header, in.Header)
	if ct := in.Header.Get("Content-Type"); ct != "" && len(in.Body) > 0 {
		req.Header.Set("Content-Type", ct)
	}
	if accept := in.Header.Get("Accept"); accept != "" {
		req.Header.Set("Accept", accept)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, apierror.FromTransport(err, "Failed to connect to backend", corr)
	}
	return resp, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
