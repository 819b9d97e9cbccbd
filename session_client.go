package festadmin

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/sync/singleflight"
)

// SessionState tracks the local credential lifecycle:
// Valid -> Expired -> Renewing -> Valid, or Renewing -> Invalidated when the
// renewal exchange fails.
type SessionState string

const (
	SessionStateValid       SessionState = "valid"
	SessionStateExpired     SessionState = "expired"
	SessionStateRenewing    SessionState = "renewing"
	SessionStateInvalidated SessionState = "invalidated"
)

// Credential pairs the short-lived bearer token with the longer-lived
// renewal token.
type Credential struct {
	Bearer  string
	Renewal string
}

// Doer abstracts the underlying HTTP client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// CredentialExchanger is the credential issuer collaborator: valid renewal
// token in, fresh credential out, or failure.
type CredentialExchanger interface {
	Exchange(ctx context.Context, renewalToken string) (*Credential, error)
}

// CredentialExchangerFunc adapts a function to the CredentialExchanger
// interface.
type CredentialExchangerFunc func(ctx context.Context, renewalToken string) (*Credential, error)

func (f CredentialExchangerFunc) Exchange(ctx context.Context, renewalToken string) (*Credential, error) {
	return f(ctx, renewalToken)
}

// SessionClient wraps outbound calls with a bearer credential and detects
// authorization expiry. Concurrent requests observing the same expired
// credential coalesce into a single renewal exchange; each request retries
// at most once per renewal cycle. A second rejection after a successful
// renewal invalidates the local session instead of looping.
type SessionClient struct {
	base      Doer
	exchanger CredentialExchanger
	flight    singleflight.Group

	mu    sync.Mutex
	cred  *Credential
	state SessionState

	logger Logger
	now    func() time.Time
}

// SessionClientOption customizes client construction.
type SessionClientOption func(*SessionClient)

// WithSessionBaseClient overrides the underlying HTTP client.
func WithSessionBaseClient(base Doer) SessionClientOption {
	return func(c *SessionClient) {
		if base != nil {
			c.base = base
		}
	}
}

// WithSessionLogger overrides the client logger.
func WithSessionLogger(logger Logger) SessionClientOption {
	return func(c *SessionClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSessionClock injects a custom clock (useful for tests).
func WithSessionClock(clock func() time.Time) SessionClientOption {
	return func(c *SessionClient) {
		if clock != nil {
			c.now = clock
		}
	}
}

// NewSessionClient returns a client seeded with an initial credential.
func NewSessionClient(exchanger CredentialExchanger, cred *Credential, opts ...SessionClientOption) *SessionClient {
	client := &SessionClient{
		base:      http.DefaultClient,
		exchanger: exchanger,
		cred:      cred,
		state:     SessionStateValid,
		logger:    defLogger{},
		now:       time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client
}

// State reports the current local session state.
func (c *SessionClient) State() SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Do executes the request with the current bearer credential, renewing it at
// most once when the server reports it expired.
func (c *SessionClient) Do(req *http.Request) (*http.Response, error) {
	cred, state, err := c.snapshot()
	if err != nil {
		return nil, err
	}

	if state != SessionStateRenewing && c.bearerExpired(cred.Bearer) {
		if cred, err = c.renew(req.Context(), cred); err != nil {
			return nil, err
		}
	}

	canRetry := req.Body == nil || req.GetBody != nil

	res, err := c.send(req, cred.Bearer)
	if err != nil {
		return nil, err
	}

	if res.StatusCode != http.StatusUnauthorized {
		return res, nil
	}
	res.Body.Close()

	fresh, err := c.renew(req.Context(), cred)
	if err != nil {
		return nil, err
	}

	if !canRetry {
		// The body was consumed and cannot be replayed; the renewed
		// credential stays usable for the caller's own retry.
		return nil, withMeta(ErrSessionExpired, map[string]any{
			"reason": "request body is not replayable",
		})
	}

	res, err = c.send(req, fresh.Bearer)
	if err != nil {
		return nil, err
	}

	if res.StatusCode == http.StatusUnauthorized {
		res.Body.Close()
		c.invalidate()
		return nil, withMeta(ErrSessionInvalidated, map[string]any{
			"reason": "renewed credential rejected",
		})
	}

	return res, nil
}

func (c *SessionClient) snapshot() (*Credential, SessionState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == SessionStateInvalidated {
		return nil, c.state, ErrSessionInvalidated
	}
	if c.cred == nil {
		return nil, c.state, ErrUnauthenticated
	}
	return c.cred, c.state, nil
}

func (c *SessionClient) send(req *http.Request, bearer string) (*http.Response, error) {
	clone := req.Clone(req.Context())
	if req.Body != nil && req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to rewind request body")
		}
		clone.Body = body
	}
	clone.Header.Set("Authorization", "Bearer "+bearer)

	res, err := c.base.Do(clone)
	if err != nil {
		return nil, c.translateTransport(req, err)
	}
	return res, nil
}

// translateTransport maps a timed-out mutating call to Indeterminate: the
// mutation may have applied server side, so callers must reconcile with a
// read rather than blindly retry.
func (c *SessionClient) translateTransport(req *http.Request, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		switch req.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			return goerrors.Wrap(err, goerrors.CategoryOperation, "request timed out")
		default:
			return withMeta(ErrIndeterminate, map[string]any{
				"method": req.Method,
				"url":    req.URL.String(),
			})
		}
	}
	return goerrors.Wrap(err, goerrors.CategoryOperation, "outbound request failed")
}

// renew performs exactly one exchange per expired credential. Callers that
// observe the same stale bearer attach to the in-flight renewal and share
// its outcome instead of issuing their own.
func (c *SessionClient) renew(ctx context.Context, stale *Credential) (*Credential, error) {
	v, err, _ := c.flight.Do(stale.Bearer, func() (any, error) {
		c.mu.Lock()
		if c.state == SessionStateInvalidated {
			c.mu.Unlock()
			return nil, ErrSessionInvalidated
		}
		if c.cred != nil && c.cred.Bearer != stale.Bearer {
			fresh := c.cred
			c.mu.Unlock()
			return fresh, nil
		}
		c.state = SessionStateRenewing
		renewal := stale.Renewal
		c.mu.Unlock()

		fresh, err := c.exchanger.Exchange(ctx, renewal)
		if err != nil {
			translated := TranslateCredentialError(err)

			c.mu.Lock()
			if errors.Is(translated, ErrIndeterminate) {
				// The exchange may have succeeded server side; leave the
				// session expired so a later attempt can renew again.
				c.state = SessionStateExpired
				c.mu.Unlock()
				return nil, translated
			}
			c.state = SessionStateInvalidated
			c.mu.Unlock()

			c.logger.Warn("credential renewal failed, session invalidated: %v", err)
			return nil, withMeta(ErrSessionInvalidated, map[string]any{
				"reason": "renewal exchange failed",
			})
		}

		c.mu.Lock()
		c.cred = fresh
		c.state = SessionStateValid
		c.mu.Unlock()

		return fresh, nil
	})

	if err != nil {
		return nil, err
	}

	return v.(*Credential), nil
}

func (c *SessionClient) invalidate() {
	c.mu.Lock()
	c.state = SessionStateInvalidated
	c.mu.Unlock()
}

// bearerExpired inspects the bearer's exp claim without verifying the
// signature; opaque tokens defer to the server's 401.
func (c *SessionClient) bearerExpired(bearer string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(bearer, claims); err != nil {
		return false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}

	return exp.Time.Before(c.now())
}
