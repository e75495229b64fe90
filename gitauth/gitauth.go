package gitauth

import (
	"errors"
	"fmt"

	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
)

// ErrMissingUsername reports that neither a username nor a token was
// configured. Credential misconfiguration is never guessable.
var ErrMissingUsername = errors.New("missing username")

// ErrAmbiguousCredentials reports that both a token and a password
// were configured.
var ErrAmbiguousCredentials = errors.New(
	"ambiguous credentials: token and password both set",
)

// ErrUnsupportedRequest reports a credential request kind the adapter
// cannot satisfy.
var ErrUnsupportedRequest = errors.New(
	"unsupported credential request",
)

// Kind identifies the credential item a transport asks for.
type Kind int

const (
	// KindUsername asks for the account name.
	KindUsername Kind = iota
	// KindPassword asks for the account password.
	KindPassword
	// KindPrompt asks for a string in response to a password prompt.
	KindPrompt
)

// Request is a single credential item to be filled by the adapter.
// The transport sets Kind (and Prompt for KindPrompt) and reads Value
// back after Fill.
type Request struct {
	// Kind is the requested item kind.
	Kind Kind
	// Prompt is the prompt text for KindPrompt requests.
	Prompt string
	// Value receives the answer.
	Value string
}

// Config is the typed credential configuration. At most one of
// username+password or token may be set.
type Config struct {
	// Username is the transport account name.
	Username string
	// Password is the transport account password.
	Password string
	// Token is an access token presented as the username with an
	// empty password.
	Token string
}

// Adapter answers credential requests from a Config.
type Adapter struct {
	cfg Config
}

// NewAdapter returns an Adapter for cfg. The configuration is
// validated lazily, when the first request is answered.
func NewAdapter(cfg Config) *Adapter {
	return &Adapter{cfg: cfg}
}

// Interactive reports whether the adapter may prompt the user.
// It never does.
func (a *Adapter) Interactive() bool {
	return false
}

// Supports reports whether every request kind can be answered.
// Username, password, and password-prompt requests are supported.
func (a *Adapter) Supports(reqs ...*Request) bool {
	for _, req := range reqs {
		switch req.Kind {
		case KindUsername, KindPassword, KindPrompt:
		default:
			return false
		}
	}

	return true
}

// Fill answers each request in place. Username requests receive the
// resolved username, password and prompt requests the resolved
// password. Unknown kinds fail with ErrUnsupportedRequest.
func (a *Adapter) Fill(reqs ...*Request) error {
	const errCtx = "filling credential requests"

	username, password, err := a.cfg.resolve()
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	for _, req := range reqs {
		switch req.Kind {
		case KindUsername:
			req.Value = username
		case KindPassword, KindPrompt:
			req.Value = password
		default:
			return fmt.Errorf(
				"%s: kind %d: %w",
				errCtx, req.Kind, ErrUnsupportedRequest,
			)
		}
	}

	return nil
}

// BasicAuth resolves the configuration into the HTTP basic-auth
// method the go-git transport consumes.
func (a *Adapter) BasicAuth() (*githttp.BasicAuth, error) {
	const errCtx = "resolving basic auth"

	username, password, err := a.cfg.resolve()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return &githttp.BasicAuth{
		Username: username,
		Password: password,
	}, nil
}

// resolve applies the mutual-constraint rules and returns the
// effective username/password pair.
func (c Config) resolve() (string, string, error) {
	switch {
	case c.Token != "" && c.Password != "":
		return "", "", ErrAmbiguousCredentials
	case c.Token != "":
		return c.Token, "", nil
	case c.Username == "":
		return "", "", ErrMissingUsername
	default:
		return c.Username, c.Password, nil
	}
}
