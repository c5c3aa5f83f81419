package repository

import (
	"context"

	"github.com/adfharrison1/go-docrepo/pkg/domain"
	"github.com/adfharrison1/go-docrepo/pkg/query"
)

type sessionKey struct{}

// WithSession attaches the ambient session token of the caller to ctx
func WithSession(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, sessionKey{}, token)
}

// SessionFrom returns the ambient session token carried by ctx
func SessionFrom(ctx context.Context) string {
	token, _ := ctx.Value(sessionKey{}).(string)
	return token
}

// ScopeInput holds everything the access scope of a call is derived from
type ScopeInput struct {
	Elevated        bool   // explicit per-call override
	Token           string // caller-supplied token
	Ambient         string // ambient session identity
	DefaultElevated bool   // configured default mode
}

// ResolveScope returns the access scope of a call. Priority: elevated
// override, explicit token, ambient session, configured default.
func ResolveScope(in ScopeInput) domain.Scope {
	switch {
	case in.Elevated || in.Token == query.MasterKeyToken:
		return domain.Scope{Mode: domain.AccessElevated}
	case in.Token != "":
		return domain.Scope{Mode: domain.AccessSession, Token: in.Token}
	case in.Ambient != "":
		return domain.Scope{Mode: domain.AccessSession, Token: in.Ambient}
	case in.DefaultElevated:
		return domain.Scope{Mode: domain.AccessElevated}
	}
	return domain.Scope{Mode: domain.AccessNone}
}

type callOptions struct {
	elevated bool
	token    string
}

// CallOption adjusts a single repository call
type CallOption func(*callOptions)

// Elevated runs the call with elevated access
func Elevated() CallOption {
	return func(o *callOptions) { o.elevated = true }
}

// WithToken runs the call with the given session token
func WithToken(token string) CallOption {
	return func(o *callOptions) { o.token = token }
}

// scope resolves the access scope of a call. A token set through a call option
// wins over the descriptor token.
func (r *Repository) scope(ctx context.Context, token string, opts []CallOption) domain.Scope {
	var co callOptions
	for _, opt := range opts {
		opt(&co)
	}
	if co.token != "" {
		token = co.token
	}
	return ResolveScope(ScopeInput{
		Elevated:        co.elevated,
		Token:           token,
		Ambient:         SessionFrom(ctx),
		DefaultElevated: r.useMasterKey,
	})
}
