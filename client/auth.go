package client

import (
	"context"
	"net/http"
	"strings"

	"github.com/linkforge/apiclient/apierror"
)

// IdentityProvider supplies the bearer credential of the signed-in user.
// An empty credential with a nil error means nobody is signed in.
type IdentityProvider interface {
	Credential(ctx context.Context) (string, error)
}

// CredentialFunc adapts a function to IdentityProvider.
type CredentialFunc func(ctx context.Context) (string, error)

func (f CredentialFunc) Credential(ctx context.Context) (string, error) {
	return f(ctx)
}

// StaticCredential always returns token.
func StaticCredential(token string) IdentityProvider {
	return CredentialFunc(func(context.Context) (string, error) {
		return token, nil
	})
}

// AuthClient calls the link API on behalf of the signed-in user. When no
// credential is available every call fails with NO_AUTH_TOKEN before
// anything is sent.
type AuthClient struct {
	client   *Client
	provider IdentityProvider
}

// Get fetches path into out, retrying transient failures. The credential is
// fetched again for every attempt.
func (a *AuthClient) Get(ctx context.Context, path string, out any) error {
	return a.client.get(ctx, path, out, a.authorize)
}

// Post sends body to path once.
func (a *AuthClient) Post(ctx context.Context, path string, body, out any) error {
	return a.client.send(ctx, http.MethodPost, path, body, out, a.authorize)
}

// Put sends body to path once.
func (a *AuthClient) Put(ctx context.Context, path string, body, out any) error {
	return a.client.send(ctx, http.MethodPut, path, body, out, a.authorize)
}

// Delete removes path once.
func (a *AuthClient) Delete(ctx context.Context, path string, out any) error {
	return a.client.send(ctx, http.MethodDelete, path, nil, out, a.authorize)
}

// Unauthenticated returns the client this one was derived from.
func (a *AuthClient) Unauthenticated() *Client {
	return a.client
}

func (a *AuthClient) authorize(ctx context.Context) (http.Header, error) {
	if a.provider == nil {
		return nil, apierror.New(apierror.NoAuthToken, "not signed in")
	}

	token, err := a.provider.Credential(ctx)
	if err != nil {
		return nil, apierror.Classify(err)
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apierror.New(apierror.NoAuthToken, "not signed in")
	}

	return http.Header{"Authorization": {"Bearer " + token}}, nil
}
