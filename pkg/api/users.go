package api

import (
	"context"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"

	"github.com/SmileSnow819/natours/pkg/autherr"
)

// Signup creates an account. The response must carry a token and a user.
func (c *Client) Signup(ctx context.Context, data SignupData) (*AuthResponse, error) {
	return c.authenticate(ctx, "/users/signup", data)
}

// Login exchanges credentials for a token and user.
func (c *Client) Login(ctx context.Context, creds LoginCredentials) (*AuthResponse, error) {
	return c.authenticate(ctx, "/users/login", creds)
}

func (c *Client) authenticate(ctx context.Context, path string, body interface{}) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.do(ctx, request{method: http.MethodPost, path: path, body: body}, &resp); err != nil {
		return nil, err
	}
	if err := checkAuthResponse(&resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func checkAuthResponse(resp *AuthResponse) error {
	if resp.Token == "" {
		return autherr.Validation("response is missing the token")
	}
	if u := resp.User(); u == nil || u.ID == "" {
		return autherr.Validation("response is missing the user")
	}
	return nil
}

// GetMe returns the user owning the token from src.
func (c *Client) GetMe(ctx context.Context, src oauth2.TokenSource) (*User, error) {
	var env envelope[User]
	err := c.do(ctx, request{method: http.MethodGet, path: "/users/getMe", auth: authRequired, source: src}, &env)
	if err != nil {
		return nil, err
	}

	user := env.doc()
	if user == nil || user.ID == "" {
		return nil, autherr.Validation("response is missing the user")
	}
	return user, nil
}

// UpdateMe changes the name and/or photo of the current user.
func (c *Client) UpdateMe(ctx context.Context, src oauth2.TokenSource, update UserUpdate) (*User, error) {
	var env envelope[User]
	err := c.do(ctx, request{method: http.MethodPatch, path: "/users/updateMe", body: update, auth: authRequired, source: src}, &env)
	if err != nil {
		return nil, err
	}

	user := env.doc()
	if user == nil || user.ID == "" {
		return nil, autherr.Validation("response is missing the user")
	}
	return user, nil
}

// UpdatePassword changes the password. The backend issues a fresh token.
func (c *Client) UpdatePassword(ctx context.Context, src oauth2.TokenSource, update PasswordUpdate) (*AuthResponse, error) {
	var resp AuthResponse
	err := c.do(ctx, request{method: http.MethodPatch, path: "/users/updateMyPassword", body: update, auth: authRequired, source: src}, &resp)
	if err != nil {
		return nil, err
	}
	if err := checkAuthResponse(&resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteMe deactivates the current account.
func (c *Client) DeleteMe(ctx context.Context, src oauth2.TokenSource) error {
	return c.do(ctx, request{method: http.MethodDelete, path: "/users/deleteMe", auth: authRequired, source: src}, nil)
}

// ForgotPassword asks the backend to mail a reset link to email.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	body := struct {
		Email string `json:"email"`
	}{Email: email}
	return c.do(ctx, request{method: http.MethodPost, path: "/users/forgotPassword", body: body}, nil)
}

// ResetPassword sets a new password using the token from the reset email.
func (c *Client) ResetPassword(ctx context.Context, resetToken string, reset PasswordReset) error {
	path := "/users/resetPassword/" + url.PathEscape(resetToken)
	return c.do(ctx, request{method: http.MethodPatch, path: path, body: reset}, nil)
}
