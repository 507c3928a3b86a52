package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/medivoice/medivoice/internal/consult"
)

// Login exchanges credentials for a bearer token. It does not store it.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	if email == "" || password == "" {
		return "", consult.NewValidationError("credentials", "email and password are required")
	}
	req, err := c.newJSONRequest(ctx, http.MethodPost, "/auth/login", loginRequest{Email: email, Password: password}, false)
	if err != nil {
		return "", err
	}
	resp, err := c.do("login", req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return "", &StatusError{Op: "login", StatusCode: resp.StatusCode, Body: readBody(resp)}
	}
	var lr loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return "", fmt.Errorf("login: decode response: %w", err)
	}
	if lr.Token == "" {
		return "", fmt.Errorf("login: response carried no token")
	}
	return lr.Token, nil
}

// NewAccount is what sign-up sends.
type NewAccount struct {
	Name      string
	Email     string
	Password  string
	Specialty string
}

// SignUpResult carries a token when the backend signs the new user in
// directly. Otherwise Token is empty and Message holds the backend's text;
// the user then signs in with Login.
type SignUpResult struct {
	Token   string
	Message string
}

// SignUp creates an account. It does not store the token.
func (c *Client) SignUp(ctx context.Context, acct NewAccount) (SignUpResult, error) {
	if strings.TrimSpace(acct.Name) == "" || acct.Email == "" || acct.Password == "" {
		return SignUpResult{}, consult.NewValidationError("account", "name, email and password are required")
	}
	body := signUpRequest{
		Name:      strings.TrimSpace(acct.Name),
		Email:     acct.Email,
		Password:  acct.Password,
		Specialty: acct.Specialty,
	}
	req, err := c.newJSONRequest(ctx, http.MethodPost, "/auth/register", body, false)
	if err != nil {
		return SignUpResult{}, err
	}
	resp, err := c.do("signup", req)
	if err != nil {
		return SignUpResult{}, err
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return SignUpResult{}, &StatusError{Op: "signup", StatusCode: resp.StatusCode, Body: readBody(resp)}
	}
	if mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mt != "application/json" {
		return SignUpResult{Message: readBody(resp)}, nil
	}
	var lr loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return SignUpResult{}, fmt.Errorf("signup: decode response: %w", err)
	}
	return SignUpResult{Token: lr.Token}, nil
}

func (c *Client) Profile(ctx context.Context) (consult.Profile, error) {
	var p consult.Profile
	err := c.getJSON(ctx, "profile", "/user/profile", &p)
	return p, err
}

func (c *Client) Stats(ctx context.Context) (consult.Stats, error) {
	var s consult.Stats
	err := c.getJSON(ctx, "stats", "/user/stats", &s)
	return s, err
}
