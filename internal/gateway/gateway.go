// Package gateway is the single point of HTTP egress to the inventory backend.
// Every request goes to baseURL + apiPrefix + path and carries the session's bearer
// token when there is one. There is no retry, timeout or circuit breaking here:
// failures reach the caller as NetworkError, BackendError or AuthError.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"inventory_admin/internal/models"
	"inventory_admin/internal/pkg/envelope"
	"inventory_admin/internal/pkg/logger"
	"inventory_admin/internal/session"
)

// Auth endpoints relative to the API prefix, and the messages used when the backend sends none.
const (
	ForgotPasswordPath       = "/auth/forgot-password"
	ValidateResetTokenPath   = "/auth/reset-password/validate"
	ResetPasswordPath        = "/auth/reset-password"
	DefaultLoginPath         = "/auth/login"
	loginFailure             = "Login failed: no token in response"
	invalidResetTokenFailure = "Invalid or expired reset token"
)

// Params are query-string parameters of one request.
type Params map[string]string

// RequestOptions carries the optional parts of a request.
type RequestOptions struct {
	Params Params
	Body   any
}

// Response is a successful (2xx) backend answer. Data is the decoded JSON body,
// or nil when the body was empty or not JSON.
type Response struct {
	Status int
	Data   any
	Raw    []byte
}

// Client is the configured API gateway.
type Client struct {
	baseURL    string
	apiPrefix  string
	loginPath  string
	httpClient *http.Client
	session    session.Provider
	log        *logger.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the transport-level client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(client *Client) { client.httpClient = httpClient }
}

// WithLoginPath overrides the login endpoint path.
func WithLoginPath(path string) Option {
	return func(client *Client) {
		if path != "" {
			client.loginPath = path
		}
	}
}

// New configures a Client. It has no side effects beyond storing its arguments.
// provider may be nil, in which case every request is sent unauthenticated.
func New(baseURL, apiPrefix string, provider session.Provider, l *logger.Logger, opts ...Option) *Client {
	if l == nil {
		l = logger.Nop()
	}
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiPrefix:  "/" + strings.Trim(apiPrefix, "/"),
		loginPath:  DefaultLoginPath,
		httpClient: &http.Client{Transport: l.Transport(nil)},
		session:    provider,
		log:        l,
	}
	if client.apiPrefix == "/" {
		client.apiPrefix = ""
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// URL returns the absolute URL of path with params encoded.
func (client *Client) URL(path string, params Params) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	target := client.baseURL + client.apiPrefix + path
	if len(params) == 0 {
		return target
	}
	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}
	return target + "?" + values.Encode()
}

// Request issues one HTTP call. Non-2xx responses become *BackendError and transport
// failures *NetworkError.
func (client *Client) Request(ctx context.Context, method, path string, opts RequestOptions) (*Response, error) {
	var body io.Reader
	if opts.Body != nil {
		data, err := json.Marshal(opts.Body)
		if err != nil {
			return nil, fmt.Errorf("gateway: marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, client.URL(path, opts.Params), body)
	if err != nil {
		return nil, fmt.Errorf("gateway: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if opts.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if client.session != nil {
		if token := client.session.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := client.httpClient.Do(req)
	if err != nil {
		client.log.Sugar().Errorf("Backend unreachable for %s %s: %s", method, path, err)
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}

	var data any
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			data = nil
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		backendErr := &BackendError{Status: resp.StatusCode, Data: data}
		client.log.Sugar().Warnf("Backend answered %d for %s %s: %s", resp.StatusCode, method, path, backendErr)
		return nil, backendErr
	}

	return &Response{Status: resp.StatusCode, Data: data, Raw: raw}, nil
}

// Login posts credentials, extracts token and user from the response, persists them
// and returns them. A response without a token yields *AuthError.
func (client *Client) Login(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	resp, err := client.Request(ctx, http.MethodPost, client.loginPath, RequestOptions{
		Body: models.LoginRequest{Email: email, Password: password},
	})
	if err != nil {
		return nil, err
	}

	token, user := extractCredentials(resp.Data)
	if token == "" {
		msg := envelope.MessageFrom(resp.Data)
		if msg == "" {
			msg = loginFailure
		}
		return nil, &AuthError{Message: msg, Data: resp.Data}
	}

	if client.session != nil {
		if err := client.session.Save(ctx, token, user); err != nil {
			return nil, fmt.Errorf("gateway: persist session: %w", err)
		}
	}

	return &models.LoginResponse{Token: token, User: user}, nil
}

// Logout clears the persisted session. The backend is not contacted.
func (client *Client) Logout(ctx context.Context) error {
	if client.session == nil {
		return nil
	}
	return client.session.Clear(ctx)
}

// RequestPasswordReset asks the backend to email a reset link. It returns the
// backend's confirmation message, if any.
func (client *Client) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	resp, err := client.Request(ctx, http.MethodPost, ForgotPasswordPath, RequestOptions{
		Body: models.PasswordResetRequest{Email: email},
	})
	if err != nil {
		return "", err
	}
	return envelope.MessageFrom(resp.Data), nil
}

// ValidateResetToken checks a reset token with the backend. A body flagging the token
// as invalid is an *AuthError and clears the local session.
func (client *Client) ValidateResetToken(ctx context.Context, token string) error {
	resp, err := client.Request(ctx, http.MethodGet, ValidateResetTokenPath, RequestOptions{
		Params: Params{"token": token},
	})
	if err != nil {
		return err
	}

	if valid, ok := lookupBool(resp.Data, "valid"); ok && !valid {
		msg := envelope.MessageFrom(resp.Data)
		if msg == "" {
			msg = invalidResetTokenFailure
		}
		if err := client.Logout(ctx); err != nil {
			client.log.Sugar().Errorf("Failed to clear session: %s", err)
		}
		return &AuthError{Message: msg, Data: resp.Data}
	}
	return nil
}

// ResetPassword sets a new password using a reset token. On success the local session
// is cleared so the operator signs in again with the new credentials.
func (client *Client) ResetPassword(ctx context.Context, token, newPassword string) (string, error) {
	resp, err := client.Request(ctx, http.MethodPost, ResetPasswordPath, RequestOptions{
		Body: models.NewPasswordRequest{Token: token, Password: newPassword},
	})
	if err != nil {
		return "", err
	}
	if err := client.Logout(ctx); err != nil {
		return "", err
	}
	return envelope.MessageFrom(resp.Data), nil
}

// extractCredentials looks for token and user at the top level of the body and under "data".
func extractCredentials(data any) (string, models.User) {
	var token string
	var user models.User

	body, _ := data.(map[string]any)
	nested, _ := body["data"].(map[string]any)

	for _, level := range []map[string]any{body, nested} {
		if token == "" {
			for _, key := range []string{"token", "accessToken"} {
				if t, ok := level[key].(string); ok && t != "" {
					token = t
					break
				}
			}
		}
		if user == nil {
			if u, ok := level["user"].(map[string]any); ok {
				user = u
			}
		}
	}

	if user == nil {
		user = models.User{}
	}
	return token, user
}

func lookupBool(data any, key string) (bool, bool) {
	body, _ := data.(map[string]any)
	if v, ok := body[key].(bool); ok {
		return v, true
	}
	nested, _ := body["data"].(map[string]any)
	v, ok := nested[key].(bool)
	return v, ok
}
