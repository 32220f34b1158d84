package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventory_admin/internal/models"
	"inventory_admin/internal/pkg/envelope"
	"inventory_admin/internal/pkg/logger"
)

// fakeSession is an in-test session.Provider.
type fakeSession struct {
	token   string
	user    models.User
	saves   int
	clears  int
	saveErr error
}

func (f *fakeSession) Token() string     { return f.token }
func (f *fakeSession) User() models.User { return f.user }

func (f *fakeSession) Save(_ context.Context, token string, user models.User) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	f.token, f.user = token, user
	return nil
}

func (f *fakeSession) Clear(context.Context) error {
	f.clears++
	f.token, f.user = "", nil
	return nil
}

func newBackend(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return ts
}

func TestRequestAuthorizationHeader(t *testing.T) {
	var header atomic.Value
	var present atomic.Bool
	ts := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		_, ok := r.Header["Authorization"]
		present.Store(ok)
		header.Store(r.Header.Get("Authorization"))
		w.Write([]byte(`[]`))
	})

	testCases := []struct {
		name          string
		token         string
		expectPresent bool
		expectHeader  string
	}{
		{name: "No token", token: "", expectPresent: false, expectHeader: ""},
		{name: "Token present", token: "abc", expectPresent: true, expectHeader: "Bearer abc"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			client := New(ts.URL, "/api", &fakeSession{token: tc.token}, logger.Nop())
			_, err := client.Request(context.Background(), http.MethodGet, "/products", RequestOptions{})
			require.NoError(t, err)

			assert.Equal(t, tc.expectPresent, present.Load())
			assert.Equal(t, tc.expectHeader, header.Load())
		})
	}
}

func TestRequestURLAndBody(t *testing.T) {
	ts := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/products", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.JSONEq(t, `{"name":"Flour"}`, string(body))

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data":{"id":1}}`))
	})

	client := New(ts.URL+"/", "api/", nil, logger.Nop())
	resp, err := client.Request(context.Background(), http.MethodPost, "products", RequestOptions{
		Params: Params{"page": "2"},
		Body:   map[string]any{"name": "Flour"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.Status)
	assert.Equal(t, map[string]any{"data": map[string]any{"id": 1.0}}, resp.Data)
}

func TestRequestErrors(t *testing.T) {
	testCases := []struct {
		name        string
		status      int
		body        string
		expectedMsg string
	}{
		{name: "Message field", status: http.StatusBadRequest, body: `{"message":"M","error":"E"}`, expectedMsg: "M"},
		{name: "Error field", status: http.StatusConflict, body: `{"error":"E"}`, expectedMsg: "E"},
		{name: "No recognisable field", status: http.StatusInternalServerError, body: `{"detail":"x"}`, expectedMsg: "Request failed"},
		{name: "Not JSON", status: http.StatusBadGateway, body: `<html>bad gateway</html>`, expectedMsg: "Request failed"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ts := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			})

			client := New(ts.URL, "/api", nil, logger.Nop())
			_, err := client.Request(context.Background(), http.MethodGet, "/x", RequestOptions{})

			var backendErr *BackendError
			require.ErrorAs(t, err, &backendErr)
			assert.Equal(t, tc.status, backendErr.Status)
			assert.Equal(t, tc.expectedMsg, err.Error())
		})
	}
}

func TestRequestNetworkError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	client := New(url, "/api", nil, logger.Nop())
	_, err := client.Request(context.Background(), http.MethodGet, "/x", RequestOptions{})

	var networkErr *NetworkError
	require.ErrorAs(t, err, &networkErr)
	assert.Equal(t, "Network Error", err.Error())
	assert.Equal(t, "Network Error", envelope.ErrorMessage(err, "Action failed"))
}

func TestLogin(t *testing.T) {
	testCases := []struct {
		name          string
		body          string
		expectedToken string
		expectedUser  models.User
		expectedErr   string
	}{
		{
			name:          "Nested under data",
			body:          `{"data":{"token":"t1","user":{"id":7}}}`,
			expectedToken: "t1",
			expectedUser:  models.User{"id": 7.0},
		},
		{
			name:          "Top level",
			body:          `{"token":"t2","user":{"id":8,"role":"admin"}}`,
			expectedToken: "t2",
			expectedUser:  models.User{"id": 8.0, "role": "admin"},
		},
		{
			name:          "Token nested, user top level",
			body:          `{"user":{"id":9},"data":{"accessToken":"t3"}}`,
			expectedToken: "t3",
			expectedUser:  models.User{"id": 9.0},
		},
		{
			name:          "Token without user",
			body:          `{"token":"t4"}`,
			expectedToken: "t4",
			expectedUser:  models.User{},
		},
		{
			name:        "No token, backend message",
			body:        `{"message":"Account disabled"}`,
			expectedErr: "Account disabled",
		},
		{
			name:        "No token anywhere",
			body:        `{"data":{"user":{"id":1}}}`,
			expectedErr: loginFailure,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ts := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/auth/signin", r.URL.Path)
				var req models.LoginRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, "ops@example.com", req.Email)
				w.Write([]byte(tc.body))
			})

			sess := &fakeSession{}
			client := New(ts.URL, "/api", sess, logger.Nop(), WithLoginPath("/auth/signin"))
			resp, err := client.Login(context.Background(), "ops@example.com", "secret")

			if tc.expectedErr != "" {
				var authErr *AuthError
				require.ErrorAs(t, err, &authErr)
				assert.Equal(t, tc.expectedErr, err.Error())
				assert.Equal(t, 0, sess.saves)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.expectedToken, resp.Token)
			assert.Equal(t, tc.expectedUser, resp.User)
			assert.Equal(t, tc.expectedToken, sess.token)
			assert.Equal(t, tc.expectedUser, sess.user)
		})
	}
}

func TestLoginRejected(t *testing.T) {
	ts := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"Invalid credentials"}`))
	})

	client := New(ts.URL, "/api", &fakeSession{}, logger.Nop())
	_, err := client.Login(context.Background(), "a@b.c", "x")

	require.Error(t, err)
	assert.Equal(t, "Invalid credentials", err.Error())
	assert.True(t, IsUnauthorized(err))
}

func TestLoginPersistFailure(t *testing.T) {
	ts := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"token":"t"}`))
	})

	client := New(ts.URL, "/api", &fakeSession{saveErr: errors.New("disk full")}, logger.Nop())
	_, err := client.Login(context.Background(), "a@b.c", "x")
	assert.ErrorContains(t, err, "disk full")
}

func TestLogoutDoesNotCallBackend(t *testing.T) {
	var calls atomic.Int32
	ts := newBackend(t, func(w http.ResponseWriter, r *http.Request) { calls.Add(1) })

	sess := &fakeSession{token: "abc"}
	client := New(ts.URL, "/api", sess, logger.Nop())
	require.NoError(t, client.Logout(context.Background()))

	assert.Equal(t, int32(0), calls.Load())
	assert.Equal(t, 1, sess.clears)
	assert.Equal(t, "", sess.token)
}

func TestPasswordResetFlow(t *testing.T) {
	ts := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api" + ForgotPasswordPath:
			w.Write([]byte(`{"message":"Reset link sent"}`))
		case "/api" + ValidateResetTokenPath:
			if r.URL.Query().Get("token") == "good" {
				w.Write([]byte(`{"data":{"valid":true}}`))
				return
			}
			w.Write([]byte(`{"valid":false,"message":"Token expired"}`))
		case "/api" + ResetPasswordPath:
			w.Write([]byte(`{"message":"Password updated"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	ctx := context.Background()
	sess := &fakeSession{token: "abc"}
	client := New(ts.URL, "/api", sess, logger.Nop())

	msg, err := client.RequestPasswordReset(ctx, "ops@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Reset link sent", msg)

	require.NoError(t, client.ValidateResetToken(ctx, "good"))
	assert.Equal(t, 0, sess.clears)

	err = client.ValidateResetToken(ctx, "bad")
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "Token expired", err.Error())
	assert.Equal(t, 1, sess.clears)

	sess.token = "abc"
	msg, err = client.ResetPassword(ctx, "good", "n3w-pass")
	require.NoError(t, err)
	assert.Equal(t, "Password updated", msg)
	assert.Equal(t, "", sess.token)
}
