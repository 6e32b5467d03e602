package api

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
	"golang.org/x/oauth2"

	"github.com/SmileSnow819/natours/pkg/autherr"
	"github.com/SmileSnow819/natours/pkg/logging"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL + "/api/v1/"}, logging.NewTestLogger(), opts...), srv
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(Config{}, logging.NewTestLogger())
	assert.Equal(t, DefaultBaseURL, c.BaseURL())
	assert.Equal(t, "natours-cli", c.userAgent)
}

func TestLogin_Success(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/users/login", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		assert.Empty(t, r.Header.Get("Authorization"))

		var body LoginCredentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, LoginCredentials{Email: "ann@x.com", Password: "secret"}, body)

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "success",
			"token":  "t1",
			"data":   map[string]interface{}{"user": map[string]string{"_id": "2", "name": "Ann", "role": "user"}},
		})
	})

	resp, err := c.Login(context.Background(), LoginCredentials{Email: "ann@x.com", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "t1", resp.Token)
	require.NotNil(t, resp.User())
	assert.Equal(t, "2", resp.User().ID)
	assert.Equal(t, RoleUser, resp.User().Role)
}

func TestLogin_RejectedCarriesServerMessage(t *testing.T) {
	var hookCalls int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"status": "fail", "message": "Incorrect email or password"})
	}, WithUnauthorizedHandler(func(string) { atomic.AddInt32(&hookCalls, 1) }))

	_, err := c.Login(context.Background(), LoginCredentials{Email: "ann@x.com", Password: "wrong"})
	require.Error(t, err)
	assert.ErrorIs(t, err, autherr.ErrAuthRejected)
	assert.Equal(t, "Incorrect email or password", err.Error())

	var aerr *autherr.Error
	require.True(t, errors.As(err, &aerr))
	assert.Equal(t, http.StatusUnauthorized, aerr.Status)
	assert.Zero(t, atomic.LoadInt32(&hookCalls), "requests without a token never trigger the unauthorized hook")
}

func TestLogin_MissingTokenIsValidationFailure(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"status": "success", "data": map[string]interface{}{}})
	})

	_, err := c.Login(context.Background(), LoginCredentials{Email: "a", Password: "b"})
	assert.ErrorIs(t, err, autherr.ErrValidationFailed)
}

func TestLogin_MalformedBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "<html>gateway</html>")
	})

	_, err := c.Login(context.Background(), LoginCredentials{Email: "a", Password: "b"})
	assert.ErrorIs(t, err, autherr.ErrValidationFailed)
}

func TestSignup_BadRequest(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/users/signup", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "pass1234", body["passwordConfirm"])
		_, hasPhoto := body["photo"]
		assert.False(t, hasPhoto, "empty photo is omitted")
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "fail", "message": "Duplicate field value"})
	})

	_, err := c.Signup(context.Background(), SignupData{Name: "Ann", Email: "ann@x.com", Password: "pass1234", PasswordConfirm: "pass1234"})
	assert.ErrorIs(t, err, autherr.ErrValidationFailed)
	assert.Equal(t, "Duplicate field value", err.Error())
}

func TestServerErrorIsNetworkKind(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadGateway, map[string]string{"status": "error", "message": "Something went very wrong!"})
	})

	err := c.ForgotPassword(context.Background(), "ann@x.com")
	assert.ErrorIs(t, err, autherr.ErrNetwork)
	assert.Equal(t, "Something went very wrong!", err.Error())
}

func TestNetworkFailure(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()

	_, err := c.Login(context.Background(), LoginCredentials{Email: "a", Password: "b"})
	assert.ErrorIs(t, err, autherr.ErrNetwork)
	assert.Equal(t, "fallback", autherr.Message(err, "fallback"))
}

func TestGetMe_SendsBearerToken(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/users/getMe", r.URL.Path)
		assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "success",
			"data":   map[string]interface{}{"document": map[string]string{"_id": "1", "name": "Ann", "email": "ann@x.com"}},
		})
	})

	user, err := c.GetMe(context.Background(), StaticToken("abc"))
	require.NoError(t, err)
	assert.Equal(t, &User{ID: "1", Name: "Ann", Email: "ann@x.com"}, user)
}

func TestGetMe_MissingDocument(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"status": "success", "data": map[string]interface{}{}})
	})

	_, err := c.GetMe(context.Background(), StaticToken("abc"))
	assert.ErrorIs(t, err, autherr.ErrValidationFailed)
}

func TestUnauthorizedHookReceivesSentToken(t *testing.T) {
	var got atomic.Value
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"status": "fail", "message": "Token expired"})
	})
	c.SetUnauthorizedHandler(func(token string) { got.Store(token) })

	_, err := c.GetMe(context.Background(), StaticToken("stale"))
	assert.ErrorIs(t, err, autherr.ErrAuthRejected)
	assert.Equal(t, "stale", got.Load())
}

func TestRequiredTokenMissing(t *testing.T) {
	var requests int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
	})

	err := c.DeleteMe(context.Background(), nil)
	assert.ErrorIs(t, err, autherr.ErrAuthRejected)

	err = c.DeleteMe(context.Background(), StaticToken(""))
	assert.ErrorIs(t, err, autherr.ErrAuthRejected)

	sentinel := autherr.New(autherr.ErrAuthRejected, 0, "You are not logged in", nil)
	_, err = c.CreateReview(context.Background(), failingSource{err: sentinel}, "t1", ReviewInput{Review: "x", Rating: 5})
	assert.Same(t, sentinel, err)

	assert.Zero(t, atomic.LoadInt32(&requests))
}

type failingSource struct{ err error }

func (f failingSource) Token() (*oauth2.Token, error) { return nil, f.err }

func TestDeleteMe_NoContent(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/v1/users/deleteMe", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	assert.NoError(t, c.DeleteMe(context.Background(), StaticToken("abc")))
}

func TestUpdatePassword_ReturnsNewToken(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/v1/users/updateMyPassword", r.URL.Path)
		var body PasswordUpdate
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "old", body.PasswordCurrent)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "success",
			"token":  "t2",
			"data":   map[string]interface{}{"user": map[string]string{"_id": "1"}},
		})
	})

	resp, err := c.UpdatePassword(context.Background(), StaticToken("t1"), PasswordUpdate{PasswordCurrent: "old", Password: "new12345", PasswordConfirm: "new12345"})
	require.NoError(t, err)
	assert.Equal(t, "t2", resp.Token)
}

func TestUpdateMe(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{"name": "Ann Lee"}, body)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "success",
			"data":   map[string]interface{}{"user": map[string]string{"_id": "1", "name": "Ann Lee"}},
		})
	})

	user, err := c.UpdateMe(context.Background(), StaticToken("t1"), UserUpdate{Name: "Ann Lee"})
	require.NoError(t, err)
	assert.Equal(t, "Ann Lee", user.Name)
}

func TestResetPassword_EscapesToken(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/v1/users/resetPassword/a%2Fb", r.URL.EscapedPath())
		w.WriteHeader(http.StatusOK)
	})

	assert.NoError(t, c.ResetPassword(context.Background(), "a/b", PasswordReset{Password: "p", PasswordConfirm: "p"}))
}
