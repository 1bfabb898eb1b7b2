package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/abdullayevf/chat-app/auth"
	"github.com/abdullayevf/chat-app/broadcast"
	"github.com/abdullayevf/chat-app/domain"
	"github.com/abdullayevf/chat-app/errors"
	"github.com/abdullayevf/chat-app/gateway"
	"github.com/abdullayevf/chat-app/mocks"
	"github.com/abdullayevf/chat-app/observability"
	"github.com/abdullayevf/chat-app/presence"
	"github.com/abdullayevf/chat-app/services"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const testSecret = "test-secret-at-least-32-characters"

// fakeAuthService lets each test script the auth outcomes.
type fakeAuthService struct {
	registerFn func(email, password string) (services.Token, error)
	loginFn    func(email, password string) (services.Token, error)
	deleteFn   func(userID string) error
}

func (f *fakeAuthService) Register(email, password string) (services.Token, error) {
	return f.registerFn(email, password)
}

func (f *fakeAuthService) Login(email, password string) (services.Token, error) {
	return f.loginFn(email, password)
}

func (f *fakeAuthService) DeleteAccount(userID string) error {
	return f.deleteFn(userID)
}

// fakeMessageService scripts the history outcomes.
type fakeMessageService struct {
	historyFn func(limit int, before *time.Time) (services.HistoryPage, error)
	deleteFn  func(userID string, messageID uuid.UUID) error
}

func (f *fakeMessageService) History(limit int, before *time.Time) (services.HistoryPage, error) {
	return f.historyFn(limit, before)
}

func (f *fakeMessageService) Delete(userID string, messageID uuid.UUID) error {
	return f.deleteFn(userID, messageID)
}

type staticResolver struct{ identity domain.Identity }

func (s staticResolver) Resolve(string) (domain.Identity, error) {
	return s.identity, nil
}

func startAPIServer(t *testing.T, authSvc services.IAuthService, msgSvc services.IMessageService) (*httptest.Server, auth.TokenManager) {
	t.Helper()
	log := slog.Default()
	tokens := auth.NewTokenManager(testSecret, time.Hour)
	verifier := auth.NewVerifier(tokens)

	ctrl := gomock.NewController(t)
	engine := broadcast.NewEngine(log, presence.NewRegistry(),
		mocks.NewMockIMessageRepository(ctrl), nil, observability.NewStats(), time.Second)
	gw := gateway.NewGateway(log, engine, verifier,
		staticResolver{identity: domain.Identity{ID: "any"}},
		observability.NewStats(), 16, time.Second, "")

	router := NewRouter(NewHandler(log, authSvc, msgSvc), gw, verifier)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, tokens
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	return resp
}

func authorizedRequest(t *testing.T, method, url, token string) *http.Response {
	t.Helper()
	request, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	request.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(request)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHandler_Register(t *testing.T) {
	t.Run("should create an account and return 201 with a token", func(t *testing.T) {
		req := require.New(t)
		authSvc := &fakeAuthService{
			registerFn: func(email, password string) (services.Token, error) {
				req.Equal("alice@example.com", email)
				return "issued-token", nil
			},
		}
		server, _ := startAPIServer(t, authSvc, &fakeMessageService{})

		resp := postJSON(t, server.URL+"/api/auth/register",
			map[string]string{"email": "alice@example.com", "password": "S3cure&Enough!"})

		req.Equal(http.StatusCreated, resp.StatusCode)
		body := decodeBody[map[string]string](t, resp)
		req.Equal("issued-token", body["token"])
	})

	t.Run("should answer 409 on a duplicate email", func(t *testing.T) {
		req := require.New(t)
		authSvc := &fakeAuthService{
			registerFn: func(string, string) (services.Token, error) {
				return "", errors.ErrUserAlreadyExists
			},
		}
		server, _ := startAPIServer(t, authSvc, &fakeMessageService{})

		resp := postJSON(t, server.URL+"/api/auth/register",
			map[string]string{"email": "alice@example.com", "password": "S3cure&Enough!"})
		defer resp.Body.Close()

		req.Equal(http.StatusConflict, resp.StatusCode)
	})

	t.Run("should answer 400 on a weak password", func(t *testing.T) {
		req := require.New(t)
		authSvc := &fakeAuthService{
			registerFn: func(string, string) (services.Token, error) {
				return "", fmt.Errorf("%w: too simple", errors.ErrInvalidPassword)
			},
		}
		server, _ := startAPIServer(t, authSvc, &fakeMessageService{})

		resp := postJSON(t, server.URL+"/api/auth/register",
			map[string]string{"email": "alice@example.com", "password": "weak"})
		defer resp.Body.Close()

		req.Equal(http.StatusBadRequest, resp.StatusCode)
	})
}

func TestHandler_Login(t *testing.T) {
	t.Run("should return 200 with a token on valid credentials", func(t *testing.T) {
		req := require.New(t)
		authSvc := &fakeAuthService{
			loginFn: func(string, string) (services.Token, error) { return "fresh-token", nil },
		}
		server, _ := startAPIServer(t, authSvc, &fakeMessageService{})

		resp := postJSON(t, server.URL+"/api/auth/login",
			map[string]string{"email": "alice@example.com", "password": "S3cure&Enough!"})

		req.Equal(http.StatusOK, resp.StatusCode)
		body := decodeBody[map[string]string](t, resp)
		req.Equal("fresh-token", body["token"])
	})

	t.Run("should return 401 on bad credentials", func(t *testing.T) {
		req := require.New(t)
		authSvc := &fakeAuthService{
			loginFn: func(string, string) (services.Token, error) {
				return "", errors.ErrInvalidCredentials
			},
		}
		server, _ := startAPIServer(t, authSvc, &fakeMessageService{})

		resp := postJSON(t, server.URL+"/api/auth/login",
			map[string]string{"email": "alice@example.com", "password": "nope"})
		defer resp.Body.Close()

		req.Equal(http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestHandler_Protected_Routes_Require_A_Token(t *testing.T) {
	req := require.New(t)
	server, _ := startAPIServer(t, &fakeAuthService{}, &fakeMessageService{})

	resp, err := http.Get(server.URL + "/api/messages")
	req.NoError(err)
	defer resp.Body.Close()

	req.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func TestHandler_History(t *testing.T) {
	req := require.New(t)
	now := time.Now().UTC().Truncate(time.Second)
	msgSvc := &fakeMessageService{
		historyFn: func(limit int, before *time.Time) (services.HistoryPage, error) {
			req.Equal(25, limit)
			req.NotNil(before)
			return services.HistoryPage{
				Messages: []domain.Message{{
					ID:          uuid.New(),
					AuthorID:    "author-id",
					AuthorEmail: "author@example.com",
					Content:     "hi",
					CreatedAt:   now,
				}},
				HasMore: true,
			}, nil
		},
	}
	server, tokens := startAPIServer(t, &fakeAuthService{}, msgSvc)
	token, err := tokens.Generate("caller-id")
	req.NoError(err)

	url := fmt.Sprintf("%s/api/messages?limit=25&before=%s",
		server.URL, now.Format(time.RFC3339Nano))
	resp := authorizedRequest(t, http.MethodGet, url, token)

	req.Equal(http.StatusOK, resp.StatusCode)
	body := decodeBody[historyResponse](t, resp)
	req.Equal(1, body.Count)
	req.True(body.HasMore)
	req.Equal("hi", body.Data[0].Content)
	req.Equal("author@example.com", body.Data[0].AuthorEmail)
}

func TestHandler_History_Rejects_A_Bad_Before_Timestamp(t *testing.T) {
	req := require.New(t)
	server, tokens := startAPIServer(t, &fakeAuthService{}, &fakeMessageService{})
	token, err := tokens.Generate("caller-id")
	req.NoError(err)

	resp := authorizedRequest(t, http.MethodGet,
		server.URL+"/api/messages?before=yesterday", token)
	defer resp.Body.Close()

	req.Equal(http.StatusBadRequest, resp.StatusCode)
}

func TestHandler_DeleteMessage(t *testing.T) {
	cases := []struct {
		name     string
		outcome  error
		expected int
	}{
		{name: "should answer 204 when the owner deletes", outcome: nil, expected: http.StatusNoContent},
		{name: "should answer 403 for someone else's message", outcome: errors.ErrNotMessageOwner, expected: http.StatusForbidden},
		{name: "should answer 404 for an unknown message", outcome: errors.ErrMessageNotFound, expected: http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := require.New(t)
			callerID := uuid.NewString()
			messageID := uuid.New()
			msgSvc := &fakeMessageService{
				deleteFn: func(userID string, id uuid.UUID) error {
					req.Equal(callerID, userID)
					req.Equal(messageID, id)
					return tc.outcome
				},
			}
			server, tokens := startAPIServer(t, &fakeAuthService{}, msgSvc)
			token, err := tokens.Generate(callerID)
			req.NoError(err)

			resp := authorizedRequest(t, http.MethodDelete,
				server.URL+"/api/messages/"+messageID.String(), token)
			defer resp.Body.Close()

			req.Equal(tc.expected, resp.StatusCode)
		})
	}
}

func TestHandler_DeleteMessage_Rejects_A_Malformed_Id(t *testing.T) {
	req := require.New(t)
	server, tokens := startAPIServer(t, &fakeAuthService{}, &fakeMessageService{})
	token, err := tokens.Generate(uuid.NewString())
	req.NoError(err)

	resp := authorizedRequest(t, http.MethodDelete,
		server.URL+"/api/messages/not-a-uuid", token)
	defer resp.Body.Close()

	req.Equal(http.StatusBadRequest, resp.StatusCode)
}

func TestHandler_DeleteAccount(t *testing.T) {
	req := require.New(t)
	callerID := uuid.NewString()
	authSvc := &fakeAuthService{
		deleteFn: func(userID string) error {
			req.Equal(callerID, userID)
			return nil
		},
	}
	server, tokens := startAPIServer(t, authSvc, &fakeMessageService{})
	token, err := tokens.Generate(callerID)
	req.NoError(err)

	resp := authorizedRequest(t, http.MethodDelete, server.URL+"/api/auth/account", token)
	defer resp.Body.Close()

	req.Equal(http.StatusNoContent, resp.StatusCode)
}

func TestRouter_Healthz(t *testing.T) {
	req := require.New(t)
	server, _ := startAPIServer(t, &fakeAuthService{}, &fakeMessageService{})

	resp, err := http.Get(server.URL + "/healthz")
	req.NoError(err)
	defer resp.Body.Close()

	req.Equal(http.StatusOK, resp.StatusCode)
}
