package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/abdullayevf/chat-app/auth"
	"github.com/abdullayevf/chat-app/broadcast"
	"github.com/abdullayevf/chat-app/domain"
	"github.com/abdullayevf/chat-app/domain/event"
	"github.com/abdullayevf/chat-app/errors"
	"github.com/abdullayevf/chat-app/mocks"
	"github.com/abdullayevf/chat-app/observability"
	"github.com/abdullayevf/chat-app/presence"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const testSecret = "test-secret-at-least-32-characters"

// directoryResolver resolves subjects from a fixed in-memory directory.
type directoryResolver map[string]domain.Identity

func (d directoryResolver) Resolve(subjectID string) (domain.Identity, error) {
	identity, ok := d[subjectID]
	if !ok {
		return domain.Identity{}, errors.ErrIdentityMissing
	}
	return identity, nil
}

type testServer struct {
	url      string
	tokens   auth.TokenManager
	resolver directoryResolver
	repo     *mocks.MockIMessageRepository
}

func startTestServer(t *testing.T) *testServer {
	t.Helper()
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockIMessageRepository(ctrl)
	resolver := directoryResolver{}

	log := slog.Default()
	engine := broadcast.NewEngine(log, presence.NewRegistry(), repo, nil,
		observability.NewStats(), time.Second)
	tokens := auth.NewTokenManager(testSecret, time.Hour)
	gw := NewGateway(log, engine, auth.NewVerifier(tokens), resolver,
		observability.NewStats(), 16, time.Second, "")

	server := httptest.NewServer(http.HandlerFunc(gw.HandleWebSocket))
	t.Cleanup(server.Close)

	return &testServer{
		url:      "ws" + strings.TrimPrefix(server.URL, "http"),
		tokens:   tokens,
		resolver: resolver,
		repo:     repo,
	}
}

// connect registers the identity in the directory, issues a token and dials.
func (ts *testServer) connect(t *testing.T, identity domain.Identity) *websocket.Conn {
	t.Helper()
	req := require.New(t)

	ts.resolver[identity.ID] = identity
	token, err := ts.tokens.Generate(identity.ID)
	req.NoError(err)

	conn, resp, err := websocket.DefaultDialer.Dial(ts.url+"?token="+token, nil)
	req.NoError(err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) event.Event {
	t.Helper()
	req := require.New(t)

	req.NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	_, payload, err := conn.ReadMessage()
	req.NoError(err)

	evt, err := event.Decode(payload)
	req.NoError(err)
	return evt
}

func sendMessage(t *testing.T, conn *websocket.Conn, content string) {
	t.Helper()
	payload, err := event.Encode(event.SendMessage{Content: content})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, payload))
}

func rejectionReason(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body["error"]
}

func TestGateway_Handshake_Rejections(t *testing.T) {
	ts := startTestServer(t)
	httpURL := "http" + strings.TrimPrefix(ts.url, "ws")

	t.Run("should reject a connection without credential", func(t *testing.T) {
		req := require.New(t)

		resp, err := http.Get(httpURL)

		req.NoError(err)
		req.Equal(http.StatusUnauthorized, resp.StatusCode)
		req.Equal(errors.ReasonMissingCredential, rejectionReason(t, resp))
	})

	t.Run("should reject a garbage credential", func(t *testing.T) {
		req := require.New(t)

		resp, err := http.Get(httpURL + "?token=garbage")

		req.NoError(err)
		req.Equal(http.StatusUnauthorized, resp.StatusCode)
		req.Equal(errors.ReasonInvalidCredential, rejectionReason(t, resp))
	})

	t.Run("should reject an expired credential", func(t *testing.T) {
		req := require.New(t)
		expired := auth.NewTokenManager(testSecret, -time.Minute)
		token, err := expired.Generate("someone")
		req.NoError(err)

		resp, err := http.Get(httpURL + "?token=" + token)

		req.NoError(err)
		req.Equal(http.StatusUnauthorized, resp.StatusCode)
		req.Equal(errors.ReasonExpiredCredential, rejectionReason(t, resp))
	})

	t.Run("should reject a token whose account vanished", func(t *testing.T) {
		req := require.New(t)
		// Valid signature, but the subject is not in the directory
		token, err := ts.tokens.Generate("deleted-account")
		req.NoError(err)

		resp, err := http.Get(httpURL + "?token=" + token)

		req.NoError(err)
		req.Equal(http.StatusUnauthorized, resp.StatusCode)
		req.Equal(errors.ReasonInvalidCredential, rejectionReason(t, resp))
	})
}

func TestGateway_Presence_And_Broadcast_Scenario(t *testing.T) {
	req := require.New(t)
	ts := startTestServer(t)
	alice := domain.Identity{ID: "alice-id", Email: "alice@example.com"}
	bob := domain.Identity{ID: "bob-id", Email: "bob@example.com"}

	// Given alice connects first and sees an empty roster
	aliceConn := ts.connect(t, alice)
	roster := readEvent(t, aliceConn).(event.Roster)
	req.Empty(roster.IdentityIDs)

	// When bob connects
	bobConn := ts.connect(t, bob)

	// Then bob's roster lists alice, not himself
	roster = readEvent(t, bobConn).(event.Roster)
	req.Equal([]string{alice.ID}, roster.IdentityIDs)

	// And alice is told bob came online
	online := readEvent(t, aliceConn).(event.PeerOnline)
	req.Equal(bob.ID, online.IdentityID)

	// When bob sends a message
	ts.repo.EXPECT().Append(gomock.Any()).Return(nil).Times(1)
	sendMessage(t, bobConn, "  hello alice  ")

	// Then both receive the identical trimmed broadcast
	aliceMsg := readEvent(t, aliceConn).(event.MessageReceived)
	bobMsg := readEvent(t, bobConn).(event.MessageReceived)
	req.Equal(aliceMsg, bobMsg)
	req.Equal("hello alice", aliceMsg.Content)
	req.Equal(bob.ID, aliceMsg.AuthorID)
	req.Equal(bob.Email, aliceMsg.AuthorEmail)

	// When bob disconnects
	req.NoError(bobConn.Close())

	// Then alice is told bob went offline
	offline := readEvent(t, aliceConn).(event.PeerOffline)
	req.Equal(bob.ID, offline.IdentityID)
}

func TestGateway_Invalid_Submissions_Are_Silently_Dropped(t *testing.T) {
	req := require.New(t)
	ts := startTestServer(t)
	alice := domain.Identity{ID: "alice-id", Email: "alice@example.com"}

	conn := ts.connect(t, alice)
	_ = readEvent(t, conn) // roster

	// Given the store must never be touched
	ts.repo.EXPECT().Append(gomock.Any()).Times(0)

	// When whitespace-only content and a malformed frame arrive
	sendMessage(t, conn, "   \t   ")
	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte("not json")))

	// Then nothing comes back, the sender included
	req.NoError(conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond)))
	_, _, err := conn.ReadMessage()
	netErr, ok := err.(interface{ Timeout() bool })
	req.True(ok)
	req.True(netErr.Timeout())
}

// Exercises the multi-tab rule end to end: a second tab of the same identity
// must not generate announcements, and only the last close goes offline.
func TestGateway_Multiple_Tabs_Single_Identity(t *testing.T) {
	req := require.New(t)
	ts := startTestServer(t)
	alice := domain.Identity{ID: "alice-id", Email: "alice@example.com"}
	bob := domain.Identity{ID: "bob-id", Email: "bob@example.com"}

	bobConn := ts.connect(t, bob)
	_ = readEvent(t, bobConn) // roster

	// When alice opens two tabs
	tab1 := ts.connect(t, alice)
	_ = readEvent(t, tab1) // roster
	online := readEvent(t, bobConn).(event.PeerOnline)
	req.Equal(alice.ID, online.IdentityID)

	tab2 := ts.connect(t, alice)
	roster := readEvent(t, tab2).(event.Roster)
	req.Equal([]string{bob.ID}, roster.IdentityIDs)

	// And closes the first one
	req.NoError(tab1.Close())

	// Then bob hears nothing until the second tab also closes
	req.NoError(bobConn.SetReadDeadline(time.Now().Add(300 * time.Millisecond)))
	_, _, err := bobConn.ReadMessage()
	netErr, ok := err.(interface{ Timeout() bool })
	req.True(ok)
	req.True(netErr.Timeout())

	req.NoError(tab2.Close())
	offline := readEvent(t, bobConn).(event.PeerOffline)
	req.Equal(alice.ID, offline.IdentityID)
}

// Guards against the expiry check being skipped on the websocket path.
func TestGateway_Expired_Token_Claims_Are_Not_Trusted(t *testing.T) {
	req := require.New(t)
	tokens := auth.NewTokenManager(testSecret, -time.Minute)
	token, err := tokens.Generate("alice-id")
	req.NoError(err)

	_, parseErr := auth.NewTokenManager(testSecret, time.Hour).Validate(token)
	req.ErrorIs(parseErr, jwt.ErrTokenExpired)
}
