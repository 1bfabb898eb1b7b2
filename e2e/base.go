package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/abdullayevf/chat-app/domain/event"
	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
)

// BaseChatSuite holds shared helpers for end-to-end scenarios against a
// running chat server.
type BaseChatSuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseChatSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
}

// Step prints a colorized header for one scenario step in the logs
func (s *BaseChatSuite) Step(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

// PostJSON sends a JSON body and decodes the JSON answer into out.
func (s *BaseChatSuite) PostJSON(path string, payload any, out any) *http.Response {
	body, err := json.Marshal(payload)
	s.Require().NoError(err)

	if s.Config.DebugJSON {
		s.T().Logf("POST %s\nREQUEST:\n%s", path, string(body))
	}

	resp, err := http.Post(s.Config.ServerAddr+path, "application/json", bytes.NewReader(body))
	s.Require().NoError(err)
	defer resp.Body.Close()

	if out != nil {
		s.Require().NoError(json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

// RegisterUser creates a throwaway account and returns its session token.
func (s *BaseChatSuite) RegisterUser(email, password string) string {
	var body struct {
		Token string `json:"token"`
	}
	resp := s.PostJSON("/api/auth/register", map[string]string{
		"email":    email,
		"password": password,
	}, &body)
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	s.Require().NotEmpty(body.Token)
	return body.Token
}

// ConnectWS opens an authenticated websocket for the given token.
func (s *BaseChatSuite) ConnectWS(name, token string) *websocket.Conn {
	s.Step(name)
	wsURL := "ws" + strings.TrimPrefix(s.Config.ServerAddr, "http") + "/ws?token=" + token

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	s.Require().NoError(err, "Failed to connect to websocket at "+wsURL)
	_ = resp.Body.Close()
	return conn
}

// ReadEvent reads and decodes the next server frame with a deadline.
func (s *BaseChatSuite) ReadEvent(conn *websocket.Conn) event.Event {
	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(5 * time.Second)))
	_, payload, err := conn.ReadMessage()
	s.Require().NoError(err)

	if s.Config.DebugJSON {
		s.T().Logf("FRAME:\n%s", string(payload))
	}

	evt, err := event.Decode(payload)
	s.Require().NoError(err)
	return evt
}

// SendMessage publishes one chat message over an open websocket.
func (s *BaseChatSuite) SendMessage(conn *websocket.Conn, content string) {
	payload, err := event.Encode(event.SendMessage{Content: content})
	s.Require().NoError(err)
	s.Require().NoError(conn.WriteMessage(websocket.TextMessage, payload))
}
