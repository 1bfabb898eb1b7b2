package e2e

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/abdullayevf/chat-app/domain/event"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
)

type testPresenceSuite struct {
	BaseChatSuite
}

func TestPresenceSuite(t *testing.T) {
	if os.Getenv("SERVER_ADDR") == "" {
		t.Skip("SERVER_ADDR not set, skipping end-to-end scenario")
	}
	suite.Run(t, &testPresenceSuite{})
}

func (s *testPresenceSuite) TestFullPresenceAndBroadcastFlow() {
	password := "S3cure&Enough!Pass"
	aliceEmail := fmt.Sprintf("alice-%s@example.com", uuid.NewString()[:8])
	bobEmail := fmt.Sprintf("bob-%s@example.com", uuid.NewString()[:8])
	messageContent := fmt.Sprintf("hello from the flow %s", uuid.NewString()[:8])

	var aliceConn, bobConn *websocket.Conn
	var bobToken string
	var bobRoster event.Roster
	var announcedID string

	s.Run("Step 1: Register two accounts and connect Alice", func() {
		s.Step("Registering accounts")
		aliceToken := s.RegisterUser(aliceEmail, password)
		bobToken = s.RegisterUser(bobEmail, password)

		aliceConn = s.ConnectWS("Alice connects", aliceToken)
		s.T().Cleanup(func() { _ = aliceConn.Close() })

		// The first frame is always the roster snapshot
		_, ok := s.ReadEvent(aliceConn).(event.Roster)
		s.Require().True(ok, "first frame must be the roster")
	})

	s.Run("Step 2: Bob connects, Alice hears the arrival", func() {
		bobConn = s.ConnectWS("Bob connects", bobToken)
		s.T().Cleanup(func() { _ = bobConn.Close() })

		roster, ok := s.ReadEvent(bobConn).(event.Roster)
		s.Require().True(ok, "first frame must be the roster")
		s.Require().NotEmpty(roster.IdentityIDs, "bob must see alice online")
		bobRoster = roster

		online, ok := s.ReadEvent(aliceConn).(event.PeerOnline)
		s.Require().True(ok, "alice must hear bob come online")
		announcedID = online.IdentityID
	})

	s.Run("Step 3: A message reaches both ends identically", func() {
		s.Step("Bob broadcasts")
		s.SendMessage(bobConn, "  "+messageContent+"  ")

		aliceMsg, ok := s.ReadEvent(aliceConn).(event.MessageReceived)
		s.Require().True(ok)
		bobMsg, ok := s.ReadEvent(bobConn).(event.MessageReceived)
		s.Require().True(ok)

		s.Require().Equal(aliceMsg, bobMsg)
		s.Require().Equal(messageContent, aliceMsg.Content, "content must arrive trimmed")
		s.Require().Equal(bobEmail, aliceMsg.AuthorEmail)

		// The author id ties the earlier presence events together: it is the
		// id alice heard come online, and bob's own roster never listed it.
		s.Require().Equal(announcedID, bobMsg.AuthorID)
		s.Require().NotContains(bobRoster.IdentityIDs, bobMsg.AuthorID)
	})

	s.Run("Step 4: The message landed in history", func() {
		s.Eventually(func() bool {
			found, err := s.historyContains(messageContent)
			return err == nil && found
		}, 10*time.Second, 500*time.Millisecond, "Message not found in history within timeout")
	})

	s.Run("Step 5: Bob leaving is announced once", func() {
		s.Require().NoError(bobConn.Close())

		offline, ok := s.ReadEvent(aliceConn).(event.PeerOffline)
		s.Require().True(ok, "alice must hear bob go offline")
		s.Require().Equal(announcedID, offline.IdentityID)
	})
}

func (s *testPresenceSuite) historyContains(content string) (bool, error) {
	request, err := http.NewRequest(http.MethodGet, s.Config.ServerAddr+"/api/messages?limit=100", nil)
	if err != nil {
		return false, err
	}
	request.Header.Set("Authorization", "Bearer "+s.RegisterUser(
		fmt.Sprintf("probe-%s@example.com", uuid.NewString()[:8]), "S3cure&Enough!Pass"))

	resp, err := http.DefaultClient.Do(request)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	var body struct {
		Data []struct {
			Content string `json:"content"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, err
	}
	for _, m := range body.Data {
		if m.Content == content {
			return true, nil
		}
	}
	return false, nil
}
