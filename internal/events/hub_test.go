package events

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cliniquerisimed-lab/jongwane/internal/audit"
	"github.com/cliniquerisimed-lab/jongwane/internal/catalog"
)

func dial(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(payload, &msg))
	return msg
}

func TestHubForwardsStateEvents(t *testing.T) {
	hub := NewHub("*", nil)
	conn := dial(t, hub)

	state := audit.NewState()
	unsubscribe := state.Subscribe(hub.StateObserver())
	defer unsubscribe()

	key := audit.Key{DocumentID: catalog.SphinxID, Topic: catalog.Forces}
	state.SetResponse(key, "Analyse <strong>solide</strong>")

	msg := readMessage(t, conn)
	assert.Equal(t, "response", msg.Type)
	assert.Equal(t, catalog.SphinxID, msg.DocumentID)
	assert.Equal(t, catalog.Forces, msg.Topic)
	assert.Equal(t, "Analyse <strong>solide</strong>", msg.Text)
	assert.True(t, msg.Present)

	state.Alert(key, audit.AnalysisFailureMessage)
	msg = readMessage(t, conn)
	assert.Equal(t, "alert", msg.Type)
	assert.Equal(t, audit.AnalysisFailureMessage, msg.Text)
}

func TestHubForwardsSessionEvents(t *testing.T) {
	hub := NewHub("", nil)
	conn := dial(t, hub)

	notify := hub.SessionObserver()
	notify(audit.SessionEvent{
		Key:        audit.Key{DocumentID: "custom-1", Topic: catalog.Faiblesses},
		Status:     audit.StatusAsking,
		Transcript: []audit.TranscriptEntry{{Kind: audit.EntryQuestion, Text: "Et le budget ?"}},
	})

	msg := readMessage(t, conn)
	assert.Equal(t, "session", msg.Type)
	assert.Equal(t, audit.StatusAsking, msg.Status)
	require.Len(t, msg.Transcript, 1)
	assert.Equal(t, "Et le budget ?", msg.Transcript[0].Text)
}

func TestHubCloseDisconnects(t *testing.T) {
	hub := NewHub("*", nil)
	conn := dial(t, hub)

	hub.Close()
	assert.Equal(t, 0, hub.Clients())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)

	// publishing after close is harmless
	hub.Publish(Message{Type: "note"})
}

func TestHubRejectsForeignOrigin(t *testing.T) {
	hub := NewHub("https://audit.example", nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	header := map[string][]string{"Origin": {"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 403, resp.StatusCode)
}
