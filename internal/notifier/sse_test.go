package notifier

import (
	"bufio"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TanvirAnzum/tic-tac-toe-server/internal/model"
)

func TestFormatSSEMessage(t *testing.T) {
	tests := []struct {
		name      string
		eventName string
		data      string
		expected  string
	}{
		{
			name:      "single line data",
			eventName: "move",
			data:      `{"session_id":"s1"}`,
			expected:  "event: move\ndata: {\"session_id\":\"s1\"}\n\n",
		},
		{
			name:      "multi-line data",
			eventName: "move",
			data:      "{\n  \"a\": 1\n}",
			expected:  "event: move\ndata: {\ndata:   \"a\": 1\ndata: }\n\n",
		},
		{
			name:      "empty data",
			eventName: "ping",
			data:      "",
			expected:  "event: ping\ndata: \n\n",
		},
		{
			name:      "carriage returns and trailing newline",
			eventName: "test",
			data:      "line1\r\nline2\n",
			expected:  "event: test\ndata: line1\ndata: line2\n\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(formatSSEMessage(tt.eventName, tt.data)))
		})
	}
}

func readFrame(t *testing.T, r *bufio.Reader) []string {
	t.Helper()
	var lines []string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimSuffix(line, "\n")
		if line == "" {
			if len(lines) > 0 {
				return lines
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		lines = append(lines, line)
	}
}

func TestServeSSEStreamsMoves(t *testing.T) {
	hub, _ := newTestHub(t)
	defer hub.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeSSE(w, r, hub)
	}))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	assert.Equal(t, []string{"event: connected", `data: {"status":"connected"}`}, readFrame(t, reader))

	require.True(t, hub.Broadcast(Message{Event: model.EventMove, Data: []byte(`{"session_id":"s1"}`)}))
	assert.Equal(t, []string{"event: move", `data: {"session_id":"s1"}`}, readFrame(t, reader))
}

func TestServeSSEEndsWhenHubCloses(t *testing.T) {
	hub, _ := newTestHub(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeSSE(w, r, hub)
	}))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	readFrame(t, reader)

	hub.Close()
	_, err = reader.ReadString('\n')
	assert.Error(t, err)
}
