package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// pingInterval is the keep-alive cadence on an attach session.
const pingInterval = 30 * time.Second

// Run submits a job and returns its handle.
func (c *Client) Run(ctx context.Context, req *JobRequest) (*JobResult, error) {
	var result JobResult
	if err := c.doJSON(ctx, http.MethodPost, "/jobs/run", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// LogSinks receive the records of an attach session, one writer per
// source. Nil writers discard; System receives server diagnostics sent as
// text frames.
type LogSinks struct {
	Stdout io.Writer
	Stderr io.Writer
	System io.Writer
}

// Attach follows the logs of a job until it terminates, the server closes
// the session, or ctx is cancelled. Records are printed to the sinks
// prefixed with "[timestamp] " when the backend knows one.
func (c *Client) Attach(ctx context.Context, jobID string, sinks LogSinks) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/jobs/" + jobID + "/attach"

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.token)
	header.Set("User-Agent", userAgent)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return parseError(resp.StatusCode, body)
		}
		return fmt.Errorf("attach failed: %w", err)
	}
	defer conn.Close()

	// Keep-alive pings; the server's websocket layer answers them.
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second))
			case <-ctx.Done():
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				conn.Close()
				return
			case <-done:
				return
			}
		}
	}()

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("attach read: %w", err)
		}

		switch kind {
		case websocket.BinaryMessage:
			var record LogRecord
			if err := json.Unmarshal(data, &record); err != nil {
				writeLine(sinks.System, "", fmt.Sprintf("undecodable log frame: %v", err))
				continue
			}
			sink := sinks.Stdout
			if record.Source == "stderr" {
				sink = sinks.Stderr
			}
			writeLine(sink, record.Timestamp, record.Message)
		case websocket.TextMessage:
			writeLine(sinks.System, "", string(data))
		}
	}
}

// writeLine prints one record, prefixing the timestamp when present and
// terminating the line unless the message already does.
func writeLine(w io.Writer, timestamp, message string) {
	if w == nil {
		return
	}
	if timestamp != "" {
		message = "[" + timestamp + "] " + message
	}
	if !strings.HasSuffix(message, "\n") {
		message += "\n"
	}
	_, _ = io.WriteString(w, message)
}
