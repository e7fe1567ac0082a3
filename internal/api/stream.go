package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/branched-services/go-montecarlo/internal/runs"
)

const streamWriteWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:   1024,
	WriteBufferSize:  4096,
	HandshakeTimeout: 5 * time.Second,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StreamMessage is one frame on the run stream.
// Type is "progress", "result" or "error".
type StreamMessage struct {
	Type    string       `json:"type"`
	Current int          `json:"current,omitempty"`
	Total   int          `json:"total,omitempty"`
	Run     *RunResponse `json:"run,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// parseStreamRequest reads target, samples and seed from the query string.
func parseStreamRequest(r *http.Request) (runs.Request, error) {
	q := r.URL.Query()
	req := runs.Request{Target: q.Get("target")}

	if v := q.Get("samples"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, fmt.Errorf("invalid samples %q", v)
		}
		req.Samples = n
	}
	if v := q.Get("seed"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return req, fmt.Errorf("invalid seed %q", v)
		}
		req.Seed = &seed
	}
	return req, nil
}

// handleStream runs one request over a WebSocket, sending progress frames
// followed by a result or error frame. The run is canceled if the client
// disconnects.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	req, err := parseStreamRequest(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error.
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Reader: only control frames are expected; any read error means the
	// client is gone.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	var (
		mu      sync.Mutex
		sendErr error
	)
	send := func(msg StreamMessage) error {
		mu.Lock()
		defer mu.Unlock()
		if sendErr != nil {
			return sendErr
		}
		data, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			sendErr = err
			cancel()
			return err
		}
		return nil
	}

	rec, err := s.service.Run(ctx, req, func(current, total int) {
		send(StreamMessage{Type: "progress", Current: current, Total: total})
	})
	if err != nil {
		send(StreamMessage{Type: "error", Error: err.Error()})
		s.closeStream(conn, websocket.CloseNormalClosure, "run failed")
		return
	}

	resp := newRunResponse(rec, viewDetail)
	if err := send(StreamMessage{Type: "result", Run: &resp}); err != nil {
		s.logger.Debug("stream client gone", "run_id", rec.ID, "error", err)
		return
	}
	s.closeStream(conn, websocket.CloseNormalClosure, "done")
}

func (s *Server) closeStream(conn *websocket.Conn, code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(streamWriteWait)); err != nil {
		s.logger.Debug("stream close failed", "error", err)
	}
}
