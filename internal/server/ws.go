package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/coder/websocket"

	"github.com/EdNutting/autocue/internal/track/threaded"
)

// sendBuffer is the per-client outbound queue. A client that falls this far
// behind is disconnected rather than allowed to stall the broadcast path.
const sendBuffer = 64

type client struct {
	conn      *websocket.Conn
	send      chan []byte
	closeOnce sync.Once
}

// close shuts the outbound queue. The write pump closes the connection once
// it drains.
func (c *client) close() {
	c.closeOnce.Do(func() { close(c.send) })
}

func (c *client) enqueue(msg []byte) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// The prompter is typically driven from a different origin than the
		// display (e.g. a tablet on the LAN).
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.log.Warn("websocket accept failed", "err", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	init := initMessage{
		Type:       "init",
		Script:     s.scriptText,
		ScriptHTML: s.scriptHTML,
		Settings:   s.settings,
	}
	s.mu.Unlock()

	s.metrics.ConnectedClients.Add(r.Context(), 1)
	s.log.Info("client connected", "remote", r.RemoteAddr)

	if msg, err := json.Marshal(init); err == nil {
		c.enqueue(msg)
	}

	ctx := r.Context()
	go s.writePump(ctx, c)
	s.readLoop(ctx, c)

	s.removeClient(c)
	s.metrics.ConnectedClients.Add(context.Background(), -1)
	s.log.Info("client disconnected", "remote", r.RemoteAddr)
}

func (s *Server) removeClient(c *client) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
	c.close()
}

// writePump drains the client's outbound queue onto the wire. It exits when
// the queue closes or a write fails.
func (s *Server) writePump(ctx context.Context, c *client) {
	for msg := range c.send {
		if err := c.conn.Write(ctx, websocket.MessageText, msg); err != nil {
			c.conn.Close(websocket.StatusInternalError, "write failed")
			return
		}
	}
	c.conn.Close(websocket.StatusNormalClosure, "")
}

// readLoop processes inbound control messages until the connection drops.
func (s *Server) readLoop(ctx context.Context, c *client) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			var closeErr websocket.CloseError
			if !errors.As(err, &closeErr) && ctx.Err() == nil {
				s.log.Debug("websocket read failed", "err", err)
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.log.Warn("bad websocket message", "err", err)
			continue
		}
		s.dispatch(c, msg, data)
	}
}

func (s *Server) dispatch(from *client, msg clientMessage, raw []byte) {
	switch msg.Type {
	case "script":
		s.SetScript(msg.Text)
		if s.onScript != nil {
			s.onScript(msg.Text)
		}

	case "settings":
		settings, err := s.mergeSettings(msg.Settings)
		if err != nil {
			s.log.Warn("bad settings message", "err", err)
			return
		}
		s.applySettings(settings)

	case "reset":
		if s.control != nil {
			s.control.Reset()
		}
		s.broadcast(eventMessage{Type: "reset"})

	case "jump_to":
		if s.control != nil {
			s.control.JumpTo(msg.WordIndex)
		}
		s.broadcast(jumpMessage{Type: "jump_to", WordIndex: msg.WordIndex})

	case "save_config":
		if err := s.saveSettings(); err != nil {
			s.log.Warn("save config failed", "err", err)
			return
		}
		s.broadcast(eventMessage{Type: "config_saved"})

	case "frontend_highlight":
		// Relay manual highlight moves to the other displays untouched.
		s.broadcastRaw(raw, from)

	default:
		s.log.Debug("unknown websocket message type", "type", msg.Type)
	}
}

// SendPosition pushes a tracking result to every connected client.
func (s *Server) SendPosition(res threaded.Result) {
	s.broadcast(positionMessage{
		Type:        "position",
		WordIndex:   res.Position.WordIndex,
		LineIndex:   res.Position.LineIndex,
		WordOffset:  res.WordOffset,
		Confidence:  res.Position.Confidence,
		IsBacktrack: res.Position.IsBacktrack,
		Transcript:  res.Transcript,
		Progress:    res.Progress,
	})
}

// ClientCount reports the number of connected displays.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) broadcast(v any) {
	msg, err := json.Marshal(v)
	if err != nil {
		s.log.Error("broadcast marshal failed", "err", err)
		return
	}
	s.broadcastRaw(msg, nil)
}

// broadcastRaw fans a pre-encoded message out to every client except the
// sender. Clients whose queues are full are dropped.
func (s *Server) broadcastRaw(msg []byte, except *client) {
	s.mu.Lock()
	var stalled []*client
	for c := range s.clients {
		if c == except {
			continue
		}
		if !c.enqueue(msg) {
			stalled = append(stalled, c)
			delete(s.clients, c)
		}
	}
	s.mu.Unlock()

	for _, c := range stalled {
		s.log.Warn("dropping stalled client")
		c.close()
	}
}

func (s *Server) closeClients() {
	s.mu.Lock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.clients = make(map[*client]struct{})
	s.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}
