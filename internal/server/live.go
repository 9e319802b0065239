package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/MeKo-Tech/geoexplorer/internal/geojson"
	"github.com/MeKo-Tech/geoexplorer/internal/render"
	"github.com/coder/websocket"
)

const (
	clientBufferSize = 256
	pingInterval     = 30 * time.Second
	writeTimeout     = 5 * time.Second
)

// catchUp returns the frames a new client needs to mirror the session:
// basemap, every non-empty layer, the camera, then the snapshot.
func (s *Session) catchUp() [][]byte {
	var msgs []Message

	b := s.Surface.Basemap()
	if b.ID != "" {
		msgs = append(msgs, Message{Type: "layer", Payload: LayerPayload{Op: render.OpBasemap, Basemap: &b}})
	}
	for _, l := range geojson.Layers() {
		if fc := s.Surface.Layer(l); fc != nil {
			msgs = append(msgs, Message{Type: "layer", Payload: LayerPayload{Op: render.OpReplace, Layer: l, Data: fc}})
		}
	}
	if bounds := s.Surface.Bounds(); bounds != nil {
		msgs = append(msgs, Message{Type: "layer", Payload: LayerPayload{Op: render.OpFit, Bounds: bounds}})
	}
	if center, zoom := s.Surface.View(); center != nil {
		msgs = append(msgs, Message{Type: "layer", Payload: LayerPayload{Op: render.OpView, Center: center, Zoom: zoom}})
	}
	msgs = append(msgs, Message{Type: "snapshot", Payload: s.Panel.Snapshot()})

	out := make([][]byte, 0, len(msgs))
	for _, m := range msgs {
		data, err := json.Marshal(m)
		if err != nil {
			s.logger.Error("failed to encode message", "type", m.Type, "error", err)
			continue
		}
		out = append(out, data)
	}
	return out
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request, sess *Session) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.Error("websocket accept failed", "error", err)
		return
	}

	client := newClient(clientBufferSize)
	sess.subscribe(client)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	for _, frame := range sess.catchUp() {
		if err := writeFrame(ctx, conn, frame); err != nil {
			sess.unsubscribe(client)
			conn.Close(websocket.StatusInternalError, "")
			return
		}
	}

	go s.writeLoop(ctx, conn, client)

	s.readLoop(ctx, conn, sess, client)
}

func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, sess *Session, client *Client) {
	defer func() {
		sess.unsubscribe(client)
		conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		msgType, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure {
				s.logger.Debug("websocket read error", "client_id", client.ID, "error", err)
			}
			return
		}

		if msgType != websocket.MessageText {
			continue
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Debug("invalid message format", "client_id", client.ID, "error", err)
			continue
		}

		if msg.Type == "ping" {
			pong, _ := json.Marshal(Message{Type: "pong"})
			select {
			case client.Send <- pong:
			default:
			}
		}
	}
}

func (s *Server) writeLoop(ctx context.Context, conn *websocket.Conn, client *Client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-client.Send:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "session closed")
				return
			}
			if err := writeFrame(ctx, conn, msg); err != nil {
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

func writeFrame(ctx context.Context, conn *websocket.Conn, data []byte) error {
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}

// serveEvents streams the same frames as the websocket as server-sent
// events, for clients that only need to listen.
func (s *Server) serveEvents(w http.ResponseWriter, r *http.Request, sess *Session) {
	rc := http.NewResponseController(w)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	client := newClient(clientBufferSize)
	sess.subscribe(client)
	defer sess.unsubscribe(client)

	for _, frame := range sess.catchUp() {
		fmt.Fprintf(w, "data: %s\n\n", frame)
	}
	if err := rc.Flush(); err != nil {
		s.logger.Debug("SSE not supported", "error", err)
		return
	}

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-client.Send:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
		case <-ticker.C:
			fmt.Fprint(w, ": keep-alive\n\n")
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
