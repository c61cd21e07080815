package httpapi

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/ziadkadry99/agentgw/internal/agent"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsChatRequest is one incoming chat turn over the websocket transport.
type wsChatRequest struct {
	SkillName string `json:"skill_name"`
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

// wsChatMessage is one outgoing frame: a streamed delta, a tool call
// report, or the terminal completion/error frame.
type wsChatMessage struct {
	Type       string `json:"type"` // "delta", "tool_call", "done", or "error"
	SessionID  string `json:"session_id,omitempty"`
	Text       string `json:"text,omitempty"`
	ToolName   string `json:"tool_name,omitempty"`
	ToolResult string `json:"tool_result,omitempty"`
	Error      string `json:"error,omitempty"`
}

// handleChatWebsocket upgrades the connection and streams every chat turn
// sent over it as a sequence of wsChatMessage frames, mirroring the SSE
// transport's event vocabulary for clients that prefer a socket.
func (s *Server) handleChatWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("httpapi: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("httpapi: websocket read: %v", err)
			}
			return
		}

		var req wsChatRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			s.sendWS(conn, wsChatMessage{Type: "error", Error: "invalid message format"})
			continue
		}
		if req.Message == "" {
			s.sendWS(conn, wsChatMessage{Type: "error", SessionID: req.SessionID, Error: "message is required"})
			continue
		}

		events, err := s.svc.Chat(r.Context(), req.SessionID, req.SkillName, req.Message)
		if err != nil {
			s.sendWS(conn, wsChatMessage{Type: "error", SessionID: req.SessionID, Error: err.Error()})
			continue
		}

		for e := range events {
			switch e.Kind {
			case agent.EventTextDelta:
				s.sendWS(conn, wsChatMessage{Type: "delta", SessionID: req.SessionID, Text: e.Text})
			case agent.EventToolCall:
				s.sendWS(conn, wsChatMessage{Type: "tool_call", SessionID: req.SessionID, ToolName: e.ToolName, ToolResult: e.ToolResult})
			case agent.EventCancelled:
				s.sendWS(conn, wsChatMessage{Type: "error", SessionID: req.SessionID, Error: "cancelled"})
			case agent.EventDone:
				msg := wsChatMessage{Type: "done", SessionID: req.SessionID, Text: e.Text}
				if e.Err != nil {
					msg.Error = e.Err.Error()
				}
				s.sendWS(conn, msg)
			}
		}
	}
}

func (s *Server) sendWS(conn *websocket.Conn, msg wsChatMessage) {
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("httpapi: websocket write: %v", err)
	}
}

