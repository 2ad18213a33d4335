package views

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/GrainArc/TinFlow/Tin"
	"github.com/GrainArc/TinFlow/models"
	"github.com/GrainArc/TinFlow/services"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// 交互式流径追踪

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type TraceHandler struct {
	flow *services.FlowService
}

func NewTraceHandler(flow *services.FlowService) *TraceHandler {
	return &TraceHandler{flow: flow}
}

// TraceSession 追踪会话，持有当前网格
type TraceSession struct {
	conn   *websocket.Conn
	mesh   *Tin.Mesh
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

func (s *TraceSession) send(resp models.TraceResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(resp)
}

func (s *TraceSession) sendError(msg string) error {
	return s.send(models.TraceResponse{Type: "error", Message: msg})
}

// Trace 升级到 WebSocket，先接收 mesh 消息，再逐条响应 trace 消息
func (h *TraceHandler) Trace(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade to websocket: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	session := &TraceSession{conn: conn, ctx: ctx, cancel: cancel}
	h.handleSession(session)
}

func (h *TraceHandler) handleSession(session *TraceSession) {
	defer func() {
		session.cancel()
		session.conn.Close()
		log.Println("WebSocket session closed")
	}()

	pingTicker := time.NewTicker(30 * time.Second)
	defer pingTicker.Stop()

	go func() {
		for {
			select {
			case <-session.ctx.Done():
				return
			case <-pingTicker.C:
				session.mu.Lock()
				err := session.conn.WriteMessage(websocket.PingMessage, nil)
				session.mu.Unlock()
				if err != nil {
					log.Printf("Ping failed: %v", err)
					session.cancel()
					return
				}
			}
		}
	}()

	for {
		select {
		case <-session.ctx.Done():
			return
		default:
		}

		var msg models.TraceRequest
		if err := session.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}

		var err error
		switch msg.Type {
		case "mesh":
			err = h.handleMesh(session, msg)
		case "trace":
			err = h.handleTrace(session, msg)
		default:
			err = session.sendError(fmt.Sprintf("unknown message type %q", msg.Type))
		}
		if err != nil {
			log.Printf("Failed to send response: %v", err)
			return
		}
	}
}

func (h *TraceHandler) handleMesh(session *TraceSession, msg models.TraceRequest) error {
	if msg.Geometry == nil {
		return session.sendError("geometry required")
	}
	mesh, err := h.flow.Enrich(msg.Geometry)
	if err != nil {
		return session.sendError(err.Error())
	}
	session.mesh = mesh
	return session.send(models.TraceResponse{
		Type:    "ready",
		Message: fmt.Sprintf("mesh ready with %d triangles", mesh.Len()),
	})
}

func (h *TraceHandler) handleTrace(session *TraceSession, msg models.TraceRequest) error {
	if session.mesh == nil {
		return session.sendError("send a mesh message first")
	}
	res, err := session.mesh.TracePath(Tin.TriangleID(msg.Triangle))
	if err != nil {
		return session.sendError(err.Error())
	}
	return session.send(models.TraceResponse{
		Type:     "path",
		Triangle: msg.Triangle,
		Path:     res.Keys(),
		Outcome:  res.Outcome.String(),
		Sink:     !res.Reached(),
	})
}
