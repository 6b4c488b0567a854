package mesh

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/signalsfoundry/solarmesh-simulator/core"
	"github.com/signalsfoundry/solarmesh-simulator/internal/logging"
)

const wsWriteTimeout = 10 * time.Second

// Server exposes a running engine over HTTP: a websocket stream of
// per-tick snapshots for renderers, one-shot snapshot and status
// endpoints, a JSON control endpoint, and a liveness probe.
type Server struct {
	engine *core.Engine
	log    logging.Logger
	frame  time.Duration

	// ControlLimiter bounds the rate of control actions across all
	// clients. Replace before serving to tune it.
	ControlLimiter *rate.Limiter

	upgrader websocket.Upgrader
}

// New creates a Server that streams one frame per frame interval.
func New(engine *core.Engine, frame time.Duration, log logging.Logger) *Server {
	if log == nil {
		log = logging.Noop()
	}
	if frame <= 0 {
		frame = 16 * time.Millisecond
	}
	return &Server{
		engine:         engine,
		log:            log,
		frame:          frame,
		ControlLimiter: rate.NewLimiter(rate.Limit(20), 40),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 16384,
			// Renderers are served from arbitrary origins; the stream
			// carries no credentials and mutations go through the
			// control endpoint.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handler returns the route table. main wraps it with the
// observability middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/api/snapshot", s.handleSnapshot)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/control", s.handleControl)
	mux.HandleFunc("/healthz", s.handleHealthz)
	return mux
}

// statusResponse reports the engine's control state and headline
// topology numbers without the full snapshot payload.
type statusResponse struct {
	Tick         uint64  `json:"tick"`
	SimTime      float64 `json:"sim_time"`
	Paused       bool    `json:"paused"`
	Speed        float64 `json:"speed"`
	SpeedIndex   int     `json:"speed_index"`
	AbortedTicks uint64  `json:"aborted_ticks"`
	InFlight     int     `json:"in_flight"`
	Components   int     `json:"components"`
}

// wsFrame is one websocket message: the control state plus the full
// snapshot of the most recent tick.
type wsFrame struct {
	Paused     bool           `json:"paused"`
	Speed      float64        `json:"speed"`
	SpeedIndex int            `json:"speed_index"`
	Snapshot   *core.Snapshot `json:"snapshot"`
}

type controlRequest struct {
	Action     string `json:"action"`
	SpeedIndex *int   `json:"speed_index"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) status() statusResponse {
	snap := s.engine.Snapshot()
	sample := s.engine.TopologySample()
	return statusResponse{
		Tick:         snap.Tick,
		SimTime:      snap.SimTime,
		Paused:       s.engine.Paused(),
		Speed:        s.engine.Speed(),
		SpeedIndex:   s.engine.SpeedIndex(),
		AbortedTicks: s.engine.AbortedTicks(),
		InFlight:     sample.InFlight,
		Components:   sample.Components,
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "status requires GET"})
		return
	}
	writeJSON(w, http.StatusOK, s.status())
}

// handleSnapshot serves the latest tick's full snapshot for clients
// that poll instead of holding a websocket open.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "snapshot requires GET"})
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "control requires POST"})
		return
	}
	if !s.ControlLimiter.Allow() {
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "control rate exceeded"})
		return
	}

	log := s.requestLog(r.Context())

	var req controlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed control request"})
		return
	}

	switch req.Action {
	case "pause":
		s.engine.Pause()
	case "resume":
		s.engine.Resume()
	case "set-speed":
		if req.SpeedIndex == nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "set-speed requires speed_index"})
			return
		}
		if err := s.engine.SetSpeedIndex(*req.SpeedIndex); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
	case "cycle-speed":
		s.engine.CycleSpeed()
	default:
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("unknown action %q", req.Action)})
		return
	}

	log.Info(r.Context(), "control action applied", logging.String("action", req.Action))
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleWS upgrades the connection and streams frames until the client
// goes away. Each frame carries the latest snapshot; while the engine
// is paused the same snapshot repeats with the paused flag set.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.requestLog(r.Context()).Warn(r.Context(), "websocket upgrade failed",
			logging.String("error", err.Error()))
		return
	}
	defer conn.Close()

	log := s.requestLog(r.Context())
	log.Info(r.Context(), "websocket client connected",
		logging.String("remote", conn.RemoteAddr().String()))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// The read loop only detects the client closing the stream.
	conn.SetReadLimit(512)
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.frame)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info(r.Context(), "websocket client disconnected",
				logging.String("remote", conn.RemoteAddr().String()))
			return
		case <-ticker.C:
		}

		frame := wsFrame{
			Paused:     s.engine.Paused(),
			Speed:      s.engine.Speed(),
			SpeedIndex: s.engine.SpeedIndex(),
			Snapshot:   s.engine.Snapshot(),
		}
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(frame); err != nil {
			log.Info(r.Context(), "websocket client disconnected",
				logging.String("remote", conn.RemoteAddr().String()),
				logging.String("error", err.Error()))
			return
		}
	}
}

// requestLog prefers the per-request logger placed on the context by
// the request id middleware.
func (s *Server) requestLog(ctx context.Context) logging.Logger {
	if l := logging.LoggerFromContext(ctx); l != nil {
		return l
	}
	return s.log
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
