package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"

	"github.com/NicoZweifel/aquila/internal/compute"
	"github.com/NicoZweifel/aquila/internal/middleware"
	"github.com/NicoZweifel/aquila/internal/models"
	"github.com/NicoZweifel/aquila/internal/pkg/apierrors"
	"github.com/NicoZweifel/aquila/internal/pkg/response"
)

// JobHandler handles job submission and log attachment.
type JobHandler struct {
	backend  compute.Backend
	validate *validator.Validate
	upgrader websocket.Upgrader
}

// NewJobHandler creates a new job handler.
func NewJobHandler(backend compute.Backend) *JobHandler {
	return &JobHandler{
		backend:  backend,
		validate: validator.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// The attach socket is bearer-authenticated; the browser
			// same-origin heuristic does not apply to CLI clients.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Routes returns a chi router with job routes.
func (h *JobHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.With(middleware.RequireScope(models.ScopeJobRun)).Post("/run", h.Run)
	r.With(middleware.RequireScope(models.ScopeJobAttach)).Get("/{id}/attach", h.Attach)

	return r
}

// Run handles POST /jobs/run.
func (h *JobHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req models.JobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierrors.ComputeInvalidErr("invalid request body: %v", err))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		response.Error(w, apierrors.ComputeInvalidErr("%v", err))
		return
	}

	result, err := h.backend.Run(r.Context(), &req)
	if err != nil {
		response.Error(w, err)
		return
	}
	middleware.RecordJobDispatched()

	response.JSON(w, http.StatusOK, result)
}

// Attach handles GET /jobs/{id}/attach. After the WebSocket upgrade the
// handler relays the job's log stream: records as binary frames, stream
// diagnostics as text frames. It returns when the stream ends or the
// client hangs up.
func (h *JobHandler) Attach(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote its own error response.
		return
	}
	defer conn.Close()
	defer middleware.StreamAttached()()

	// The session is established before the backend is consulted, so
	// attach failures arrive as a text frame on the socket.
	stream, err := h.backend.Attach(r.Context(), jobID)
	if err != nil {
		if apierrors.System(err) {
			slog.Error("attach job", slog.String("job_id", jobID), slog.Any("error", err))
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte(apierrors.Public(err)))
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, ""))
		return
	}
	defer stream.Close()

	// Reader goroutine: a Close frame or a read error from the client
	// ends the session. Pings are answered by the websocket layer.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-clientGone:
			return
		case ev, ok := <-stream.Events():
			if !ok {
				// Stream drained: tell the client we are done.
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if ev.Err != nil {
				if err := conn.WriteMessage(websocket.TextMessage, []byte(ev.Err.Error())); err != nil {
					return
				}
				continue
			}

			data, err := json.Marshal(ev.Record)
			if err != nil {
				slog.Error("encode log record", slog.Any("error", err))
				continue
			}
			if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
				return
			}
		}
	}
}
