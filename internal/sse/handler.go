package sse

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

const (
	// retryMillis is sent once per stream as the client reconnect delay.
	retryMillis = 3000

	writeTimeout = time.Minute
)

// IdentityFunc resolves the caller of a stream request into a filter. The
// handler adds the event_id query parameter itself.
type IdentityFunc func(r *http.Request) Filter

// Handler serves GET /api/v1/events/stream.
type Handler struct {
	manager  *Manager
	identity IdentityFunc
	logger   *slog.Logger
}

// NewHandler returns a stream handler. A nil identity treats every caller as
// anonymous.
func NewHandler(manager *Manager, identity IdentityFunc, logger *slog.Logger) *Handler {
	if identity == nil {
		identity = func(*http.Request) Filter { return Filter{} }
	}
	return &Handler{manager: manager, identity: identity, logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	f := h.identity(r)
	f.EventID = r.URL.Query().Get("event_id")

	sub, err := h.manager.Connect(f)
	if err != nil {
		h.logger.Error("SSE connect failed", "error", err)
		http.Error(w, "Failed to establish connection", http.StatusInternalServerError)
		return
	}
	defer h.manager.Disconnect(sub.ID)

	hdr := w.Header()
	hdr.Set("Content-Type", "text/event-stream")
	hdr.Set("Cache-Control", "no-cache")
	hdr.Set("Connection", "keep-alive")
	hdr.Set("X-Accel-Buffering", "no")

	s := &stream{w: w, rc: http.NewResponseController(w)}
	s.buf.WriteString("retry: " + strconv.Itoa(retryMillis) + "\n")
	if err := s.send("connected", map[string]string{"client_id": sub.ID}); err != nil {
		h.logger.Warn("SSE handshake failed", "client_id", sub.ID, "error", err)
		return
	}

	for {
		select {
		case e, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := s.send(string(e.Type), e); err != nil {
				h.logger.Debug("SSE write failed", "client_id", sub.ID, "error", err)
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}

// stream writes SSE frames to one response.
type stream struct {
	w   http.ResponseWriter
	rc  *http.ResponseController
	buf bytes.Buffer
}

func (s *stream) send(name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	s.buf.WriteString("event: ")
	s.buf.WriteString(name)
	s.buf.WriteString("\ndata: ")
	s.buf.Write(data)
	s.buf.WriteString("\n\n")

	_ = s.rc.SetWriteDeadline(time.Now().Add(writeTimeout))
	_, err = s.w.Write(s.buf.Bytes())
	s.buf.Reset()
	if err != nil {
		return err
	}
	return s.rc.Flush()
}
