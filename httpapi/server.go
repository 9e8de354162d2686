package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"pkt.systems/jellyj/core"
	"pkt.systems/jellyj/internal/eventbus"
	"pkt.systems/jellyj/internal/logx"
	"pkt.systems/jellyj/internal/version"
	"pkt.systems/jellyj/schema"
)

const maxRequestBody = 64 << 10

// Backend is the part of core.Service served over HTTP.
type Backend interface {
	Toggle(ctx context.Context, req schema.ToggleRequest) (schema.ToggleResult, error)
	Request(ctx context.Context, payload []byte) schema.Response
	Do(ctx context.Context, req schema.Request) schema.Response
	TraceEntries(ctx context.Context, limit int) []core.TraceEntry
}

// Server serves the diagnostics HTTP API.
type Server struct {
	cfg      Config
	service  Backend
	bus      *eventbus.Bus
	basePath string
}

// NewServer constructs an HTTP server. bus may be nil, which disables
// live trace streaming.
func NewServer(cfg Config, service Backend, bus *eventbus.Bus) *Server {
	if cfg.StreamBacklog <= 0 {
		cfg.StreamBacklog = 50
	}
	return &Server{
		cfg:      cfg,
		service:  service,
		bus:      bus,
		basePath: normalizeBasePath(cfg.BasePath),
	}
}

// Handler returns an http.Handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/healthz", s.handleHealth)
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /api/trace", s.handleTrace)
	mux.HandleFunc("DELETE /api/trace", s.handleClearTrace)
	mux.HandleFunc("GET /api/trace/stream", s.handleTraceStream)
	mux.HandleFunc("POST /api/toggle", s.handleToggle)
	mux.HandleFunc("POST /api/request", s.handleRequest)

	handler := withRequestLogging(mux)
	if s.basePath == "" {
		return handler
	}
	prefix := s.basePath
	root := http.NewServeMux()
	root.Handle(prefix+"/", http.StripPrefix(prefix, handler))
	return root
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	info := version.Get()
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":       true,
		"module":   info.Module,
		"version":  info.Version,
		"revision": info.Revision,
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeResponse(w, s.service.Do(r.Context(), schema.Request{Op: schema.OpGetState}))
}

func (s *Server) handleTrace(w http.ResponseWriter, r *http.Request) {
	req := schema.Request{Op: schema.OpGetTrace}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeResponse(w, schema.ErrorResponse(fmt.Errorf("%w: limit must be a non-negative integer", schema.ErrInvalidRequest)))
			return
		}
		req.Limit = &limit
	}
	writeResponse(w, s.service.Do(r.Context(), req))
}

func (s *Server) handleClearTrace(w http.ResponseWriter, r *http.Request) {
	writeResponse(w, s.service.Do(r.Context(), schema.Request{Op: schema.OpClearTrace}))
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	var req schema.ToggleRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := decodeJSON(bytes.NewReader(body), &req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %v", schema.ErrInvalidRequest, err))
			return
		}
	}
	result, err := s.service.Toggle(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeResponse(w, s.service.Request(r.Context(), body))
}

// handleTraceStream serves trace entries as server-sent events. Event ids are
// trace sequence numbers so reconnecting clients resume via Last-Event-ID.
func (s *Server) handleTraceStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("stream unsupported"))
		return
	}
	if s.bus == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("trace streaming disabled"))
		return
	}
	ctx := r.Context()
	log := logx.Ctx(ctx)

	events, unsubscribe := s.bus.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	lastID := parseUint(r.Header.Get("Last-Event-ID"))
	replay := s.service.TraceEntries(ctx, 0)
	if lastID == 0 && len(replay) > s.cfg.StreamBacklog {
		replay = replay[len(replay)-s.cfg.StreamBacklog:]
	}
	replayed := 0
	for _, entry := range replay {
		if entry.Seq <= lastID {
			continue
		}
		_ = writeTraceEvent(w, entry)
		lastID = entry.Seq
		replayed++
	}
	flusher.Flush()

	log.Info("http trace stream opened", "replay", replayed, "last_id", lastID)
	for {
		select {
		case <-ctx.Done():
			log.Info("http trace stream closed")
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			switch event.Type {
			case eventbus.EventTrace:
				if event.Trace.Seq <= lastID {
					continue
				}
				lastID = event.Trace.Seq
				_ = writeTraceEvent(w, event.Trace)
			case eventbus.EventHost:
				_ = writeSSE(w, "host", 0, map[string]bool{"attached": event.Attached})
			}
			flusher.Flush()
		}
	}
}

type traceEvent struct {
	Seq       uint64 `json:"seq"`
	ElapsedMS int64  `json:"elapsed_ms"`
	Message   string `json:"message"`
	Line      string `json:"line"`
}

func writeTraceEvent(w io.Writer, entry core.TraceEntry) error {
	return writeSSE(w, "trace", entry.Seq, traceEvent{
		Seq:       entry.Seq,
		ElapsedMS: entry.Elapsed.Milliseconds(),
		Message:   entry.Message,
		Line:      entry.String(),
	})
}

func writeSSE(w io.Writer, event string, id uint64, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if id > 0 {
		_, _ = fmt.Fprintf(w, "id: %d\n", id)
	}
	_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return nil
}

// writeResponse writes an envelope with a status derived from its code.
func writeResponse(w http.ResponseWriter, resp schema.Response) {
	writeJSON(w, statusForCode(resp), resp)
}

func statusForCode(resp schema.Response) int {
	if resp.OK {
		return http.StatusOK
	}
	switch resp.Code {
	case schema.CodeInvalidRequest:
		return http.StatusBadRequest
	case schema.CodeNotReady:
		return http.StatusServiceUnavailable
	case schema.CodeTabNotFound, schema.CodePaneNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(body io.Reader, target any) error {
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, schema.ErrorResponse(err))
}

func parseUint(value string) uint64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0
	}
	return parsed
}
