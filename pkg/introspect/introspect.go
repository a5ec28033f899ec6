// Package introspect exposes a running til.Stream over HTTP: a JSON dump
// of the pipe and context tables, a Prometheus metrics endpoint, a
// websocket endpoint for pipe driver-swap events (see pipeEvent), and a
// settings-string parser
// for clients composing pipelines interactively. None of this exists in
// the original til, which had no remote introspection story at all; it's
// grounded on bgpipe's own pkg/extio HTTP surface (chi + zerolog + JSON)
// generalized to til's stream/pipe model.
package introspect

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/VictoriaMetrics/metrics"
	"github.com/buger/jsonparser"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/valyala/bytebufferpool"

	"github.com/tilengine/til"
)

// Server wraps a til.Stream with an HTTP+websocket introspection API.
type Server struct {
	Stream *til.Stream
	Logger zerolog.Logger

	pipesCreated  *metrics.Counter
	pipesHijacked *metrics.Counter
	contextsLive  *metrics.Gauge

	upgrader websocket.Upgrader

	mu   sync.Mutex
	subs map[*websocket.Conn]chan pipeEvent
}

// NewServer returns a Server ready to Router() onto an http.Server.
func NewServer(stream *til.Stream) *Server {
	s := &Server{
		Stream:        stream,
		Logger:        log.Logger,
		pipesCreated:  metrics.NewCounter("til_pipes_created_total"),
		pipesHijacked: metrics.NewCounter("til_pipes_hijacked_total"),
		subs:          make(map[*websocket.Conn]chan pipeEvent),
	}
	s.contextsLive = metrics.NewGauge("til_contexts_live", func() float64 {
		n := 0
		stream.ForEachModuleContext(func(any) bool { n++; return true })
		return float64(n)
	})
	return s
}

// Router builds the chi.Router serving this Server's endpoints.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Get("/stream/pipes", s.handlePipes)
	r.Get("/stream/contexts", s.handleContexts)
	r.Get("/metrics", s.handleMetrics)
	r.Get("/ws/pipes", s.handlePipesWS)
	r.Post("/settings/parse", s.handleSettingsParse)
	return r
}

type pipeView struct {
	ParentPath string `json:"parent_path"`
	Name       string `json:"name"`
	DrivingTap string `json:"driving_tap"`
	Inactive   bool   `json:"inactive"`
}

func (s *Server) handlePipes(w http.ResponseWriter, r *http.Request) {
	var views []pipeView
	s.Stream.ForEachPipe(func(p *til.Pipe) bool {
		views = append(views, pipeView{
			ParentPath: p.ParentPath,
			Name:       p.Name,
			DrivingTap: p.Driving.Name,
			Inactive:   p.Driving.Inactive,
		})
		return true
	})
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleContexts(w http.ResponseWriter, r *http.Request) {
	var paths []string
	s.Stream.ForEachModuleContext(func(ctx any) bool {
		if base := baseOf(ctx); base != nil {
			paths = append(paths, base.Path())
		}
		return true
	})
	writeJSON(w, http.StatusOK, paths)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	metrics.WritePrometheus(w, true)
}

// pipeEvent is the message broadcastPipeEvent sends to /ws/pipes
// subscribers. Nothing in this package calls broadcastPipeEvent, so a
// subscriber receives no events.
type pipeEvent struct {
	ParentPath string `json:"parent_path"`
	Name       string `json:"name"`
	DrivingTap string `json:"driving_tap"`
	At         string `json:"at"`
}

func (s *Server) handlePipesWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Logger.Warn().Err(err).Msg("introspect: websocket upgrade failed")
		return
	}
	defer conn.Close()

	ch := make(chan pipeEvent, 16)
	s.mu.Lock()
	s.subs[conn] = ch
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.subs, conn)
		s.mu.Unlock()
	}()

	for ev := range ch {
		if err := conn.WriteJSON(ev); err != nil {
			return
		}
	}
}

// broadcastPipeEvent pushes ev to every connected /ws/pipes subscriber,
// dropping it for any subscriber whose buffer is full rather than
// blocking the caller.
func (s *Server) broadcastPipeEvent(ev pipeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// handleSettingsParse accepts a JSON body of the form {"settings": "..."}
// and replies with the field-by-field breakdown til.ParseSettings would
// produce, useful for an editor client validating a string before
// submitting it as a stage's settings.
func (s *Server) handleSettingsParse(w http.ResponseWriter, r *http.Request) {
	body := bytebufferpool.Get()
	defer bytebufferpool.Put(body)

	if _, err := body.ReadFrom(r.Body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	raw, err := jsonparser.GetString(body.B, "settings")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing \"settings\" field"})
		return
	}

	settings := til.ParseSettings(raw)
	type entry struct {
		Key   string `json:"key"`
		Value string `json:"value,omitempty"`
	}
	entries := make([]entry, 0, len(settings.Entries))
	for _, set := range settings.Entries {
		e := entry{Key: set.Key}
		if set.Value != nil {
			e.Value = *set.Value
		}
		entries = append(entries, e)
	}
	writeJSON(w, http.StatusOK, entries)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func baseOf(ctx any) *til.Context {
	type baser interface{ Base() *til.Context }
	if b, ok := ctx.(baser); ok {
		return b.Base()
	}
	return nil
}
