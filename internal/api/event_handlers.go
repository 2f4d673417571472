package api

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/technosupport/vapix-events/internal/events"
	"github.com/technosupport/vapix-events/internal/stream"
	"github.com/technosupport/vapix-events/internal/vapix/event"
	"github.com/technosupport/vapix-events/internal/vapix/params"
)

// messages frames the request body. On failure it has already written the
// response.
func (s *Server) messages(w http.ResponseWriter, r *http.Request) ([][]byte, bool) {
	body, ok := s.readBody(w, r)
	if !ok {
		return nil, false
	}
	msgs, err := stream.Messages(body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to frame messages")
		return nil, false
	}
	return msgs, true
}

// POST /v1/decode
func (s *Server) Decode(w http.ResponseWriter, r *http.Request) {
	msgs, ok := s.messages(w, r)
	if !ok {
		return
	}
	dec := s.Tracker.Decoder()
	out := make([]event.Event, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, dec.Decode(msg))
	}
	respondJSON(w, http.StatusOK, out)
}

// POST /v1/parse
// Parses the first framed message; a body without one yields the empty
// notification.
func (s *Server) Parse(w http.ResponseWriter, r *http.Request) {
	msgs, ok := s.messages(w, r)
	if !ok {
		return
	}
	var n event.Notification
	if len(msgs) > 0 {
		n = event.Parse(msgs[0])
	}
	respondJSON(w, http.StatusOK, n)
}

// POST /v1/ingest
func (s *Server) Ingest(w http.ResponseWriter, r *http.Request) {
	msgs, ok := s.messages(w, r)
	if !ok {
		return
	}
	out := make([]events.Envelope, 0, len(msgs))
	for _, msg := range msgs {
		if env, ok := s.Tracker.Handle(r.Context(), msg); ok {
			out = append(out, env)
		}
	}
	s.Log.Debug("ingested messages", zap.Int("messages", len(msgs)), zap.Int("envelopes", len(out)))
	respondJSON(w, http.StatusOK, out)
}

// GET /v1/events
// ?tripped=true limits the snapshot to tripped events.
func (s *Server) ListEvents(w http.ResponseWriter, r *http.Request) {
	snap := s.Tracker.Snapshot()
	if r.URL.Query().Get("tripped") == "true" {
		tripped := snap[:0]
		for _, ev := range snap {
			if ev.IsTripped {
				tripped = append(tripped, ev)
			}
		}
		snap = tripped
	}
	respondJSON(w, http.StatusOK, snap)
}

// GET /v1/families
func (s *Server) ListFamilies(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.Tracker.Decoder().Registry().Families())
}

// POST /v1/params/brand
func (s *Server) DecodeBrand(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	brand, err := params.BrandFromParams(params.ParseParamCGI(string(body)))
	if err != nil {
		if errors.Is(err, params.ErrMissingParam) {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, brand)
}
