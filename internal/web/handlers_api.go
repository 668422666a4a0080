package web

import (
	"encoding/json"
	"net/http"
	"strconv"

	"movehub/internal/fleet"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("encode response", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleAPIStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.fleet.Snapshot()
	if snap == nil {
		s.writeError(w, http.StatusServiceUnavailable, "fleet not started")
		return
	}
	connected := 0
	for _, c := range snap.Controllers {
		if c.Connected {
			connected++
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"state":        snap.State,
		"slots":        fleet.MaxControllers,
		"connected":    connected,
		"sequence_num": snap.SequenceNum,
	})
}

func (s *Server) handleAPIVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

func (s *Server) handleAPIListControllers(w http.ResponseWriter, r *http.Request) {
	snap := s.fleet.Snapshot()
	if snap == nil {
		s.writeError(w, http.StatusServiceUnavailable, "fleet not started")
		return
	}
	s.writeJSON(w, http.StatusOK, snap.Controllers)
}

func (s *Server) controllerID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id < 0 || id >= fleet.MaxControllers {
		s.writeError(w, http.StatusBadRequest, "invalid controller id")
		return 0, false
	}
	return id, true
}

func (s *Server) handleAPIGetController(w http.ResponseWriter, r *http.Request) {
	id, ok := s.controllerID(w, r)
	if !ok {
		return
	}
	snap := s.fleet.Snapshot()
	if snap == nil {
		s.writeError(w, http.StatusServiceUnavailable, "fleet not started")
		return
	}
	s.writeJSON(w, http.StatusOK, snap.Controllers[id])
}

type rumbleRequest struct {
	Amount float32 `json:"amount"`
}

func (s *Server) handleAPIRumble(w http.ResponseWriter, r *http.Request) {
	id, ok := s.controllerID(w, r)
	if !ok {
		return
	}

	var req rumbleRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Amount < 0 || req.Amount > 1 {
		s.writeError(w, http.StatusBadRequest, "amount must be between 0 and 1")
		return
	}

	if !s.fleet.SetRumble(id, req.Amount) {
		s.writeError(w, http.StatusConflict, "controller not connected")
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]any{"id": id, "amount": req.Amount})
}

func (s *Server) handleAPIResetPose(w http.ResponseWriter, r *http.Request) {
	id, ok := s.controllerID(w, r)
	if !ok {
		return
	}
	if !s.fleet.ResetPose(id) {
		s.writeError(w, http.StatusConflict, "controller not connected")
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]any{"id": id})
}

func (s *Server) handleAPIRegistry(w http.ResponseWriter, r *http.Request) {
	list, err := s.registry.ListControllers()
	if err != nil {
		s.logger.Error("list controller registry", "err", err)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	s.writeJSON(w, http.StatusOK, list)
}
