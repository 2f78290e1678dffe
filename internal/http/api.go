package http

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"aidj/internal/core"
)

const (
	requestScope   = "requests"
	maxRequestBody = 64 << 10
)

type messageResponse struct {
	Message   string              `json:"message"`
	Schedule  []core.ScheduleItem `json:"schedule,omitempty"`
	TickError string              `json:"tickError,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type statusResponse struct {
	Status   core.Status         `json:"status"`
	Playback *core.PlaybackState `json:"playback"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, statusResponse{
		Status:   s.controller.Status(),
		Playback: s.controller.PlaybackState(r.Context()),
	})
}

func (s *Server) handleLogs(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string][]string{"logs": s.controller.ProcessLog()})
}

func (s *Server) handleGetSchedule(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string][]core.ScheduleItem{"schedule": s.controller.Schedule()})
}

func (s *Server) handlePutSchedule(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Schedule []core.ScheduleItem `json:"schedule"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if len(body.Schedule) > 0 {
		usable := false
		for _, item := range body.Schedule {
			if _, ok := core.NormalizeItem(item); ok {
				usable = true
				break
			}
		}
		if !usable {
			s.writeError(w, http.StatusBadRequest, s.localizer.T("error.schedule.invalid"))
			return
		}
	}

	items := s.controller.SetSchedule(body.Schedule)
	s.writeJSON(w, http.StatusOK, messageResponse{
		Message:  s.localizer.T("success.schedule.updated", len(items)),
		Schedule: items,
	})
}

func (s *Server) handleDeleteScheduleItem(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "index must be an integer")
		return
	}

	items, err := s.controller.RemoveScheduleItem(index)
	if errors.Is(err, core.ErrIndexOutOfRange) {
		s.writeError(w, http.StatusNotFound, s.localizer.T("error.schedule.index", index))
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, s.localizer.T("error.generic"))
		return
	}

	s.writeJSON(w, http.StatusOK, messageResponse{
		Message:  s.localizer.T("success.schedule.removed", index),
		Schedule: items,
	})
}

// handleRequest compiles a free text request into a schedule, installs it and
// runs a reconciliation pass right away.
func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	s.metrics.recordRequest(s.compileRequest(w, r))
}

func (s *Server) compileRequest(w http.ResponseWriter, r *http.Request) string {
	var body struct {
		Request string `json:"request"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return "invalid"
	}

	request := strings.TrimSpace(body.Request)
	if request == "" {
		s.writeError(w, http.StatusBadRequest, s.localizer.T("error.request.empty"))
		return "invalid"
	}

	if s.floodgate != nil {
		client := clientIP(r)
		if !s.floodgate.Allow(requestScope, client) {
			retry := s.floodgate.RetryAfter(requestScope, client)
			w.Header().Set("Retry-After", strconv.Itoa(max(int(retry.Round(time.Second)/time.Second), 1)))
			s.writeError(w, http.StatusTooManyRequests, s.localizer.T("error.request.rate_limited"))
			s.logger.Info("Request rate limited", zap.String("client", client))
			return "rate_limited"
		}
	}

	items, err := s.controller.CreateSchedule(r.Context(), request)
	switch {
	case errors.Is(err, core.ErrNoCompiler):
		s.writeError(w, http.StatusServiceUnavailable, s.localizer.T("error.compiler.none"))
		return "unavailable"
	case err != nil:
		s.logger.Warn("Schedule generation failed", zap.String("request", request), zap.Error(err))
		s.writeError(w, http.StatusBadGateway, s.localizer.T("error.generic"))
		return "failed"
	case len(items) == 0:
		s.writeJSON(w, http.StatusOK, messageResponse{
			Message:  s.localizer.T("error.schedule.empty"),
			Schedule: []core.ScheduleItem{},
		})
		return "empty"
	}

	response := messageResponse{
		Message:  s.localizer.T("success.schedule.created", len(items)),
		Schedule: items,
	}
	if err := s.controller.Tick(r.Context()); err != nil {
		response.TickError = err.Error()
	}
	s.writeJSON(w, http.StatusOK, response)
	return "created"
}

func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string][]core.Device{"devices": s.controller.Devices(r.Context())})
}

func (s *Server) handleSetActiveDevice(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID string `json:"id"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.ID == "" {
		s.writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	s.controller.SetActiveDevice(r.Context(), body.ID)
	s.writeJSON(w, http.StatusOK, messageResponse{Message: s.localizer.T("success.device.selected", body.ID)})
}

func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string][]core.Track{"queue": s.controller.Queue(r.Context())})
}

func (s *Server) handlePlayerAction(w http.ResponseWriter, r *http.Request) {
	action := r.PathValue("action")

	var err error
	switch action {
	case "next":
		err = s.controller.Next(r.Context())
	case "previous":
		err = s.controller.Previous(r.Context())
	case "pause":
		err = s.controller.Pause(r.Context())
	case "resume":
		err = s.controller.Resume(r.Context())
	default:
		s.writeError(w, http.StatusNotFound, s.localizer.T("error.player.action", action))
		return
	}

	if err != nil {
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, messageResponse{Message: s.localizer.T("success.player.action", action)})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := decoder.Decode(v); err != nil {
		return errors.New("invalid JSON body")
	}
	return nil
}

// clientIP keys rate limiting on the first X-Forwarded-For hop when present.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("Failed to write response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, errorResponse{Error: message})
}
