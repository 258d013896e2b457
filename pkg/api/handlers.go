package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"classlog/pkg/errs"
	"classlog/pkg/httpx"
	"classlog/pkg/service"
	"classlog/pkg/utils"
)

// Server holds the handler set over one service instance. Handlers are
// written against httpx so the same code serves both HTTP engines.
type Server struct {
	svc *service.Service
}

func NewServer(svc *service.Service) *Server {
	return &Server{svc: svc}
}

// errBody is the error shape returned to clients. Kind is machine-readable
// so the UI can branch without parsing the message.
type errBody struct {
	Error   string `json:"error"`
	Kind    string `json:"kind"`
	Student string `json:"student,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}

func writeErr(w httpx.ResponseWriter, err error) {
	var limErr *errs.LimitReachedError
	var nfErr *errs.NotFoundError
	switch {
	case errors.As(err, &limErr):
		_ = utils.JSONWrite(w, http.StatusConflict, errBody{
			Error: limErr.Error(), Kind: "limit_reached", Student: limErr.Student, Limit: limErr.Limit,
		})
	case errors.As(err, &nfErr):
		_ = utils.JSONWrite(w, http.StatusNotFound, errBody{Error: nfErr.Error(), Kind: "student_not_found"})
	case errors.Is(err, errs.ErrNotAttached):
		_ = utils.JSONWrite(w, http.StatusConflict, errBody{Error: err.Error(), Kind: "not_attached"})
	case errors.Is(err, errs.ErrLockTimeout):
		_ = utils.JSONWrite(w, http.StatusServiceUnavailable, errBody{Error: err.Error(), Kind: "busy"})
	default:
		_ = utils.JSONWrite(w, http.StatusInternalServerError, errBody{Error: err.Error(), Kind: "internal"})
	}
}

func (s *Server) handleState(w httpx.ResponseWriter, r *httpx.Request) {
	_ = utils.JSONWrite(w, http.StatusOK, s.svc.GetAppState())
}

func (s *Server) handleBuild(w httpx.ResponseWriter, r *httpx.Request) {
	var body struct {
		Name string `json:"name"`
		Seed bool   `json:"seed"`
	}
	// empty body means build with defaults
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, s.svc.BuildSheets(body.Name, body.Seed))
}

func (s *Server) handleData(w httpx.ResponseWriter, r *httpx.Request) {
	data, err := s.svc.GetData()
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, data)
}

func (s *Server) handleCounts(w httpx.ResponseWriter, r *httpx.Request) {
	period := r.Query.Get("period")
	if period == "" {
		utils.JSONError(w, http.StatusBadRequest, "missing period")
		return
	}
	snap, err := s.svc.GetCountsSnapshot(period)
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, snap)
}

func (s *Server) handleLog(w httpx.ResponseWriter, r *httpx.Request) {
	var req service.LogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, s.svc.LogEntries(req))
}

func (s *Server) handleUndo(w httpx.ResponseWriter, r *httpx.Request) {
	var body struct {
		Student string `json:"student"`
		Issue   string `json:"issue"`
		Period  string `json:"period,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if body.Student == "" || body.Issue == "" {
		utils.JSONError(w, http.StatusBadRequest, "student and issue are required")
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, s.svc.DeleteLastEntry(body.Student, body.Issue, body.Period))
}

func (s *Server) handleClear(w httpx.ResponseWriter, r *httpx.Request) {
	_ = utils.JSONWrite(w, http.StatusOK, s.svc.ClearAllLogs())
}

func (s *Server) handleScan(w httpx.ResponseWriter, r *httpx.Request) {
	var body struct {
		StudentID string `json:"studentId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.StudentID == "" {
		utils.JSONError(w, http.StatusBadRequest, "studentId is required")
		return
	}
	msg, err := s.svc.RecordBathroomEvent(body.StudentID)
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]interface{}{"ok": true, "message": msg})
}

func (s *Server) handleBathroomStatus(w httpx.ResponseWriter, r *httpx.Request) {
	status, err := s.svc.GetBathroomStatus(r.Query.Get("period"))
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, status)
}

func (s *Server) handleBathroomAnalytics(w httpx.ResponseWriter, r *httpx.Request) {
	an, err := s.svc.GetBathroomAnalytics()
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, an)
}

func handleHealthz(w httpx.ResponseWriter, r *httpx.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
