package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/valyala/fasthttp"

	"classlog/pkg/httpx"
	"classlog/pkg/service"
)

type route struct {
	method string
	path   string
	h      httpx.HandlerFunc
}

func (s *Server) routes() []route {
	return []route{
		{http.MethodGet, "/healthz", handleHealthz},
		{http.MethodGet, "/v1/state", s.handleState},
		{http.MethodPost, "/v1/build", s.handleBuild},
		{http.MethodGet, "/v1/data", s.handleData},
		{http.MethodGet, "/v1/counts", s.handleCounts},
		{http.MethodPost, "/v1/log", s.handleLog},
		{http.MethodPost, "/v1/log/undo", s.handleUndo},
		{http.MethodPost, "/v1/log/clear", s.handleClear},
		{http.MethodPost, "/v1/bathroom/scan", s.handleScan},
		{http.MethodGet, "/v1/bathroom/status", s.handleBathroomStatus},
		{http.MethodGet, "/v1/bathroom/analytics", s.handleBathroomAnalytics},
	}
}

// Handler returns the net/http router for the API surface.
func Handler(svc *service.Service) http.Handler {
	s := NewServer(svc)
	r := mux.NewRouter()
	for _, rt := range s.routes() {
		r.Handle(rt.path, httpx.NetHTTPAdapter(rt.h)).Methods(rt.method)
	}
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
	})
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
	})
	return r
}

// FastHandler returns the same API surface as a fasthttp request handler.
// It routes on exact method+path; the API has no path parameters.
func FastHandler(svc *service.Service) fasthttp.RequestHandler {
	s := NewServer(svc)
	table := make(map[string]fasthttp.RequestHandler)
	for _, rt := range s.routes() {
		table[rt.method+" "+rt.path] = httpx.FastHTTPAdapter(rt.h)
	}
	return func(ctx *fasthttp.RequestCtx) {
		key := string(ctx.Method()) + " " + string(ctx.Path())
		if h, ok := table[key]; ok {
			h(ctx)
			return
		}
		ctx.Response.Header.Set("Content-Type", "application/json")
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		ctx.SetBodyString(`{"error":"not found"}`)
	}
}
