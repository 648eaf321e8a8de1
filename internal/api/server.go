// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package api serves the dashboard contract: read-only device, alert, and
// decoy views plus the manual-action endpoints.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"grimm.is/warden/internal/config"
	"grimm.is/warden/internal/decoylog"
	"grimm.is/warden/internal/defense"
	"grimm.is/warden/internal/errors"
	"grimm.is/warden/internal/logging"
	"grimm.is/warden/internal/metrics"
)

// Server is the dashboard-facing HTTP listener. The decoy listeners
// report interactions here too, over the bounded feed.
type Server struct {
	cfg    *config.Config
	loop   *defense.Loop
	decoy  *decoylog.Log
	feed   *decoylog.Feed
	met    *metrics.Metrics
	logger *logging.Logger

	httpServer *http.Server
}

func NewServer(cfg *config.Config, loop *defense.Loop, decoy *decoylog.Log, feed *decoylog.Feed, met *metrics.Metrics) *Server {
	s := &Server{
		cfg:    cfg,
		loop:   loop,
		decoy:  decoy,
		feed:   feed,
		met:    met,
		logger: logging.WithComponent("api"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/devices", s.handleDevices)
	mux.HandleFunc("GET /api/alerts", s.handleAlerts)
	mux.HandleFunc("GET /api/honeypot", s.handleHoneypot)
	mux.HandleFunc("POST /api/honeypot", s.handleHoneypotReport)
	mux.HandleFunc("GET /api/ws/alerts", s.handleAlertsWS)
	mux.HandleFunc("POST /api/action", s.handleAction)
	mux.HandleFunc("POST /api/lockdown", s.handleLockdown)
	mux.Handle("GET /metrics", promhttp.HandlerFor(met.Registry, promhttp.HandlerOpts{}))

	s.httpServer = &http.Server{
		Addr:         cfg.API.Listen,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // websocket streams stay open
	}
	return s
}

// Start begins serving in a background goroutine.
func (s *Server) Start() {
	go func() {
		s.logger.Info("Dashboard API listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("API server failed", "error", err)
		}
	}()
}

// Stop shuts the listener down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleDevices(w http.ResponseWriter, _ *http.Request) {
	snap := s.loop.Snapshot()
	devices := snap.Devices
	if devices == nil {
		devices = []defense.DeviceView{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"devices":    devices,
		"updated_at": snap.UpdatedAt,
		"cycle":      snap.Cycle,
	})
}

func (s *Server) handleAlerts(w http.ResponseWriter, _ *http.Request) {
	alerts := s.loop.Alerts()
	if alerts == nil {
		alerts = []defense.Alert{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"alerts": alerts})
}

func (s *Server) handleHoneypot(w http.ResponseWriter, _ *http.Request) {
	rows, err := s.decoy.Tail(s.cfg.Defense.HoneypotTail)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rows == nil {
		rows = []decoylog.Interaction{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"interactions": rows})
}

// handleHoneypotReport accepts one interaction from a decoy listener and
// queues it on the feed. 202 means accepted, not yet durable.
func (s *Server) handleHoneypotReport(w http.ResponseWriter, r *http.Request) {
	var in decoylog.Interaction
	if !BindJSON(w, r, &in) {
		return
	}
	if in.SourceIP == "" || in.Service == "" {
		WriteError(w, http.StatusBadRequest, "source_ip and service are required")
		return
	}
	if in.Timestamp.IsZero() {
		in.Timestamp = time.Now()
	}

	if !s.feed.Submit(in) {
		WriteError(w, http.StatusServiceUnavailable, "interaction feed full")
		return
	}
	WriteJSON(w, http.StatusAccepted, map[string]bool{"accepted": true})
}

type actionRequest struct {
	Action string `json:"action"`
	IP     string `json:"ip"`
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if !BindJSON(w, r, &req) {
		return
	}

	err := s.loop.Apply(r.Context(), defense.Action(req.Action), req.IP)
	if err != nil {
		switch errors.GetKind(err) {
		case errors.KindValidation:
			WriteError(w, http.StatusBadRequest, err.Error())
		case errors.KindNotFound:
			WriteError(w, http.StatusNotFound, err.Error())
		default:
			WriteError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleLockdown(w http.ResponseWriter, r *http.Request) {
	if err := s.loop.Lockdown(r.Context()); err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}
