package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Miguel-byte-breath/sig-riego-rdc-siar-pm/internal/climatology"
	"github.com/Miguel-byte-breath/sig-riego-rdc-siar-pm/internal/metrics"
	"github.com/Miguel-byte-breath/sig-riego-rdc-siar-pm/internal/stations"
)

// handlePing answers the service liveness probe.
// GET /api/ping
func (s *Server) handlePing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"service": serviceName,
		"route":   "/api/ping",
	})
}

// handleLiveness answers the per-route liveness probe without touching the
// catalog or the provider.
// GET /api/siar_mensual
func (s *Server) handleLiveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":    true,
		"route": "GET /api/siar_mensual",
		"mode":  "BASE",
	})
}

type climatologyRequest struct {
	Lat      *float64 `json:"lat"`
	Lon      *float64 `json:"lon"`
	FIni     string   `json:"fIni"`
	CicloIni string   `json:"cicloIni"`
	CicloFin string   `json:"cicloFin"`
}

// handleClimatology resolves the nearest stations to the query point and
// returns the first valid monthly ETo/Pe climatology pack.
// POST /api/siar_mensual
func (s *Server) handleClimatology(c *gin.Context) {
	var req climatologyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, "DIAGNOSTICO", "cuerpo JSON inválido: "+err.Error(), nil)
		return
	}
	if req.Lat == nil || req.Lon == nil {
		s.fail(c, "DIAGNOSTICO", "lat y lon son obligatorios", nil)
		return
	}

	// Both cycle fields present selects BALANCE mode; anything else falls
	// back to the 36-month diagnostic window.
	var (
		window climatology.Window
		err    error
	)
	if req.CicloIni != "" && req.CicloFin != "" {
		window, err = climatology.FromCycle(req.CicloIni, req.CicloFin)
	} else {
		window, err = climatology.FromReference(req.FIni, s.nowFunc())
	}
	if err != nil {
		s.fail(c, "DIAGNOSTICO", err.Error(), nil)
		return
	}
	mode := string(window.Mode)

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.RequestDeadline)
	defer cancel()

	all, err := s.source.LoadAll(ctx)
	if err != nil {
		s.fail(c, mode, err.Error(), nil)
		return
	}

	ranked, err := stations.Rank(all, *req.Lat, *req.Lon, s.cfg.MaxFallbacks)
	if err != nil {
		s.fail(c, mode, err.Error(), nil)
		return
	}

	result, err := s.orch.Run(ctx, ranked, window)
	if err != nil {
		var exhausted *climatology.ExhaustedError
		if errors.As(err, &exhausted) {
			s.fail(c, mode, err.Error(), exhausted.Attempts)
			return
		}
		s.fail(c, mode, err.Error(), nil)
		return
	}

	fallbackNote := "principal"
	if result.Index > 0 {
		fallbackNote = fmt.Sprintf("apoyo #%d", result.Index)
	}

	metrics.RequestsTotal.WithLabelValues(mode, "ok").Inc()
	c.JSON(http.StatusOK, gin.H{
		"ok":                 true,
		"estacion":           ranked[0].Station.Code,
		"estacionUsada":      result.Station.Station.Code,
		"fallbackIndex":      result.Index,
		"fallbackNote":       fallbackNote,
		"estacionesProbadas": result.Attempts,
		"etoMensual":         result.Pack.Eto,
		"peMensual":          result.Pack.Pe,
		"FechaInicial":       window.Start.Format("2006-01-02"),
		"FechaFinal":         window.End.Format("2006-01-02"),
		"mode":               mode,
	})
}

// fail converts every abort into the boundary's single error shape: HTTP 400
// with ok:false and a human-readable message, plus the attempt trace when
// the fallback loop ran dry.
func (s *Server) fail(c *gin.Context, mode, msg string, attempts []climatology.Attempt) {
	metrics.RequestsTotal.WithLabelValues(mode, "error").Inc()
	payload := gin.H{"ok": false, "error": msg}
	if attempts != nil {
		payload["estacionesProbadas"] = attempts
	}
	c.JSON(http.StatusBadRequest, payload)
}
