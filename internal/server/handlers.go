package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/repowatch/repowatch/internal/archive"
	"github.com/repowatch/repowatch/internal/sink"
	"github.com/repowatch/repowatch/internal/types"
)

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, healthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Service:   s.opts.ServiceName,
		Version:   s.opts.Version,
	})
}

func (s *Server) createScan(c *gin.Context) {
	var req sink.Report
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}
	req.Repo = strings.TrimSpace(req.Repo)
	if req.Repo == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "repo is required"})
		return
	}
	if req.Source == "" {
		req.Source = types.SourceLocal
	}
	if !req.Source.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid source"})
		return
	}

	rec, err := s.store.Save(c.Request.Context(), archive.Record{
		Repo:         req.Repo,
		Source:       req.Source,
		Locator:      req.Locator,
		Commit:       req.Commit,
		Branch:       req.Branch,
		FilesScanned: req.FilesScanned,
		Findings:     req.Findings,
		Timestamp:    req.Timestamp.UTC(),
	})
	if err != nil {
		s.log.Error().Err(err).Str("repo", req.Repo).Msg("save scan")
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	s.metrics.observeReport(rec.Source, rec.SeverityCounts)

	totals, err := s.store.Totals(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	s.log.Info().Str("id", rec.ID).Str("repo", rec.Repo).Int("findings", len(rec.Findings)).Msg("scan archived")
	c.JSON(http.StatusCreated, sink.Ack{OK: true, ID: rec.ID, Totals: totals})
}

func (s *Server) listScans(c *gin.Context) {
	items, err := s.store.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "scans": items})
}

func (s *Server) getScan(c *gin.Context) {
	rec, err := s.store.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, archive.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "scan not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "scan": rec})
}

func (s *Server) deleteScan(c *gin.Context) {
	err := s.store.Delete(c.Request.Context(), c.Param("id"))
	if errors.Is(err, archive.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "scan not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) totals(c *gin.Context) {
	t, err := s.store.Totals(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "totals": t})
}
