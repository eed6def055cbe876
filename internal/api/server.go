// Package api exposes the HTTP surface of the resolution service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shuff57/wiSHlist-sub000/internal/cache"
	"github.com/shuff57/wiSHlist-sub000/internal/extract"
	"github.com/shuff57/wiSHlist-sub000/internal/fetcher"
	"github.com/shuff57/wiSHlist-sub000/internal/resolver"
)

// ResolverService is the part of the resolver the HTTP layer depends on.
type ResolverService interface {
	Resolve(ctx context.Context, rawURL, clientKey string) (*resolver.Result, error)
}

// Server routes resolution requests onto the resolver.
type Server struct {
	resolver ResolverService
	store    cache.Store
	logger   *slog.Logger
	mux      *http.ServeMux
}

// NewServer wires handlers onto an HTTP mux.
func NewServer(rs ResolverService, store cache.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		resolver: rs,
		store:    store,
		logger:   logger,
		mux:      http.NewServeMux(),
	}
	s.routes()
	return s
}

// ServeHTTP satisfies the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/resolve", s.handleResolve)
	s.mux.HandleFunc("/image", s.handleImage)
	s.mux.HandleFunc("/cache/stats", s.handleCacheStats)
	s.mux.HandleFunc("/openapi.yaml", s.handleOpenAPI)
	s.mux.HandleFunc("/docs", s.handleDocs)
}

// resolveRequest is the POST payload form of a resolution request.
type resolveRequest struct {
	URL string `json:"url"`
}

// resolveResponse is the wire shape of a completed resolution. Field values
// default to empty strings rather than being omitted so clients can bind a
// fixed shape.
type resolveResponse struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Image       string             `json:"image"`
	URL         string             `json:"url"`
	Price       string             `json:"price"`
	Cache       resolver.CacheInfo `json:"_cache"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var rawURL string
	switch r.Method {
	case http.MethodGet:
		rawURL = r.URL.Query().Get("url")
	case http.MethodPost:
		var req resolveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json payload"})
			return
		}
		rawURL = req.URL
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
		return
	}

	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "url parameter is required"})
		return
	}

	result, err := s.resolver.Resolve(r.Context(), rawURL, clientKey(r))
	if err != nil {
		s.writeResolveError(w, rawURL, err)
		return
	}

	writeJSON(w, http.StatusOK, resolveResponse{
		Title:       result.Metadata.Title,
		Description: result.Metadata.Description,
		Image:       result.Metadata.Image,
		URL:         result.URL,
		Price:       result.Metadata.Price,
		Cache:       result.Cache,
	})
}

// writeResolveError maps resolver failures onto the API error taxonomy.
// Upstream details never reach the client; they are logged instead.
func (s *Server) writeResolveError(w http.ResponseWriter, rawURL string, err error) {
	if errors.Is(err, resolver.ErrRateLimited) {
		writeJSON(w, http.StatusTooManyRequests, errorResponse{
			Error: "Rate limit exceeded. Please try again later.",
		})
		return
	}
	var upstream *fetcher.UpstreamError
	if errors.As(err, &upstream) {
		s.logger.Error("upstream resolution failed",
			"url", rawURL,
			"status", upstream.StatusCode,
			"error", err,
		)
	} else {
		s.logger.Error("resolution failed", "url", rawURL, "error", err)
	}
	writeJSON(w, http.StatusInternalServerError, errorResponse{
		Error: "Failed to resolve URL metadata",
	})
}

// handleImage redirects to the resizing proxy for an image URL so wishlist
// clients never hotlink full-size retailer images.
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	rawURL := strings.TrimSpace(r.URL.Query().Get("url"))
	if rawURL == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "url parameter is required"})
		return
	}
	width := queryInt(r, "w", 300)
	height := queryInt(r, "h", 300)

	http.Redirect(w, r, extract.ResizeURL(rawURL, width, height), http.StatusFound)
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.logger.Error("cache stats failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "cache stats unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// clientKey identifies the requesting client for rate limiting: the first
// X-Forwarded-For hop when present, the remote address otherwise.
func clientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first, _, ok := strings.Cut(fwd, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
