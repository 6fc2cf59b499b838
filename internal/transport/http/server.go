package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/feeds"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	acquisitionDomain "github.com/reshetovitsme/streamer-census/internal/modules/acquisition/domain"
	channelDomain "github.com/reshetovitsme/streamer-census/internal/modules/channel/domain"
	feedDomain "github.com/reshetovitsme/streamer-census/internal/modules/feed/domain"
	quotaDomain "github.com/reshetovitsme/streamer-census/internal/modules/quota/domain"
	"github.com/reshetovitsme/streamer-census/internal/shared/metrics"
	sloghttp "github.com/samber/slog-http"
)

type Channels interface {
	List(ctx context.Context, filter channelDomain.Filter) ([]channelDomain.Record, error)
	Stats(ctx context.Context) (channelDomain.Stats, error)
}

type Feeds interface {
	GenerateFeed(ctx context.Context, req feedDomain.Request) (*feeds.Feed, error)
}

type Quota interface {
	Reload() error
	Report() quotaDomain.Report
}

type Searches interface {
	Recent(ctx context.Context, limit int) ([]acquisitionDomain.SearchRecord, error)
}

// Server serves the read-only status API
type Server struct {
	port     string
	channels Channels
	feeds    Feeds
	quota    Quota
	searches Searches
	metrics  *metrics.Metrics
	logger   *slog.Logger
	server   *http.Server
}

// New creates a new HTTP server. searches may be nil.
func New(port string, channels Channels, feeds Feeds, quota Quota, searches Searches, m *metrics.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		port:     port,
		channels: channels,
		feeds:    feeds,
		quota:    quota,
		searches: searches,
		metrics:  m,
		logger:   logger,
	}
}

// Handler builds the routed handler with logging and recovery middleware
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /rss", s.handleRSSFeed)
	mux.HandleFunc("GET /channels", s.handleChannels)
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.HandleFunc("GET /quota", s.handleQuota)
	mux.HandleFunc("GET /searches", s.handleSearches)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.Gatherer(), promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /{$}", s.handleRoot)

	handler := sloghttp.Recovery(mux)
	return sloghttp.New(s.logger)(handler)
}

// Start listens until Shutdown is called
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%s", s.port)
	s.logger.Info("status server starting", "addr", addr)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleRSSFeed(w http.ResponseWriter, r *http.Request) {
	req := feedDomain.Request{
		Region:   r.URL.Query().Get("region"),
		Category: r.URL.Query().Get("category"),
		Limit:    queryInt(r, "limit", feedDomain.DefaultLimit),
		BaseURL:  fmt.Sprintf("%s://%s", getScheme(r), r.Host),
	}

	feed, err := s.feeds.GenerateFeed(r.Context(), req)
	if err != nil {
		s.logger.Error("Error generating feed", "error", err)
		http.Error(w, "Failed to generate feed", http.StatusInternalServerError)
		return
	}

	rss, err := feed.ToRss()
	if err != nil {
		s.logger.Error("Error converting feed to RSS", "error", err)
		http.Error(w, "Failed to generate RSS", http.StatusInternalServerError)
		return
	}
	s.metrics.IncFeedRequest()

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(rss))
}

func (s *Server) handleChannels(w http.ResponseWriter, r *http.Request) {
	filter := channelDomain.Filter{
		Region:   r.URL.Query().Get("region"),
		Category: r.URL.Query().Get("category"),
		Limit:    queryInt(r, "limit", 100),
	}
	records, err := s.channels.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("Error listing channels", "error", err)
		http.Error(w, "Failed to list channels", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, records)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.channels.Stats(r.Context())
	if err != nil {
		s.logger.Error("Error computing stats", "error", err)
		http.Error(w, "Failed to compute stats", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, stats)
}

func (s *Server) handleQuota(w http.ResponseWriter, r *http.Request) {
	if err := s.quota.Reload(); err != nil {
		s.logger.Warn("serving cached quota state", "error", err)
	}
	s.writeJSON(w, s.quota.Report())
}

func (s *Server) handleSearches(w http.ResponseWriter, r *http.Request) {
	if s.searches == nil {
		s.writeJSON(w, []acquisitionDomain.SearchRecord{})
		return
	}
	records, err := s.searches.Recent(r.Context(), queryInt(r, "limit", 50))
	if err != nil {
		s.logger.Error("Error listing searches", "error", err)
		http.Error(w, "Failed to list searches", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, records)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	html := `<!DOCTYPE html>
<html>
<head>
    <title>Streamer Census</title>
    <style>
        body { font-family: Arial, sans-serif; max-width: 800px; margin: 50px auto; padding: 20px; }
        h1 { color: #333; }
        .info { background: #f5f5f5; padding: 15px; border-radius: 5px; margin: 20px 0; }
        code { background: #e8e8e8; padding: 2px 6px; border-radius: 3px; }
    </style>
</head>
<body>
    <h1>Streamer Census</h1>
    <div class="info">
        <p>Canales de streamers argentinos detectados en YouTube.</p>
        <p>Feed: <code>/rss?region=cuyo&amp;category=Gaming</code></p>
        <p>JSON: <code>/channels</code>, <code>/stats</code>, <code>/quota</code>, <code>/searches</code></p>
    </div>
    <p><a href="/health">Health Check</a> · <a href="/metrics">Metrics</a></p>
</body>
</html>`
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(html))
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Error encoding response", "error", err)
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
