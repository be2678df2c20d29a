package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"

	"cloud.google.com/go/civil"
	"github.com/pbaille/nutriai/internal/domain"
	"github.com/pbaille/nutriai/internal/foodlog"
	"github.com/pbaille/nutriai/internal/report"
	"go.uber.org/zap"
)

// Server handles HTTP requests for the food log API
type Server struct {
	mu      sync.Mutex
	log     *foodlog.FoodLog
	clock   foodlog.Clock
	targets domain.Targets
	addr    string
	logger  *zap.Logger
}

// New creates a new API server. Requests are serialized on a single mutex
// since FoodLog is not safe for concurrent use.
func New(l *foodlog.FoodLog, clock foodlog.Clock, targets domain.Targets, addr string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		log:     l,
		clock:   clock,
		targets: targets,
		addr:    addr,
		logger:  logger,
	}
}

// Handler returns the routed HTTP handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Today
	mux.HandleFunc("GET /log", s.getLog)
	mux.HandleFunc("POST /entries", s.addEntry)
	mux.HandleFunc("GET /total", s.getTotal)
	mux.HandleFunc("GET /export", s.export)

	// History
	mux.HandleFunc("POST /archive", s.archive)
	mux.HandleFunc("GET /history", s.listHistory)
	mux.HandleFunc("GET /history/{day}", s.getDay)

	// Health check
	mux.HandleFunc("GET /health", s.health)

	return withCORS(mux)
}

// Run starts the HTTP server
func (s *Server) Run() error {
	s.logger.Info("Starting server", zap.String("addr", s.addr))
	return http.ListenAndServe(s.addr, s.Handler())
}

// withCORS adds CORS headers for frontend development
func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		h.ServeHTTP(w, r)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// LogResponse is the open day with its totals
type LogResponse struct {
	Daily   []domain.FoodEntry `json:"daily"`
	Totals  domain.Totals      `json:"totals"`
	Targets domain.Targets     `json:"targets"`
}

func (s *Server) getLog(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := LogResponse{
		Daily:   s.log.Daily(),
		Totals:  s.log.Total(),
		Targets: s.targets,
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

// AddEntryRequest is the request body for adding an entry
type AddEntryRequest struct {
	Name     string   `json:"name"`
	Grams    *float64 `json:"grams,omitempty"`
	Calories int      `json:"calories"`
	Protein  int      `json:"protein"`
	Fat      int      `json:"fat"`
	Carb     int      `json:"carb"`
}

// DefaultGrams is the portion size used when a request omits grams
const DefaultGrams = 100

func (s *Server) addEntry(w http.ResponseWriter, r *http.Request) {
	var req AddEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	grams := float64(DefaultGrams)
	if req.Grams != nil {
		grams = *req.Grams
	}
	if grams <= 0 {
		writeError(w, http.StatusBadRequest, "grams must be positive")
		return
	}
	if req.Calories < 0 || req.Protein < 0 || req.Fat < 0 || req.Carb < 0 {
		writeError(w, http.StatusBadRequest, "calories and macros must not be negative")
		return
	}

	entry := domain.NewFoodEntry(req.Name, grams, req.Calories, req.Protein, req.Fat, req.Carb)

	s.mu.Lock()
	s.log.Add(entry)
	err := s.log.Persist()
	s.mu.Unlock()

	if err != nil {
		// The entry stays in memory; the next successful write includes it.
		s.logger.Warn("Entry added but not persisted", zap.String("id", entry.ID), zap.Error(err))
	}

	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) getTotal(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	total := s.log.Total()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, total)
}

func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	text := report.ExportText(s.log.Daily(), s.targets)
	s.mu.Unlock()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, text)
}

// ArchiveRequest optionally names the day to archive under
type ArchiveRequest struct {
	Day string `json:"day,omitempty"`
}

// ArchiveResponse reports what was archived
type ArchiveResponse struct {
	Day       civil.Date    `json:"day"`
	Entries   int           `json:"entries"`
	Totals    domain.Totals `json:"totals"`
	Persisted bool          `json:"persisted"`
}

func (s *Server) archive(w http.ResponseWriter, r *http.Request) {
	var req ArchiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	day := s.clock.Today()
	if req.Day != "" {
		d, err := civil.ParseDate(req.Day)
		if err != nil {
			writeError(w, http.StatusBadRequest, "day must be YYYY-MM-DD")
			return
		}
		day = d
	}

	s.mu.Lock()
	daily := s.log.Daily()
	err := s.log.ArchiveDay(day)
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("Day archived but not persisted", zap.String("day", day.String()), zap.Error(err))
	}

	writeJSON(w, http.StatusOK, ArchiveResponse{
		Day:       day,
		Entries:   len(daily),
		Totals:    domain.Sum(daily),
		Persisted: err == nil,
	})
}

// DaySummary describes one archived day
type DaySummary struct {
	Day     civil.Date    `json:"day"`
	Entries int           `json:"entries"`
	Totals  domain.Totals `json:"totals"`
}

func (s *Server) listHistory(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	days := s.log.Days()
	summaries := make([]DaySummary, 0, len(days))
	for _, day := range days {
		entries, _ := s.log.Archived(day)
		summaries = append(summaries, DaySummary{
			Day:     day,
			Entries: len(entries),
			Totals:  domain.Sum(entries),
		})
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"days": summaries,
	})
}

func (s *Server) getDay(w http.ResponseWriter, r *http.Request) {
	day, err := civil.ParseDate(r.PathValue("day"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "day must be YYYY-MM-DD")
		return
	}

	s.mu.Lock()
	entries, ok := s.log.Archived(day)
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "day not archived")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"day":     day,
		"entries": entries,
		"totals":  domain.Sum(entries),
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
