package server

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/TobiSchelling/storyatlas/internal/database"
	"github.com/TobiSchelling/storyatlas/internal/jordi"
	"github.com/TobiSchelling/storyatlas/internal/llm"
	"github.com/TobiSchelling/storyatlas/internal/search"
)

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func httpError(w http.ResponseWriter, code int, msg string, format string, args ...any) {
	writeJSON(w, code, errorResponse{Error: msg, Details: fmt.Sprintf(format, args...)})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{"Title": "Human Story Atlas", "Content": s.index}
	if stats, err := s.db.GetStats(r.Context()); err == nil {
		data["Stories"] = stats.Stories
		data["Sources"] = stats.Sources
		if stats.DateRange.StartDate != nil && stats.DateRange.EndDate != nil {
			data["DateRange"] = *stats.DateRange.StartDate + " to " + *stats.DateRange.EndDate
		}
	} else {
		log.Printf("Error reading stats for index: %v", err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.page.Execute(w, data); err != nil {
		log.Printf("Error rendering index: %v", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStories(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	start, err := database.ParseOptionalDate(q.Get("startDate"))
	if err != nil {
		httpError(w, http.StatusBadRequest, "Invalid date format", "startDate: %v", err)
		return
	}
	end, err := database.ParseOptionalDate(q.Get("endDate"))
	if err != nil {
		httpError(w, http.StatusBadRequest, "Invalid date format", "endDate: %v", err)
		return
	}
	// Non-numeric limits fall back to the default.
	limit, _ := strconv.Atoi(q.Get("limit"))
	debug, _ := strconv.ParseBool(q.Get("debug"))

	res := s.search.Search(r.Context(), search.Request{
		Query:       strings.TrimSpace(q.Get("query")),
		Publication: q.Get("publication"),
		StartDate:   start,
		EndDate:     end,
		Limit:       limit,
		Debug:       debug,
	})
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDiscoverySummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	source, from, to := q.Get("source"), q.Get("from"), q.Get("to")
	if source == "" || from == "" || to == "" {
		httpError(w, http.StatusBadRequest, "Missing required parameters", "Please provide source, from, and to parameters")
		return
	}
	fromDate, err := database.ParseDate(from)
	if err != nil {
		httpError(w, http.StatusBadRequest, "Invalid date format", "Please provide dates in YYYY-MM-DD format")
		return
	}
	toDate, err := database.ParseDate(to)
	if err != nil {
		httpError(w, http.StatusBadRequest, "Invalid date format", "Please provide dates in YYYY-MM-DD format")
		return
	}

	key := "discovery|" + source + "|" + database.FormatDate(fromDate) + "|" + database.FormatDate(toDate)
	if cached, ok := s.cache.Get(key); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	summary, err := s.summarizer.Summarize(r.Context(), source, fromDate, toDate)
	if err != nil {
		log.Printf("Error generating discovery summary: %v", err)
		httpError(w, http.StatusInternalServerError, "Internal server error", "Failed to generate discovery summary")
		return
	}
	s.cache.SetDefault(key, summary)
	writeJSON(w, http.StatusOK, summary)
}

type jordiRequest struct {
	Publication string        `json:"publication"`
	StartDate   string        `json:"startDate"`
	EndDate     string        `json:"endDate"`
	Messages    []llm.Message `json:"messages"`
}

func (s *Server) handleJordi(w http.ResponseWriter, r *http.Request) {
	var body jordiRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpError(w, http.StatusBadRequest, "Invalid request body", "%v", err)
		return
	}
	start, err := database.ParseOptionalDate(body.StartDate)
	if err != nil {
		httpError(w, http.StatusBadRequest, "Invalid date format", "startDate: %v", err)
		return
	}
	end, err := database.ParseOptionalDate(body.EndDate)
	if err != nil {
		httpError(w, http.StatusBadRequest, "Invalid date format", "endDate: %v", err)
		return
	}

	req := jordi.Request{
		Publication: body.Publication,
		StartDate:   start,
		EndDate:     end,
		Messages:    body.Messages,
	}
	writeJSON(w, http.StatusOK, s.pitches.Converse(r.Context(), req))
}

func (s *Server) handlePublications(w http.ResponseWriter, r *http.Request) {
	const key = "publications"
	if cached, ok := s.cache.Get(key); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	pubs, err := s.db.Publications(r.Context())
	if err != nil {
		log.Printf("Error fetching publications: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to fetch publications"})
		return
	}
	resp := map[string][]string{"publications": pubs}
	s.cache.SetDefault(key, resp)
	writeJSON(w, http.StatusOK, resp)
}

type timerangeResponse struct {
	StartDate *string `json:"startDate"`
	EndDate   *string `json:"endDate"`
	Message   string  `json:"message,omitempty"`
}

func (s *Server) handlePublicationTimerange(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	if source == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Missing source parameter"})
		return
	}

	key := "timerange|" + source
	if cached, ok := s.cache.Get(key); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	dr, err := s.db.PublicationTimerange(r.Context(), source)
	if err != nil {
		log.Printf("Error fetching publication timerange: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to fetch date range"})
		return
	}
	resp := timerangeResponse{StartDate: dr.StartDate, EndDate: dr.EndDate}
	if dr.StartDate == nil || dr.EndDate == nil {
		resp.Message = "No data available for this publication"
	}
	s.cache.SetDefault(key, resp)
	writeJSON(w, http.StatusOK, resp)
}

type statusStats struct {
	Stories             int                `json:"stories"`
	Arcs                int                `json:"arcs"`
	Sources             int                `json:"sources"`
	TimePeriods         int                `json:"timePeriods"`
	Entities            int                `json:"entities"`
	DateRange           database.DateRange `json:"dateRange"`
	LastIngestTimestamp *string            `json:"lastIngestTimestamp"`
	LastUpdated         *string            `json:"lastUpdated"`
}

type statusResponse struct {
	Status        string      `json:"status"`
	UsingRealData bool        `json:"usingRealData"`
	Error         string      `json:"error,omitempty"`
	Stats         statusStats `json:"stats"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.GetStats(r.Context())
	if err != nil {
		log.Printf("Database status check failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, statusResponse{
			Status: "error",
			Error:  "Failed to connect to database",
		})
		return
	}

	now := time.Now().UTC().Format(time.RFC3339)
	resp := statusResponse{
		Status:        "connected",
		UsingRealData: stats.Stories > 0,
		Stats: statusStats{
			Stories:     stats.Stories,
			Arcs:        stats.Arcs,
			Sources:     stats.Sources,
			TimePeriods: stats.TimePeriods,
			// Rough estimate of two to three entities per story.
			Entities:    int(math.Floor(float64(stats.Stories) * 2.5)),
			DateRange:   stats.DateRange,
			LastUpdated: &now,
		},
	}
	if stats.LastIngestTimestamp != nil {
		ts := stats.LastIngestTimestamp.UTC().Format(time.RFC3339)
		resp.Stats.LastIngestTimestamp = &ts
	}
	writeJSON(w, http.StatusOK, resp)
}
