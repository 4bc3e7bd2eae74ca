// Package api exposes the analysis engine over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rotorlab/tune-engine/internal/cache"
	"github.com/rotorlab/tune-engine/internal/engine"
	"github.com/rotorlab/tune-engine/internal/export"
	"github.com/rotorlab/tune-engine/internal/idgen"
	"github.com/rotorlab/tune-engine/internal/logsource"
	"github.com/rotorlab/tune-engine/internal/metrics"
	"github.com/rotorlab/tune-engine/internal/models"
	"github.com/rotorlab/tune-engine/internal/profile"
	"github.com/rotorlab/tune-engine/internal/rules"
	"github.com/rotorlab/tune-engine/internal/settings"
	"github.com/rotorlab/tune-engine/internal/utils"
)

const defaultMaxBodyBytes = 256 << 20

// Handler serves the analysis endpoints.
type Handler struct {
	logger       *slog.Logger
	ids          idgen.Generator
	profiles     map[string]*profile.QuadProfile
	defaultLevel rules.Level
	results      *cache.ResultCache
	latency      *utils.LatencyTracker
	maxBodyBytes int64
}

// NewHandler wires the analysis pipeline behind HTTP handlers. results may be
// nil to disable caching.
func NewHandler(logger *slog.Logger, ids idgen.Generator, profiles map[string]*profile.QuadProfile, defaultLevel rules.Level, results *cache.ResultCache, maxBodyBytes int64) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if ids == nil {
		ids = idgen.UUID()
	}
	if profiles == nil {
		profiles = profile.Builtin()
	}
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}
	return &Handler{
		logger:       logger,
		ids:          ids,
		profiles:     profiles,
		defaultLevel: defaultLevel,
		results:      results,
		latency:      utils.NewLatencyTracker(1024),
		maxBodyBytes: maxBodyBytes,
	}
}

// Routes builds the HTTP router.
func (h *Handler) Routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/v1/analyze", h.handleAnalyze).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/profiles", h.handleProfiles).Methods(http.MethodGet)
	r.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	return r
}

type analyzeResponse struct {
	Profile  string                `json:"profile"`
	Level    string                `json:"level"`
	Result   models.AnalysisResult `json:"result"`
	Commands []string              `json:"commands,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	level, err := parseLevel(r.URL.Query().Get("level"), h.defaultLevel)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	profileName := r.URL.Query().Get("profile")
	if profileName == "" {
		profileName = "default"
	}
	prof, ok := h.profiles[profileName]
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown profile %q", profileName))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	dump, err := logsource.Decode(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var key string
	if h.results != nil {
		key = h.results.Key(dump.Frames, dump.Metadata, profileName, string(level))
		if cached, err := h.results.Get(r.Context(), key); err == nil {
			metrics.ObserveAnalysis(time.Since(start), metrics.OutcomeCached)
			w.Header().Set("X-Cache", "hit")
			writeJSON(w, http.StatusOK, h.respond(cached, profileName, level))
			return
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			h.logger.Warn("result cache lookup failed", "error", err)
		}
	}

	eng := engine.New(h.logger, h.ids, level)
	result := eng.AnalyzeLog(dump.Frames, dump.Metadata, prof)
	settings.Annotate(result.Recommendations, dump.Metadata)

	if h.results != nil {
		if err := h.results.Put(r.Context(), key, result); err != nil {
			h.logger.Warn("result cache store failed", "error", err)
		}
	}

	elapsed := time.Since(start)
	h.latency.Observe(elapsed)
	metrics.ObserveAnalysis(elapsed, metrics.OutcomeSuccess)
	metrics.ObserveResult(result)

	w.Header().Set("X-Cache", "miss")
	writeJSON(w, http.StatusOK, h.respond(result, profileName, level))
}

func (h *Handler) respond(result models.AnalysisResult, profileName string, level rules.Level) analyzeResponse {
	var changes []models.ParameterChange
	for _, rec := range result.Recommendations {
		changes = append(changes, rec.Changes...)
	}
	return analyzeResponse{
		Profile:  profileName,
		Level:    string(level),
		Result:   result,
		Commands: export.RenderCommands(changes),
	}
}

type profileInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (h *Handler) handleProfiles(w http.ResponseWriter, _ *http.Request) {
	infos := make([]profileInfo, 0, len(h.profiles))
	for name, p := range h.profiles {
		infos = append(infos, profileInfo{Name: name, Description: p.Description})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	writeJSON(w, http.StatusOK, map[string][]profileInfo{"profiles": infos})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"analyses":   h.latency.Count(),
		"latencyP50": h.latency.Percentile(50).String(),
		"latencyP95": h.latency.Percentile(95).String(),
	})
}

func parseLevel(s string, def rules.Level) (rules.Level, error) {
	switch rules.Level(s) {
	case "":
		return def, nil
	case rules.LevelQuick, rules.LevelStandard, rules.LevelDeep:
		return rules.Level(s), nil
	default:
		return "", fmt.Errorf("unknown analysis level %q", s)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
