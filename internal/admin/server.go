package admin

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"combat-mc/internal/logging"
	"combat-mc/internal/montecarlo"
	"combat-mc/internal/results"
	"combat-mc/internal/store"
)

// Archive stores finished batches.
type Archive interface {
	SaveBatch(ctx context.Context, b store.Batch, results []montecarlo.TrialResult) error
	ListBatches(ctx context.Context) ([]store.Batch, error)
}

// Server exposes batch control over HTTP.
type Server struct {
	Controller *montecarlo.Controller
	// Base is copied for every started batch; runs and seed may be overridden per request.
	Base montecarlo.BatchConfig
	// Sink, when set, receives every trial of batches started here.
	Sink results.TrialWriter
	// Archive, when set, stores each completed batch.
	Archive  Archive
	Gatherer prometheus.Gatherer

	ctx context.Context
	tpl *template.Template

	mu      sync.Mutex
	lastJob *montecarlo.Job
	lastErr error
}

//go:embed templates/index.html
var content embed.FS

var funcs = template.FuncMap{"mul100": func(v float64) float64 { return v * 100 }}

// NewServer returns a server whose batches run under ctx, which also carries the logger.
func NewServer(ctx context.Context, c *montecarlo.Controller, base montecarlo.BatchConfig, g prometheus.Gatherer) *Server {
	tpl := template.Must(template.New("index.html").Funcs(funcs).ParseFS(content, "templates/index.html"))
	return &Server{Controller: c, Base: base, Gatherer: g, ctx: ctx, tpl: tpl}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/start", s.handleStart)
	mux.HandleFunc("/cancel", s.handleCancel)
	mux.HandleFunc("/results", s.handleResults)
	mux.HandleFunc("/summary", s.handleSummary)
	mux.HandleFunc("/batches", s.handleBatches)
	if s.Gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

// Status is the JSON body of /status.
type Status struct {
	Running   bool   `json:"running"`
	Scenario  string `json:"scenario"`
	BatchID   string `json:"batchId,omitempty"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
	Results   int    `json:"results"`
	LastError string `json:"lastError,omitempty"`
}

func (s *Server) status() Status {
	st := Status{Running: s.Controller.IsRunning(), Results: len(s.Controller.Results())}
	if s.Base.Scenario != nil {
		st.Scenario = s.Base.Scenario.Name
	}
	s.mu.Lock()
	job, lastErr := s.lastJob, s.lastErr
	s.mu.Unlock()
	if job != nil {
		st.BatchID = job.ID()
		st.Completed, st.Total = job.Progress()
	}
	if lastErr != nil {
		st.LastError = lastErr.Error()
	}
	return st
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	st := s.status()
	pct := 0
	if st.Total > 0 {
		pct = 100 * st.Completed / st.Total
	}
	data := struct {
		Status
		Percent int
		Summary *montecarlo.Summary
	}{Status: st, Percent: pct}
	if res := s.Controller.Results(); len(res) > 0 {
		sum := montecarlo.Analyze(res, s.Base.MaxSimTime, s.Base.StepSize)
		data.Summary = &sum
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tpl.Execute(w, data); err != nil {
		logging.FromContext(s.ctx).Error("render index", "error", err)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	cfg := s.Base
	if v := r.FormValue("runs"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "runs must be a positive integer", http.StatusBadRequest)
			return
		}
		cfg.NumRuns = n
	}
	if v := r.FormValue("seed"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			http.Error(w, "seed must be an integer", http.StatusBadRequest)
			return
		}
		cfg.BaseSeed = seed
	}
	if s.Sink != nil {
		results.Attach(s.ctx, &cfg, s.Sink)
	}
	started := time.Now()

	job := s.Controller.Start(s.ctx, cfg)
	select {
	case <-job.Done():
		if _, err := job.Wait(r.Context()); errors.Is(err, montecarlo.ErrBatchRunning) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
	default:
	}

	s.mu.Lock()
	s.lastJob, s.lastErr = job, nil
	s.mu.Unlock()
	go s.track(job, cfg, started)

	_, total := job.Progress()
	writeJSON(w, http.StatusAccepted, map[string]any{"batchId": job.ID(), "runs": total})
}

// track records the outcome of job and archives it when it completed.
func (s *Server) track(job *montecarlo.Job, cfg montecarlo.BatchConfig, started time.Time) {
	logger := logging.FromContext(s.ctx).With("batch", job.ID())
	res, err := job.Wait(context.Background())
	s.mu.Lock()
	if s.lastJob == job {
		s.lastErr = err
	}
	s.mu.Unlock()
	if err != nil {
		logger.Info("batch ended", "error", err)
		return
	}
	if s.Archive == nil {
		return
	}
	b := store.Batch{
		ID:         job.ID(),
		NumRuns:    len(res),
		BaseSeed:   cfg.BaseSeed,
		MaxSimTime: cfg.MaxSimTime,
		StepSize:   cfg.StepSize,
		StartedAt:  started,
		FinishedAt: time.Now(),
		Status:     store.StatusCompleted,
	}
	if cfg.Scenario != nil {
		b.Scenario = cfg.Scenario.Name
	}
	if err := s.Archive.SaveBatch(s.ctx, b, res); err != nil {
		logger.Error("archive batch", "error", err)
	}
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	running := s.Controller.IsRunning()
	s.Controller.Cancel()
	writeJSON(w, http.StatusOK, map[string]any{"cancelRequested": running})
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	cfg := results.DocumentConfig{NumRuns: s.Base.NumRuns, BaseSeed: s.Base.BaseSeed, MaxSimTime: s.Base.MaxSimTime, StepSize: s.Base.StepSize}
	if s.Base.Scenario != nil {
		cfg.Scenario = s.Base.Scenario.Name
	}
	res := s.Controller.Results()
	if len(res) > 0 {
		cfg.NumRuns = len(res)
		cfg.BaseSeed = res[0].Seed
	}
	writeJSON(w, http.StatusOK, results.NewDocument(cfg, res))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, montecarlo.Analyze(s.Controller.Results(), s.Base.MaxSimTime, s.Base.StepSize))
}

func (s *Server) handleBatches(w http.ResponseWriter, r *http.Request) {
	if s.Archive == nil {
		http.Error(w, "no archive configured", http.StatusNotFound)
		return
	}
	list, err := s.Archive.ListBatches(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []store.Batch{}
	}
	writeJSON(w, http.StatusOK, list)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
