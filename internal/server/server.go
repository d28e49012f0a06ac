package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"rss_aggregator/internal/aggregator"
	"rss_aggregator/internal/i18n"
	"rss_aggregator/internal/logger"
	"rss_aggregator/internal/models"
	"rss_aggregator/internal/store"

	"github.com/samber/lo"
)

// Pinger проверяет доступность внешней зависимости, например БД.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server хранит зависимости HTTP-обработчиков.
type Server struct {
	agg     *aggregator.Aggregator
	store   *store.Store
	tr      *i18n.Translator
	ws      http.Handler
	metrics http.Handler
	db      Pinger
	log     *logger.Entry
}

type Option func(*Server)

// WithWebsocket подключает обработчик /ws.
func WithWebsocket(h http.Handler) Option {
	return func(s *Server) { s.ws = h }
}

// WithMetrics подключает обработчик /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithHealthCheck добавляет проверку p в /health.
func WithHealthCheck(p Pinger) Option {
	return func(s *Server) { s.db = p }
}

// NewServer создаёт новый экземпляр Server.
func NewServer(agg *aggregator.Aggregator, st *store.Store, tr *i18n.Translator, opts ...Option) *Server {
	if tr == nil {
		tr = i18n.New(i18n.DefaultLanguage)
	}
	s := &Server{agg: agg, store: st, tr: tr, log: logger.Component("http")}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler возвращает маршруты API, обёрнутые в middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/feeds", s.SubmitFeed)
	mux.HandleFunc("GET /api/feeds", s.GetFeeds)
	mux.HandleFunc("GET /api/posts", s.GetPosts)
	mux.HandleFunc("POST /api/posts/{id}/read", s.MarkRead)
	mux.HandleFunc("POST /api/posts/{id}/open", s.OpenPost)
	mux.HandleFunc("GET /api/form", s.GetForm)
	mux.HandleFunc("PUT /api/form", s.UpdateForm)
	mux.HandleFunc("GET /health", s.HealthCheck)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	if s.ws != nil {
		mux.Handle("GET /ws", s.ws)
	}
	return RequestIDMiddleware(LoggingMiddleware(mux))
}

type urlRequest struct {
	URL string `json:"url"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type formResponse struct {
	models.Form
	Message string `json:"message,omitempty"`
}

type postResponse struct {
	models.Post
	Read bool `json:"read"`
}

// HealthCheck отвечает 200 OK, если зависимости доступны, иначе 503.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			http.Error(w, "DB unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.Write([]byte("OK"))
}

// SubmitFeed добавляет ленту по URL из тела запроса {"url": "..."}.
func (s *Server) SubmitFeed(w http.ResponseWriter, r *http.Request) {
	var req urlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_request", Message: "invalid request body"})
		return
	}

	feed, err := s.agg.Submit(r.Context(), req.URL)
	if err != nil {
		key := aggregator.MessageKey(err)
		writeJSON(w, submitStatus(err), errorResponse{Error: key, Message: s.tr.T(key)})
		return
	}
	writeJSON(w, http.StatusCreated, feed)
}

func submitStatus(err error) int {
	switch aggregator.Classify(err) {
	case aggregator.KindValidation, aggregator.KindParse:
		return http.StatusUnprocessableEntity
	case aggregator.KindTransport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// UpdateForm сохраняет введённое значение поля формы.
func (s *Server) UpdateForm(w http.ResponseWriter, r *http.Request) {
	var req urlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_request", Message: "invalid request body"})
		return
	}
	s.agg.Input(req.URL)
	s.GetForm(w, r)
}

// GetForm возвращает состояние формы и переведённое сообщение.
func (s *Server) GetForm(w http.ResponseWriter, r *http.Request) {
	form := s.store.Form()
	resp := formResponse{Form: form}
	switch {
	case form.Error != nil:
		resp.Message = s.tr.T(*form.Error)
	case form.State == models.FormProcessed:
		resp.Message = s.tr.T(aggregator.KeySuccess)
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetFeeds возвращает ленты, новые первыми.
func (s *Server) GetFeeds(w http.ResponseWriter, r *http.Request) {
	feeds := s.store.Feeds()
	if feeds == nil {
		feeds = []models.Feed{}
	}
	writeJSON(w, http.StatusOK, feeds)
}

// GetPosts возвращает публикации с признаком прочтения. Параметр feedId фильтрует по ленте.
func (s *Server) GetPosts(w http.ResponseWriter, r *http.Request) {
	posts := s.store.Posts()
	if feedID := r.URL.Query().Get("feedId"); feedID != "" {
		posts = lo.Filter(posts, func(p models.Post, _ int) bool { return p.FeedID == feedID })
	}
	writeJSON(w, http.StatusOK, lo.Map(posts, func(p models.Post, _ int) postResponse {
		return postResponse{Post: p, Read: s.store.IsRead(p.ID)}
	}))
}

// MarkRead отмечает публикацию прочитанной.
func (s *Server) MarkRead(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.store.Post(id); !ok {
		http.Error(w, store.ErrPostNotFound.Error(), http.StatusNotFound)
		return
	}
	s.store.MarkRead(id)
	w.WriteHeader(http.StatusNoContent)
}

// OpenPost открывает публикацию в окне просмотра и возвращает её.
func (s *Server) OpenPost(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.OpenPost(id); err != nil {
		if errors.Is(err, store.ErrPostNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	post, _ := s.store.Post(id)
	writeJSON(w, http.StatusOK, postResponse{Post: post, Read: true})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Errorf("Failed to encode response: %v", err)
	}
}
