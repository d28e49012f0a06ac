// Package view отображает изменения состояния: переводит сообщения формы
// и рассылает события подключённым клиентам.
package view

import (
	"rss_aggregator/internal/aggregator"
	"rss_aggregator/internal/i18n"
	"rss_aggregator/internal/logger"
	"rss_aggregator/internal/models"
	"rss_aggregator/internal/notify"
)

// Event - одно изменение, готовое к отображению.
type Event struct {
	Path    notify.Path `json:"path"`
	Value   any         `json:"value"`
	Message string      `json:"message,omitempty"`
}

// Sink получает события отображения.
type Sink interface {
	Send(Event)
}

// Renderer превращает изменения состояния в события для sinks.
type Renderer struct {
	tr    *i18n.Translator
	sinks []Sink
}

func NewRenderer(tr *i18n.Translator, sinks ...Sink) *Renderer {
	if tr == nil {
		tr = i18n.New(i18n.DefaultLanguage)
	}
	return &Renderer{tr: tr, sinks: sinks}
}

// Register подписывает рендерер на все пути d.
func (r *Renderer) Register(d *notify.Dispatcher) {
	for _, path := range notify.Paths {
		d.On(path, func(value any) {
			r.Render(notify.Change{Path: path, Value: value})
		})
	}
}

// Render строит событие для изменения и отправляет его всем sinks.
func (r *Renderer) Render(c notify.Change) {
	event := Event{Path: c.Path, Value: c.Value}

	switch c.Path {
	case notify.FormState:
		if state, _ := c.Value.(models.FormState); state == models.FormProcessed {
			event.Message = r.tr.T(aggregator.KeySuccess)
		}
	case notify.FormError:
		if key, _ := c.Value.(string); key != "" {
			event.Message = r.tr.T(key)
		}
	}

	for _, s := range r.sinks {
		s.Send(event)
	}
}

// LogSink пишет события в лог.
type LogSink struct {
	log *logger.Entry
}

func NewLogSink() *LogSink {
	return &LogSink{log: logger.Component("view")}
}

func (s *LogSink) Send(e Event) {
	log := s.log.WithField("path", e.Path.String())
	if e.Message != "" {
		log.Info(e.Message)
		return
	}
	log.Debug("State changed")
}
