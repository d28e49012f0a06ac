package aggregator

import (
	"context"
	"errors"

	"rss_aggregator/internal/fetcher"
	"rss_aggregator/internal/parser"
	"rss_aggregator/internal/validator"
)

// Ключи сообщений, которые показывает форма.
const (
	KeySuccess = "form.messages.success"
	KeyNetwork = "form.messages.errors.network"
	KeyRSS     = "form.messages.errors.rss"
	KeyUnknown = "form.messages.errors.unknown"
)

// Kind - категория ошибки загрузки ленты.
type Kind string

const (
	KindValidation Kind = "validation"
	KindTransport  Kind = "transport"
	KindParse      Kind = "parse"
	KindUnknown    Kind = "unknown"
)

// Classify определяет категорию ошибки.
func Classify(err error) Kind {
	var (
		verr *validator.ValidationError
		terr *fetcher.TransportError
		perr *parser.ParseError
	)
	switch {
	case errors.As(err, &verr):
		return KindValidation
	case errors.As(err, &terr),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return KindTransport
	case errors.As(err, &perr):
		return KindParse
	default:
		return KindUnknown
	}
}

// MessageKey возвращает ключ перевода для ошибки err.
func MessageKey(err error) string {
	switch Classify(err) {
	case KindValidation:
		var verr *validator.ValidationError
		errors.As(err, &verr)
		return verr.MessageKey()
	case KindTransport:
		return KeyNetwork
	case KindParse:
		return KeyRSS
	default:
		return KeyUnknown
	}
}
