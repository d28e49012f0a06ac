// Package validator проверяет URL, введённый в форму добавления ленты.
package validator

import (
	"net/url"
	"strings"

	"rss_aggregator/internal/models"
)

// Kind - категория ошибки валидации.
type Kind int

const (
	KindInvalidURL Kind = iota + 1
	KindDuplicateURL
)

func (k Kind) String() string {
	switch k {
	case KindInvalidURL:
		return "url"
	case KindDuplicateURL:
		return "uniqueness"
	default:
		return "unknown"
	}
}

// ValidationError возвращается, если URL нельзя добавить в список лент.
type ValidationError struct {
	Kind Kind
	URL  string
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case KindInvalidURL:
		return "invalid url: " + e.URL
	case KindDuplicateURL:
		return "feed already exists: " + e.URL
	default:
		return "validation failed: " + e.URL
	}
}

// MessageKey возвращает ключ перевода для ошибки.
func (e *ValidationError) MessageKey() string {
	return "form.messages.errors.validation." + e.Kind.String()
}

// Validate проверяет, что candidate является абсолютным URL и не совпадает
// побайтово с URL ни одной из feeds. Синтаксис проверяется раньше уникальности.
func Validate(candidate string, feeds []models.Feed) error {
	if !IsURL(candidate) {
		return &ValidationError{Kind: KindInvalidURL, URL: candidate}
	}
	for _, feed := range feeds {
		if feed.URL == candidate {
			return &ValidationError{Kind: KindDuplicateURL, URL: candidate}
		}
	}
	return nil
}

// IsURL сообщает, является ли s абсолютным http(s) URL с хостом.
func IsURL(s string) bool {
	if s == "" || strings.ContainsAny(s, " \t\r\n") {
		return false
	}
	u, err := url.ParseRequestURI(s)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Hostname() != ""
}
