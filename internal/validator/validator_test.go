package validator_test

import (
	"errors"
	"testing"

	"rss_aggregator/internal/models"
	"rss_aggregator/internal/validator"

	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	feeds := []models.Feed{
		{ID: "1", URL: "https://ru.hexlet.io/lessons.rss"},
		{ID: "2", URL: "http://lorem-rss.herokuapp.com/feed"},
	}

	testCases := []struct {
		name      string
		candidate string
		kind      validator.Kind
	}{
		{name: "valid new url", candidate: "https://example.com/rss"},
		{name: "valid with query", candidate: "https://example.com/feed?format=rss&lang=ru"},
		{name: "not a url", candidate: "invalid-url", kind: validator.KindInvalidURL},
		{name: "empty", candidate: "", kind: validator.KindInvalidURL},
		{name: "no host", candidate: "https://", kind: validator.KindInvalidURL},
		{name: "unsupported scheme", candidate: "ftp://example.com/rss", kind: validator.KindInvalidURL},
		{name: "inner whitespace", candidate: "https://exa mple.com/rss", kind: validator.KindInvalidURL},
		{name: "duplicate", candidate: "https://ru.hexlet.io/lessons.rss", kind: validator.KindDuplicateURL},
		{name: "duplicate differs by slash", candidate: "https://ru.hexlet.io/lessons.rss/"},
		{name: "duplicate differs by case", candidate: "https://RU.hexlet.io/lessons.rss"},
		// пробелы не обрезаются: синтаксическая ошибка важнее совпадения
		{name: "duplicate with padding", candidate: " https://ru.hexlet.io/lessons.rss ", kind: validator.KindInvalidURL},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := validator.Validate(tc.candidate, feeds)
			if tc.kind == 0 {
				require.NoError(t, err)
				return
			}

			var verr *validator.ValidationError
			require.True(t, errors.As(err, &verr))
			require.Equal(t, tc.kind, verr.Kind)
		})
	}
}

func TestValidate_NoFeeds(t *testing.T) {
	require.NoError(t, validator.Validate("https://example.com/rss", nil))
}

func TestValidationError_MessageKey(t *testing.T) {
	invalid := &validator.ValidationError{Kind: validator.KindInvalidURL}
	duplicate := &validator.ValidationError{Kind: validator.KindDuplicateURL}

	require.Equal(t, "form.messages.errors.validation.url", invalid.MessageKey())
	require.Equal(t, "form.messages.errors.validation.uniqueness", duplicate.MessageKey())
}
