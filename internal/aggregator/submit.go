package aggregator

import (
	"context"
	"errors"

	"rss_aggregator/internal/models"
	"rss_aggregator/internal/parser"
	"rss_aggregator/internal/validator"
)

// Input сохраняет значение поля ввода формы.
func (a *Aggregator) Input(value string) {
	a.store.SetRawInput(value)
}

// Submit добавляет ленту по адресу raw. Значение проверяется как есть, без обрезки пробелов.
// При ошибке форма переходит в состояние failed с ключом сообщения, а ленты и публикации не меняются.
// Первая успешно добавленная лента запускает фоновый опрос.
func (a *Aggregator) Submit(ctx context.Context, raw string) (*models.Feed, error) {
	a.submitMu.Lock()
	defer a.submitMu.Unlock()

	url := raw
	log := a.log.WithField("url", url)

	a.store.SetFormState(models.FormProcessing)

	if err := validator.Validate(url, a.store.Feeds()); err != nil {
		log.Infof("Rejected feed: %v", err)
		return nil, a.fail(err)
	}
	a.store.SetFormValid(true)
	a.store.SetFormError("")

	channel, err := a.loader.Load(ctx, url)
	if err == nil && channel == nil {
		err = &parser.ParseError{Reason: "empty channel"}
	}
	if err != nil {
		log.Warnf("Failed to add feed: %v", err)
		return nil, a.fail(err)
	}

	feed := models.Feed{
		ID:          a.ids.NextID(),
		URL:         url,
		Title:       channel.Title,
		Description: channel.Description,
	}
	posts := make([]models.Post, 0, len(channel.Items))
	for _, item := range channel.Items {
		posts = append(posts, a.newPost(feed.ID, item))
	}

	a.store.AddFeed(feed, posts)
	a.store.SetFormData("")
	a.store.SetFormState(models.FormProcessed)

	if a.metrics != nil {
		a.metrics.Submissions.WithLabelValues("ok").Inc()
	}
	log.WithField("items_count", len(posts)).Info("Feed added")

	a.Arm()
	return &feed, nil
}

func (a *Aggregator) fail(err error) error {
	var verr *validator.ValidationError
	isValidation := errors.As(err, &verr)

	a.store.SetFormValid(!isValidation)
	a.store.SetFormError(MessageKey(err))
	a.store.SetFormState(models.FormFailed)

	if a.metrics != nil {
		result := string(Classify(err))
		if isValidation {
			result = verr.Kind.String()
		}
		a.metrics.Submissions.WithLabelValues(result).Inc()
	}
	return err
}
