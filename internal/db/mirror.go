package db

import (
	"context"
	"sync"
	"time"

	"rss_aggregator/internal/logger"
	"rss_aggregator/internal/models"
	"rss_aggregator/internal/notify"

	"github.com/samber/lo"
)

// Archive - хранилище, в которое зеркалируется состояние. Реализуется Database.
type Archive interface {
	SaveFeed(ctx context.Context, feed models.Feed) error
	SavePost(ctx context.Context, post models.Post) error
	MarkRead(ctx context.Context, postID string) error
}

const (
	writeTimeout = 5 * time.Second
	queueSize    = 256
)

// Mirror записывает в архив ленты, публикации и отметки о прочтении,
// которых там ещё нет. Запись идёт в отдельной горутине, ошибки только логируются:
// архив не влияет на состояние и не задерживает его изменения.
type Mirror struct {
	archive Archive
	log     *logger.Entry
	queue   *notify.Queue

	mu    sync.Mutex
	saved map[string]struct{}
}

// NewMirror запускает фоновую запись в archive. Close останавливает её.
func NewMirror(archive Archive) *Mirror {
	m := &Mirror{
		archive: archive,
		log:     logger.Component("archive"),
		saved:   make(map[string]struct{}),
	}
	m.queue = notify.NewQueue(queueSize, m.handle)
	return m
}

// Register подписывает зеркало на изменения лент, публикаций и прочитанных.
func (m *Mirror) Register(d *notify.Dispatcher) {
	for _, path := range []notify.Path{notify.Feeds, notify.Posts, notify.ReadPostIDs} {
		d.On(path, func(v any) {
			// снимки накопительные: пропущенное изменение запишется со следующим
			if !m.queue.Push(notify.Change{Path: path, Value: v}) {
				m.log.WithField("path", path.String()).Warn("Archive queue is full, skipping change")
			}
		})
	}
}

// Close дожидается записи уже полученных изменений.
func (m *Mirror) Close() {
	m.queue.Close()
}

func (m *Mirror) handle(c notify.Change) {
	switch c.Path {
	case notify.Feeds:
		feeds, _ := c.Value.([]models.Feed)
		m.saveFeeds(feeds)
	case notify.Posts:
		posts, _ := c.Value.([]models.Post)
		m.savePosts(posts)
	case notify.ReadPostIDs:
		ids, _ := c.Value.([]string)
		m.saveRead(ids)
	}
}

// unsaved возвращает ключи, которых ещё нет среди сохранённых, и помечает их сохранёнными.
func (m *Mirror) unsaved(keys []string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	fresh := lo.Filter(keys, func(k string, _ int) bool {
		_, ok := m.saved[k]
		return !ok
	})
	for _, k := range fresh {
		m.saved[k] = struct{}{}
	}
	return fresh
}

func (m *Mirror) forget(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.saved, key)
}

func (m *Mirror) saveFeeds(feeds []models.Feed) {
	byKey := lo.KeyBy(feeds, func(f models.Feed) string { return "feed:" + f.ID })
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	for _, key := range m.unsaved(lo.Keys(byKey)) {
		feed := byKey[key]
		if err := m.archive.SaveFeed(ctx, feed); err != nil {
			m.forget(key)
			m.log.WithField("url", feed.URL).Errorf("Failed to archive feed: %v", err)
		}
	}
}

func (m *Mirror) savePosts(posts []models.Post) {
	keys := lo.Map(posts, func(p models.Post, _ int) string { return "post:" + p.ID })
	fresh := lo.SliceToMap(m.unsaved(keys), func(k string) (string, struct{}) { return k, struct{}{} })
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	// старые публикации в конце списка, сохраняем их первыми
	for i := len(posts) - 1; i >= 0; i-- {
		key := keys[i]
		if _, ok := fresh[key]; !ok {
			continue
		}
		if err := m.archive.SavePost(ctx, posts[i]); err != nil {
			m.forget(key)
			m.log.WithField("post_id", posts[i].ID).Errorf("Failed to archive post: %v", err)
		}
	}
}

func (m *Mirror) saveRead(ids []string) {
	keys := lo.Map(ids, func(id string, _ int) string { return "read:" + id })
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	for _, key := range m.unsaved(keys) {
		id := key[len("read:"):]
		if err := m.archive.MarkRead(ctx, id); err != nil {
			m.forget(key)
			m.log.WithField("post_id", id).Errorf("Failed to archive read mark: %v", err)
		}
	}
}
