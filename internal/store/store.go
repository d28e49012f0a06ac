// Package store хранит состояние агрегатора: ленты, публикации, прочитанные
// публикации и состояние формы. О каждом изменении сообщается Notifier по пути поля.
package store

import (
	"errors"
	"slices"
	"sync"

	"rss_aggregator/internal/models"
	"rss_aggregator/internal/notify"

	"github.com/samber/lo"
)

// ErrPostNotFound возвращается, если публикации с таким id нет.
var ErrPostNotFound = errors.New("post not found")

// Store - единственный источник правды для лент и публикаций.
// Новые записи всегда вставляются в начало коллекции.
type Store struct {
	// emitMu упорядочивает доставку изменений: подписчики получают их в порядке фиксации.
	emitMu   sync.Mutex
	mu       sync.RWMutex
	notifier notify.Notifier

	feeds     []models.Feed
	posts     []models.Post
	read      map[string]struct{}
	readOrder []string
	form      models.Form
	modal     string
}

// New создаёт пустое состояние. Изменения передаются в n после снятия блокировки
// состояния, строго в порядке фиксации. Подписчики не должны изменять Store.
func New(n notify.Notifier) *Store {
	if n == nil {
		n = notify.Nop
	}
	return &Store{
		notifier: n,
		read:     make(map[string]struct{}),
		form:     models.Form{State: models.FormFilling, Valid: true},
	}
}

// commit выполняет mutate под блокировкой состояния и доставляет возвращённые изменения.
// Следующая фиксация начинается только после доставки предыдущей.
func (s *Store) commit(mutate func() []notify.Change) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	changes := mutate()
	s.mu.Unlock()

	for _, c := range changes {
		s.notifier.Notify(c)
	}
}

// prepend вставляет элементы batch по одному в начало list:
// последний вставленный оказывается первым.
func prepend[T any](list, batch []T) []T {
	out := make([]T, 0, len(list)+len(batch))
	out = append(out, lo.Reverse(slices.Clone(batch))...)
	return append(out, list...)
}

// AddFeed добавляет ленту и её публикации. Уникальность URL проверяет вызывающий.
func (s *Store) AddFeed(feed models.Feed, posts []models.Post) {
	s.commit(func() []notify.Change {
		s.feeds = prepend(s.feeds, []models.Feed{feed})
		changes := []notify.Change{{Path: notify.Feeds, Value: slices.Clone(s.feeds)}}
		if len(posts) > 0 {
			s.posts = prepend(s.posts, posts)
			changes = append(changes, notify.Change{Path: notify.Posts, Value: slices.Clone(s.posts)})
		}
		return changes
	})
}

// AddPosts добавляет публикации в начало списка.
func (s *Store) AddPosts(posts []models.Post) {
	if len(posts) == 0 {
		return
	}
	s.commit(func() []notify.Change {
		s.posts = prepend(s.posts, posts)
		return []notify.Change{{Path: notify.Posts, Value: slices.Clone(s.posts)}}
	})
}

// CommitPosts вызывает fn с текущими публикациями и атомарно добавляет то, что fn вернула.
// fn выполняется под блокировкой и не должна обращаться к Store.
func (s *Store) CommitPosts(fn func(existing []models.Post) []models.Post) []models.Post {
	var fresh []models.Post
	s.commit(func() []notify.Change {
		fresh = fn(s.posts)
		if len(fresh) == 0 {
			return nil
		}
		s.posts = prepend(s.posts, fresh)
		return []notify.Change{{Path: notify.Posts, Value: slices.Clone(s.posts)}}
	})
	if len(fresh) == 0 {
		return nil
	}
	return fresh
}

// MarkRead отмечает публикацию прочитанной. Повторная отметка ничего не меняет.
func (s *Store) MarkRead(postID string) bool {
	added := false
	s.commit(func() []notify.Change {
		if _, ok := s.read[postID]; ok {
			return nil
		}
		added = true
		s.read[postID] = struct{}{}
		s.readOrder = append(s.readOrder, postID)
		return []notify.Change{{Path: notify.ReadPostIDs, Value: slices.Clone(s.readOrder)}}
	})
	return added
}

// OpenPost открывает публикацию в модальном окне и отмечает её прочитанной.
func (s *Store) OpenPost(postID string) error {
	found := false
	s.commit(func() []notify.Change {
		if _, found = lo.Find(s.posts, func(p models.Post) bool { return p.ID == postID }); !found {
			return nil
		}
		var changes []notify.Change
		if s.modal != postID {
			s.modal = postID
			changes = append(changes, notify.Change{Path: notify.ModalPostID, Value: postID})
		}
		if _, ok := s.read[postID]; !ok {
			s.read[postID] = struct{}{}
			s.readOrder = append(s.readOrder, postID)
			changes = append(changes, notify.Change{Path: notify.ReadPostIDs, Value: slices.Clone(s.readOrder)})
		}
		return changes
	})
	if !found {
		return ErrPostNotFound
	}
	return nil
}

// SetRawInput сохраняет введённое значение и переводит форму в состояние заполнения.
func (s *Store) SetRawInput(value string) {
	s.SetFormState(models.FormFilling)
	s.SetFormData(value)
}

// SetFormData сохраняет значение поля ввода, не меняя состояние формы.
func (s *Store) SetFormData(value string) {
	s.commit(func() []notify.Change {
		if s.form.Data == value {
			return nil
		}
		s.form.Data = value
		return []notify.Change{{Path: notify.FormData, Value: value}}
	})
}

func (s *Store) SetFormState(state models.FormState) {
	s.commit(func() []notify.Change {
		if s.form.State == state {
			return nil
		}
		s.form.State = state
		return []notify.Change{{Path: notify.FormState, Value: state}}
	})
}

func (s *Store) SetFormValid(valid bool) {
	s.commit(func() []notify.Change {
		if s.form.Valid == valid {
			return nil
		}
		s.form.Valid = valid
		return []notify.Change{{Path: notify.FormValid, Value: valid}}
	})
}

// SetFormError сохраняет ключ сообщения об ошибке. Пустой key очищает ошибку,
// подписчики при этом получают nil.
func (s *Store) SetFormError(key string) {
	s.commit(func() []notify.Change {
		prev := ""
		if s.form.Error != nil {
			prev = *s.form.Error
		}
		if prev == key {
			return nil
		}
		if key == "" {
			s.form.Error = nil
			return []notify.Change{{Path: notify.FormError, Value: nil}}
		}
		s.form.Error = &key
		return []notify.Change{{Path: notify.FormError, Value: key}}
	})
}

func (s *Store) Feeds() []models.Feed {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.feeds)
}

func (s *Store) Posts() []models.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.posts)
}

func (s *Store) Post(id string) (models.Post, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lo.Find(s.posts, func(p models.Post) bool { return p.ID == id })
}

func (s *Store) IsRead(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.read[id]
	return ok
}

// ReadPostIDs возвращает id прочитанных публикаций в порядке их прочтения.
func (s *Store) ReadPostIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.readOrder)
}

func (s *Store) Form() models.Form {
	s.mu.RLock()
	defer s.mu.RUnlock()
	form := s.form
	if form.Error != nil {
		key := *form.Error
		form.Error = &key
	}
	return form
}

func (s *Store) ModalPostID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modal
}
