// Package notify доставляет изменения состояния подписчикам по пути поля.
package notify

import "sync"

// Path - путь изменённого поля состояния.
type Path int

const (
	FormState Path = iota + 1
	FormValid
	FormError
	FormData
	Feeds
	Posts
	ReadPostIDs
	ModalPostID
)

// Paths перечисляет все известные пути в порядке объявления.
var Paths = []Path{FormState, FormValid, FormError, FormData, Feeds, Posts, ReadPostIDs, ModalPostID}

func (p Path) String() string {
	switch p {
	case FormState:
		return "form.state"
	case FormValid:
		return "form.isValid"
	case FormError:
		return "form.error"
	case FormData:
		return "form.data"
	case Feeds:
		return "feeds"
	case Posts:
		return "posts"
	case ReadPostIDs:
		return "readPostIds"
	case ModalPostID:
		return "modalWindow.postId"
	default:
		return ""
	}
}

// MarshalText кодирует путь в виде строки с точками.
func (p Path) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Change описывает одно изменение: путь и новое значение (копию).
type Change struct {
	Path  Path
	Value any
}

// Notifier принимает изменения состояния.
type Notifier interface {
	Notify(Change)
}

// Func позволяет использовать функцию как Notifier.
type Func func(Change)

func (f Func) Notify(c Change) { f(c) }

// Nop игнорирует все изменения.
var Nop Notifier = Func(func(Change) {})

// Handler обрабатывает новое значение поля.
type Handler func(value any)

// Dispatcher - таблица обработчиков по пути. Изменения путей без обработчиков игнорируются.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[Path][]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[Path][]Handler)}
}

// On регистрирует обработчик для path. Для одного пути их может быть несколько,
// они вызываются в порядке регистрации.
func (d *Dispatcher) On(path Path, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[path] = append(d.handlers[path], h)
}

// Notify синхронно вызывает обработчики пути изменения.
func (d *Dispatcher) Notify(c Change) {
	d.mu.RLock()
	handlers := d.handlers[c.Path]
	d.mu.RUnlock()

	for _, h := range handlers {
		h(c.Value)
	}
}
