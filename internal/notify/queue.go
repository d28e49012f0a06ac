package notify

import "sync"

// Queue доставляет изменения обработчику в отдельной горутине, в порядке поступления.
// Push не блокируется: при заполненном буфере изменение отбрасывается.
type Queue struct {
	handle func(Change)
	ch     chan Change
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewQueue запускает горутину, которая передаёт изменения в handle.
func NewQueue(size int, handle func(Change)) *Queue {
	q := &Queue{
		handle: handle,
		ch:     make(chan Change, size),
		done:   make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *Queue) run() {
	defer close(q.done)
	for c := range q.ch {
		q.handle(c)
	}
}

// Push ставит изменение в очередь. Возвращает false, если буфер заполнен или очередь закрыта.
func (q *Queue) Push(c Change) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return false
	}
	select {
	case q.ch <- c:
		return true
	default:
		return false
	}
}

// Close перестаёт принимать изменения и ждёт обработки уже поставленных.
func (q *Queue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
	q.mu.Unlock()
	<-q.done
}
