package queue

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"rss_aggregator/internal/logger"
	"rss_aggregator/internal/models"
	"rss_aggregator/internal/notify"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Producer публикует сообщения в одну durable-очередь RabbitMQ.
type Producer struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

func NewProducer(url, queueName string) (*Producer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	// очередь объявляется один раз с durable=true
	if _, err := ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &Producer{conn: conn, ch: ch, queue: queueName}, nil
}

func (p *Producer) Publish(ctx context.Context, body []byte) error {
	return p.ch.PublishWithContext(
		ctx,
		"",      // exchange
		p.queue, // routing key (имя очереди)
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
		},
	)
}

func (p *Producer) Close() {
	p.ch.Close()
	p.conn.Close()
}

// Sender отправляет тело сообщения. Реализуется Producer.
type Sender interface {
	Publish(ctx context.Context, body []byte) error
}

// Message - сообщение о новой публикации.
type Message struct {
	ID          string `json:"id"`
	FeedID      string `json:"feedId"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Link        string `json:"link"`
}

// Encode кодирует публикацию в тело сообщения.
func Encode(post models.Post) ([]byte, error) {
	return json.Marshal(Message{
		ID:          post.ID,
		FeedID:      post.FeedID,
		Title:       post.Title,
		Description: post.Description,
		Link:        post.Link,
	})
}

const (
	publishTimeout = 5 * time.Second
	queueSize      = 256
)

// PostPublisher отправляет в очередь каждую публикацию, появившуюся в состоянии, один раз.
// Отправка идёт в отдельной горутине.
type PostPublisher struct {
	sender  Sender
	log     *logger.Entry
	pending *notify.Queue

	mu   sync.Mutex
	sent map[string]struct{}
}

// NewPostPublisher запускает фоновую отправку через sender. Close останавливает её.
func NewPostPublisher(sender Sender) *PostPublisher {
	p := &PostPublisher{
		sender: sender,
		log:    logger.Component("queue"),
		sent:   make(map[string]struct{}),
	}
	p.pending = notify.NewQueue(queueSize, func(c notify.Change) {
		posts, _ := c.Value.([]models.Post)
		p.publish(posts)
	})
	return p
}

// Register подписывает публикатор на изменения списка публикаций.
func (p *PostPublisher) Register(d *notify.Dispatcher) {
	d.On(notify.Posts, func(v any) {
		// список накопительный: пропущенные публикации уйдут со следующим изменением
		if !p.pending.Push(notify.Change{Path: notify.Posts, Value: v}) {
			p.log.Warn("Publish queue is full, skipping change")
		}
	})
}

// Close дожидается отправки уже полученных публикаций.
func (p *PostPublisher) Close() {
	p.pending.Close()
}

func (p *PostPublisher) publish(posts []models.Post) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	// новые публикации в начале списка; отправляем от старых к новым
	for i := len(posts) - 1; i >= 0; i-- {
		post := posts[i]
		if !p.claim(post.ID) {
			continue
		}
		body, err := Encode(post)
		if err != nil {
			p.log.Errorf("Failed to encode post: %v", err)
			continue
		}
		if err := p.sender.Publish(ctx, body); err != nil {
			p.release(post.ID)
			p.log.WithField("post_id", post.ID).Errorf("Failed to publish post: %v", err)
		}
	}
}

func (p *PostPublisher) claim(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.sent[id]; ok {
		return false
	}
	p.sent[id] = struct{}{}
	return true
}

func (p *PostPublisher) release(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.sent, id)
}
