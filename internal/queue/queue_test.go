package queue_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"rss_aggregator/internal/models"
	"rss_aggregator/internal/notify"
	"rss_aggregator/internal/queue"
	"rss_aggregator/internal/store"

	"github.com/stretchr/testify/require"
)

type sender struct {
	mu       sync.Mutex
	bodies   [][]byte
	attempts int
	err      error
}

func (s *sender) Publish(_ context.Context, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	if s.err != nil {
		return s.err
	}
	s.bodies = append(s.bodies, body)
	return nil
}

func (s *sender) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *sender) attemptCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

func (s *sender) ids(t *testing.T) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, b := range s.bodies {
		var msg queue.Message
		require.NoError(t, json.Unmarshal(b, &msg))
		out = append(out, msg.ID)
	}
	return out
}

func TestEncode(t *testing.T) {
	body, err := queue.Encode(models.Post{ID: "p1", FeedID: "f1", Title: "T", Description: "D", Link: "https://x/1"})
	require.NoError(t, err)
	require.JSONEq(t, `{"id":"p1","feedId":"f1","title":"T","description":"D","link":"https://x/1"}`, string(body))
}

func TestPostPublisher_PublishesEachPostOnce(t *testing.T) {
	s := &sender{}
	d := notify.NewDispatcher()
	publisher := queue.NewPostPublisher(s)
	publisher.Register(d)
	st := store.New(d)

	st.AddFeed(models.Feed{ID: "f1"}, []models.Post{{ID: "p1"}, {ID: "p2"}})
	st.AddPosts([]models.Post{{ID: "p3"}})
	publisher.Close()

	require.Equal(t, []string{"p1", "p2", "p3"}, s.ids(t))
}

func TestPostPublisher_RetriesAfterFailure(t *testing.T) {
	s := &sender{err: errors.New("broker down")}
	d := notify.NewDispatcher()
	publisher := queue.NewPostPublisher(s)
	publisher.Register(d)
	st := store.New(d)

	st.AddPosts([]models.Post{{ID: "p1"}})
	require.Eventually(t, func() bool { return s.attemptCount() == 1 }, time.Second, 5*time.Millisecond)

	s.setErr(nil)
	st.AddPosts([]models.Post{{ID: "p2"}})
	publisher.Close()
	require.Equal(t, []string{"p1", "p2"}, s.ids(t))
}
