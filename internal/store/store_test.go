package store_test

import (
	"fmt"
	"sync"
	"testing"

	"rss_aggregator/internal/models"
	"rss_aggregator/internal/notify"
	"rss_aggregator/internal/store"

	"github.com/stretchr/testify/require"
)

type recorder struct {
	changes []notify.Change
}

func (r *recorder) Notify(c notify.Change) {
	r.changes = append(r.changes, c)
}

func (r *recorder) paths() []notify.Path {
	paths := make([]notify.Path, 0, len(r.changes))
	for _, c := range r.changes {
		paths = append(paths, c.Path)
	}
	return paths
}

func post(id, title string) models.Post {
	return models.Post{ID: id, FeedID: "f1", Title: title, Link: "https://example.com/" + id}
}

func TestAddFeed_PrependsFeedAndPosts(t *testing.T) {
	rec := &recorder{}
	s := store.New(rec)

	s.AddFeed(models.Feed{ID: "f1", URL: "https://a.example/rss"}, []models.Post{post("p1", "P1"), post("p2", "P2")})
	s.AddFeed(models.Feed{ID: "f2", URL: "https://b.example/rss"}, []models.Post{post("p3", "P3")})

	feeds := s.Feeds()
	require.Equal(t, "f2", feeds[0].ID)
	require.Equal(t, "f1", feeds[1].ID)

	var ids []string
	for _, p := range s.Posts() {
		ids = append(ids, p.ID)
	}
	require.Equal(t, []string{"p3", "p2", "p1"}, ids)

	require.Equal(t, []notify.Path{notify.Feeds, notify.Posts, notify.Feeds, notify.Posts}, rec.paths())
}

func TestAddFeed_WithoutPosts(t *testing.T) {
	rec := &recorder{}
	s := store.New(rec)

	s.AddFeed(models.Feed{ID: "f1"}, nil)

	require.Equal(t, []notify.Path{notify.Feeds}, rec.paths())
	require.Empty(t, s.Posts())
}

func TestCommitPosts(t *testing.T) {
	rec := &recorder{}
	s := store.New(rec)
	s.AddPosts([]models.Post{post("p1", "P1")})

	var seen []models.Post
	added := s.CommitPosts(func(existing []models.Post) []models.Post {
		seen = existing
		return []models.Post{post("p2", "P2")}
	})
	require.Len(t, seen, 1)
	require.Equal(t, []models.Post{post("p2", "P2")}, added)
	require.Equal(t, "p2", s.Posts()[0].ID)

	added = s.CommitPosts(func([]models.Post) []models.Post { return nil })
	require.Nil(t, added)
	// пустой коммит не порождает уведомлений
	require.Equal(t, []notify.Path{notify.Posts, notify.Posts}, rec.paths())
}

func TestSnapshotsAreCopies(t *testing.T) {
	rec := &recorder{}
	s := store.New(rec)
	s.AddPosts([]models.Post{post("p1", "P1")})

	posts := s.Posts()
	posts[0].Title = "changed"
	require.Equal(t, "P1", s.Posts()[0].Title)

	notified := rec.changes[0].Value.([]models.Post)
	notified[0].Title = "changed"
	require.Equal(t, "P1", s.Posts()[0].Title)
}

func TestMarkRead_Idempotent(t *testing.T) {
	rec := &recorder{}
	s := store.New(rec)

	require.True(t, s.MarkRead("p1"))
	require.False(t, s.MarkRead("p1"))
	require.True(t, s.MarkRead("p2"))

	require.True(t, s.IsRead("p1"))
	require.False(t, s.IsRead("p3"))
	require.Equal(t, []string{"p1", "p2"}, s.ReadPostIDs())
	require.Equal(t, []notify.Path{notify.ReadPostIDs, notify.ReadPostIDs}, rec.paths())
}

func TestOpenPost(t *testing.T) {
	rec := &recorder{}
	s := store.New(rec)
	s.AddPosts([]models.Post{post("p1", "P1")})
	rec.changes = nil

	require.NoError(t, s.OpenPost("p1"))
	require.Equal(t, "p1", s.ModalPostID())
	require.True(t, s.IsRead("p1"))
	require.Equal(t, []notify.Path{notify.ModalPostID, notify.ReadPostIDs}, rec.paths())

	require.ErrorIs(t, s.OpenPost("missing"), store.ErrPostNotFound)
}

func TestForm(t *testing.T) {
	rec := &recorder{}
	s := store.New(rec)

	form := s.Form()
	require.Equal(t, models.FormFilling, form.State)
	require.True(t, form.Valid)
	require.Nil(t, form.Error)

	s.SetFormState(models.FormProcessing)
	s.SetFormValid(false)
	s.SetFormError("form.messages.errors.validation.url")

	form = s.Form()
	require.Equal(t, models.FormProcessing, form.State)
	require.False(t, form.Valid)
	require.Equal(t, "form.messages.errors.validation.url", *form.Error)

	s.SetRawInput("https://example.com/rss")
	form = s.Form()
	require.Equal(t, models.FormFilling, form.State)
	require.Equal(t, "https://example.com/rss", form.Data)

	s.SetFormError("")
	require.Nil(t, s.Form().Error)
	last := rec.changes[len(rec.changes)-1]
	require.Equal(t, notify.FormError, last.Path)
	require.Nil(t, last.Value)

	require.Equal(t, []notify.Path{
		notify.FormState,
		notify.FormValid,
		notify.FormError,
		notify.FormState,
		notify.FormData,
		notify.FormError,
	}, rec.paths())
}

func TestForm_UnchangedValuesAreSilent(t *testing.T) {
	rec := &recorder{}
	s := store.New(rec)

	s.SetFormState(models.FormFilling)
	s.SetFormValid(true)
	s.SetFormError("")
	s.SetRawInput("")

	require.Empty(t, rec.changes)
}

func TestConcurrentWriters_DeliverInCommitOrder(t *testing.T) {
	d := notify.NewDispatcher()
	var (
		mu        sync.Mutex
		lastLen   int
		decreases int
	)
	d.On(notify.Posts, func(v any) {
		posts := v.([]models.Post)
		mu.Lock()
		defer mu.Unlock()
		if len(posts) < lastLen {
			decreases++
		}
		lastLen = len(posts)
	})
	s := store.New(d)

	const writers, rounds = 8, 20
	var wg sync.WaitGroup
	for w := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := range rounds {
				id := fmt.Sprintf("w%d-%d", w, r)
				if r%2 == 0 {
					s.AddPosts([]models.Post{post(id, id)})
					continue
				}
				s.CommitPosts(func(existing []models.Post) []models.Post {
					return []models.Post{post(id, id)}
				})
			}
		}()
	}
	wg.Wait()

	require.Zero(t, decreases)
	require.Equal(t, writers*rounds, lastLen)
	require.Len(t, s.Posts(), writers*rounds)
}
