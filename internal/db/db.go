package db

import (
	"context"
	"fmt"

	"rss_aggregator/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS feeds (
	id TEXT PRIMARY KEY,
	url VARCHAR(2048) UNIQUE NOT NULL,
	title TEXT NOT NULL,
	description TEXT,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS posts (
	id TEXT PRIMARY KEY,
	feed_id TEXT NOT NULL REFERENCES feeds(id) ON DELETE CASCADE,
	title TEXT NOT NULL,
	description TEXT,
	link VARCHAR(2048),
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS read_posts (
	post_id TEXT PRIMARY KEY REFERENCES posts(id) ON DELETE CASCADE,
	read_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);
`

// Database инкапсулирует пул соединений к PostgreSQL.
type Database struct {
	Pool *pgxpool.Pool
}

// NewDB создаёт новый пул соединений по connString и возвращает Database.
func NewDB(ctx context.Context, connString string) (*Database, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %v", err)
	}
	return &Database{Pool: pool}, nil
}

// Close закрывает пул соединений.
func (db *Database) Close() {
	db.Pool.Close()
}

func (db *Database) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// Migrate создаёт таблицы архива, если их ещё нет.
func (db *Database) Migrate(ctx context.Context) error {
	if _, err := db.Pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// SaveFeed сохраняет ленту. Повторное сохранение того же id игнорируется.
func (db *Database) SaveFeed(ctx context.Context, feed models.Feed) error {
	_, err := db.Pool.Exec(ctx, `
        INSERT INTO feeds (id, url, title, description)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT DO NOTHING
    `, feed.ID, feed.URL, feed.Title, feed.Description)
	return err
}

// SavePost сохраняет одну публикацию. Если запись с таким id уже есть, операция игнорируется.
func (db *Database) SavePost(ctx context.Context, post models.Post) error {
	_, err := db.Pool.Exec(ctx, `
        INSERT INTO posts (id, feed_id, title, description, link)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (id) DO NOTHING
    `, post.ID, post.FeedID, post.Title, post.Description, post.Link)
	return err
}

// MarkRead сохраняет отметку о прочтении публикации.
func (db *Database) MarkRead(ctx context.Context, postID string) error {
	_, err := db.Pool.Exec(ctx, `
        INSERT INTO read_posts (post_id)
        VALUES ($1)
        ON CONFLICT (post_id) DO NOTHING
    `, postID)
	return err
}

// CountPosts возвращает число публикаций в архиве.
func (db *Database) CountPosts(ctx context.Context) (int, error) {
	var count int
	err := db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM posts`).Scan(&count)
	return count, err
}
