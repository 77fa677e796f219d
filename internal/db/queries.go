package db

import (
	"context"
	"database/sql"
	"fmt"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// Queries runs the history queries against a DBTX.
type Queries struct {
	db DBTX
}

// New returns Queries bound to db.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns Queries bound to tx.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Post is one platform's outcome within a posting batch.
type Post struct {
	ID         int64
	BatchID    string
	Platform   string
	Success    bool
	Simulated  bool
	PostID     string
	PostURL    string
	Error      string
	TextLength int64
	MediaCount int64
	CreatedAt  int64
}

const createPost = `
INSERT INTO posts (batch_id, platform, success, simulated, post_id, post_url, error, text_length, media_count, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id, batch_id, platform, success, simulated, post_id, post_url, error, text_length, media_count, created_at
`

// CreatePostParams are the columns of a new posts row.
type CreatePostParams struct {
	BatchID    string
	Platform   string
	Success    bool
	Simulated  bool
	PostID     string
	PostURL    string
	Error      string
	TextLength int64
	MediaCount int64
	CreatedAt  int64
}

func (q *Queries) CreatePost(ctx context.Context, arg CreatePostParams) (Post, error) {
	row := q.db.QueryRowContext(ctx, createPost,
		arg.BatchID,
		arg.Platform,
		arg.Success,
		arg.Simulated,
		arg.PostID,
		arg.PostURL,
		arg.Error,
		arg.TextLength,
		arg.MediaCount,
		arg.CreatedAt,
	)
	var p Post
	err := scanPost(row, &p)
	return p, err
}

const listRecentPosts = `
SELECT id, batch_id, platform, success, simulated, post_id, post_url, error, text_length, media_count, created_at
FROM posts
ORDER BY created_at DESC, id DESC
LIMIT ?
`

func (q *Queries) ListRecentPosts(ctx context.Context, limit int64) ([]Post, error) {
	return q.listPosts(ctx, listRecentPosts, limit)
}

const listPostsByPlatform = `
SELECT id, batch_id, platform, success, simulated, post_id, post_url, error, text_length, media_count, created_at
FROM posts
WHERE platform = ?
ORDER BY created_at DESC, id DESC
LIMIT ?
`

func (q *Queries) ListPostsByPlatform(ctx context.Context, platform string, limit int64) ([]Post, error) {
	return q.listPosts(ctx, listPostsByPlatform, platform, limit)
}

const listPostsByBatch = `
SELECT id, batch_id, platform, success, simulated, post_id, post_url, error, text_length, media_count, created_at
FROM posts
WHERE batch_id = ?
ORDER BY id
`

func (q *Queries) ListPostsByBatch(ctx context.Context, batchID string) ([]Post, error) {
	return q.listPosts(ctx, listPostsByBatch, batchID)
}

const countPosts = `SELECT COUNT(*) FROM posts`

func (q *Queries) CountPosts(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countPosts).Scan(&count)
	return count, err
}

const countSuccessfulPostsSince = `
SELECT COUNT(*) FROM posts
WHERE platform = ? AND success = 1 AND simulated = 0 AND created_at >= ?
`

func (q *Queries) CountSuccessfulPostsSince(ctx context.Context, platform string, since int64) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countSuccessfulPostsSince, platform, since).Scan(&count)
	return count, err
}

func (q *Queries) listPosts(ctx context.Context, query string, args ...interface{}) ([]Post, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Post
	for rows.Next() {
		var p Post
		if err := scanPost(rows, &p); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPost(s scanner, p *Post) error {
	if err := s.Scan(
		&p.ID,
		&p.BatchID,
		&p.Platform,
		&p.Success,
		&p.Simulated,
		&p.PostID,
		&p.PostURL,
		&p.Error,
		&p.TextLength,
		&p.MediaCount,
		&p.CreatedAt,
	); err != nil {
		return fmt.Errorf("scan post: %w", err)
	}
	return nil
}
