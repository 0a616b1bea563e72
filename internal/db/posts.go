package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// -----------------------------------------------------------------------------
// Published Posts Methods
// -----------------------------------------------------------------------------

// PostExistsForTopic reports whether any published post already exists for
// the topic. The orchestrator uses this as the at-most-once publish guard.
func (db *DB) PostExistsForTopic(ctx context.Context, topicID uuid.UUID) (bool, error) {
	var exists bool
	err := db.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM posts WHERE topic_id = $1)`,
		topicID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check posts for topic: %w", err)
	}
	return exists, nil
}

// CreatePost stores one published post record for a topic and language.
func (db *DB) CreatePost(ctx context.Context, input *PostInput) (uuid.UUID, error) {
	var id uuid.UUID
	err := db.pool.QueryRow(ctx,
		`INSERT INTO posts (topic_id, language, title, content, excerpt, reading_time,
		        meta_title, meta_description, keywords, tags, category,
		        image_key, image_alt_text)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING id`,
		input.TopicID, input.Language, input.Title, input.Content, input.Excerpt,
		input.ReadingTime, input.MetaTitle, input.MetaDescription, input.Keywords,
		input.Tags, input.Category, input.ImageKey, input.ImageAltText,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create post: %w", err)
	}
	return id, nil
}

// ListPostsForTopic retrieves the published posts for a topic.
func (db *DB) ListPostsForTopic(ctx context.Context, topicID uuid.UUID) ([]Post, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, topic_id, language, title, content, excerpt, reading_time,
		        meta_title, meta_description, keywords, tags, category,
		        image_key, image_alt_text, created_at
		 FROM posts WHERE topic_id = $1 ORDER BY language`,
		topicID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		var p Post
		if err := rows.Scan(&p.ID, &p.TopicID, &p.Language, &p.Title, &p.Content,
			&p.Excerpt, &p.ReadingTime, &p.MetaTitle, &p.MetaDescription,
			&p.Keywords, &p.Tags, &p.Category, &p.ImageKey, &p.ImageAltText,
			&p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}
