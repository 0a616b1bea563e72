package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// -----------------------------------------------------------------------------
// Image Blob Methods
// -----------------------------------------------------------------------------

// SaveImage stores a generated image blob and returns its stable storage key.
// Keys are content-addressed per topic: topics/<topic-id>/<image-id>.
func (db *DB) SaveImage(ctx context.Context, input *ImageInput) (string, error) {
	id := uuid.New()
	key := fmt.Sprintf("topics/%s/%s", input.TopicID, id)

	_, err := db.pool.Exec(ctx,
		`INSERT INTO images (id, key, topic_id, mime_type, data, alt_text)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		id, key, input.TopicID, input.MIMEType, input.Data, input.AltText,
	)
	if err != nil {
		return "", fmt.Errorf("failed to save image: %w", err)
	}
	return key, nil
}

// GetImage retrieves a stored image blob by its storage key.
func (db *DB) GetImage(ctx context.Context, key string) (*StoredImage, error) {
	var img StoredImage
	var createdAt time.Time
	err := db.pool.QueryRow(ctx,
		`SELECT key, topic_id, mime_type, data, COALESCE(alt_text, ''), created_at
		 FROM images WHERE key = $1`,
		key,
	).Scan(&img.Key, &img.TopicID, &img.MIMEType, &img.Data, &img.AltText, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get image %s: %w", key, err)
	}
	img.CreatedAt = createdAt
	return &img, nil
}
