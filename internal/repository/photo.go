package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fingle/internal/model"
)

// PhotoRepository stores challenge images in the database and hands out
// public URLs for them.
type PhotoRepository struct {
	pool    *pgxpool.Pool
	baseURL string
}

// NewPhotoRepository creates a new PhotoRepository. Returned URLs are
// rooted at baseURL.
func NewPhotoRepository(pool *pgxpool.Pool, baseURL string) *PhotoRepository {
	return &PhotoRepository{pool: pool, baseURL: strings.TrimRight(baseURL, "/")}
}

// Store saves the image bytes and returns the URL they are served from.
func (r *PhotoRepository) Store(ctx context.Context, data []byte, contentType string) (string, error) {
	const query = `INSERT INTO photos (id, content_type, data) VALUES ($1, $2, $3)`

	id := uuid.NewString()
	if _, err := r.pool.Exec(ctx, query, id, contentType, data); err != nil {
		return "", fmt.Errorf("failed to store photo: %w", err)
	}
	return PhotoURL(r.baseURL, id), nil
}

// Get retrieves a stored photo.
func (r *PhotoRepository) Get(ctx context.Context, id string) (*model.Photo, error) {
	const query = `SELECT id, content_type, data, created_at FROM photos WHERE id = $1`

	var p model.Photo
	err := r.pool.QueryRow(ctx, query, id).Scan(&p.ID, &p.ContentType, &p.Data, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPhotoNotFound
		}
		return nil, fmt.Errorf("failed to get photo: %w", err)
	}
	return &p, nil
}

// PhotoURL builds the public URL of a stored photo.
func PhotoURL(baseURL, id string) string {
	return strings.TrimRight(baseURL, "/") + "/api/photos/" + id
}
