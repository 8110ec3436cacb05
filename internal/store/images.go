package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/imgvault/imgvault/internal/model"
)

// imageRow is a flat struct that maps 1:1 to the images table columns. The
// metadata_json column stores the JSON-encoded *model.ImageMeta.
type imageRow struct {
	ID           string    `db:"id"`
	TeamID       string    `db:"team_id"`
	UserID       string    `db:"user_id"`
	Title        string    `db:"title"`
	Description  string    `db:"description"`
	Filename     string    `db:"filename"`
	BlobPath     string    `db:"blob_path"`
	ContentType  string    `db:"content_type"`
	Size         int64     `db:"size"`
	MetadataJSON string    `db:"metadata_json"`
	CreatedAt    time.Time `db:"created_at"`
}

func imageRowFromModel(img *model.Image) (imageRow, error) {
	row := imageRow{
		ID:          img.ID,
		TeamID:      img.TeamID,
		UserID:      img.UserID,
		Title:       img.Title,
		Description: img.Description,
		Filename:    img.Filename,
		BlobPath:    img.BlobPath,
		ContentType: img.ContentType,
		Size:        img.Size,
		CreatedAt:   img.CreatedAt,
	}
	if img.Metadata != nil {
		raw, err := json.Marshal(img.Metadata)
		if err != nil {
			return imageRow{}, fmt.Errorf("marshal image metadata: %w", err)
		}
		row.MetadataJSON = string(raw)
	}
	return row, nil
}

func (r imageRow) toModel() (model.Image, error) {
	img := model.Image{
		ID:          r.ID,
		TeamID:      r.TeamID,
		UserID:      r.UserID,
		Title:       r.Title,
		Description: r.Description,
		Filename:    r.Filename,
		BlobPath:    r.BlobPath,
		ContentType: r.ContentType,
		Size:        r.Size,
		CreatedAt:   r.CreatedAt,
	}
	if r.MetadataJSON != "" {
		var meta model.ImageMeta
		if err := json.Unmarshal([]byte(r.MetadataJSON), &meta); err != nil {
			return model.Image{}, fmt.Errorf("unmarshal image metadata: %w", err)
		}
		img.Metadata = &meta
	}
	return img, nil
}

// CreateImage inserts an image metadata record. The ID and CreatedAt fields
// are populated before the insert.
func (s *Store) CreateImage(ctx context.Context, img *model.Image) error {
	if img.ID == "" {
		img.ID = uuid.NewString()
	}
	img.CreatedAt = time.Now().UTC()

	row, err := imageRowFromModel(img)
	if err != nil {
		return err
	}

	const q = `INSERT INTO images
		(id, team_id, user_id, title, description, filename, blob_path, content_type, size, metadata_json, created_at)
		VALUES
		(:id, :team_id, :user_id, :title, :description, :filename, :blob_path, :content_type, :size, :metadata_json, :created_at)`

	if _, err := s.db.NamedExecContext(ctx, q, row); err != nil {
		return fmt.Errorf("insert image: %w", err)
	}
	return nil
}

// GetImage returns an image by ID.
func (s *Store) GetImage(ctx context.Context, id string) (*model.Image, error) {
	var row imageRow
	err := s.db.GetContext(ctx, &row, s.rebind("SELECT * FROM images WHERE id = ?"), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get image: %w", err)
	}
	img, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &img, nil
}

// ListImagesByTeam returns a team's images, newest first.
func (s *Store) ListImagesByTeam(ctx context.Context, teamID string, limit, offset int) ([]model.Image, error) {
	return s.listImages(ctx,
		"SELECT * FROM images WHERE team_id = ? ORDER BY created_at DESC LIMIT ? OFFSET ?",
		teamID, limit, offset)
}

// ListImagesByUser returns a single user's images, newest first.
func (s *Store) ListImagesByUser(ctx context.Context, userID string, limit, offset int) ([]model.Image, error) {
	return s.listImages(ctx,
		"SELECT * FROM images WHERE user_id = ? ORDER BY created_at DESC LIMIT ? OFFSET ?",
		userID, limit, offset)
}

func (s *Store) listImages(ctx context.Context, q string, args ...interface{}) ([]model.Image, error) {
	var rows []imageRow
	if err := s.db.SelectContext(ctx, &rows, s.rebind(q), args...); err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	images := make([]model.Image, 0, len(rows))
	for _, r := range rows {
		img, err := r.toModel()
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, nil
}

// UpdateImage updates an image's title, description, and metadata.
func (s *Store) UpdateImage(ctx context.Context, img *model.Image) error {
	row, err := imageRowFromModel(img)
	if err != nil {
		return err
	}

	const q = `UPDATE images SET
		title = :title, description = :description, metadata_json = :metadata_json
		WHERE id = :id`

	result, err := s.db.NamedExecContext(ctx, q, row)
	if err != nil {
		return fmt.Errorf("update image: %w", err)
	}
	return checkAffected(result, "update image")
}

// DeleteImage removes an image metadata record by ID. The caller is
// responsible for deleting the blob.
func (s *Store) DeleteImage(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM images WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete image: %w", err)
	}
	return checkAffected(result, "delete image")
}

// DeleteImagesByTeam removes all image metadata records for a team and
// returns the affected blob paths so the caller can delete the bytes.
func (s *Store) DeleteImagesByTeam(ctx context.Context, teamID string) ([]string, error) {
	var paths []string
	err := s.db.SelectContext(ctx, &paths,
		s.rebind("SELECT blob_path FROM images WHERE team_id = ?"), teamID)
	if err != nil {
		return nil, fmt.Errorf("list image blobs by team: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM images WHERE team_id = ?"), teamID); err != nil {
		return nil, fmt.Errorf("delete images by team: %w", err)
	}
	return paths, nil
}
