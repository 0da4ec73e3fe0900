package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"facerelay/internal/store"
)

// FaceRepository is the PostgreSQL-backed store.FaceRepository.
type FaceRepository struct {
	pool *Pool
}

func NewFaceRepository(pool *Pool) *FaceRepository {
	return &FaceRepository{pool: pool}
}

const faceColumns = `owner_id, face_name, source_id, destination_id, auth_code, face_id`

func (r *FaceRepository) Get(ctx context.Context, ownerID, faceName string) (*store.RecognizedFace, error) {
	var face store.RecognizedFace
	err := r.pool.QueryRow(ctx,
		`SELECT `+faceColumns+` FROM faces WHERE owner_id = $1 AND face_name = $2`,
		ownerID, faceName,
	).Scan(&face.OwnerID, &face.FaceName, &face.SourceID, &face.DestinationID, &face.AuthCode, &face.FaceID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query face: %w", err)
	}
	return &face, nil
}

func (r *FaceRepository) ListAll(ctx context.Context) ([]store.RecognizedFace, error) {
	return r.list(ctx, `SELECT `+faceColumns+` FROM faces ORDER BY owner_id, face_name`)
}

func (r *FaceRepository) ListByOwner(ctx context.Context, ownerID string) ([]store.RecognizedFace, error) {
	return r.list(ctx, `SELECT `+faceColumns+` FROM faces WHERE owner_id = $1 ORDER BY face_name`, ownerID)
}

func (r *FaceRepository) ListBySource(ctx context.Context, sourceID string) ([]store.RecognizedFace, error) {
	return r.list(ctx, `SELECT `+faceColumns+` FROM faces WHERE source_id = $1 ORDER BY owner_id, face_name`, sourceID)
}

func (r *FaceRepository) list(ctx context.Context, query string, args ...any) ([]store.RecognizedFace, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query faces: %w", err)
	}
	defer rows.Close()

	var faces []store.RecognizedFace
	for rows.Next() {
		var face store.RecognizedFace
		if err := rows.Scan(&face.OwnerID, &face.FaceName, &face.SourceID, &face.DestinationID, &face.AuthCode, &face.FaceID); err != nil {
			return nil, fmt.Errorf("scan face: %w", err)
		}
		faces = append(faces, face)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate faces: %w", err)
	}
	return faces, nil
}

func (r *FaceRepository) Add(ctx context.Context, face *store.RecognizedFace) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO faces (`+faceColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		face.OwnerID, face.FaceName, face.SourceID, face.DestinationID, face.AuthCode, face.FaceID,
	)
	if err != nil {
		return fmt.Errorf("insert face: %w", translateError(err))
	}
	return nil
}

func (r *FaceRepository) AddOrUpdate(ctx context.Context, face *store.RecognizedFace) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO faces (`+faceColumns+`) VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (owner_id, face_name) DO UPDATE SET
		   source_id = EXCLUDED.source_id,
		   destination_id = EXCLUDED.destination_id,
		   auth_code = EXCLUDED.auth_code,
		   face_id = EXCLUDED.face_id`,
		face.OwnerID, face.FaceName, face.SourceID, face.DestinationID, face.AuthCode, face.FaceID,
	)
	if err != nil {
		return fmt.Errorf("upsert face: %w", err)
	}
	return nil
}

func (r *FaceRepository) Delete(ctx context.Context, ownerID, faceName string) error {
	if _, err := r.pool.Exec(ctx,
		`DELETE FROM faces WHERE owner_id = $1 AND face_name = $2`,
		ownerID, faceName,
	); err != nil {
		return fmt.Errorf("delete face: %w", err)
	}
	return nil
}
