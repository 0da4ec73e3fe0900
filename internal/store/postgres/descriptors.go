package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"facerelay/internal/store"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// DescriptorRepository is the PostgreSQL-backed
// store.DescriptorRepository. Sample vectors live in a side table with
// pgvector columns; the descriptor row carries the training lock and
// etag.
type DescriptorRepository struct {
	pool *Pool
}

func NewDescriptorRepository(pool *Pool) *DescriptorRepository {
	return &DescriptorRepository{pool: pool}
}

func (r *DescriptorRepository) Get(ctx context.Context, groupID, faceID string) (*store.FaceDescriptor, error) {
	var desc store.FaceDescriptor
	err := r.pool.QueryRow(ctx,
		`SELECT group_id, face_id, is_training, updated_at, etag FROM descriptors
		 WHERE group_id = $1 AND face_id = $2`,
		groupID, faceID,
	).Scan(&desc.GroupID, &desc.FaceID, &desc.IsTraining, &desc.UpdatedAt, &desc.ETag)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query descriptor: %w", err)
	}

	if err := r.loadSamples(ctx, &desc); err != nil {
		return nil, err
	}
	return &desc, nil
}

func (r *DescriptorRepository) ListAll(ctx context.Context) ([]store.FaceDescriptor, error) {
	return r.list(ctx,
		`SELECT group_id, face_id, is_training, updated_at, etag FROM descriptors ORDER BY group_id, face_id`)
}

func (r *DescriptorRepository) ListByGroup(ctx context.Context, groupID string) ([]store.FaceDescriptor, error) {
	return r.list(ctx,
		`SELECT group_id, face_id, is_training, updated_at, etag FROM descriptors
		 WHERE group_id = $1 ORDER BY face_id`, groupID)
}

func (r *DescriptorRepository) list(ctx context.Context, query string, args ...any) ([]store.FaceDescriptor, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query descriptors: %w", err)
	}
	defer rows.Close()

	var descs []store.FaceDescriptor
	for rows.Next() {
		var desc store.FaceDescriptor
		if err := rows.Scan(&desc.GroupID, &desc.FaceID, &desc.IsTraining, &desc.UpdatedAt, &desc.ETag); err != nil {
			return nil, fmt.Errorf("scan descriptor: %w", err)
		}
		descs = append(descs, desc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate descriptors: %w", err)
	}

	for i := range descs {
		if err := r.loadSamples(ctx, &descs[i]); err != nil {
			return nil, err
		}
	}
	return descs, nil
}

func (r *DescriptorRepository) loadSamples(ctx context.Context, desc *store.FaceDescriptor) error {
	rows, err := r.pool.Query(ctx,
		`SELECT sample FROM descriptor_samples
		 WHERE group_id = $1 AND face_id = $2 ORDER BY idx`,
		desc.GroupID, desc.FaceID,
	)
	if err != nil {
		return fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sample pgvector.Vector
		if err := rows.Scan(&sample); err != nil {
			return fmt.Errorf("scan sample: %w", err)
		}
		desc.Samples = append(desc.Samples, sample.Slice())
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate samples: %w", err)
	}
	return nil
}

func (r *DescriptorRepository) Add(ctx context.Context, desc *store.FaceDescriptor) error {
	return r.write(ctx, desc, func(tx *sql.Tx, etag string, now time.Time) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO descriptors (group_id, face_id, is_training, updated_at, etag)
			 VALUES ($1, $2, $3, $4, $5)`,
			desc.GroupID, desc.FaceID, desc.IsTraining, now, etag,
		)
		return translateError(err)
	})
}

func (r *DescriptorRepository) AddOrUpdate(ctx context.Context, desc *store.FaceDescriptor) error {
	return r.write(ctx, desc, func(tx *sql.Tx, etag string, now time.Time) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO descriptors (group_id, face_id, is_training, updated_at, etag)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (group_id, face_id) DO UPDATE SET
			   is_training = EXCLUDED.is_training,
			   updated_at = EXCLUDED.updated_at,
			   etag = EXCLUDED.etag`,
			desc.GroupID, desc.FaceID, desc.IsTraining, now, etag,
		)
		return err
	})
}

// Update is conditional on the descriptor's ETag; it fails with
// store.ErrConflict when another writer got there first.
func (r *DescriptorRepository) Update(ctx context.Context, desc *store.FaceDescriptor) (string, error) {
	newETag := uuid.NewString()
	now := time.Now()

	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE descriptors SET is_training = $1, updated_at = $2, etag = $3
		 WHERE group_id = $4 AND face_id = $5 AND etag = $6`,
		desc.IsTraining, now, newETag, desc.GroupID, desc.FaceID, desc.ETag,
	)
	if err != nil {
		return "", fmt.Errorf("update descriptor: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("update descriptor: %w", err)
	}
	if affected == 0 {
		// Distinguish a missing record from a token mismatch.
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM descriptors WHERE group_id = $1 AND face_id = $2)`,
			desc.GroupID, desc.FaceID,
		).Scan(&exists); err != nil {
			return "", fmt.Errorf("check descriptor: %w", err)
		}
		if !exists {
			return "", store.ErrNotFound
		}
		return "", store.ErrConflict
	}

	if err := replaceSamples(ctx, tx, desc); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit descriptor update: %w", err)
	}
	return newETag, nil
}

func (r *DescriptorRepository) Delete(ctx context.Context, groupID, faceID string) error {
	// Samples go with the descriptor via ON DELETE CASCADE.
	if _, err := r.pool.Exec(ctx,
		`DELETE FROM descriptors WHERE group_id = $1 AND face_id = $2`,
		groupID, faceID,
	); err != nil {
		return fmt.Errorf("delete descriptor: %w", err)
	}
	return nil
}

func (r *DescriptorRepository) write(ctx context.Context, desc *store.FaceDescriptor, insert func(tx *sql.Tx, etag string, now time.Time) error) error {
	etag := uuid.NewString()
	now := time.Now()

	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insert(tx, etag, now); err != nil {
		return fmt.Errorf("write descriptor: %w", err)
	}
	if err := replaceSamples(ctx, tx, desc); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit descriptor write: %w", err)
	}

	desc.ETag = etag
	desc.UpdatedAt = now
	return nil
}

func replaceSamples(ctx context.Context, tx *sql.Tx, desc *store.FaceDescriptor) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM descriptor_samples WHERE group_id = $1 AND face_id = $2`,
		desc.GroupID, desc.FaceID,
	); err != nil {
		return fmt.Errorf("clear samples: %w", err)
	}
	for i, sample := range desc.Samples {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO descriptor_samples (group_id, face_id, idx, sample) VALUES ($1, $2, $3, $4)`,
			desc.GroupID, desc.FaceID, i, pgvector.NewVector(sample),
		); err != nil {
			return fmt.Errorf("insert sample %d: %w", i, err)
		}
	}
	return nil
}
