// internal/storage/storage.go
package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"fitroom/internal/models"
)

type Storage struct {
	pool *pgxpool.Pool
	db   *sql.DB // For migrations
}

func NewStorage(dsn string) (*Storage, error) {
	const op = "storage.NewStorage"

	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", op, err)
	}

	db := stdlib.OpenDBFromPool(pool)
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %v", op, err)
	}

	return &Storage{pool: pool, db: db}, nil
}

func (s *Storage) Close() {
	s.db.Close()
	s.pool.Close()
}

// SaveResult inserts a frozen try-on result. Rows are never updated.
func (s *Storage) SaveResult(res *models.SavedTryOnResult) error {
	const op = "storage.SaveResult"
	_, err := s.pool.Exec(context.Background(),
		`INSERT INTO tryon_results (id, outfit_id, user_id, user_image_url, result_image_url, garment_ids, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		res.ID, res.OutfitID, res.UserID, res.UserImageURL, res.ResultImageURL, res.GarmentIDs, res.CreatedAt)
	if err != nil {
		return fmt.Errorf("%s: %v", op, err)
	}
	return nil
}

func (s *Storage) GetResult(id string) (*models.SavedTryOnResult, error) {
	const op = "storage.GetResult"
	var res models.SavedTryOnResult
	err := s.pool.QueryRow(context.Background(),
		`SELECT id, outfit_id, user_id, user_image_url, result_image_url, garment_ids, created_at
		 FROM tryon_results WHERE id = $1`,
		id).Scan(&res.ID, &res.OutfitID, &res.UserID, &res.UserImageURL, &res.ResultImageURL, &res.GarmentIDs, &res.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", op, err)
	}
	return &res, nil
}

// ListResults returns a user's saved results, newest first. KSUID ids sort
// by creation time.
func (s *Storage) ListResults(userID string) ([]*models.SavedTryOnResult, error) {
	const op = "storage.ListResults"
	rows, err := s.pool.Query(context.Background(),
		`SELECT id, outfit_id, user_id, user_image_url, result_image_url, garment_ids, created_at
		 FROM tryon_results WHERE user_id = $1 ORDER BY id DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", op, err)
	}
	defer rows.Close()

	var results []*models.SavedTryOnResult
	for rows.Next() {
		var res models.SavedTryOnResult
		if err := rows.Scan(&res.ID, &res.OutfitID, &res.UserID, &res.UserImageURL, &res.ResultImageURL, &res.GarmentIDs, &res.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %v", op, err)
		}
		results = append(results, &res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %v", op, err)
	}
	return results, nil
}
