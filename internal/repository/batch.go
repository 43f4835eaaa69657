package repository

import (
	"context"

	"gorm.io/gorm"
)

// batchSize is the per-call write-count ceiling of the backing store.
// Larger sets are committed as separate sequential batches.
const batchSize = 500

func batchCreate[T any](ctx context.Context, db *gorm.DB, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	return db.WithContext(ctx).CreateInBatches(rows, batchSize).Error
}

// batchUpdate saves rows in chunks. GORM has no multi-row save primitive, so
// each chunk commits inside one transaction to keep batches atomic.
func batchUpdate[T any](ctx context.Context, db *gorm.DB, rows []*T) error {
	for start := 0; start < len(rows); start += batchSize {
		end := start + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			for _, row := range chunk {
				if err := tx.Save(row).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func chunkIDs(ids []string) [][]string {
	if len(ids) == 0 {
		return nil
	}
	var chunks [][]string
	for start := 0; start < len(ids); start += batchSize {
		end := start + batchSize
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
