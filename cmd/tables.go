package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anoixa/image-theatre/database/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 冲突处理策略
const (
	onConflictSkip      = "skip"
	onConflictOverwrite = "overwrite"
	onConflictError     = "error"
)

// tableSpec 可以被导出、导入或跨库复制的表
type tableSpec struct {
	Name  string
	HasID bool

	// each 按批分页读取记录，逐条交给 fn
	each func(ctx context.Context, db *gorm.DB, batchSize int, fn func(record interface{}) error) (int64, error)
	// decode 把 JSONL 中的一行还原为记录指针
	decode func(line []byte) (interface{}, error)
}

func newTableSpec[T any](name string, hasID bool, orderBy string) tableSpec {
	return tableSpec{
		Name:  name,
		HasID: hasID,
		each: func(ctx context.Context, db *gorm.DB, batchSize int, fn func(record interface{}) error) (int64, error) {
			var count int64
			for offset := 0; ; offset += batchSize {
				var records []T
				if err := db.WithContext(ctx).Order(orderBy).Limit(batchSize).Offset(offset).Find(&records).Error; err != nil {
					return count, err
				}
				for i := range records {
					if err := fn(&records[i]); err != nil {
						return count, err
					}
					count++
				}
				if len(records) < batchSize {
					return count, nil
				}
			}
		},
		decode: func(line []byte) (interface{}, error) {
			var record T
			if err := json.Unmarshal(line, &record); err != nil {
				return nil, err
			}
			return &record, nil
		},
	}
}

// catalogTables 目录数据表，按外键依赖排序
var catalogTables = []tableSpec{
	newTableSpec[models.Author]("authors", true, "id"),
	newTableSpec[models.Movie]("movies", true, "id"),
	newTableSpec[models.MovieAuthor]("movie_authors", false, "movie_id, author_id"),
	newTableSpec[models.FileAttachment]("file_attachments", true, "id"),
}

// allTables 包含账户表，JSON 不导出密码哈希，因此 users 只参与跨库复制
var allTables = append([]tableSpec{newTableSpec[models.User]("users", true, "id")}, catalogTables...)

// selectTables 按名称过滤，保持依赖顺序
func selectTables(available []tableSpec, names []string) ([]tableSpec, error) {
	if len(names) == 0 {
		return available, nil
	}
	wanted := make(map[string]struct{}, len(names))
	for _, n := range names {
		wanted[n] = struct{}{}
	}

	selected := make([]tableSpec, 0, len(names))
	for _, t := range available {
		if _, ok := wanted[t.Name]; ok {
			selected = append(selected, t)
			delete(wanted, t.Name)
		}
	}
	for n := range wanted {
		return nil, fmt.Errorf("unknown table: %s", n)
	}
	return selected, nil
}

func validateOnConflict(onConflict string) error {
	switch onConflict {
	case onConflictSkip, onConflictOverwrite, onConflictError:
		return nil
	}
	return fmt.Errorf("invalid on-conflict strategy: %s (must be skip, overwrite, or error)", onConflict)
}

// insertRecord 写入一条记录，关联字段由各自的表负责
func insertRecord(tx *gorm.DB, record interface{}, onConflict string) (bool, error) {
	q := tx.Omit(clause.Associations)
	switch onConflict {
	case onConflictSkip:
		q = q.Clauses(clause.OnConflict{DoNothing: true})
	case onConflictOverwrite:
		q = q.Clauses(clause.OnConflict{UpdateAll: true})
	}
	result := q.Create(record)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// resetSequences 显式写入 id 后，PostgreSQL 的序列需要跟上
// SQLite 的自增值会随显式插入自动前移
func resetSequences(ctx context.Context, db *gorm.DB, tables []tableSpec) error {
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	for _, t := range tables {
		if !t.HasID {
			continue
		}
		stmt := fmt.Sprintf("SELECT setval(pg_get_serial_sequence('%s', 'id'), COALESCE((SELECT MAX(id) FROM %s), 0) + 1, false)", t.Name, t.Name)
		if err := db.WithContext(ctx).Exec(stmt).Error; err != nil {
			return fmt.Errorf("reset sequence of %s: %w", t.Name, err)
		}
	}
	return nil
}

// copyStats 复制统计
type copyStats struct {
	Copied  map[string]int64
	Skipped map[string]int64
}

func newCopyStats() *copyStats {
	return &copyStats{
		Copied:  make(map[string]int64),
		Skipped: make(map[string]int64),
	}
}

// copyTables 把源库的数据逐表复制到目标库，每张表一个事务
func copyTables(ctx context.Context, source, target *gorm.DB, tables []tableSpec, batchSize int, onConflict string) (*copyStats, error) {
	if err := validateOnConflict(onConflict); err != nil {
		return nil, err
	}
	if batchSize <= 0 {
		batchSize = 100
	}

	stats := newCopyStats()
	for _, t := range tables {
		err := target.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			_, err := t.each(ctx, source, batchSize, func(record interface{}) error {
				inserted, err := insertRecord(tx, record, onConflict)
				if err != nil {
					return err
				}
				if inserted {
					stats.Copied[t.Name]++
				} else {
					stats.Skipped[t.Name]++
				}
				return nil
			})
			return err
		})
		if err != nil {
			return stats, fmt.Errorf("copy %s: %w", t.Name, err)
		}
	}

	if err := resetSequences(ctx, target, tables); err != nil {
		return stats, err
	}
	return stats, nil
}
