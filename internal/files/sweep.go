package files

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/anoixa/image-theatre/internal/apperr"
)

// SweepResult 孤儿文件清理结果
type SweepResult struct {
	Scanned  int
	Orphans  []string
	Deleted  int
	Skipped  int // 未超过宽限期
	Failures int
}

// Sweep 删除未被引用且早于 cutoff 的文件
// cutoff 之后写入的文件可能属于进行中的上传，不做处理
func (s *Store) Sweep(ctx context.Context, referenced map[string]struct{}, cutoff time.Time, dryRun bool) (*SweepResult, error) {
	objects, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	result := &SweepResult{Scanned: len(objects)}
	for _, obj := range objects {
		if _, ok := referenced[obj.Name]; ok {
			continue
		}
		if obj.ModTime.After(cutoff) {
			result.Skipped++
			continue
		}
		result.Orphans = append(result.Orphans, obj.Name)
		if dryRun {
			continue
		}
		if err := s.Delete(ctx, obj.Name); err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				continue
			}
			result.Failures++
			log.Printf("[Files] Failed to delete orphan %s: %v", obj.Name, err)
			continue
		}
		result.Deleted++
	}
	return result, nil
}
