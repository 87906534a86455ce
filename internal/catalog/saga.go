package catalog

import (
	"context"
	"errors"
	"log"

	"github.com/anoixa/image-theatre/internal/apperr"
	"github.com/anoixa/image-theatre/utils"
)

// sagaState 图片写入流程的状态
// Started -> FileSaved -> RowCommitted -> OldFileReclaimed
// 只有 FileSaved 可以被放弃，补偿动作是删除新文件
type sagaState int

const (
	stateStarted sagaState = iota
	stateFileSaved
	stateRowCommitted
	stateOldFileReclaimed
)

func (s sagaState) String() string {
	switch s {
	case stateStarted:
		return "Started"
	case stateFileSaved:
		return "FileSaved"
	case stateRowCommitted:
		return "RowCommitted"
	case stateOldFileReclaimed:
		return "OldFileReclaimed"
	default:
		return "Unknown"
	}
}

// imageSaga 记录一次图片写入的进度
type imageSaga struct {
	op      string
	movieID uint
	files   FileStore
	state   sagaState
	newFile string
	oldFile string
}

func newImageSaga(op string, movieID uint, files FileStore, oldFile string) *imageSaga {
	saga := &imageSaga{op: op, movieID: movieID, files: files, oldFile: oldFile}
	utils.LogIfDevf("[Catalog] %s movie %d: saga %s", op, movieID, saga.state)
	return saga
}

func (s *imageSaga) advance(next sagaState) {
	if next != s.state+1 {
		log.Printf("[Catalog] %s movie %d: invalid saga transition %s -> %s", s.op, s.movieID, s.state, next)
		return
	}
	s.state = next
	utils.LogIfDevf("[Catalog] %s movie %d: saga %s", s.op, s.movieID, s.state)
}

// fileSaved 新文件已写入存储
func (s *imageSaga) fileSaved(name string) {
	s.newFile = name
	s.advance(stateFileSaved)
}

// committed 数据库行已提交，新文件成为当前图片
func (s *imageSaga) committed(movieID uint) {
	s.movieID = movieID
	s.advance(stateRowCommitted)
}

// abandon 在 FileSaved 状态下放弃流程，删除新文件
// 补偿失败只记录日志，泄漏文件由 clean 命令回收
func (s *imageSaga) abandon(ctx context.Context, cause error) {
	if s.state != stateFileSaved {
		return
	}
	log.Printf("[Catalog] %s movie %d abandoned at %s: %v", s.op, s.movieID, s.state, cause)
	if err := s.files.Delete(utils.DetachedContext(ctx), s.newFile); err != nil {
		log.Printf("[Catalog] Failed to remove orphaned file %s: %v", s.newFile, err)
		return
	}
	utils.LogIfDevf("[Catalog] %s movie %d: removed orphaned file %s", s.op, s.movieID, s.newFile)
}

// reclaim 删除被替换的旧文件，失败不影响已提交的结果
func (s *imageSaga) reclaim(ctx context.Context) {
	if s.state != stateRowCommitted {
		return
	}
	if s.oldFile != "" && s.oldFile != s.newFile {
		err := s.files.Delete(utils.DetachedContext(ctx), s.oldFile)
		switch {
		case err == nil:
		case errors.Is(err, apperr.ErrNotFound):
			log.Printf("[Catalog] %s movie %d: old file %s was already gone", s.op, s.movieID, s.oldFile)
		default:
			log.Printf("[Catalog] %s movie %d: failed to reclaim old file %s: %v", s.op, s.movieID, s.oldFile, err)
		}
	}
	s.advance(stateOldFileReclaimed)
}
