// Package apperr 定义目录服务各组件共用的错误分类
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound 目标实体或文件不存在
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput 调用方输入不合法（扩展名、尺寸、字段范围等）
	ErrInvalidInput = errors.New("invalid input")
	// ErrConstraintViolation 存储层拒绝写入（外键、唯一约束）
	ErrConstraintViolation = errors.New("constraint violation")
	// ErrIOFailure 文件存储读写失败
	ErrIOFailure = errors.New("io failure")
)

// Kind 错误分类
type Kind int

const (
	KindUnexpected Kind = iota
	KindNotFound
	KindInvalidInput
	KindConstraintViolation
	KindIOFailure
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindInvalidInput:
		return "InvalidInput"
	case KindConstraintViolation:
		return "ConstraintViolation"
	case KindIOFailure:
		return "IOFailure"
	default:
		return "Unexpected"
	}
}

// KindOf 返回错误所属分类，无法识别的错误归为 Unexpected
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnexpected
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrConstraintViolation):
		return KindConstraintViolation
	case errors.Is(err, ErrIOFailure):
		return KindIOFailure
	default:
		return KindUnexpected
	}
}

// NotFound 构造带描述的 ErrNotFound
func NotFound(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

// InvalidInput 构造带描述的 ErrInvalidInput
func InvalidInput(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidInput)
}

// IOFailure 包装底层存储错误
func IOFailure(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrIOFailure, err)
}
