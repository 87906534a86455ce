package utils

import (
	"context"
	"errors"
)

// IsContextCanceled 检查错误是否由上下文取消或超时导致
func IsContextCanceled(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// DetachedContext 返回不随请求取消的上下文，用于补偿动作
// 请求被取消后仍需清理已写入的文件
func DetachedContext(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}
