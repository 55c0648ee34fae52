package worker

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Pool 有界任务池：同时运行的任务数不超过 size，每个任务带超时
type Pool struct {
	slots   chan struct{}
	timeout time.Duration
	busy    atomic.Int64
	logger  *zap.Logger
}

// NewPool 创建任务池。size ≤ 0 时取 CPU 核数，timeout ≤ 0 表示不限时。
func NewPool(size int, timeout time.Duration, logger *zap.Logger) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		slots:   make(chan struct{}, size),
		timeout: timeout,
		logger:  logger,
	}
}

// Size 池容量
func (p *Pool) Size() int {
	return cap(p.slots)
}

// Busy 正在运行的任务数
func (p *Pool) Busy() int {
	return int(p.busy.Load())
}

// Do 等待空位后执行 fn。
// 等待期间遵守 ctx；超时后立即返回 context.DeadlineExceeded，
// 任务收到取消信号，空位在 fn 真正退出后才释放。
func (p *Pool) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	p.busy.Add(1)

	var (
		jobCtx context.Context
		cancel context.CancelFunc
	)
	if p.timeout > 0 {
		jobCtx, cancel = context.WithTimeout(ctx, p.timeout)
	} else {
		jobCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			p.busy.Add(-1)
			<-p.slots
		}()
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("worker job panicked", zap.Any("panic", r))
				done <- fmt.Errorf("worker job panicked: %v", r)
			}
		}()
		done <- fn(jobCtx)
	}()

	return p.wait(jobCtx, done)
}

// wait 等待任务结果；截止时刻与任务完成同时发生时以任务结果为准
func (p *Pool) wait(ctx context.Context, done <-chan error) error {
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
	}

	select {
	case err := <-done:
		return err
	default:
	}
	p.logger.Warn("worker job cancelled",
		zap.Duration("timeout", p.timeout),
		zap.Error(ctx.Err()),
	)
	return ctx.Err()
}
