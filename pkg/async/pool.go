package async

import (
	"context"
	"runtime/debug"
	"time"

	"social-im/config"
	"social-im/pkg/logger"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// Pool 协程池，用于与请求生命周期脱钩的后台任务
type Pool struct {
	pool           *ants.Pool
	releaseTimeout time.Duration
	taskTimeout    time.Duration
}

// New 根据配置创建协程池
func New(cfg config.AsyncConfig) (*Pool, error) {
	opts := []ants.Option{
		ants.WithExpiryDuration(cfg.ExpiryDuration),
		ants.WithPanicHandler(func(p any) {
			logger.Error("异步任务panic",
				zap.Any("panic", p),
				zap.String("stack", string(debug.Stack())),
			)
		}),
	}
	if cfg.Nonblocking {
		opts = append(opts, ants.WithNonblocking(true))
	}

	p, err := ants.NewPool(cfg.PoolSize, opts...)
	if err != nil {
		return nil, err
	}
	return &Pool{pool: p, releaseTimeout: cfg.ReleaseTimeout, taskTimeout: cfg.TaskTimeout}, nil
}

// Release 优雅释放协程池资源（等待任务执行完）
func (p *Pool) Release() error {
	if p == nil || p.pool == nil {
		return nil
	}
	if p.releaseTimeout > 0 {
		return p.pool.ReleaseTimeout(p.releaseTimeout)
	}
	p.pool.Release()
	return nil
}

// RunSafe 异步执行任务。
// 任务拿到的 ctx 保留父 ctx 的值但不随其取消，并带有超时；panic 会被记录而不会扩散。
// p 为 nil 时退化为直接启动 goroutine。
func (p *Pool) RunSafe(ctx context.Context, task func(ctx context.Context)) {
	if task == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	timeout := time.Minute
	if p != nil && p.taskTimeout > 0 {
		timeout = p.taskTimeout
	}
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)

	wrap := func() {
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				logger.Error("异步任务panic",
					zap.Any("panic", r),
					zap.String("stack", string(debug.Stack())),
				)
			}
		}()

		task(runCtx)
		if runCtx.Err() == context.DeadlineExceeded {
			logger.Warn("异步任务超时", zap.Duration("timeout", timeout))
		}
	}

	if p == nil || p.pool == nil {
		go wrap()
		return
	}
	if err := p.pool.Submit(wrap); err != nil {
		cancel()
		logger.Error("异步任务提交失败", zap.Error(err), zap.Duration("timeout", timeout))
	}
}

// Running 正在执行的任务数
func (p *Pool) Running() int {
	if p == nil || p.pool == nil {
		return 0
	}
	return p.pool.Running()
}
