package peerstore

import (
	"context"
	"sync"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// fanOut 对每个 ID 并发调用 send 一次
//
// 单个失败不取消其他发送；返回成功数与合并后的错误。
func fanOut(ctx context.Context, ids []string, send func(context.Context, string) error) (int, error) {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		ok   int
		errs error
	)
	for _, id := range ids {
		g.Go(func() error {
			err := send(ctx, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = multierr.Append(errs, err)
			} else {
				ok++
			}
			return nil
		})
	}
	_ = g.Wait()
	return ok, errs
}
