// Package parallel splits index ranges across goroutines for data-parallel
// loops such as per-row neighbour search and per-tree fitting.
package parallel

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Parallelize runs fn over [0, items) in GOMAXPROCS contiguous chunks.
// fn must only write to state owned by its own range.
func Parallelize(items int, fn func(start, end int)) {
	ParallelizeN(items, runtime.GOMAXPROCS(0), fn)
}

// ParallelizeN は workers 個以下のチャンクに分けて fn を並行に呼び、全て終わるまで待つ。
// workers <= 1 なら呼び出し元の goroutine で fn(0, items) を実行する。
func ParallelizeN(items, workers int, fn func(start, end int)) {
	if items <= 0 {
		return
	}
	if workers <= 1 || items == 1 {
		fn(0, items)
		return
	}
	workers = min(workers, items)
	chunk := (items + workers - 1) / workers

	var g errgroup.Group
	for start := 0; start < items; start += chunk {
		start := start
		end := min(start+chunk, items)
		g.Go(func() error {
			fn(start, end)
			return nil
		})
	}
	_ = g.Wait()
}

// ParallelizeWithThreshold stays on the calling goroutine for small inputs.
func ParallelizeWithThreshold(items, threshold int, fn func(start, end int)) {
	if items <= threshold {
		fn(0, items)
		return
	}
	Parallelize(items, fn)
}
