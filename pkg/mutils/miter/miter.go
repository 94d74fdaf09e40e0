package miter

import (
	"fmt"
	"runtime"
	"sync"
)

// GetBlockSize 並列処理のブロックサイズとブロック数を返す
func GetBlockSize(total int) (blockSize, blockCount int) {
	if total <= 0 {
		return 0, 0
	}

	workers := runtime.NumCPU()
	if workers > total {
		workers = total
	}

	blockSize = (total + workers - 1) / workers
	blockCount = (total + blockSize - 1) / blockSize

	return blockSize, blockCount
}

// IterParallelByCount [0, total) をブロック分割して並列実行する。
// fn はインデックスごとに呼ばれ、logFn はブロック完了ごとに呼ばれる
func IterParallelByCount(total, blockSize int, fn func(index int), logFn func(iterIndex, allCount int)) error {
	if total <= 0 {
		return nil
	}
	if blockSize <= 0 {
		blockSize = total
	}

	blockCount := (total + blockSize - 1) / blockSize
	errCh := make(chan error, blockCount)

	var wg sync.WaitGroup
	var doneMu sync.Mutex
	doneCount := 0

	for start := 0; start < total; start += blockSize {
		end := start + blockSize
		if end > total {
			end = total
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					errCh <- fmt.Errorf("parallel block [%d:%d] panicked: %v", start, end, r)
				}
			}()

			for i := start; i < end; i++ {
				fn(i)
			}

			if logFn != nil {
				doneMu.Lock()
				doneCount++
				logFn(doneCount, blockCount)
				doneMu.Unlock()
			}
		}(start, end)
	}

	wg.Wait()
	close(errCh)

	// 最初のエラーのみ返す
	for err := range errCh {
		if err != nil {
			return err
		}
	}

	return nil
}
