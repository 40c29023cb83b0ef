/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package concurrent

import (
	"sync"

	"golang.org/x/sync/errgroup"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
)

// maxParallel bounds ForEach so a large membership list cannot open an
// unbounded number of identity-provider requests at once.
const maxParallel = 8

func Exec(count int, fn func() error) (int, error) {
	if count == 0 || fn == nil {
		return 0, nil
	}
	var wg sync.WaitGroup
	wg.Add(count)
	errCh := make(chan error, count)
	defer close(errCh)

	for i := 0; i < count; i++ {
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				errCh <- err
			}
		}()
	}
	wg.Wait()
	successes := count - len(errCh)
	if len(errCh) > 0 {
		err := <-errCh
		return successes, err
	}
	return successes, nil
}

// ForEach runs fn once per item with bounded parallelism and returns every
// failure as one aggregate. All items are attempted even when some fail.
func ForEach[T any](items []T, fn func(item T) error) error {
	if len(items) == 0 || fn == nil {
		return nil
	}
	var g errgroup.Group
	g.SetLimit(maxParallel)
	errs := make([]error, len(items))
	for i := range items {
		g.Go(func() error {
			errs[i] = fn(items[i])
			return nil
		})
	}
	_ = g.Wait()
	return utilerrors.NewAggregate(errs)
}
