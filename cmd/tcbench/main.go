// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command tcbench stresses tcgo with concurrent allocate/free workers, one
// per CPU, pinned with runtime.LockOSThread the way the retrieved
// google/page_alloc_bench kallocfree workload pins its per-CPU goroutines.
// It is the analogue of the original C++ project's allocator_bench.cc.
package main

import (
	"context"
	"crypto/rand"
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/xylaaaaa/tcgo"
	"github.com/xylaaaaa/tcgo/internal/diag"
)

func main() {
	size := flag.Int("size", 64, "object size in bytes to allocate per iteration")
	iterations := flag.Int("iterations", 1_000_000, "allocate/free iterations per worker")
	workers := flag.Int("workers", runtime.GOMAXPROCS(0), "number of concurrent workers")
	verify := flag.Bool("verify", false, "checksum buffer contents across each allocate/free cycle")
	profilePath := flag.String("profile", "", "if set, write a pprof occupancy profile here after the run")
	flag.Parse()

	if err := run(*size, *iterations, *workers, *verify, *profilePath); err != nil {
		log.Fatal(err)
	}
}

func run(size, iterations, workers int, verify bool, profilePath string) error {
	var allocs, frees atomic.Uint64

	eg, ctx := errgroup.WithContext(context.Background())
	start := time.Now()
	for w := 0; w < workers; w++ {
		eg.Go(func() error {
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
			return worker(ctx, size, iterations, verify, &allocs, &frees)
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	elapsed := time.Since(start)

	p := message.NewPrinter(language.English)
	p.Printf("workers=%d size=%d allocs=%d frees=%d elapsed=%s (%.0f ops/sec)\n",
		workers, size, allocs.Load(), frees.Load(), elapsed, float64(allocs.Load()+frees.Load())/elapsed.Seconds())

	if profilePath != "" {
		f, err := os.Create(profilePath)
		if err != nil {
			return fmt.Errorf("tcbench: creating profile file: %w", err)
		}
		defer f.Close()
		if err := diag.WriteProfile(f, diag.Snapshot()); err != nil {
			return fmt.Errorf("tcbench: writing profile: %w", err)
		}
	}
	return nil
}

func worker(ctx context.Context, size, iterations int, verify bool, allocs, frees *atomic.Uint64) error {
	seed := make([]byte, size)
	for i := 0; i < iterations; i++ {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		if verify {
			if _, err := rand.Read(seed); err != nil {
				return fmt.Errorf("tcbench: rand.Read: %w", err)
			}
		}

		p, err := tcgo.Allocate(size)
		if err != nil {
			return fmt.Errorf("tcbench: allocate: %w", err)
		}
		allocs.Add(1)

		if verify {
			buf := unsafe.Slice((*byte)(p), size)
			copy(buf, seed)
			want := blake2b.Sum256(seed)
			got := blake2b.Sum256(buf)
			if got != want {
				return fmt.Errorf("tcbench: corruption detected at iteration %d: checksum mismatch", i)
			}
		}

		tcgo.Free(p, size)
		frees.Add(1)
	}
	return nil
}
