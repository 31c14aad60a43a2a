package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rl1809/plant-floor/internal/adapter/sink"
	"github.com/rl1809/plant-floor/internal/core/domain"
	"github.com/rl1809/plant-floor/internal/core/service"
	"github.com/rl1809/plant-floor/internal/port"
)

var (
	runs           = flag.Int("runs", 50, "Number of simulations to run concurrently")
	partWorkers    = flag.Int("part", 20, "Part workers per simulation")
	productWorkers = flag.Int("product", 16, "Product workers per simulation")
	maxAttempts    = flag.Int("max-attempts", 0, "Admission attempts before a cycle is abandoned (0 = unbounded)")
	baseSeed       = flag.Int64("seed", 1, "Seed of the first simulation")
)

type result struct {
	seed   int64
	report *service.Report
	events []domain.Event
	closed bool
	err    error
}

func main() {
	flag.Parse()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	results := make([]result, *runs)
	var failed atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < *runs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			mem := sink.NewMemory()
			seed := *baseSeed + int64(i)
			report, err := service.NewPlantSimulation(*partWorkers, *productWorkers,
				service.WithSeed(seed),
				service.WithMaxAdmitAttempts(*maxAttempts),
				service.WithSink(func(context.Context) (port.EventSink, error) { return mem, nil }),
			).Run(ctx)
			if err != nil {
				failed.Add(1)
			}
			results[i] = result{seed: seed, report: report, events: mem.Events(), closed: mem.Closed(), err: err}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Simulations:      %d\n", *runs)
	fmt.Printf("Workers per run:  %d part / %d product\n", *partWorkers, *productWorkers)
	fmt.Printf("Failed runs:      %d\n", failed.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	pass := true
	for _, r := range results {
		for _, msg := range check(r) {
			pass = false
			fmt.Printf("FAIL: seed %d: %s\n", r.seed, msg)
		}
	}
	if !pass {
		log.Fatal("stress test failed")
	}
	fmt.Println("PASS: every run terminated with non-negative inventory and a consistent ledger")
}

func check(r result) []string {
	var problems []string
	if r.err != nil {
		problems = append(problems, fmt.Sprintf("run error: %v", r.err))
		var crash *service.WorkerCrashError
		if errors.As(r.err, &crash) {
			problems = append(problems, string(crash.Stack))
		}
	}
	if r.report == nil {
		return append(problems, "no report")
	}

	if kind, neg := r.report.Buffer.FirstNegative(); neg {
		problems = append(problems, fmt.Sprintf("buffer kind %s negative: %s", kind, r.report.Buffer))
	}
	if kind, neg := r.report.Cart.FirstNegative(); neg {
		problems = append(problems, fmt.Sprintf("cart kind %s negative: %s", kind, r.report.Cart))
	}

	credited := 0
	for ref, n := range r.report.Ledger {
		if ref.Kind != domain.WorkerPart {
			problems = append(problems, fmt.Sprintf("unexpected ledger entry for %s", ref))
		}
		credited += n
	}
	if want := int(r.report.Stats[domain.WorkerPart].Completed); credited != want {
		problems = append(problems, fmt.Sprintf("ledger total %d, completed part cycles %d", credited, want))
	}
	if *maxAttempts == 0 {
		for kind, s := range r.report.Stats {
			if s.Abandoned != 0 {
				problems = append(problems, fmt.Sprintf("%d %s cycles abandoned without an attempt bound", s.Abandoned, kind))
			}
		}
	}

	if len(r.events) == 0 || r.events[len(r.events)-1].Action != domain.ActionFinish {
		problems = append(problems, "finish event is not the last event")
	}
	if !r.closed {
		problems = append(problems, "sink was not closed")
	}
	return problems
}
