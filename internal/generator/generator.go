// Package generator writes synthetic bike flow datasets in the layout the
// dashboard loads: one YYYYMM_daily.csv per month plus an NTA boundary file.
package generator

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/okian/bikeflow/internal/adapters/loader"
	"github.com/okian/bikeflow/internal/domain/flow"
	"github.com/okian/bikeflow/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0o750
	filePermission      = 0o644
)

var flowHeader = []string{"started_date", "start_NTA", "end_NTA", "start_Boro", "end_Boro", "ride_count"}

// Generate writes the dataset described by cfg and returns what it wrote.
// Months are written concurrently; every month draws from its own seeded
// source so output does not depend on scheduling.
func Generate(ctx context.Context, cfg Config) (*Stats, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.OutDir, directoryPermission); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	areas := Areas(cfg.Areas)
	stats := &Stats{Areas: len(areas)}
	months := cfg.Months()

	logger.Get().Info(ctx, "generating flow dataset",
		logger.String("outDir", cfg.OutDir),
		logger.String("from", string(cfg.From)),
		logger.String("to", string(cfg.To)),
		logger.Int("months", len(months)),
		logger.Int("areas", len(areas)),
	)

	if cfg.NTAFile != "" {
		if err := writeFile(cfg.NTAFile, func(w *bufio.Writer) error { return WriteAreas(w, areas) }); err != nil {
			return nil, fmt.Errorf("write nta file: %w", err)
		}
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Workers, 1))
	for _, ym := range months {
		g.Go(func() error {
			rows, rides, err := writeMonth(gctx, cfg, areas, ym)
			if err != nil {
				return fmt.Errorf("month %s: %w", ym, err)
			}
			mu.Lock()
			stats.Files++
			stats.Rows += rows
			stats.Rides += rides
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logger.Get().Info(ctx, "generated flow dataset",
		logger.Int("files", stats.Files),
		logger.String("rows", humanize.Comma(int64(stats.Rows))),
		logger.String("rides", humanize.Comma(stats.Rides)),
	)
	return stats, nil
}

type pairKey struct{ from, to int }

// writeMonth writes one month file. Rows are aggregated per day and pair,
// and sorted so a given seed always yields the same bytes.
func writeMonth(ctx context.Context, cfg Config, areas []Area, ym flow.YearMonth) (int, int64, error) {
	monthSeed, _ := strconv.ParseUint(string(ym), 10, 64)
	rng := rand.New(rand.NewPCG(cfg.Seed, monthSeed))
	weights := popularity(areas, rng)

	path := filepath.Join(cfg.OutDir, string(ym)+loader.FileSuffix)
	var (
		rows  int
		rides int64
	)
	err := writeFile(path, func(w *bufio.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(flowHeader); err != nil {
			return err
		}
		start := ym.Time()
		for day := start; day.Month() == start.Month(); day = day.AddDate(0, 0, 1) {
			if err := ctx.Err(); err != nil {
				return err
			}
			counts := make(map[pairKey]int64, cfg.Pairs)
			for range cfg.Pairs {
				k := pairKey{pick(weights, rng), pick(weights, rng)}
				counts[k] += int64(1 + rng.IntN(cfg.MaxRides))
			}
			keys := make([]pairKey, 0, len(counts))
			for k := range counts {
				keys = append(keys, k)
			}
			sort.Slice(keys, func(i, j int) bool {
				if keys[i].from != keys[j].from {
					return keys[i].from < keys[j].from
				}
				return keys[i].to < keys[j].to
			})
			date := day.Format(time.DateOnly)
			for _, k := range keys {
				from, to := areas[k.from], areas[k.to]
				n := counts[k]
				if err := cw.Write([]string{date, from.Name, to.Name, from.Borough, to.Borough, strconv.FormatInt(n, 10)}); err != nil {
					return err
				}
				rows++
				rides += n
			}
		}
		cw.Flush()
		return cw.Error()
	})
	return rows, rides, err
}

// popularity assigns each area a cumulative weight so some neighbourhoods
// dominate the flows, the way real station networks do.
func popularity(areas []Area, rng *rand.Rand) []float64 {
	cum := make([]float64, len(areas))
	total := 0.0
	for i := range areas {
		total += 0.2 + rng.Float64()*rng.Float64()*4
		cum[i] = total
	}
	return cum
}

func pick(cum []float64, rng *rand.Rand) int {
	target := rng.Float64() * cum[len(cum)-1]
	return min(sort.SearchFloat64s(cum, target), len(cum)-1)
}

// writeFile writes path through a temporary file and renames it into place
// so a watching server never reads a half-written file.
func writeFile(path string, fill func(*bufio.Writer) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".flowgen-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	w := bufio.NewWriter(tmp)
	if err := fill(w); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(filePermission); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
