// Package loader reads the daily flow CSV files and the NTA boundary file.
package loader

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/okian/bikeflow/internal/domain/flow"
	"github.com/okian/bikeflow/internal/domain/geo"
	"github.com/okian/bikeflow/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// FileSuffix marks daily flow files; the part before it is the YYYYMM month.
const FileSuffix = "_daily.csv"

// Flow file columns.
const (
	colDate      = "started_date"
	colStartNTA  = "start_NTA"
	colEndNTA    = "end_NTA"
	colStartBoro = "start_Boro"
	colEndBoro   = "end_Boro"
	colRides     = "ride_count"
)

// NTA boundary file columns.
const (
	colGeom    = "the_geom"
	colNTAName = "NTAName"
	colBoro    = "BoroName"
	colNTACode = "NTA2020"
)

var dateLayouts = []string{"2006-01-02", "2006-01-02 15:04:05", time.RFC3339}

// Loader reads a dataset from disk.
type Loader struct {
	workers int
	log     logger.Logger
}

// Result is everything read by one Load call.
type Result struct {
	Records  []flow.Record
	Areas    []geo.Area
	Files    int
	Rejected int
	Duration time.Duration
}

// New creates a Loader.
func New(opts ...Option) *Loader {
	l := &Loader{workers: defaultWorkers()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads every flow file in dataDir and, when ntaFile is non-empty and
// exists, the NTA boundaries. A missing ntaFile is not an error.
func (l *Loader) Load(ctx context.Context, dataDir, ntaFile string) (*Result, error) {
	start := time.Now()

	files, err := FlowFiles(dataDir)
	if err != nil {
		return nil, err
	}

	parsed := make([][]flow.Record, len(files))
	rejected := make([]int, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)
	for i, f := range files {
		g.Go(func() error {
			recs, bad, err := readFlowFile(gctx, f.Path, f.YearMonth)
			if err != nil {
				return err
			}
			parsed[i] = recs
			rejected[i] = bad
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{Files: len(files)}
	total := 0
	for _, p := range parsed {
		total += len(p)
	}
	res.Records = make([]flow.Record, 0, total)
	for i, p := range parsed {
		res.Records = append(res.Records, p...)
		res.Rejected += rejected[i]
	}

	if ntaFile != "" {
		areas, err := ReadAreas(ntaFile)
		switch {
		case errors.Is(err, os.ErrNotExist):
			l.debug(ctx, "nta boundary file not found", logger.String("path", ntaFile))
		case err != nil:
			return nil, err
		default:
			res.Areas = areas
		}
	}

	res.Duration = time.Since(start)
	return res, nil
}

func (l *Loader) debug(ctx context.Context, msg string, fields ...logger.Field) {
	if l.log != nil {
		l.log.Debug(ctx, msg, fields...)
	}
}

// File is one discovered flow file.
type File struct {
	Path      string
	YearMonth flow.YearMonth
}

// FlowFiles lists the YYYYMM_daily.csv files in dir, oldest first. Files
// whose prefix is not a valid month are ignored.
func FlowFiles(dir string) ([]File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadData, err)
	}
	var out []File
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, FileSuffix) {
			continue
		}
		ym, err := flow.ParseYearMonth(strings.TrimSuffix(name, FileSuffix))
		if err != nil {
			continue
		}
		out = append(out, File{Path: filepath.Join(dir, name), YearMonth: ym})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].YearMonth < out[j].YearMonth })
	return out, nil
}

func readFlowFile(ctx context.Context, path string, ym flow.YearMonth) ([]flow.Record, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrLoadData, err)
	}
	defer func() { _ = f.Close() }()
	recs, bad, err := ParseFlows(ctx, f, ym)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %s: %w", ErrLoadData, path, err)
	}
	return recs, bad, nil
}

// ParseFlows reads one daily flow CSV. Rows with an unparseable date or
// ride count are skipped and counted in the second return value.
func ParseFlows(ctx context.Context, r io.Reader, ym flow.YearMonth) ([]flow.Record, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("read header: %w", err)
	}
	cols, err := columnIndex(header, colDate, colStartNTA, colEndNTA, colStartBoro, colEndBoro, colRides)
	if err != nil {
		return nil, 0, err
	}

	var (
		out []flow.Record
		bad int
	)
	for line := 0; ; line++ {
		if line%4096 == 0 && ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, err
		}
		rec, ok := parseFlowRow(row, cols, ym)
		if !ok {
			bad++
			continue
		}
		out = append(out, rec)
	}
	return out, bad, nil
}

func parseFlowRow(row []string, cols map[string]int, ym flow.YearMonth) (flow.Record, bool) {
	get := func(name string) string {
		i := cols[name]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	date, ok := parseDate(get(colDate))
	if !ok {
		return flow.Record{}, false
	}
	rides, ok := parseCount(get(colRides))
	if !ok {
		return flow.Record{}, false
	}
	return flow.Record{
		Date:      date,
		StartNTA:  get(colStartNTA),
		EndNTA:    get(colEndNTA),
		StartBoro: get(colStartBoro),
		EndBoro:   get(colEndBoro),
		Rides:     rides,
		YearMonth: ym,
	}, true
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// parseCount accepts integers and integral floats such as "12.0".
func parseCount(s string) (int64, bool) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, n >= 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || f != float64(int64(f)) {
		return 0, false
	}
	return int64(f), true
}

// ReadAreas reads the NTA boundary CSV.
func ReadAreas(path string) ([]geo.Area, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadData, err)
	}
	defer func() { _ = f.Close() }()
	areas, err := ParseAreas(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoadData, path, err)
	}
	return areas, nil
}

// ParseAreas reads NTA boundary rows. NTA2020 is optional.
func ParseAreas(r io.Reader) ([]geo.Area, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols, err := columnIndex(header, colGeom, colNTAName, colBoro)
	if err != nil {
		return nil, err
	}
	codeIdx := -1
	for i, h := range header {
		if strings.TrimSpace(h) == colNTACode {
			codeIdx = i
		}
	}

	var out []geo.Area
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		at := func(i int) string {
			if i < 0 || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}
		out = append(out, geo.Area{
			Name:    at(cols[colNTAName]),
			Borough: at(cols[colBoro]),
			Code:    at(codeIdx),
			WKT:     at(cols[colGeom]),
		})
	}
	return out, nil
}

func columnIndex(header []string, required ...string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		// strip a UTF-8 BOM left by spreadsheet exports
		idx[strings.TrimPrefix(strings.TrimSpace(h), "\ufeff")] = i
	}
	for _, name := range required {
		if _, ok := idx[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}
	return idx, nil
}
