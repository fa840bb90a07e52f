package generator

import (
	"context"
	"fmt"

	"github.com/okian/bikeflow/internal/adapters/loader"
	"github.com/okian/bikeflow/pkg/logger"
)

// Verify loads the generated dataset back through the dashboard loader and
// checks it against the run statistics.
func Verify(ctx context.Context, cfg Config, want *Stats) error {
	logger.Get().Info(ctx, "verifying generated dataset", logger.String("outDir", cfg.OutDir))

	res, err := loader.New(loader.WithWorkers(cfg.Workers)).Load(ctx, cfg.OutDir, cfg.NTAFile)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrVerify, err)
	}
	if res.Rejected > 0 {
		return fmt.Errorf("%w: %d rows rejected", ErrVerify, res.Rejected)
	}
	if want == nil {
		return nil
	}
	if res.Files < want.Files {
		return fmt.Errorf("%w: %d files loaded, %d written", ErrVerify, res.Files, want.Files)
	}
	if res.Files == want.Files && len(res.Records) != want.Rows {
		return fmt.Errorf("%w: %d rows loaded, %d written", ErrVerify, len(res.Records), want.Rows)
	}
	if cfg.NTAFile != "" && len(res.Areas) != want.Areas {
		return fmt.Errorf("%w: %d areas loaded, %d written", ErrVerify, len(res.Areas), want.Areas)
	}

	var rides int64
	for _, r := range res.Records {
		rides += r.Rides
	}
	if res.Files == want.Files && rides != want.Rides {
		return fmt.Errorf("%w: %d rides loaded, %d written", ErrVerify, rides, want.Rides)
	}

	logger.Get().Info(ctx, "dataset verified",
		logger.Int("files", res.Files),
		logger.Int("rows", len(res.Records)),
		logger.Int("areas", len(res.Areas)),
	)
	return nil
}
