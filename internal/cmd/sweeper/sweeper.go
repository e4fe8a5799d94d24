// Package sweeper parses sweeper command flags and runs the scheduled
// end-of-period pass over the obligation store.
package sweeper

import (
	"context"
	"flag"
	"log"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/ajayprem/cadence/internal/penalty"
	entrypoint "github.com/ajayprem/cadence/internal/platform/cmd"
	"github.com/ajayprem/cadence/internal/storage/sqlite"
)

// Config holds sweeper command configuration.
type Config struct {
	DBPath    string        `env:"CADENCE_SWEEPER_DB_PATH" envDefault:"data/cadence.db"`
	Interval  time.Duration `env:"CADENCE_SWEEPER_INTERVAL" envDefault:"1h"`
	Threshold float64       `env:"CADENCE_SWEEPER_THRESHOLD" envDefault:"50"`
	Once      bool          `env:"CADENCE_SWEEPER_ONCE" envDefault:"false"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The SQLite database path")
	fs.DurationVar(&cfg.Interval, "interval", cfg.Interval, "Delay between sweep passes")
	fs.Float64Var(&cfg.Threshold, "threshold", cfg.Threshold, "Completion rate required for a terminated challenge to complete")
	fs.BoolVar(&cfg.Once, "once", cfg.Once, "Run a single sweep pass and exit")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the sweeper loop.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceSweeper, func(ctx context.Context) error {
		store, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		sw := penalty.NewSweeper(penalty.SweeperConfig{
			Tasks:        store,
			Challenges:   store,
			Participants: store,
			Ledger:       penalty.NewLedger(store, nil, nil),
			Threshold:    cfg.Threshold,
		})

		if cfg.Once {
			return sweepOnce(ctx, sw)
		}

		ticker := time.NewTicker(cfg.Interval)
		defer ticker.Stop()
		for {
			if err := sweepOnce(ctx, sw); err != nil {
				log.Printf("sweep failed: %v", err)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
	})
}

// sweepOnce runs one pass under its own root span.
func sweepOnce(ctx context.Context, sw *penalty.Sweeper) error {
	ctx, span := otel.Tracer("cadence/sweeper").Start(ctx, "sweeper.pass")
	defer span.End()

	report, err := sw.Sweep(ctx, time.Now().UTC())
	if err != nil {
		span.RecordError(err)
		return err
	}
	log.Printf("sweep pass: misses=%d penalties=%d terminated=%d expired=%d",
		report.MissesRecorded, report.PenaltiesAccrued,
		report.ChallengesTerminated, report.ChallengesExpired)
	return nil
}
