// Command bcollapse reads a barcode count listing and collapses likely error
// variants into their canonical barcodes.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	internal "github.com/bcdtools/barcode-collapse/bcc"
	"github.com/bcdtools/barcode-collapse/bcc/collapse"
	"github.com/bcdtools/barcode-collapse/bcc/config"
	"github.com/bcdtools/barcode-collapse/bcc/freq"
	"github.com/bcdtools/barcode-collapse/bcc/store"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(argv []string, out, errOut io.Writer) int {
	logger := internal.GetLogger()

	fs := flag.NewFlagSet("bcollapse", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var (
		configPath  = fs.String("config", "", "config file path (default: search standard locations)")
		inputPath   = fs.String("input", "", "barcode count TSV (barcode<TAB>count); '-' or empty reads stdin")
		outputPath  = fs.String("output", "", "cluster TSV output path (default stdout)")
		metricsPath = fs.String("metrics-out", "", "adaptive metrics TSV output path")
		dbDSN       = fs.String("db", "", "libsql DSN to persist results (e.g. file:results.db)")
		mode        = fs.String("mode", "", "collapse mode: greedy, adaptive or bottomup")
		workers     = fs.Int("workers", 0, "worker count for per-barcode fan-out")
		findIndels  = fs.Bool("indels", false, "use the indel-sensitive metric instead of Hamming")
		editDist    = fs.Int("edit-distance", 0, "fixed edit distance (greedy/bottomup); adaptive default fallback")
		minDist     = fs.Int("min-edit-distance", 0, "adaptive threshold scan floor")
		maxDist     = fs.Int("max-edit-distance", 0, "adaptive threshold scan ceiling")
		interval    = fs.Int("report-interval", -1, "progress report interval (0 disables)")
		verbose     = fs.Bool("verbose", false, "log an end-of-run summary")
	)
	if err := fs.Parse(argv); err != nil {
		return 2
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load config")
		return 1
	}

	// Explicit flags override config file values.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "mode":
			cfg.Collapse.Mode = *mode
		case "workers":
			cfg.Collapse.Workers = *workers
		case "indels":
			cfg.Collapse.FindIndels = *findIndels
		case "edit-distance":
			cfg.Collapse.EditDistance = *editDist
		case "min-edit-distance":
			cfg.Collapse.MinEditDistance = *minDist
		case "max-edit-distance":
			cfg.Collapse.MaxEditDistance = *maxDist
		case "report-interval":
			cfg.Collapse.ReportInterval = *interval
		case "verbose":
			cfg.Collapse.Verbose = *verbose
		case "output":
			cfg.Output.Path = *outputPath
		case "metrics-out":
			cfg.Output.MetricsPath = *metricsPath
		case "db":
			cfg.Output.DatabaseDSN = *dbDSN
		}
	})

	table, err := readInput(*inputPath)
	if err != nil {
		logger.Error().Err(err).Msg("failed to read input")
		return 1
	}
	logger.Info().Int("barcodes", table.Size()).Str("mode", cfg.Collapse.Mode).Msg("starting collapse")

	collapser := collapse.New(
		collapse.WithWorkers(cfg.Collapse.Workers),
		collapse.WithReportInterval(cfg.Collapse.ReportInterval),
		collapse.WithVerbose(cfg.Collapse.Verbose),
	)

	clusterOut, closeClusterOut, err := openOutput(cfg.Output.Path, out)
	if err != nil {
		logger.Error().Err(err).Msg("failed to open output")
		return 1
	}
	defer closeClusterOut()

	params := store.RunParams{
		Mode:            cfg.Collapse.Mode,
		FindIndels:      cfg.Collapse.FindIndels,
		EditDistance:    cfg.Collapse.EditDistance,
		MinEditDistance: cfg.Collapse.MinEditDistance,
		MaxEditDistance: cfg.Collapse.MaxEditDistance,
	}

	switch cfg.Collapse.Mode {
	case "greedy":
		res, err := collapser.CollapseAll(table, cfg.Collapse.FindIndels, cfg.Collapse.EditDistance)
		if err != nil {
			logger.Error().Err(err).Msg("collapse failed")
			return 1
		}
		if err := writeClusters(clusterOut, res); err != nil {
			logger.Error().Err(err).Msg("failed to write output")
			return 1
		}
		if cfg.Output.DatabaseDSN != "" {
			if err := persist(cfg.Output.DatabaseDSN, func(s *store.ResultStore) error {
				_, err := s.SaveCollapse(params, res)
				return err
			}); err != nil {
				logger.Error().Err(err).Msg("failed to persist result")
				return 1
			}
		}

	case "adaptive":
		res, err := collapser.CollapseAdaptiveAll(table, cfg.Collapse.FindIndels,
			cfg.Collapse.EditDistance, cfg.Collapse.MinEditDistance, cfg.Collapse.MaxEditDistance)
		if err != nil {
			logger.Error().Err(err).Msg("adaptive collapse failed")
			return 1
		}
		if err := writeClusters(clusterOut, res.Clusters); err != nil {
			logger.Error().Err(err).Msg("failed to write output")
			return 1
		}
		if cfg.Output.MetricsPath != "" {
			mf, err := os.Create(cfg.Output.MetricsPath)
			if err != nil {
				logger.Error().Err(err).Msg("failed to open metrics output")
				return 1
			}
			if err := writeMetrics(mf, res.Metrics); err != nil {
				mf.Close()
				logger.Error().Err(err).Msg("failed to write metrics")
				return 1
			}
			if err := mf.Close(); err != nil {
				logger.Error().Err(err).Msg("failed to write metrics")
				return 1
			}
		}
		sum := collapse.Summarize(res.Metrics)
		logger.Info().
			Int("cores", sum.Cores).
			Int("merged", sum.TotalMerged).
			Float64("mean_discovered", sum.MeanDiscovered).
			Float64("median_discovered", sum.MedianDiscovered).
			Float64("p90_cluster_size", sum.P90ClusterSize).
			Msg("adaptive collapse summary")
		if cfg.Output.DatabaseDSN != "" {
			if err := persist(cfg.Output.DatabaseDSN, func(s *store.ResultStore) error {
				_, err := s.SaveAdaptive(params, res)
				return err
			}); err != nil {
				logger.Error().Err(err).Msg("failed to persist result")
				return 1
			}
		}

	case "bottomup":
		res, err := collapser.BottomUpCollapse(table, cfg.Collapse.EditDistance)
		if err != nil {
			logger.Error().Err(err).Msg("bottom-up collapse failed")
			return 1
		}
		if err := writePairs(clusterOut, res); err != nil {
			logger.Error().Err(err).Msg("failed to write output")
			return 1
		}
		if cfg.Output.DatabaseDSN != "" {
			if err := persist(cfg.Output.DatabaseDSN, func(s *store.ResultStore) error {
				_, err := s.SaveBottomUp(params, res)
				return err
			}); err != nil {
				logger.Error().Err(err).Msg("failed to persist result")
				return 1
			}
		}

	default:
		fmt.Fprintf(errOut, "unknown mode %q (want greedy, adaptive or bottomup)\n", cfg.Collapse.Mode)
		return 2
	}

	if err := closeClusterOut(); err != nil {
		logger.Error().Err(err).Msg("failed to write output")
		return 1
	}
	return 0
}

func readInput(path string) (*freq.Table, error) {
	if path == "" || path == "-" {
		return freq.ReadCounts(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return freq.ReadCounts(f)
}

// openOutput returns the writer for path plus an idempotent close function,
// so the deferred cleanup and the explicit flush check never double-close.
func openOutput(path string, fallback io.Writer) (io.Writer, func() error, error) {
	if path == "" {
		return fallback, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	closed := false
	closeFn := func() error {
		if closed {
			return nil
		}
		closed = true
		return f.Close()
	}
	return f, closeFn, nil
}

func persist(dsn string, save func(*store.ResultStore) error) error {
	s, err := store.Open(dsn)
	if err != nil {
		return err
	}
	defer s.Close()
	return save(s)
}

func writeClusters(w io.Writer, res collapse.Result) error {
	cores := make([]string, 0, len(res))
	for core := range res {
		cores = append(cores, core)
	}
	sort.Strings(cores)
	for _, core := range cores {
		if _, err := fmt.Fprintf(w, "%s\t%s\n", core, strings.Join(res[core], ",")); err != nil {
			return fmt.Errorf("writing clusters: %w", err)
		}
	}
	return nil
}

func writeMetrics(w io.Writer, metrics []collapse.MappingMetric) error {
	if _, err := fmt.Fprintln(w, "barcode\tnum_merged\tedit_distance_used\tedit_distance_discovered\toriginal_observations\ttotal_observations"); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}
	for _, m := range metrics {
		if _, err := fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\n",
			m.Barcode, m.NumMerged, m.EditDistanceUsed, m.EditDistanceDiscovered,
			m.OriginalObservations, m.TotalObservations); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
	}
	return nil
}

func writePairs(w io.Writer, res *collapse.BottomUpResult) error {
	smalls := make([]string, 0, len(res.Pairs))
	for small := range res.Pairs {
		smalls = append(smalls, small)
	}
	sort.Strings(smalls)
	for _, small := range smalls {
		if _, err := fmt.Fprintf(w, "%s\t%s\n", small, res.Pairs[small]); err != nil {
			return fmt.Errorf("writing pairs: %w", err)
		}
	}
	ambiguous := make([]string, 0, len(res.Ambiguous))
	for bc := range res.Ambiguous {
		ambiguous = append(ambiguous, bc)
	}
	sort.Strings(ambiguous)
	for _, bc := range ambiguous {
		if _, err := fmt.Fprintf(w, "%s\t-\n", bc); err != nil {
			return fmt.Errorf("writing pairs: %w", err)
		}
	}
	return nil
}
