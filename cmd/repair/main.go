// Command repair rebuilds damaged study documents: it drops duplicate
// sessions, regenerates the attempt log and recomputes progress.
//
//	repair --catalog data/questions.json export.json
//	repair --catalog data/questions.json a.json b.json   # writes a.repaired.json, b.repaired.json
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/secplus-trainer/backend/internal/catalog"
	"github.com/secplus-trainer/backend/internal/infrastructure/config"
	"github.com/secplus-trainer/backend/internal/logging"
	"github.com/secplus-trainer/backend/internal/repair"
	"github.com/secplus-trainer/backend/internal/worker"
)

func main() {
	app := &cli.App{
		Name:      "repair",
		Usage:     "rebuild attempts and progress from a study document's session history",
		ArgsUsage: "<input.json> [more.json ...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "catalog", Value: "data/questions.json", Usage: "question catalog used to re-grade answers"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: "repaired_data.json", Usage: "output file when a single input is given"},
			&cli.StringFlag{Name: "location", Value: "Local", Usage: "time zone for study-day boundaries"},
			&cli.IntFlag{Name: "workers", Value: runtime.NumCPU(), Usage: "files repaired in parallel"},
			&cli.StringFlag{Name: "log-level", Value: "info"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "repair:", err)
		os.Exit(1)
	}
}

type outcome struct {
	out    string
	report repair.Report
	err    error
}

func run(c *cli.Context) error {
	inputs := c.Args().Slice()
	if len(inputs) == 0 {
		return cli.Exit("at least one input file is required", 2)
	}

	logger, _, err := logging.New(config.LoggingConfig{Level: c.String("log-level")})
	if err != nil {
		return err
	}
	defer logger.Sync()

	loc, err := config.StudyConfig{Location: c.String("location")}.TimeLocation()
	if err != nil {
		return fmt.Errorf("location: %w", err)
	}
	cat, err := catalog.Load(c.String("catalog"))
	if err != nil {
		return err
	}
	r := repair.New(cat, loc)

	jobs := make(map[string]worker.Job[outcome], len(inputs))
	for _, in := range inputs {
		out := c.String("out")
		if len(inputs) > 1 {
			out = repairedName(in)
		}
		jobs[in] = func() outcome {
			rep, err := r.RepairFile(in, out)
			return outcome{out: out, report: rep, err: err}
		}
	}

	start := time.Now()
	results := worker.Run(c.Int("workers"), jobs)

	var errs []error
	for _, in := range sortedInputs(results) {
		res := results[in]
		if res.err != nil {
			logger.Error("repair failed", zap.String("input", in), zap.Error(res.err))
			errs = append(errs, res.err)
			continue
		}
		logger.Info("repaired",
			zap.String("input", in),
			zap.String("output", res.out),
			zap.Int("sessions_read", res.report.SessionsRead),
			zap.Int("duplicates_removed", res.report.DuplicatesRemoved),
			zap.Int("attempts_synthesized", res.report.AttemptsSynthesized),
			zap.Int("attempts_discarded", res.report.AttemptsDiscarded),
		)
		for _, w := range res.report.Warnings {
			logger.Warn("repair warning", zap.String("input", in), zap.String("warning", w))
		}
	}
	logger.Info("done", zap.Int("files", len(inputs)), zap.Int("failed", len(errs)), zap.Duration("elapsed", time.Since(start)))

	return errors.Join(errs...)
}

// repairedName maps dir/export.json to dir/export.repaired.json.
func repairedName(in string) string {
	ext := filepath.Ext(in)
	return strings.TrimSuffix(in, ext) + ".repaired.json"
}

func sortedInputs(m map[string]outcome) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
