// Command nidsbench trains six classifiers on a network intrusion detection
// CSV and reports their test metrics.
//
// Usage:
//
//	nidsbench [-config nidsbench.toml]
//
// Settings can also be given as NIDS_* environment variables (see
// internal/config).
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/YuminosukeSato/nidsbench/dataset"
	"github.com/YuminosukeSato/nidsbench/evaluation"
	"github.com/YuminosukeSato/nidsbench/internal/config"
	"github.com/YuminosukeSato/nidsbench/pkg/errors"
	"github.com/YuminosukeSato/nidsbench/pkg/log"
	"github.com/YuminosukeSato/nidsbench/preprocessing"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "nidsbench: %v\n", err)
		os.Exit(1)
	}
	logger, err := log.Setup(os.Stderr, cfg.LogLevel, cfg.LogConsole)
	if err != nil {
		fmt.Fprintf(os.Stderr, "nidsbench: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, logger, os.Stdout); err != nil {
		logger.Error("Benchmark failed", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger log.Logger, out io.Writer) error {
	runRecord := evaluation.NewRun(cfg.DataPath, time.Now(), nil)
	logger = logger.With(log.RunIDKey, runRecord.RunID.String())

	logger.Info("Loading dataset",
		log.PhaseKey, log.PhaseLoading,
		log.PathKey, cfg.DataPath,
		log.RandomSeedKey, cfg.Seed,
	)
	frame, err := dataset.Load(cfg.DataPath)
	if err != nil {
		return err
	}
	evaluation.PrintColumns(out, frame.Names())

	pipeline := preprocessing.NewPipeline(cfg.PipelineConfig(),
		preprocessing.WithPipelineLogger(logger))
	data, err := pipeline.Prepare(frame)
	if err != nil {
		return err
	}
	evaluation.PrintDistribution(out, "Training set class distribution", data.TrainLabels)
	fmt.Fprintln(out)
	evaluation.PrintDistribution(out, "Test set class distribution", data.TestLabels)

	evaluator := evaluation.NewEvaluator(
		evaluation.WithLogger(logger.With(log.ComponentKey, "evaluation")),
		evaluation.WithParallelism(cfg.Parallelism),
	)
	results, err := evaluator.Evaluate(ctx, evaluation.DefaultRegistry(cfg.Seed), data)
	if err != nil {
		return err
	}

	yTest := data.YTestClasses()
	actual := evaluation.ClassSet(data.ClassNames, yTest)
	for _, r := range results {
		evaluation.PrintClassSets(out, r.Name, actual, evaluation.ClassSet(data.ClassNames, r.Predictions))
	}
	evaluation.PrintResults(out, results)

	if cfg.PlotModel != "" {
		r, ok := evaluation.FindResult(results, cfg.PlotModel)
		if !ok {
			return errors.NewValidationError("plot_model", "model not in registry", cfg.PlotModel)
		}
		title := cfg.PlotModel + " Confusion Matrix"
		if err := evaluation.PlotConfusionMatrix(cfg.PlotPath, data.ClassNames, yTest, r.Predictions, title); err != nil {
			return err
		}
		logger.Info("Saved confusion matrix",
			log.PhaseKey, log.PhaseReporting,
			log.ModelNameKey, cfg.PlotModel,
			log.PathKey, cfg.PlotPath,
		)
	}

	if cfg.ResultsDB != "" {
		store, err := evaluation.OpenStore(cfg.ResultsDB)
		if err != nil {
			return err
		}
		defer store.Close()
		runRecord.Results = results
		if err := store.SaveRun(runRecord); err != nil {
			return err
		}
		logger.Info("Stored run", log.PathKey, cfg.ResultsDB)
	}
	return nil
}
