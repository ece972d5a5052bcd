// Package nidsbench benchmarks classifiers on network intrusion detection
// datasets.
//
// The repository is a small scikit-learn-like estimator library built on
// gonum plus a run-to-completion CLI (cmd/nidsbench) that loads a CSV,
// preprocesses it, trains six models and reports their test metrics.
//
// # Quick Start
//
//	frame, err := dataset.Load("kddcup99_csv.csv")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	data, err := preprocessing.NewPipeline(preprocessing.DefaultPipelineConfig()).Prepare(frame)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	results, err := evaluation.NewEvaluator().Evaluate(ctx, evaluation.DefaultRegistry(42), data)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	evaluation.PrintResults(os.Stdout, results)
//
// # Packages
//
//   - dataset: CSV loading (plain, .gz, .xz) into a column Frame
//   - preprocessing: derived column, label filtering, ordinal encoding,
//     StandardScaler/MinMaxScaler and the Pipeline that chains them
//   - model_selection: seeded train/test split
//   - sklearn/neighbors, sklearn/tree, sklearn/ensemble, sklearn/naive_bayes,
//     sklearn/svm: the six classifiers
//   - metrics: confusion matrix, weighted precision/recall/F1, balanced
//     accuracy, MCC and one-vs-rest ROC AUC
//   - evaluation: model registry, evaluation loop, report, confusion matrix
//     plot and bbolt result store
//   - core/model: estimator interfaces and StateManager
//   - core/parallel: data-parallel helpers
//   - pkg/errors, pkg/log: structured errors and logging
//
// # Error Handling
//
// Errors carry stack traces (cockroachdb/errors) and typed causes:
//
//	if errors.Is(err, errors.ErrProbabilityUnavailable) {
//	    // model was built without probability estimates
//	}
//
// Recoverable conditions (a missing optional column, an ill-defined metric)
// are reported through errors.Warn and routed to zerolog once log.Setup
// has been called.
package nidsbench
