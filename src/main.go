package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"h2oData/src/config"
	"h2oData/src/generator"
	"h2oData/src/util"
	"h2oData/src/writer"

	"github.com/pingcap/errors"
	"github.com/spf13/cobra"
)

var (
	pathPrefix string
	sizeName   string
	dataFormat string
	kFlag      int64
	nasFlag    int
	seedFlag   int64
	batchSize  int
	threads    int
	cfgPath    string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "h2odata",
		Short:         "Generate h2o db-benchmark datasets",
		Long:          "Generate the synthetic groupby and join datasets of the h2o db-benchmark\nas CSV, Parquet or Delta Lake tables, locally or on S3/GCS.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&pathPrefix, "path-prefix", "", "output folder for generated data")
	pf.StringVar(&sizeName, "size", "SMALL", "dataset size: SMALL (1e7), MEDIUM (1e8), LARGE (1e9)")
	pf.StringVar(&dataFormat, "data-format", "csv", "output format: csv, parquet or delta")
	pf.IntVar(&nasFlag, "nas", 0, "percentage of NULLs in nullable columns (0-100)")
	pf.Int64Var(&seedFlag, "seed", 42, "seed of the generation")
	pf.IntVar(&batchSize, "batch-size", util.DefaultBatchSize, "batch size in rows")
	pf.IntVar(&threads, "threads", 1, "column generation threads per batch")
	pf.StringVar(&cfgPath, "cfg", "", "optional TOML config for format and storage options")
	_ = root.MarkPersistentFlagRequired("path-prefix")

	groupby := &cobra.Command{
		Use:   "groupby",
		Short: "Create the h2o groupby dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, generator.DatasetGroupBy)
		},
	}
	groupby.Flags().Int64Var(&kFlag, "k", 100, "amount of keys (groups)")

	join := &cobra.Command{
		Use:   "join",
		Short: "Create the four h2o join datasets (lhs, small, medium, big)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, generator.DatasetJoin)
		},
	}

	root.AddCommand(groupby, join)
	return root
}

func run(cmd *cobra.Command, kind generator.DatasetKind) error {
	rows, err := generator.ParseSize(sizeName)
	if err != nil {
		return errors.Trace(err)
	}
	format, err := writer.ParseFormat(dataFormat)
	if err != nil {
		return errors.Trace(err)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return errors.Trace(err)
	}

	req := generator.Request{
		Kind:       kind,
		PathPrefix: pathPrefix,
		Rows:       rows,
		Format:     format,
		K:          kFlag,
		NAs:        nasFlag,
		Seed:       seedFlag,
		BatchSize:  batchSize,
		Threads:    threads,
	}

	ctx := cmd.Context()
	orch, err := generator.New(ctx, req, cfg)
	if err != nil {
		return errors.Trace(err)
	}
	defer orch.Close()

	return orch.Run(ctx)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
