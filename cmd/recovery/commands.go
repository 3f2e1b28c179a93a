// v0
// cmd/recovery/commands.go
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"salesops/recovery/internal/app"
	"salesops/recovery/internal/config"
	"salesops/recovery/internal/dataset"
	"salesops/recovery/internal/publish"
	"salesops/recovery/internal/recovery"
	"salesops/recovery/internal/report"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "recovery",
		Short:         "Lost-customer recovery potential service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newRegionsCmd(), newExportCmd(), newTopicInitCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(parent context.Context) error {
	bootstrap := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		bootstrap.Error("config_load_failed", slog.Any("err", err))
		return err
	}

	application, err := app.New(cfg)
	if err != nil {
		bootstrap.Error("app_init_failed", slog.Any("err", err))
		return err
	}
	defer func() {
		if cerr := application.Close(); cerr != nil {
			bootstrap.Error("app_close_failed", slog.Any("err", cerr))
		}
	}()

	logger := application.Logger()
	logger.Info("service_boot",
		slog.String("listen_address", cfg.ListenAddress),
		slog.String("log_path", cfg.LogFilePath),
		slog.String("properties_path", cfg.PropertiesPath),
		slog.String("dataset_path", cfg.DatasetPath),
		slog.Bool("export_publish_enabled", cfg.ExportPublishEnabled),
		slog.String("kafka_brokers", strings.Join(cfg.KafkaBrokers, ",")),
	)

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		logger.Error("service_terminated", slog.Any("err", err))
		return err
	}
	logger.Info("service_stopped")
	return nil
}

func newTopicInitCmd() *cobra.Command {
	var partitions, replication int
	cmd := &cobra.Command{
		Use:   "topic-init",
		Short: "Create the export event topic on the configured brokers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelInfo}))
			parent := cmd.Context()
			if parent == nil {
				parent = context.Background()
			}
			ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return publish.EnsureTopic(ctx, logger, publish.TopicSpec{
				Brokers:     cfg.KafkaBrokers,
				Topic:       cfg.ExportTopic,
				Partitions:  partitions,
				Replication: replication,
			})
		},
	}
	cmd.Flags().IntVar(&partitions, "partitions", 3, "partition count for the export topic")
	cmd.Flags().IntVar(&replication, "replication", 1, "replication factor for the export topic")
	return cmd
}

func newRegionsCmd() *cobra.Command {
	var datasetPath string
	cmd := &cobra.Command{
		Use:   "regions",
		Short: "List regions with their average tonnage and lost customers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := dataset.Load(datasetPath)
			if err != nil {
				return err
			}
			return printRegions(cmd.OutOrStdout(), data)
		},
	}
	cmd.Flags().StringVar(&datasetPath, "dataset", "", "YAML dataset file (builtin table when empty)")
	return cmd
}

func printRegions(w io.Writer, data *dataset.Dataset) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REGION\tAVG MT/CUSTOMER\tTOTAL LOST\tCATEGORIES")
	for _, region := range data.Regions() {
		rows := data.RegionRecords(region)
		avg, _ := data.AvgTonnes(region)
		total := lo.SumBy(rows, func(rec dataset.LossRecord) int { return rec.TotalLost })
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", region, strconv.FormatFloat(avg, 'f', -1, 64), total, len(rows))
	}
	return tw.Flush()
}

type exportOptions struct {
	datasetPath string
	region      string
	rates       []string
	format      string
	out         string
}

func newExportCmd() *cobra.Command {
	var opts exportOptions
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Evaluate one scenario and write it as json, xlsx or text",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExport(cmd.OutOrStdout(), opts, time.Now())
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.datasetPath, "dataset", "", "YAML dataset file (builtin table when empty)")
	f.StringVar(&opts.region, "region", "", "region to analyse (first dataset region when empty)")
	f.StringArrayVar(&opts.rates, "rate", nil, "conversion rate as CATEGORY:PRIORITY=PERCENT, e.g. 0:P1=60 (repeatable)")
	f.StringVar(&opts.format, "format", "text", "output format: json, xlsx or text")
	f.StringVar(&opts.out, "out", "", "output file (stdout when empty)")
	return cmd
}

func runExport(stdout io.Writer, opts exportOptions, now time.Time) error {
	data, err := dataset.Load(opts.datasetPath)
	if err != nil {
		return err
	}
	region := opts.region
	if region == "" {
		region = data.DefaultRegion()
	}
	engine := recovery.NewEngine(data, recovery.TopK)
	n := len(engine.Problems(region))

	rates := recovery.DefaultRates(n)
	for _, raw := range opts.rates {
		slot, value, err := parseRate(raw)
		if err != nil {
			return err
		}
		if slot.Category >= n {
			return fmt.Errorf("rate %q: category %d out of range, region %s has %d", raw, slot.Category, region, n)
		}
		rates[slot] = recovery.ClampRate(value)
	}
	scenario := engine.Evaluate(region, rates)

	format := strings.ToLower(opts.format)
	if format != "text" && format != "json" && format != "xlsx" {
		return fmt.Errorf("unsupported format %q", opts.format)
	}
	if opts.out == "" {
		return writeExport(stdout, format, scenario, data, now)
	}

	f, err := os.Create(opts.out)
	if err != nil {
		return fmt.Errorf("create %s: %w", opts.out, err)
	}
	err = writeExport(f, format, scenario, data, now)
	if cerr := f.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("close %s: %w", opts.out, cerr)
	}
	return err
}

func writeExport(w io.Writer, format string, scenario recovery.Scenario, data *dataset.Dataset, now time.Time) error {
	switch format {
	case "json":
		return report.WriteJSON(w, report.Build(scenario, data, now))
	case "xlsx":
		return report.WriteXLSX(w, report.Build(scenario, data, now))
	default:
		_, err := io.WriteString(w, report.RenderText(scenario))
		return err
	}
}

// parseRate reads CATEGORY:PRIORITY=PERCENT.
func parseRate(raw string) (recovery.Slot, int, error) {
	slotPart, valuePart, ok := strings.Cut(raw, "=")
	if !ok {
		return recovery.Slot{}, 0, fmt.Errorf("rate %q: expected CATEGORY:PRIORITY=PERCENT", raw)
	}
	catPart, prioPart, ok := strings.Cut(slotPart, ":")
	if !ok {
		return recovery.Slot{}, 0, fmt.Errorf("rate %q: expected CATEGORY:PRIORITY=PERCENT", raw)
	}
	category, err := strconv.Atoi(strings.TrimSpace(catPart))
	if err != nil || category < 0 {
		return recovery.Slot{}, 0, fmt.Errorf("rate %q: invalid category", raw)
	}
	priority, err := dataset.ParsePriority(prioPart)
	if err != nil {
		return recovery.Slot{}, 0, fmt.Errorf("rate %q: %w", raw, err)
	}
	value, err := strconv.Atoi(strings.TrimSpace(valuePart))
	if err != nil {
		return recovery.Slot{}, 0, fmt.Errorf("rate %q: invalid percent", raw)
	}
	return recovery.Slot{Category: category, Priority: priority}, value, nil
}
