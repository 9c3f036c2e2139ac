package cli

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"acvcharts/internal/backend"
	"acvcharts/internal/core"
	"acvcharts/internal/report"
)

func newAggregateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Aggregate the configured record source and print or export the report",
		RunE:  runAggregate,
	}
	cmd.Flags().StringP("format", "f", "table", "Output format: table, json, csv, pdf")
	cmd.Flags().StringP("output", "o", "", "File or directory to write; stdout when empty (pdf always writes a file)")
	return cmd
}

func runAggregate(cmd *cobra.Command, _ []string) error {
	formatFlag, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")
	format, err := report.ParseFormat(formatFlag)
	if err != nil {
		return err
	}
	if format == report.FormatTable && output != "" {
		return fmt.Errorf("--output needs a file format (json, csv or pdf)")
	}

	rt, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	bcfg, err := backend.FromAppConfig(rt.cfg)
	if err != nil {
		return err
	}
	res, err := backend.NewFactory(rt.logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return err
	}
	defer res.Close()

	recs, err := res.Source.LoadRecords(ctx)
	if err != nil {
		return fmt.Errorf("load records from %s: %w", res.Source.Name(), err)
	}
	rep, err := core.Aggregator{ZeroACV: rt.cfg.ZeroACV()}.Aggregate(recs)
	if err != nil {
		return err
	}

	if output == "" && format != report.FormatPDF {
		return report.Write(cmd.OutOrStdout(), format, rep)
	}

	path, err := report.Export(output, format, rep)
	if err != nil {
		return err
	}
	pterm.Success.WithWriter(cmd.OutOrStdout()).Printfln("Report saved to %s", path)
	return nil
}
