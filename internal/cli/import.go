package cli

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"acvcharts/internal/amqp"
	"acvcharts/internal/backend"
	"acvcharts/internal/core"
	applog "acvcharts/internal/log"
	"acvcharts/internal/services"
)

func newImportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Replace the SQL store contents with a JSON record batch",
		RunE:  runImport,
	}
	cmd.Flags().StringP("input", "i", "", "JSON file holding an array of records")
	_ = cmd.MarkFlagRequired("input")
	cmd.Flags().Bool("quiet", false, "Hide the progress bar")
	return cmd
}

func runImport(cmd *cobra.Command, _ []string) error {
	input, _ := cmd.Flags().GetString("input")
	quiet, _ := cmd.Flags().GetBool("quiet")

	rt, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	bcfg, err := backend.FromAppConfig(rt.cfg)
	if err != nil {
		return err
	}
	if !bcfg.Type.IsSQL() {
		return fmt.Errorf("import needs a SQL backend (sqlite, postgres or mysql), got %s", bcfg.Type)
	}

	f, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	recs, err := core.DecodeRecords(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("decode %s: %w", input, err)
	}

	res, err := backend.NewFactory(rt.logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return err
	}
	defer res.Close()

	var publisher services.Publisher
	if rt.cfg.AMQPURL != "" {
		client, err := amqp.NewClient(rt.cfg.AMQPURL, rt.cfg.AMQPExchange, rt.cfg.AMQPQueue, rt.logger)
		if err != nil {
			rt.logger.Warn("Failed to initialize AMQP client, continuing without notification", applog.FieldError, err)
		} else {
			defer client.Close()
			publisher = client
		}
	}

	progress := func(int) {}
	if !quiet && len(recs) > 0 {
		bar := progressbar.NewOptions(len(recs),
			progressbar.OptionSetWriter(cmd.ErrOrStderr()),
			progressbar.OptionSetDescription("Importing records"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish())
		defer bar.Finish()
		progress = func(n int) { _ = bar.Set(n) }
	}

	svc := services.NewImportService(res.Writer, res.Source.Name(), publisher, rt.logger)
	if err := svc.Import(ctx, recs, progress); err != nil {
		return err
	}

	pterm.Success.WithWriter(cmd.OutOrStdout()).Printfln("Imported %d records into %s", len(recs), res.Source.Name())
	return nil
}
