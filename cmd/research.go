package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/deepscout/config"
	"github.com/mohammad-safakhou/deepscout/internal/research"
	srv "github.com/mohammad-safakhou/deepscout/internal/server"
	"github.com/mohammad-safakhou/deepscout/internal/telemetry"
)

func researchCMD() *cobra.Command {
	var cfgPath string
	var mode string
	var maxSources int
	var dateFrom string
	var dateTo string
	var webpageURL string

	var cmd = &cobra.Command{
		Use:   "research [question]",
		Short: "Run one research question and print the report",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}

			tel := telemetry.New(cfg.Telemetry)
			defer tel.Shutdown()

			engine, err := srv.BuildEngine(cfg, tel)
			if err != nil {
				return err
			}

			question := research.Question{
				Text:       strings.Join(args, " "),
				DateFrom:   dateFrom,
				DateTo:     dateTo,
				WebpageURL: webpageURL,
				MaxSources: maxSources,
				Mode:       research.Mode(mode),
			}

			report, err := engine.Research(cmd.Context(), question)
			if err != nil {
				return err
			}

			fmt.Println(report.Body)
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", string(research.ModeDeepSearch), "deep_search or deep_research")
	cmd.Flags().IntVar(&maxSources, "max-sources", 0, "source budget per pass (default from config)")
	cmd.Flags().StringVar(&dateFrom, "date-from", "", "restrict paper search from this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&dateTo, "date-to", "", "restrict paper search to this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&webpageURL, "url", "", "webpage to include as a source")
	cmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return cmd
}
