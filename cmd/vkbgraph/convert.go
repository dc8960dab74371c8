package main

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"
	"github.com/vkb-graph/backend/internal/config"
	"github.com/vkb-graph/backend/internal/geo"
	"github.com/vkb-graph/backend/internal/ingest"
	"github.com/vkb-graph/backend/internal/metrics"
	"go.uber.org/zap"
)

func convertCmd(flags *globalFlags) *cobra.Command {
	var (
		opts       ingest.Options
		configPath string
		wgs84      bool
		summary    bool
	)

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert survey records into a Turtle or N-Triples graph",
		Example: `  vkbgraph convert --in records.json --out vkb.ttl --codes organisaties.csv --aliases aliases.txt
  vkbgraph convert --in 2024/ --in extra.jsonl --out vkb.nt --workers 8
  vkbgraph convert --config config.xml --in records.jsonl`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logLevel := "info"
			if configPath != "" {
				cfg, err := config.LoadConfig(configPath)
				if err != nil {
					return err
				}
				applyConfigDefaults(cmd, cfg, &opts)
				logLevel = cfg.Advanced.LogLevel
			}
			if len(opts.Inputs) == 0 || opts.Output == "" {
				return errors.New("--in and --out are required (--out may come from --config)")
			}

			logger, err := flags.logger(logLevel)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			if wgs84 {
				opts.Transformer = geo.Identity{}
			}

			s, err := ingest.New(logger, metrics.New()).Convert(cmd.Context(), opts)
			if err != nil {
				logger.Error("conversion failed", zap.Error(err))
				return err
			}

			if summary {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(s)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringSliceVar(&opts.Inputs, "in", nil, "Survey record files or directories, JSON array or JSON Lines (repeatable)")
	f.StringVar(&opts.Output, "out", "", "Output graph (.ttl or .nt)")
	f.StringVar(&opts.CodesPath, "codes", "", "Organisation export CSV (OVO code;owner code)")
	f.StringVar(&opts.AliasesPath, "aliases", "", "Owner alias blocks file")
	f.StringVar(&opts.RulesPath, "rules", "", "Owner name rules YAML")
	f.IntVar(&opts.Workers, "workers", 4, "Parallel emitters")
	f.StringVar(&configPath, "config", "", "XML config supplying defaults for unset flags")
	f.BoolVar(&wgs84, "wgs84", false, "Coordinates are already longitude/latitude")
	f.BoolVar(&summary, "summary", false, "Print the run summary as JSON")

	return cmd
}

// applyConfigDefaults fills every option whose flag was not given on the
// command line from cfg. The output defaults to the graph the server loads.
func applyConfigDefaults(cmd *cobra.Command, cfg *config.AppConfig, opts *ingest.Options) {
	f := cmd.Flags()
	setString := func(name string, dst *string, value string) {
		if !f.Changed(name) && value != "" {
			*dst = value
		}
	}
	setString("out", &opts.Output, cfg.Storage.GraphSource)
	setString("codes", &opts.CodesPath, cfg.Storage.OrganisationsCSV)
	setString("aliases", &opts.AliasesPath, cfg.Storage.OwnerAliasesFile)
	setString("rules", &opts.RulesPath, cfg.Storage.OwnerRulesFile)
	if !f.Changed("workers") && cfg.Processing.Workers > 0 {
		opts.Workers = cfg.Processing.Workers
	}
}
