package main

import (
	"log/slog"

	"flashcard_spider/internal/app"
	"flashcard_spider/internal/config"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type flagValues struct {
	configPath    string
	cookie        string
	listID        int
	pages         int
	autoPages     bool
	outDir        string
	name          string
	stats         bool
	respectRobots bool
	mongo         string
}

func newRootCmd(logger *slog.Logger) *cobra.Command {
	var fv flagValues

	cmd := &cobra.Command{
		Use:           "flashcard-spider",
		Short:         "flashcard-spider scrapes a study4.com flashcard list into JSON and CSV.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(fv.configPath)
			if err != nil {
				return err
			}
			applyFlags(cfg, cmd.Flags(), fv)
			return app.Run(cmd.Context(), cfg, logger, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&fv.configPath, "config", "config.yaml", "Path to the YAML config file.")
	flags.StringVar(&fv.cookie, "cookie", "", "Raw cookie string, \"k=v; k2=v2\" (overrides "+config.CookieEnv+").")
	flags.IntVar(&fv.listID, "list-id", 0, "Flashcard list id.")
	flags.IntVar(&fv.pages, "pages", 0, "Last page to fetch; must be positive unless --auto-pages is set.")
	flags.BoolVar(&fv.autoPages, "auto-pages", false, "Read the last page from the pagination control.")
	flags.StringVar(&fv.outDir, "out-dir", "", "Output directory.")
	flags.StringVar(&fv.name, "name", "", "Base name of the output files.")
	flags.BoolVar(&fv.stats, "stats", false, "Also write <name>_stats.json.")
	flags.BoolVar(&fv.respectRobots, "respect-robots", false, "Refuse to crawl when robots.txt disallows the list.")
	flags.StringVar(&fv.mongo, "mongo", "", "MongoDB connection string; records are upserted when set.")

	return cmd
}

// applyFlags copies explicitly set flags over the loaded config.
func applyFlags(cfg *config.SpiderConfig, flags *pflag.FlagSet, fv flagValues) {
	if flags.Changed("cookie") {
		cfg.Auth.Cookie = fv.cookie
	}
	if flags.Changed("list-id") {
		cfg.Site.ListID = fv.listID
	}
	if flags.Changed("pages") {
		cfg.Site.Pages = fv.pages
	}
	if flags.Changed("auto-pages") {
		cfg.Site.AutoPages = fv.autoPages
	}
	if flags.Changed("out-dir") {
		cfg.Output.Dir = fv.outDir
	}
	if flags.Changed("name") {
		cfg.Output.Name = fv.name
	}
	if flags.Changed("stats") {
		cfg.Output.Stats = fv.stats
	}
	if flags.Changed("respect-robots") {
		cfg.HTTP.RespectRobots = fv.respectRobots
	}
	if flags.Changed("mongo") {
		cfg.Mongo.Connection = fv.mongo
	}
}
