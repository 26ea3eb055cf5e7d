package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/opennarrative/opennarrative/internal/analyze"
	"github.com/opennarrative/opennarrative/internal/collect"
	"github.com/opennarrative/opennarrative/internal/config"
	"github.com/opennarrative/opennarrative/internal/dashboard"
	"github.com/opennarrative/opennarrative/internal/database"
	"github.com/opennarrative/opennarrative/internal/server"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "opennarrative",
	Short:   "Narrative monitoring for information operations",
	Long:    "OpenNarrative collects posts per country and time window, scores them into risk-ranked narratives, and serves the analyst dashboard.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(taskforceCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("opennarrative", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/opennarrative/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure countries, sources, and the LLM provider.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Println("Narratives:")
		fmt.Printf("  Total: %d\n", stats.Narratives)
		fmt.Printf("  Scored: %d\n", stats.ScoredNarratives)
		fmt.Printf("  Critical: %d\n", stats.CriticalNarratives)
		fmt.Println("\nPosts:")
		fmt.Printf("  Collected: %d\n", stats.Posts)
		fmt.Println("\nTaskforce:")
		fmt.Printf("  Assignments: %d\n", stats.TaskforceItems)
		fmt.Println("\nHistory:")
		fmt.Printf("  Analysis runs: %d\n", stats.HistoryEntries)
		return nil
	},
}

// --- analyze command ---

var (
	analyzeCountry string
	analyzeStart   string
	analyzeEnd     string
	analyzeSources []string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run an analysis: collect -> enrich -> score",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		input, err := buildInput()
		if err != nil {
			return err
		}

		fmt.Printf("Analyzing %s from %s to %s (%s)\n",
			input.Country, input.TimeFrame.Start, input.TimeFrame.End,
			strings.Join(input.Sources, ", "))

		runner := analyze.New(cfg, db)
		result, err := runner.Run(context.Background(), input)
		if err != nil {
			return err
		}

		for i, step := range result.Steps {
			fmt.Printf("\nStep %d/%d: %s\n", i+1, len(result.Steps), step.Name)
			if step.Err != nil {
				fmt.Printf("  Error: %v\n", step.Err)
			} else {
				fmt.Printf("  %s\n", step.Summary)
			}
		}

		fmt.Println("\nAnalysis complete! Run 'opennarrative serve' to open the dashboard.")
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeCountry, "country", "United States", "Country to monitor")
	analyzeCmd.Flags().StringVar(&analyzeStart, "start", "", "Window start (YYYY-MM-DD, default 7 days ago)")
	analyzeCmd.Flags().StringVar(&analyzeEnd, "end", "", "Window end (YYYY-MM-DD, default today)")
	analyzeCmd.Flags().StringSliceVar(&analyzeSources, "source", nil,
		fmt.Sprintf("Sources to query (repeatable; default %q and %q)", collect.SourceNews, collect.SourceTwitter))
}

func buildInput() (database.AnalysisInput, error) {
	end := analyzeEnd
	if end == "" {
		end = time.Now().Format("2006-01-02")
	}
	start := analyzeStart
	if start == "" {
		endDate, err := time.Parse("2006-01-02", end)
		if err != nil {
			return database.AnalysisInput{}, fmt.Errorf("invalid end date: %s", end)
		}
		start = endDate.AddDate(0, 0, -7).Format("2006-01-02")
	}
	if _, err := time.Parse("2006-01-02", start); err != nil {
		return database.AnalysisInput{}, fmt.Errorf("invalid start date: %s", start)
	}

	sources := analyzeSources
	if len(sources) == 0 {
		sources = []string{collect.SourceNews, collect.SourceTwitter}
	}

	return database.AnalysisInput{
		Country:   analyzeCountry,
		TimeFrame: database.TimeFrame{Start: start, End: end},
		Sources:   sources,
	}, nil
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if servePort > 0 {
			cfg.Server.Port = servePort
		}

		runner := analyze.New(cfg, db)
		composer := analyze.NewComposer(runner.Provider())

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		fmt.Printf("Starting server at http://localhost:%d\n", cfg.Server.Port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(ctx, db, cfg, composer)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (overrides config)")
}

// --- export command ---

var (
	exportOut  string
	exportQ    string
	exportRisk string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export narratives as CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		narratives, err := db.GetNarratives()
		if err != nil {
			return err
		}

		filtered := dashboard.Apply(narratives, exportQ, dashboard.ParseBand(exportRisk),
			dashboard.SortByRisk, dashboard.Desc)
		data := dashboard.ExportCSV(filtered)

		out := exportOut
		if out == "" {
			out = dashboard.ExportFilename
		}
		if out == "-" {
			fmt.Print(string(data))
			return nil
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return fmt.Errorf("writing export: %w", err)
		}
		fmt.Printf("Exported %d narratives to %s\n", len(filtered), out)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file ('-' for stdout)")
	exportCmd.Flags().StringVarP(&exportQ, "query", "q", "", "Filter by title/summary substring")
	exportCmd.Flags().StringVar(&exportRisk, "risk", "all", "Filter by risk band (critical/high/medium/low)")
}

// --- history command ---

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage the analysis run history",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List past analysis runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		items, err := db.GetHistory()
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Println("No analysis runs recorded. Start one with: opennarrative analyze")
			return nil
		}

		for _, item := range items {
			fmt.Printf("[%d] %s  %s  %s to %s  (%s)\n",
				item.ID, item.Timestamp, item.Inputs.Country,
				item.Inputs.TimeFrame.Start, item.Inputs.TimeFrame.End,
				strings.Join(item.Inputs.Sources, ", "))
		}
		return nil
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the run history",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.ClearHistory(); err != nil {
			return err
		}
		fmt.Println("History cleared.")
		return nil
	},
}

func init() {
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyClearCmd)
}

// --- taskforce command ---

var taskforceCmd = &cobra.Command{
	Use:   "taskforce",
	Short: "List taskforce assignments",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		items, err := db.GetTaskforceItems()
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Println("No narratives assigned. Assign one from the dashboard.")
			return nil
		}

		// Most recently assigned first.
		sort.SliceStable(items, func(i, j int) bool {
			a, b := "", ""
			if items[i].CreatedAt != nil {
				a = *items[i].CreatedAt
			}
			if items[j].CreatedAt != nil {
				b = *items[j].CreatedAt
			}
			return a > b
		})

		for _, item := range items {
			fmt.Printf("[%s] %s (%d posts)\n", item.ID, item.NarrativeTitle, len(item.Posts))
		}
		return nil
	},
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "opennarrative.db")
	return database.Open(dbPath)
}
