package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/TobiSchelling/storyatlas/internal/config"
	"github.com/TobiSchelling/storyatlas/internal/database"
	"github.com/TobiSchelling/storyatlas/internal/discovery"
	"github.com/TobiSchelling/storyatlas/internal/ingest"
	"github.com/TobiSchelling/storyatlas/internal/jordi"
	"github.com/TobiSchelling/storyatlas/internal/llm"
	"github.com/TobiSchelling/storyatlas/internal/mcpserver"
	"github.com/TobiSchelling/storyatlas/internal/search"
	"github.com/TobiSchelling/storyatlas/internal/server"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
	v          = viper.New()
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "storyatlas",
	Short:   "Search and explore a historical news archive",
	Long:    "storyatlas imports newspaper stories, searches and summarizes them, and pitches documentary narratives grounded in the archive.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			setLogFlags()
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		switch {
		case errors.Is(err, config.ErrNoConfig):
			cfg = config.Default()
		case err != nil:
			return err
		default:
			if cfg, err = config.Load(path); err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
		}
		cfg.ApplyOverrides(v)
		setLogFlags()
		return nil
	},
}

func setLogFlags() {
	if verbose || (cfg != nil && strings.EqualFold(cfg.Logging.Level, "DEBUG")) {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	} else {
		log.SetFlags(log.LstdFlags)
	}
}

func init() {
	v.SetEnvPrefix("STORYATLAS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().String("data-dir", "", "Directory holding the story database")
	_ = v.BindPFlag("database.data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(publicationsCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(arcsCmd)
	rootCmd.AddCommand(mcpCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("storyatlas", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/storyatlas/ and create the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
		} else {
			if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
				return fmt.Errorf("creating config directory: %w", err)
			}
			if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
				return fmt.Errorf("writing config: %w", err)
			}
			fmt.Printf("Created config: %s\n", target)
		}

		c, err := config.Load(target)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		c.ApplyOverrides(v)
		db, err := database.Open(c.DatabasePath())
		if err != nil {
			return err
		}
		defer db.Close()

		fmt.Printf("Database ready: %s\n", db.Path())
		fmt.Println("Import stories with 'storyatlas import <dir>', then run 'storyatlas serve'.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show archive statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats(cmd.Context())
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("Database: %s\n\n", db.Path())
		fmt.Println("Archive:")
		fmt.Printf("  Stories: %d\n", stats.Stories)
		fmt.Printf("  Publications: %d\n", stats.Sources)
		fmt.Printf("  Years with stories: %d\n", stats.TimePeriods)
		fmt.Printf("  Arcs: %d\n", stats.Arcs)
		if stats.DateRange.StartDate != nil && stats.DateRange.EndDate != nil {
			fmt.Printf("  Date range: %s to %s\n", *stats.DateRange.StartDate, *stats.DateRange.EndDate)
		}
		if stats.LastIngestTimestamp != nil {
			fmt.Printf("  Last import: %s\n", stats.LastIngestTimestamp.Format(time.RFC3339))
		}
		return nil
	},
}

// --- serve command ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		engine, summarizer := coreServices(db)
		pitches := jordi.NewService(db, llm.CreateProvider(cfg.LLM), nil, jordi.Options{
			MaxStories:  cfg.Jordi.MaxStories,
			Timeout:     cfg.GenerationTimeout(),
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
			Limiter:     jordi.NewLimiter(cfg.Server.GenerationRate, cfg.Server.GenerationBurst),
		})

		srv, err := server.New(db, engine, summarizer, pitches, server.Options{
			CacheTTL: cfg.CacheTTL(),
		})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("Starting server at http://%s\n", cfg.Addr())
		return server.Serve(ctx, cfg.Addr(), srv.Handler())
	},
}

func init() {
	serveCmd.Flags().IntP("port", "p", 8000, "Port to run server on")
	serveCmd.Flags().String("host", "127.0.0.1", "Interface to listen on")
	_ = v.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	_ = v.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
}

// --- import command ---

var importCmd = &cobra.Command{
	Use:   "import [dir]",
	Short: "Import StoryDredge JSON story files from a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		start := time.Now()
		res, err := ingest.NewImporter(db).ImportDir(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Println("\nImport complete.")
		fmt.Printf("  Found: %d\n", res.Found)
		fmt.Printf("  Imported: %d\n", res.Imported)
		fmt.Printf("  Skipped: %d\n", res.Skipped)
		fmt.Printf("  Failed: %d\n", res.Failed)
		fmt.Printf("  Duration: %.2fs\n", time.Since(start).Seconds())
		return nil
	},
}

// --- query commands ---

var (
	searchPublication string
	searchFrom        string
	searchTo          string
	searchLimit       int
	searchDebug       bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search stories and print the result as JSON",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		start, err := database.ParseOptionalDate(searchFrom)
		if err != nil {
			return fmt.Errorf("--from: %w", err)
		}
		end, err := database.ParseOptionalDate(searchTo)
		if err != nil {
			return fmt.Errorf("--to: %w", err)
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		engine, _ := coreServices(db)
		req := search.Request{
			Publication: searchPublication,
			StartDate:   start,
			EndDate:     end,
			Limit:       searchLimit,
			Debug:       searchDebug,
		}
		if len(args) == 1 {
			req.Query = strings.TrimSpace(args[0])
		}
		return printJSON(engine.Search(cmd.Context(), req))
	},
}

var (
	discoverSource string
	discoverFrom   string
	discoverTo     string
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Summarize one publication over a date range",
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := database.ParseDate(discoverFrom)
		if err != nil {
			return fmt.Errorf("--from: %w", err)
		}
		to, err := database.ParseDate(discoverTo)
		if err != nil {
			return fmt.Errorf("--to: %w", err)
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		_, summarizer := coreServices(db)
		summary, err := summarizer.Summarize(cmd.Context(), discoverSource, from, to)
		if err != nil {
			return err
		}
		return printJSON(summary)
	},
}

var publicationsCmd = &cobra.Command{
	Use:   "publications",
	Short: "List publications in the archive",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		pubs, err := db.Publications(cmd.Context())
		if err != nil {
			return err
		}
		if len(pubs) == 0 {
			fmt.Println("No publications yet. Run 'storyatlas import <dir>' first.")
			return nil
		}
		for _, p := range pubs {
			dr, err := db.PublicationTimerange(cmd.Context(), p)
			if err != nil {
				return err
			}
			if dr.StartDate != nil && dr.EndDate != nil {
				fmt.Printf("  %s (%s to %s)\n", p, *dr.StartDate, *dr.EndDate)
			} else {
				fmt.Printf("  %s\n", p)
			}
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchPublication, "publication", "", "Publication name or part of it")
	searchCmd.Flags().StringVar(&searchFrom, "from", "", "Earliest story date (YYYY-MM-DD)")
	searchCmd.Flags().StringVar(&searchTo, "to", "", "Latest story date (YYYY-MM-DD)")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "Maximum number of stories")
	searchCmd.Flags().BoolVar(&searchDebug, "debug", false, "Include query diagnostics")

	discoverCmd.Flags().StringVar(&discoverSource, "source", "", "Exact publication name")
	discoverCmd.Flags().StringVar(&discoverFrom, "from", "", "Start date (YYYY-MM-DD)")
	discoverCmd.Flags().StringVar(&discoverTo, "to", "", "End date (YYYY-MM-DD)")
	_ = discoverCmd.MarkFlagRequired("source")
	_ = discoverCmd.MarkFlagRequired("from")
	_ = discoverCmd.MarkFlagRequired("to")
}

// --- maintenance commands ---

var (
	deletePublication string
	deleteFrom        string
	deleteTo          string
)

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete stories by exact publication and/or date range",
	RunE: func(cmd *cobra.Command, args []string) error {
		if deletePublication == "" && deleteFrom == "" && deleteTo == "" {
			return errors.New("refusing to delete every story: pass --publication, --from or --to")
		}
		from, err := database.ParseOptionalDate(deleteFrom)
		if err != nil {
			return fmt.Errorf("--from: %w", err)
		}
		to, err := database.ParseOptionalDate(deleteTo)
		if err != nil {
			return fmt.Errorf("--to: %w", err)
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		n, err := db.DeleteStories(cmd.Context(), database.StoryFilter{
			Publication:      deletePublication,
			PublicationExact: true,
			From:             from,
			To:               to,
		})
		if err != nil {
			return fmt.Errorf("deleting stories: %w", err)
		}
		fmt.Printf("Deleted %d stories\n", n)
		return nil
	},
}

var arcsCmd = &cobra.Command{
	Use:   "arcs",
	Short: "List curated narrative arcs",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		arcs, err := db.GetAllArcs(cmd.Context())
		if err != nil {
			return err
		}
		if len(arcs) == 0 {
			fmt.Println("No arcs. Add one with 'storyatlas arcs add'.")
			return nil
		}
		for _, a := range arcs {
			fmt.Printf("%s  %s (%d stories, %s)\n", a.ID, a.Title, a.StoryCount, a.Timespan)
			if len(a.Themes) > 0 {
				fmt.Printf("    Themes: %s\n", strings.Join(a.Themes, ", "))
			}
		}
		return nil
	},
}

var (
	arcSummary    string
	arcTimespan   string
	arcStoryCount int
	arcThemes     []string
)

var arcsAddCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Add a curated narrative arc",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		id, err := db.InsertArc(cmd.Context(), database.Arc{
			Title:      args[0],
			Summary:    arcSummary,
			Timespan:   arcTimespan,
			StoryCount: arcStoryCount,
			Themes:     arcThemes,
		})
		if err != nil {
			return fmt.Errorf("adding arc: %w", err)
		}
		fmt.Printf("Added arc %s: %s\n", id, args[0])
		return nil
	},
}

func init() {
	deleteCmd.Flags().StringVar(&deletePublication, "publication", "", "Exact publication name")
	deleteCmd.Flags().StringVar(&deleteFrom, "from", "", "Start date (YYYY-MM-DD)")
	deleteCmd.Flags().StringVar(&deleteTo, "to", "", "End date (YYYY-MM-DD)")

	arcsAddCmd.Flags().StringVar(&arcSummary, "summary", "", "Arc summary")
	arcsAddCmd.Flags().StringVar(&arcTimespan, "timespan", "", "Period covered, e.g. 1974-1977")
	arcsAddCmd.Flags().IntVar(&arcStoryCount, "stories", 0, "Number of stories in the arc")
	arcsAddCmd.Flags().StringSliceVar(&arcThemes, "theme", nil, "Theme (repeatable)")
	arcsCmd.AddCommand(arcsAddCmd)
}

// --- mcp command ---

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve archive tools over MCP (stdio)",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		engine, summarizer := coreServices(db)
		s := mcpserver.New("storyatlas", version, mcpserver.Deps{
			Search:       engine,
			Summarizer:   summarizer,
			Publications: db,
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return mcpserver.ServeStdio(ctx, s, os.Stdin, os.Stdout)
	},
}

func coreServices(db *database.DB) (*search.Engine, *discovery.Summarizer) {
	engine := search.NewEngine(db, nil, search.Options{
		DefaultLimit:  cfg.Search.DefaultLimit,
		MaxLimit:      cfg.Search.MaxLimit,
		SnippetLength: cfg.Search.SnippetLength,
	})
	return engine, discovery.NewSummarizer(db)
}

func openDB() (*database.DB, error) {
	return database.Open(cfg.DatabasePath())
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
