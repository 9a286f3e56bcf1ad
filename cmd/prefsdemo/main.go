package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kalambet/simpleprefs/internal/config"
	"github.com/kalambet/simpleprefs/internal/prefs"
	"github.com/kalambet/simpleprefs/internal/store"
)

var version = "dev"

var (
	noColor     bool
	verbose     bool
	backendFlag string
	asyncFlag   bool
)

var rootCmd = &cobra.Command{
	Use:   "prefsdemo",
	Short: "Demo and inspector for simpleprefs typed preferences",
	Long: `prefsdemo exercises the simpleprefs wrapper the way the sample app does:
typed setters that persist immediately, string sets stored as JSON,
an opened-count counter, and diagnostic errors for reads of the wrong type.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if os.Getenv("NO_COLOR") != "" {
			noColor = true
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the prefsdemo version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "prefsdemo version %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every preference read and write")
	rootCmd.PersistentFlags().StringVar(&backendFlag, "backend", "", "storage backend: auto, file, sqlite or memory (overrides PREFS_BACKEND)")
	rootCmd.PersistentFlags().BoolVar(&asyncFlag, "async", false, "let setters return before writes are durable")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(allCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(countCmd)
	rootCmd.AddCommand(wrongCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration, applies command-line overrides and
// installs the default logger.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if backendFlag != "" {
		cfg.Storage.Backend = backendFlag
	}
	if asyncFlag {
		cfg.Storage.AsyncWrites = true
	}
	if verbose {
		cfg.Log.Verbose = true
		cfg.Log.Level = "debug"
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
	return cfg, nil
}

func appOf(cfg config.Config) *prefs.App {
	return &prefs.App{
		Name:        cfg.App.Name,
		DataDir:     cfg.Storage.DataDir,
		Backend:     cfg.Storage.Backend,
		AsyncWrites: cfg.Storage.AsyncWrites,
		Logger:      slog.Default(),
	}
}

// openPrefs opens the application's default preferences. Each call counts
// as one application start. The returned func flushes and closes the store.
func openPrefs(cfg config.Config) (*prefs.Prefs, func(), error) {
	app := appOf(cfg)
	st, err := store.OpenDefault(app.Name, app.DataDir, app.Backend,
		store.WithAsyncWrites(app.AsyncWrites),
		store.WithLogger(app.Logger),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("opening preferences: %w", err)
	}

	p, err := prefs.Open(st, prefs.WithLogger(app.Logger))
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	p.EnableLog(cfg.Log.Verbose)

	closeFn := func() {
		if err := st.Close(); err != nil {
			printWarning("closing preferences: %v", err)
		}
	}
	return p, closeFn, nil
}

// withPrefs runs fn against freshly opened preferences.
func withPrefs(fn func(p *prefs.Prefs) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	p, closeFn, err := openPrefs(cfg)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(p)
}
