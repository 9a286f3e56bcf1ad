package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kalambet/simpleprefs/internal/api"
	"github.com/kalambet/simpleprefs/internal/config"
	"github.com/kalambet/simpleprefs/internal/prefs"
)

// Keys written by the demo, in display order.
var sampleKeys = []struct {
	key, typ string
}{
	{"vee_bool", "boolean"},
	{"vee_float", "float"},
	{"vee_int", "int"},
	{"vee_long", "long"},
	{"vee_string", "string"},
	{"vee_string_set", "string_set"},
}

// --- demo ---

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run the sample: write every type, update a value, show the results",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if _, err := prefs.Initialize(appOf(cfg)); err != nil {
			return fmt.Errorf("initializing preferences: %w", err)
		}
		p := prefs.Default()
		defer p.Store().Close()
		p.EnableLog(cfg.Log.Verbose)

		return runDemo(cmd.Context(), cmd.OutOrStdout(), p)
	},
}

func runDemo(ctx context.Context, w io.Writer, p *prefs.Prefs) error {
	sub := p.Register(func(_ *prefs.Prefs, key string) {
		if key == "" {
			fmt.Fprintln(w, "  changed: all preferences cleared")
			return
		}
		fmt.Fprintf(w, "  changed: %s\n", key)
	})
	defer p.Unregister(sub)

	printStep("Writing sample values")
	err := p.Chain().
		PutBool("vee_bool", true).
		PutFloat("vee_float", 2.3).
		PutInt("vee_int", 50).
		PutLong("vee_long", 12345678910).
		PutString("vee_string", "demo String").
		PutStringSet("vee_string_set", prefs.NewStringSet("String0", "String1", "String2", "String3", "String4")).
		Err()
	if err != nil {
		return err
	}

	printStep("Reading sample values")
	if err := printSample(w, p); err != nil {
		return err
	}

	printStep("Updating vee_string")
	if err := p.PutString("vee_string", "UPDATED String"); err != nil {
		return err
	}
	s, err := p.GetString("vee_string", "")
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "vee_string = %s\n", s)

	n, err := p.AppOpenedCount()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "App opened %d times\n", n)

	printStep("Reading vee_string as a boolean")
	showWrongRead(w, p)

	return p.Sync(ctx)
}

func printSample(w io.Writer, p *prefs.Prefs) error {
	for _, k := range sampleKeys {
		e, err := api.ReadTyped(p, k.typ, k.key, "")
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s = %s\n", k.key, formatValue(e.Value))
	}
	return nil
}

func showWrongRead(w io.Writer, p *prefs.Prefs) {
	_, err := p.GetBool("vee_string", false)
	var mismatch *prefs.TypeMismatchError
	if errors.As(err, &mismatch) {
		fmt.Fprintf(w, "wrong read: %v\n", mismatch)
		printError("%v", mismatch)
		return
	}
	printWarning("vee_string read as a boolean without error")
}

// --- typed access ---

var getCmd = &cobra.Command{
	Use:   "get <type> <key>",
	Short: "Read a preference with a typed getter",
	Long: `Read a preference with a typed getter.

Types: boolean, int, long, float, string, string_set.
Reading a key through the wrong type fails with a diagnostic error.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		typ, key := args[0], args[1]
		def, _ := cmd.Flags().GetString("default")

		return withPrefs(func(p *prefs.Prefs) error {
			e, err := api.ReadTyped(p, typ, key, def)
			if err != nil {
				return err
			}
			if e.Found != nil && !*e.Found {
				printWarning("%s is not set, showing the default", key)
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatValue(e.Value))
			return nil
		})
	},
}

var setCmd = &cobra.Command{
	Use:   "set <type> <key> <value...>",
	Short: "Write a preference; string_set takes any number of members",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		typ, key, rest := args[0], args[1], args[2:]

		var value string
		if typ != "string_set" {
			if len(rest) != 1 {
				return fmt.Errorf("set %s requires exactly one value, got %d", typ, len(rest))
			}
			value = rest[0]
		}
		v, err := api.ParseTyped(typ, value, rest)
		if err != nil {
			return err
		}

		return withPrefs(func(p *prefs.Prefs) error {
			if err := p.Put(key, v); err != nil {
				return err
			}
			printSuccess("Set %s = %s", key, strings.Join(rest, " "))
			return nil
		})
	},
}

var allCmd = &cobra.Command{
	Use:   "all",
	Short: "Show every stored preference",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		switch format {
		case "text", "json", "yaml":
		default:
			return fmt.Errorf("unknown format %q (want text, json or yaml)", format)
		}

		return withPrefs(func(p *prefs.Prefs) error {
			entries := api.Entries(p.GetAll())
			out := cmd.OutOrStdout()
			switch format {
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			case "yaml":
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(entries); err != nil {
					return err
				}
				return enc.Close()
			default:
				fmt.Fprint(out, formatEntries(entries))
				return nil
			}
		})
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <key>",
	Short: "Remove a preference",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]
		return withPrefs(func(p *prefs.Prefs) error {
			if !p.Contains(key) {
				printWarning("%s is not set", key)
				return nil
			}
			if err := p.Remove(key); err != nil {
				return err
			}
			printSuccess("Removed %s", key)
			return nil
		})
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every preference, the opened count included",
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetBool("confirm")
		if !confirm {
			printWarning("This will delete ALL preferences. Use --confirm to proceed.")
			return nil
		}
		return withPrefs(func(p *prefs.Prefs) error {
			if err := p.Clear(); err != nil {
				return err
			}
			printSuccess("All preferences cleared")
			return nil
		})
	},
}

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Show how many times the preferences were opened",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPrefs(func(p *prefs.Prefs) error {
			n, err := p.AppOpenedCount()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		})
	},
}

var wrongCmd = &cobra.Command{
	Use:   "wrong",
	Short: "Read a string preference as a boolean to show the diagnostic error",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPrefs(func(p *prefs.Prefs) error {
			if !p.Contains("vee_string") {
				if err := p.PutString("vee_string", "demo String"); err != nil {
					return err
				}
			}
			showWrongRead(cmd.OutOrStdout(), p)
			return nil
		})
	},
}

func init() {
	getCmd.Flags().String("default", "", "value returned when the key is absent")
	allCmd.Flags().String("format", "text", "output format: text, json or yaml")
	clearCmd.Flags().Bool("confirm", false, "confirm deleting every preference")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(out, "  %s = %s (%s)\n", colorize(colorBold, k.Key), k.Value, k.EnvVar)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value in the user's prefs.env",
	Long: fmt.Sprintf(`Set a configuration value in the user's prefs.env.

Valid keys: %s`, strings.Join(config.ValidKeys(), ", ")),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
