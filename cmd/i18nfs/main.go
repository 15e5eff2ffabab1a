package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/lmittmann/tint"
	"github.com/pitabwire/util"
	"github.com/spf13/cobra"

	fsbackend "github.com/lifei6671/i18n-fsbackend"
	"github.com/lifei6671/i18n-fsbackend/cmd/i18nfs/checker"
)

type config struct {
	fsbackend.Options

	LogLevel   string `envDefault:"info" env:"LOG_LEVEL"`
	LogColored bool   `envDefault:"true" env:"LOG_COLORED"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := config{Options: fsbackend.DefaultOptions()}
	envErr := env.Parse(&cfg)
	var configFile string

	root := &cobra.Command{
		Use:           "i18nfs",
		Short:         "Read, extend and check file based translation resources",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if envErr != nil {
				return fmt.Errorf("read environment: %w", envErr)
			}
			if configFile != "" {
				if err := applyConfigFile(cmd, configFile, &cfg); err != nil {
					return err
				}
			}
			cmd.SetContext(withLogger(cmd.Context(), cmd.ErrOrStderr(), cfg))
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&configFile, "config", "c", "", "YAML file with backend options, applied over the environment")
	pf.StringVar(&cfg.LoadPath, "load-path", cfg.LoadPath, "resource path template, e.g. ./locales/{{lng}}/{{ns}}.json")
	pf.StringVar(&cfg.AddPath, "add-path", cfg.AddPath, "path template missing keys are written to (default: load path)")
	pf.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	pf.DurationVar(&cfg.Debounce, "debounce", cfg.Debounce, "quiet period before queued keys are written")

	root.AddCommand(newReadCmd(&cfg), newAddCmd(&cfg), newCheckCmd(&cfg))
	return root
}

// applyConfigFile loads the options file; flags given on the command line win.
func applyConfigFile(cmd *cobra.Command, path string, cfg *config) error {
	flags := cmd.Flags()
	loadPath, addPath, debounce := cfg.LoadPath, cfg.AddPath, cfg.Debounce

	if err := fsbackend.ReadOptionsFile(path, &cfg.Options); err != nil {
		return err
	}

	if flags.Changed("load-path") {
		cfg.LoadPath = loadPath
	}
	if flags.Changed("add-path") {
		cfg.AddPath = addPath
	}
	if flags.Changed("debounce") {
		cfg.Debounce = debounce
	}
	return nil
}

func withLogger(ctx context.Context, w io.Writer, cfg config) context.Context {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	handler := tint.NewHandler(w, &tint.Options{
		Level:      level,
		NoColor:    !cfg.LogColored,
		TimeFormat: time.Kitchen,
	})

	opts := []util.Option{util.WithLogHandler(handler)}
	if logLevel, err := util.ParseLevel(cfg.LogLevel); err == nil {
		opts = append(opts, util.WithLogLevel(logLevel))
	}
	log := util.NewLogger(ctx, opts...)
	return util.ContextWithLogger(ctx, log)
}

func openBackend(ctx context.Context, cfg *config) (*fsbackend.Backend, error) {
	return fsbackend.New(ctx, fsbackend.WithOptions(cfg.Options))
}

func newReadCmd(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "read <lng> <ns>",
		Short: "Print the resource of a language and namespace as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			backend, err := openBackend(ctx, cfg)
			if err != nil {
				return err
			}
			defer backend.Close(ctx)

			res, err := backend.Read(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			out, err := fsbackend.JSONCodec{Indent: 2}.Stringify(res)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}

func newAddCmd(cfg *config) *cobra.Command {
	var langs []string

	cmd := &cobra.Command{
		Use:   "add <ns> <key> [value]",
		Short: "Add a key to the resources of one or more languages, keeping existing keys",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ns, key := args[0], args[1]
			value := ""
			if len(args) == 3 {
				value = args[2]
			}

			opts := cfg.Options
			opts.Completion = fsbackend.CompletionAfterAll
			backend, err := fsbackend.New(ctx, fsbackend.WithOptions(opts))
			if err != nil {
				return err
			}

			var (
				wg     sync.WaitGroup
				result error
			)
			wg.Add(1)
			backend.Create(ctx, langs, ns, key, value, func(err error) {
				result = err
				wg.Done()
			})
			if err := backend.Close(ctx); err != nil {
				return err
			}
			wg.Wait()
			if result != nil {
				return result
			}

			fmt.Fprintf(cmd.OutOrStdout(), "added %s:%s to %v\n", ns, key, langs)
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&langs, "lang", "l", []string{"en"}, "languages to write the key to")
	return cmd
}

func newCheckCmd(cfg *config) *cobra.Command {
	var (
		langs       []string
		namespaces  []string
		failOnIssue bool
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report keys missing from or redundant in each language",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			backend, err := openBackend(ctx, cfg)
			if err != nil {
				return err
			}
			defer backend.Close(ctx)

			sep := cfg.KeySeparator
			if cfg.FlatKeys {
				sep = ""
			}
			res, err := checker.CheckResources(ctx, backend, langs, namespaces, sep)
			if err != nil {
				return err
			}

			printResult(cmd.OutOrStdout(), res)

			if failOnIssue && res.HasIssues() {
				return fmt.Errorf("translation resources have issues")
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&langs, "lang", "l", []string{"en"}, "languages to compare, the first one is the reference")
	cmd.Flags().StringSliceVarP(&namespaces, "ns", "n", []string{"translation"}, "namespaces to compare")
	cmd.Flags().BoolVar(&failOnIssue, "fail", false, "exit with code 1 if any issue found")
	return cmd
}

func printResult(w io.Writer, res *checker.Result) {
	fmt.Fprintln(w, "=== I18N CHECK RESULT ===")
	fmt.Fprintln(w, "Languages:", res.Languages)
	fmt.Fprintln(w, "Namespaces:", res.Namespaces)
	fmt.Fprintln(w, "Total keys:", len(res.AllKeys))

	for _, lang := range res.Languages {
		fmt.Fprintf(w, "\n--- [%s] ---\n", lang)

		printKeys(w, "Missing keys", res.MissingKeys[lang])
		printKeys(w, "Redundant keys", res.RedundantKeys[lang])

		if errs := res.ReadErrors[lang]; len(errs) > 0 {
			fmt.Fprintln(w, "Read errors:")
			for ns, err := range errs {
				fmt.Fprintf(w, "  - %s: %v\n", ns, err)
			}
		} else {
			fmt.Fprintln(w, "Read errors: None")
		}
	}
}

func printKeys(w io.Writer, title string, keys []string) {
	if len(keys) == 0 {
		fmt.Fprintf(w, "%s: None\n", title)
		return
	}
	fmt.Fprintf(w, "%s:\n", title)
	for _, k := range keys {
		fmt.Fprintln(w, "  -", k)
	}
}
