// Package cli holds the lastupdated command tree.
package cli

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/ether/lastupdated-go/lib/host/memdoc"
	"github.com/ether/lastupdated-go/lib/identicon"
	"github.com/ether/lastupdated-go/lib/metrics"
	"github.com/ether/lastupdated-go/lib/settings"
	"github.com/ether/lastupdated-go/lib/state"
	"github.com/ether/lastupdated-go/lib/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func (o *rootOptions) viper() (*viper.Viper, error) {
	return settings.NewViper(o.configPath, "")
}

func (o *rootOptions) settings() (*settings.Settings, *zap.SugaredLogger, error) {
	v, err := o.viper()
	if err != nil {
		return nil, nil, err
	}
	if o.logLevel != "" {
		v.Set(settings.Loglevel, o.logLevel)
	}
	cfg, err := settings.FromViper(v)
	if err != nil {
		return nil, nil, err
	}
	return cfg, utils.SetupLogger(cfg.LogLevel), nil
}

func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "lastupdated",
		Short:         "Keeps last-updated placeholders of design documents current",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "settings file (default ./settings.json)")
	root.PersistentFlags().StringVar(&opts.logLevel, "loglevel", "", "override the configured log level")

	root.AddCommand(
		newReplayCommand(opts),
		newIdenticonCommand(),
		newConfigCommand(opts),
		newStateCommand(opts),
		newVersionCommand(),
	)
	return root
}

func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

func newReplayCommand(opts *rootOptions) *cobra.Command {
	var documentPath, scriptPath, outPath string
	var settle, showMetrics bool

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Run the engine offline against a YAML document and an event script",
		Example: `  lastupdated replay --document cover.yaml --script edits.yaml
  lastupdated replay --document cover.yaml --script edits.yaml --out result.yaml --metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.settings()
			if err != nil {
				return err
			}
			defer logger.Sync()

			doc, err := memdoc.LoadFile(documentPath)
			if err != nil {
				return fmt.Errorf("load document: %w", err)
			}
			script, err := LoadScriptFile(scriptPath)
			if err != nil {
				return err
			}
			start := script.Start
			if start.IsZero() {
				start = time.Now()
			}

			store, err := utils.GetDB(*cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			registry, err := utils.GetRegistry(*cfg)
			if err != nil {
				return err
			}
			options, err := utils.GetEngineOptions(*cfg)
			if err != nil {
				return err
			}
			promRegistry := prometheus.NewRegistry()
			replayer, err := NewReplayer(doc, memdoc.NewManualScheduler(start), registry,
				state.NewManager(store, logger), metrics.MustNewMetrics(promRegistry), options, logger)
			if err != nil {
				return err
			}

			if err := replayer.Run(cmd.Context(), script.Events); err != nil {
				return err
			}
			if settle {
				if err := replayer.Settle(cmd.Context()); err != nil {
					return err
				}
			}
			logger.Infow("replay finished", "passes", replayer.Passes, "applied", replayer.Applied)

			out := cmd.OutOrStdout()
			if outPath != "" {
				fh, err := os.Create(outPath)
				if err != nil {
					return err
				}
				defer fh.Close()
				out = fh
			}
			if err := doc.Dump(out); err != nil {
				return err
			}
			if showMetrics {
				return writeMetrics(cmd.ErrOrStderr(), promRegistry)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&documentPath, "document", "d", "", "YAML document")
	cmd.Flags().StringVarP(&scriptPath, "script", "s", "", "YAML event script")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write the resulting document here instead of stdout")
	cmd.Flags().BoolVar(&settle, "settle", true, "advance the clock until every scheduled pass ran")
	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "print engine counters to stderr")
	_ = cmd.MarkFlagRequired("document")
	_ = cmd.MarkFlagRequired("script")
	return cmd
}

func writeMetrics(w io.Writer, registry *prometheus.Registry) error {
	families, err := registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, l := range m.GetLabel() {
				labels = append(labels, l.GetName()+"="+l.GetValue())
			}
			value := m.GetCounter().GetValue()
			if g := m.GetGauge(); g != nil {
				value = g.GetValue()
			}
			name := mf.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}
			fmt.Fprintf(w, "%-55s %v\n", name, value)
		}
	}
	return nil
}

func newIdenticonCommand() *cobra.Command {
	var pngPath string
	var size, pixelSize int

	cmd := &cobra.Command{
		Use:   "identicon <seed>",
		Short: "Print the identicon of a seed, optionally exporting it as PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			icon := identicon.RenderIcon(identicon.Options{Seed: args[0], Size: size})
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "color %s, background %s, spot %s\n", icon.Color, icon.BgColor, icon.SpotColor)
			for row := 0; row < icon.Size; row++ {
				var b strings.Builder
				for col := 0; col < icon.Size; col++ {
					b.WriteByte(" .#"[icon.At(row, col)])
				}
				fmt.Fprintln(out, b.String())
			}
			if pngPath == "" {
				return nil
			}

			exporter := identicon.NewPNGExporter(icon.Size, pixelSize)
			encoded, err := exporter.ExportBase64(cmd.Context(), icon.Shapes(pixelSize, identicon.DefaultPalette))
			if err != nil {
				return err
			}
			raw, err := base64.StdEncoding.DecodeString(encoded)
			if err != nil {
				return err
			}
			return os.WriteFile(pngPath, raw, 0o644)
		},
	}
	cmd.Flags().StringVar(&pngPath, "png", "", "write the icon as PNG")
	cmd.Flags().IntVar(&size, "size", identicon.DefaultSize, "grid size")
	cmd.Flags().IntVar(&pixelSize, "pixel-size", identicon.DefaultPixelSize, "pixels per cell")
	return cmd
}

func newConfigCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "List every key with its current and default value",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := opts.viper()
				if err != nil {
					return err
				}
				settings.ConfigShow(cmd.OutOrStdout(), v)
				return nil
			},
		},
		&cobra.Command{
			Use:   "dump",
			Short: "Print the effective configuration as JSON",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := opts.viper()
				if err != nil {
					return err
				}
				return settings.ConfigDump(cmd.OutOrStdout(), v)
			},
		},
		&cobra.Command{
			Use:   "env",
			Short: "List the environment variables",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				settings.ConfigEnv(cmd.OutOrStdout())
			},
		},
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print one configuration value",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := opts.viper()
				if err != nil {
					return err
				}
				return settings.ConfigGet(cmd.OutOrStdout(), v, args[0])
			},
		},
		&cobra.Command{
			Use:   "init",
			Short: "Print a settings.json holding every default",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return settings.ConfigInit(cmd.OutOrStdout())
			},
		},
	)
	return cmd
}

func newStateCommand(opts *rootOptions) *cobra.Command {
	withStates := func(f func(cmd *cobra.Command, states *state.Manager, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.settings()
			if err != nil {
				return err
			}
			defer logger.Sync()
			store, err := utils.GetDB(*cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()
			return f(cmd, state.NewManager(store, logger), args)
		}
	}

	cmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect or drop persisted engine state",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List documents with persisted state",
			Args:  cobra.NoArgs,
			RunE: withStates(func(cmd *cobra.Command, states *state.Manager, args []string) error {
				ids, err := states.DocumentIds()
				if err != nil {
					return err
				}
				sort.Strings(ids)
				for _, id := range ids {
					fmt.Fprintln(cmd.OutOrStdout(), id)
				}
				return nil
			}),
		},
		&cobra.Command{
			Use:   "show <document>",
			Short: "Print the engine state of a document as JSON",
			Args:  cobra.ExactArgs(1),
			RunE: withStates(func(cmd *cobra.Command, states *state.Manager, args []string) error {
				st, err := states.Load(args[0])
				if err != nil {
					return err
				}
				out, err := json.MarshalIndent(st, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return nil
			}),
		},
		&cobra.Command{
			Use:   "reset <document>",
			Short: "Drop the engine state of a document",
			Args:  cobra.ExactArgs(1),
			RunE: withStates(func(cmd *cobra.Command, states *state.Manager, args []string) error {
				return states.Reset(args[0])
			}),
		},
	)
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			version := settings.GitVersion()
			if version == "" {
				version = "unknown"
			}
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
