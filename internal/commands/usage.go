package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sdpower/copilot-usage/internal/api"
	"github.com/sdpower/copilot-usage/internal/cache"
	"github.com/sdpower/copilot-usage/internal/calculator"
	"github.com/sdpower/copilot-usage/internal/config"
	"github.com/sdpower/copilot-usage/internal/loader"
	"github.com/sdpower/copilot-usage/internal/logger"
	"github.com/sdpower/copilot-usage/internal/output"
	"github.com/sdpower/copilot-usage/internal/types"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Options are the user-facing knobs of one run.
type Options struct {
	ConfigPath    string
	CacheDir      string
	Format        string
	TooltipFormat string
	Waybar        bool
	NoColor       bool
}

// Runner performs one fetch-and-print pass. Zero fields fall back to
// the real GitHub client, the on-disk cache and time.Now.
type Runner struct {
	Client  api.Getter
	Store   cache.Store
	BaseURL string
	Now     func() time.Time
}

func NewUsageCommand() *cobra.Command {
	var (
		opts  Options
		debug bool
	)

	cmd := &cobra.Command{
		Use:   "copilot-usage",
		Short: "Show GitHub Copilot premium request usage",
		Long: `Show GitHub Copilot premium request usage against the monthly quota,
as a terminal report or as JSON for a Waybar custom module.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := logger.New(debug)
			if err != nil {
				return err
			}
			defer log.Sync()

			if !opts.NoColor && !output.IsTerminal(os.Stdout) {
				opts.NoColor = true
			}

			ctx := logger.ContextWithLogger(cmd.Context(), log)
			return (&Runner{}).Run(ctx, cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Waybar, "waybar", false, "Output in JSON format for Waybar custom module")
	cmd.Flags().StringVar(&opts.Format, "format", "",
		"Custom format string for waybar text. Available: {icon}, {icon_plain}, {time_icon}, "+
			"{time_icon_plain}, {used}, {used_str}, {quota}, {pct}, {reset}. Example: '{icon_plain} {pct}%'")
	cmd.Flags().StringVar(&opts.TooltipFormat, "tooltip-format", "", "Custom format string for tooltip. Uses same variables as --format")
	cmd.Flags().StringVar(&opts.ConfigPath, "config", config.DefaultPath(), "Path to copilot config file")
	cmd.Flags().StringVar(&opts.CacheDir, "cache-dir", "", "Cache directory (default: user cache dir)")
	cmd.Flags().BoolVar(&opts.NoColor, "no-color", false, "Disable colored output")
	cmd.Flags().BoolVar(&debug, "debug", false, "Show debug information")

	return cmd
}

// Run loads the config, fetches usage and prints it. In Waybar mode
// every failure is printed as a critical payload and Run returns nil,
// since Waybar shows the payload rather than looking at the exit code.
func (r *Runner) Run(ctx context.Context, w io.Writer, opts Options) error {
	log := logger.FromContext(ctx)

	formatter, err := output.NewFormatter(output.FormatterOptions{
		NoColor:       opts.NoColor,
		Format:        opts.Format,
		TooltipFormat: opts.TooltipFormat,
	})
	if err != nil {
		if opts.Waybar {
			return writeWaybar(w, output.ErrorPayload(output.LabelFmtError, "Invalid format string:\n"+err.Error()))
		}
		return err
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		if opts.Waybar {
			return writeWaybar(w, output.ErrorPayload(output.LabelCfgError, err.Error()))
		}
		return err
	}
	if cfg.Token == "" {
		if opts.Waybar {
			return writeWaybar(w, output.MissingTokenPayload(cfg.Path))
		}
		return types.ConfigError{Path: cfg.Path}
	}
	log.Debug("loaded config", zap.String("path", cfg.Path), zap.Int("quota", cfg.Quota))

	l, err := r.loader(ctx, opts)
	if err != nil {
		if opts.Waybar {
			return writeWaybar(w, output.ErrorPayload(output.LabelCfgError, err.Error()))
		}
		return err
	}

	snapshot, err := l.FetchUsage(ctx, cfg.Token)
	if err != nil {
		if opts.Waybar {
			log.Debug("fetch failed", zap.Error(err))
			return writeWaybar(w, output.FetchErrorPayload(err))
		}
		return err
	}

	view := calculator.Project(snapshot, cfg.Quota, r.now())
	if opts.Waybar {
		return writeWaybar(w, formatter.Waybar(view))
	}
	_, err = fmt.Fprint(w, formatter.Report(view))
	return err
}

func (r *Runner) loader(ctx context.Context, opts Options) (*loader.Loader, error) {
	store := r.Store
	if store == nil {
		dir := opts.CacheDir
		if dir == "" {
			var err error
			dir, err = cache.DefaultDir()
			if err != nil {
				return nil, fmt.Errorf("resolve cache dir: %w", err)
			}
		}
		store = cache.NewFileStore(dir)
	}

	cacheOpts := []cache.Option{cache.WithLogger(logger.FromContext(ctx))}
	if r.Now != nil {
		cacheOpts = append(cacheOpts, cache.WithClock(r.Now))
	}

	client := r.Client
	if client == nil {
		client = api.NewClient()
	}

	l := loader.New(client, cache.New(store, cacheOpts...))
	if r.BaseURL != "" {
		l.SetBaseURL(r.BaseURL)
	}
	return l, nil
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func writeWaybar(w io.Writer, p output.WaybarPayload) error {
	line, err := output.EncodeWaybar(p)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, line)
	return err
}

// IsConfigError reports whether err is a missing-credential error.
func IsConfigError(err error) bool {
	return errors.Is(err, types.ErrMissingToken)
}
