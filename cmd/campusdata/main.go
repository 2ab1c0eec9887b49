package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/campusapp/go-campusdata/cache"
	"github.com/campusapp/go-campusdata/campus"
	"github.com/campusapp/go-campusdata/datasource"
	"github.com/campusapp/go-campusdata/env"
	"github.com/campusapp/go-campusdata/logger"
	"github.com/campusapp/go-campusdata/service"
	"github.com/campusapp/go-campusdata/telemetry"
)

var version = "dev"

func main() {
	datasource.Version = version
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "campusdata",
		Short:         "Fetch campus guides, resources and account data",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := root.PersistentFlags()
	flags.String("log-level", "", "log level: trace, debug, info, warn or error")
	flags.String("log-format", "", "log format: console or json")
	flags.String("env-file", "", "load settings from a .env file")
	flags.String("env", "", "service environment: local, cloud or cloudOnly")
	flags.String("config", "", "campus definition YAML file")
	flags.String("otlp-url", "", "export logs and traces to this OTLP/HTTP collector")
	flags.String("otlp-token", "", "bearer token for the OTLP collector")

	root.AddCommand(newFetchCommand(), newCacheCommand(), newEnvCommand())
	return root
}

// runtime is what every command needs, resolved from flags and settings.
type runtime struct {
	settings service.Settings
	env      service.Environment
	logger   logger.Logger
	cache    cache.ByteCache
	close    func() error
}

func loadSettings(cmd *cobra.Command) (service.Settings, error) {
	var lines []env.Line
	if path, _ := cmd.Flags().GetString("env-file"); path != "" {
		var err error
		if lines, err = env.ParseFile(path); err != nil {
			return service.Settings{}, err
		}
	}
	settings, err := service.LoadSettingsFrom(env.Map(lines))
	if err != nil {
		return service.Settings{}, err
	}
	if e, _ := cmd.Flags().GetString("env"); e != "" {
		if _, err := service.ParseEnvironment(e); err != nil {
			return service.Settings{}, err
		}
		settings.Environment = e
	}
	settings.ConfigPath = env.FlagOrEnv(cmd, "config", "CAMPUS_CONFIG", settings.ConfigPath)
	return settings, nil
}

func setup(cmd *cobra.Command) (*runtime, error) {
	settings, err := loadSettings(cmd)
	if err != nil {
		return nil, err
	}
	log := env.NewLogger(cmd)
	shutdown := telemetry.ShutdownFunc(func() {})
	if otlpURL := env.FlagOrEnv(cmd, "otlp-url", "CAMPUS_OTLP_URL", ""); otlpURL != "" {
		token := env.FlagOrEnv(cmd, "otlp-token", "CAMPUS_OTLP_TOKEN", "")
		if log, shutdown, err = telemetry.New(cmd.Context(), log, otlpURL, token, "campusdata"); err != nil {
			return nil, err
		}
	}
	c, closer, err := service.OpenCache(cmd.Context(), log, settings)
	if err != nil {
		shutdown()
		return nil, errors.Wrapf(err, "open %s cache", settings.CacheBackend)
	}
	return &runtime{
		settings: settings,
		env:      settings.Env(),
		logger:   log,
		cache:    c,
		close: func() error {
			defer shutdown()
			return closer()
		},
	}, nil
}

func (r *runtime) client() (*campus.Client, error) {
	def, err := campus.Open(r.settings.ConfigPath)
	if err != nil {
		return nil, err
	}
	f, err := campus.NewFactory(r.logger, r.env, r.cache, r.settings.FactoryOptions()...)
	if err != nil {
		return nil, err
	}
	return campus.NewClient(r.logger, f, def)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newFetchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "fetch <guides|resources|account|all>",
		Short:     "Fetch a resource and print it as JSON",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: append(campus.ResourceNames(), "all"),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := setup(cmd)
			if err != nil {
				return err
			}
			defer r.close()
			client, err := r.client()
			if err != nil {
				return err
			}
			perspective, _ := cmd.Flags().GetString("perspective")
			var result any
			if args[0] == "all" {
				result, err = client.FetchAll(cmd.Context())
			} else {
				result, err = client.Fetch(cmd.Context(), args[0])
			}
			if err != nil {
				return errors.Wrapf(err, "fetch %s (%s)", args[0], datasource.KindOf(err))
			}
			if perspective != "" {
				p, err := campus.ParsePerspective(perspective)
				if err != nil {
					return err
				}
				result = filter(result, p)
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().String("perspective", "", "only show items visible to this perspective")
	return cmd
}

func filter(v any, p campus.Perspective) any {
	switch d := v.(type) {
	case campus.GuidesData:
		d.Guides = d.VisibleGuides(p)
		return d
	case campus.ResourcesData:
		d.Resources = d.VisibleResources(p)
		return d
	case campus.Snapshot:
		d.Guides.Guides = d.Guides.VisibleGuides(p)
		d.Resources.Resources = d.Resources.VisibleResources(p)
		return d
	}
	return v
}

func newCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the local cache",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every cached resource",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := setup(cmd)
			if err != nil {
				return err
			}
			defer r.close()
			if err := r.cache.ClearAll(cmd.Context()); err != nil {
				return errors.Wrap(err, "clear cache")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cleared %s cache\n", r.settings.CacheBackend)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show <key>",
		Short: "Show a cached entry and its age",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := setup(cmd)
			if err != nil {
				return err
			}
			defer r.close()
			in, ok := r.cache.(cache.Inspector)
			if !ok {
				return errors.Newf("%s cache cannot be inspected", r.settings.CacheBackend)
			}
			e, found, err := in.Entry(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !found {
				fmt.Fprintf(out, "%s: not cached\n", args[0])
				return nil
			}
			fmt.Fprintf(out, "key:    %s\n", args[0])
			fmt.Fprintf(out, "size:   %d bytes\n", len(e.Payload))
			if e.StoredAt.IsZero() {
				fmt.Fprintln(out, "stored: unknown")
			} else {
				fmt.Fprintf(out, "stored: %s\n", e.StoredAt.Format(time.RFC3339))
				fmt.Fprintf(out, "age:    %s\n", e.Age(time.Now()).Round(time.Second))
			}
			return nil
		},
	})
	return cmd
}

func newEnvCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Print the resolved environment and settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			vars := map[string]string{
				service.EnvironmentVar:  s.Env().String(),
				"CAMPUS_CACHE_BACKEND":  s.CacheBackend,
				"CAMPUS_CACHE_DIR":      s.CacheDir,
				"CAMPUS_REMOTE_TIMEOUT": s.RemoteTimeout.String(),
				"CAMPUS_REMOTE_RETRIES": fmt.Sprint(s.RemoteRetries),
				"CAMPUS_BREAKER":        fmt.Sprint(s.Breaker),
				"CAMPUS_CONFIG":         s.ConfigPath,
			}
			if s.CacheBackend == service.BackendRedis {
				vars["CAMPUS_REDIS_URL"] = env.MaskURL(s.RedisURL)
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(env.EncodeMap(vars), "\n"))
			return nil
		},
	}
}
