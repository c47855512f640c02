package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/c360studio/octiron/export"
	"github.com/c360studio/octiron/navigation"
	"github.com/c360studio/octiron/sparql"
)

func buildCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Build the graph and report what was ingested",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			report, err := app.Build(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Built graph in %s (run %s)\n", report.Duration.Round(time.Millisecond), report.RunID)
			fmt.Fprintf(out, "  ingested:   %d\n", report.Ingested)
			fmt.Fprintf(out, "  up to date: %d\n", report.UpToDate)
			fmt.Fprintf(out, "  skipped:    %d\n", report.Skipped)
			fmt.Fprintf(out, "  failed:     %d\n", report.Failed)
			fmt.Fprintf(out, "  inferred:   %d\n", report.Inference.Total())
			fmt.Fprintf(out, "  quads:      %d\n", report.Quads)
			for _, f := range report.Failures {
				fmt.Fprintf(out, "FAILED %s: %v\n", f.Path, f.Err)
			}
			return nil
		},
	}
}

func queryCmd(flags *globalFlags) *cobra.Command {
	var (
		binds      []string
		format     string
		stored     bool
		queriesDir string
	)

	cmd := &cobra.Command{
		Use:   "query <text | @file | name>",
		Short: "Run a SPARQL query against the graph",
		Long: `Run a SELECT, ASK or CONSTRUCT query. The argument is the query text,
@path to read it from a file, or with --stored the name of a query file
<queries-dir>/<name>.sparql.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := queryText(args[0], stored, queriesDir)
			if err != nil {
				return err
			}
			bindings, err := parseBindings(binds)
			if err != nil {
				return err
			}

			app, err := NewApp(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if _, err := app.Build(cmd.Context()); err != nil {
				return err
			}
			res, err := app.engine.Query(text, bindings)
			if err != nil {
				return err
			}
			return writeResult(cmd.OutOrStdout(), res, format)
		},
	}

	cmd.Flags().StringArrayVarP(&binds, "bind", "b", nil, "Bind a variable, name=value (repeatable)")
	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format (table, json)")
	cmd.Flags().BoolVar(&stored, "stored", false, "Treat the argument as a stored query name")
	cmd.Flags().StringVar(&queriesDir, "queries-dir", "queries", "Directory of stored queries")
	return cmd
}

func queryText(arg string, stored bool, queriesDir string) (string, error) {
	switch {
	case stored:
		return sparql.StoredQueries{Dir: queriesDir}.Text(arg)
	case strings.HasPrefix(arg, "@"):
		data, err := os.ReadFile(arg[1:])
		if err != nil {
			return "", fmt.Errorf("read query: %w", err)
		}
		return string(data), nil
	default:
		return arg, nil
	}
}

// parseBindings turns name=value pairs into query bindings. Integers bind
// as numbers, true and false as booleans and anything else as an IRI.
func parseBindings(pairs []string) (map[string]any, error) {
	bindings := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid binding %q (want name=value)", pair)
		}
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			bindings[name] = n
		} else if value == "true" || value == "false" {
			bindings[name] = value == "true"
		} else {
			bindings[name] = value
		}
	}
	return bindings, nil
}

func writeResult(w io.Writer, res *sparql.Result, format string) error {
	switch format {
	case "table":
		_, err := io.WriteString(w, res.MarkdownTable())
		return err
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		switch res.Form {
		case sparql.FormAsk:
			return enc.Encode(map[string]bool{"boolean": res.Boolean})
		case sparql.FormConstruct:
			triples := make([]string, 0, len(res.Graph))
			for _, t := range res.Graph {
				triples = append(triples, t.String())
			}
			return enc.Encode(triples)
		default:
			return enc.Encode(res.Records())
		}
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func exportCmd(flags *globalFlags) *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Serialize the graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			app, err := NewApp(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if _, err := app.Build(cmd.Context()); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if output != "" {
				file, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer file.Close()
				w = file
			}
			return export.NewExporter(app.engine.Graph()).Export(w, f)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(export.FormatTurtle),
		"Output format ("+strings.Join(export.FormatNames(), ", ")+")")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")
	return cmd
}

func navCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "nav",
		Short: "Print the site navigation ordered by the graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if _, err := app.Build(cmd.Context()); err != nil {
				return err
			}

			tree, err := navigation.FromDirectory(app.engine.Root(), app.engine)
			if err != nil {
				return err
			}
			if _, err := navigation.NewProcessor(app.engine).Generate(tree); err != nil {
				return err
			}
			return navigation.Print(cmd.OutOrStdout(), tree)
		},
	}
}

func watchCmd(flags *globalFlags) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Build the graph and keep it current as files change",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if metricsAddr != "" {
				srv := &http.Server{
					Addr:    metricsAddr,
					Handler: promhttp.HandlerFor(app.registry, promhttp.HandlerOpts{}),
				}
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						app.logger.Error("Metrics server failed", "error", err)
					}
				}()
				defer srv.Shutdown(context.Background())
				app.logger.Info("Serving metrics", "addr", metricsAddr)
			}

			return app.builder.Watch(ctx, app.cfg.Watch.Debounce)
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	return cmd
}
