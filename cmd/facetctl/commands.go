package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/facetdex/internal/domain/search/query"
	"github.com/kailas-cloud/facetdex/internal/transport/form"
	"github.com/kailas-cloud/facetdex/internal/version"
	"github.com/kailas-cloud/facetdex/internal/wire"
)

func newMigrateCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return g.open(cmd.Context(), func(app *wire.App) error {
				n, err := app.Migrate(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", n)
				return nil
			})
		},
	}
}

func newReindexCmd(g *globals) *cobra.Command {
	var engine string
	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild external search indexes from the database",
		Long: `Rebuild external search indexes from the database.

Without --engine every redis and bleve engine is rebuilt.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return g.open(cmd.Context(), func(app *wire.App) error {
				out := cmd.OutOrStdout()
				if engine != "" {
					res, err := app.Indexing.Reindex(cmd.Context(), engine)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "%s: %d documents in %s\n", res.Engine, res.Documents, res.Duration)
					return nil
				}
				results, err := app.Indexing.ReindexAll(cmd.Context())
				for _, res := range results {
					fmt.Fprintf(out, "%s: %d documents in %s\n", res.Engine, res.Documents, res.Duration)
				}
				if err == nil && len(results) == 0 {
					fmt.Fprintln(out, "no external engines configured")
				}
				return err
			})
		},
	}
	cmd.Flags().StringVar(&engine, "engine", "", "engine to rebuild")
	return cmd
}

func newCompileCmd(g *globals) *cobra.Command {
	var page string
	cmd := &cobra.Command{
		Use:   "compile <query-string>",
		Short: "Print the backend query compiled from a search query string",
		Example: `  facetctl compile 'property[0][property]=dcterms:title&property[0][type]=in&property[0][text]=moby'
  facetctl compile --page archive 'q=whales&facet[subject][]=Sea'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := form.ParseString(args[0])
			if err != nil {
				return err
			}
			return g.open(cmd.Context(), func(app *wire.App) error {
				out, err := app.Search.Explain(cmd.Context(), page, q)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&page, "page", "", "search page (default: the configured default page)")
	return cmd
}

func newSearchCmd(g *globals) *cobra.Command {
	var (
		page   string
		indent bool
	)
	cmd := &cobra.Command{
		Use:   "search <query-string>",
		Short: "Run a search and print the response JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := ""
			if len(args) == 1 {
				raw = args[0]
			}
			q, err := form.ParseString(raw)
			if err != nil {
				return err
			}
			return g.open(cmd.Context(), func(app *wire.App) error {
				resp, err := app.Search.Search(cmd.Context(), page, q)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				if indent {
					enc.SetIndent("", "  ")
				}
				return enc.Encode(resp)
			})
		},
	}
	cmd.Flags().StringVar(&page, "page", "", "search page (default: the configured default page)")
	cmd.Flags().BoolVar(&indent, "indent", false, "indent the JSON output")
	return cmd
}

func newPagesCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "pages",
		Short: "List configured search pages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return g.open(cmd.Context(), func(app *wire.App) error {
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "PAGE\tENGINE\tFACETS\tDEFAULT")
				for _, p := range app.Search.Pages() {
					def := ""
					if p.Name == app.Search.DefaultPage() {
						def = "*"
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Name, p.Engine, facetNames(p.Facets), def)
				}
				return w.Flush()
			})
		},
	}
}

func facetNames(specs []query.FacetSpec) string {
	if len(specs) == 0 {
		return "-"
	}
	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.Name
	}
	return strings.Join(names, ",")
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "facetctl %s (commit %s, built %s)\n",
				version.Version, version.Commit, version.Date)
		},
	}
}
