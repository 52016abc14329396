package main

import (
	"fmt"
	"strings"

	"github.com/nulzo/model-catalog/internal/cli"
	"github.com/nulzo/model-catalog/pkg/schema"
	"github.com/spf13/cobra"
)

// masked returns p with every API key shortened to its last characters.
func masked(p schema.Provider) schema.Provider {
	out := p.Clone()
	for i, k := range out.Credentials.APIKeys {
		out.Credentials.APIKeys[i] = cli.MaskSecret(k)
	}
	return out
}

func newProvidersCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "providers",
		Aliases: []string{"p"},
		Short:   "Inspect and edit providers",
	}

	var asJSON, reveal bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			providers := e.app.Catalog.Providers()
			if asJSON {
				if !reveal {
					for i := range providers {
						providers[i] = masked(providers[i])
					}
				}
				cli.Fprint(e.out, providers)
				return nil
			}
			for _, p := range providers {
				state := cli.Style("disabled", cli.DimCode)
				if p.Enabled {
					state = cli.Style("enabled", cli.Green)
				}
				fmt.Fprintf(e.out, "%s %-24s %-28s %3d models  %s\n",
					cli.Arrow(), p.ID, p.Name, len(p.Models), state)
			}
			return nil
		},
	}
	list.Flags().BoolVar(&asJSON, "json", false, "Print the providers as JSON")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Print one provider as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := e.app.Catalog.Provider(args[0])
			if err != nil {
				e.fail("%v", err)
				return errReported
			}
			if !reveal {
				m := masked(*p)
				p = &m
			}
			cli.Fprint(e.out, p)
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a provider and its models",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.app.Catalog.DeleteProvider(cmd.Context(), args[0]); err != nil {
				e.fail("%v", err)
				return errReported
			}
			e.ok("Deleted provider %s", args[0])
			return nil
		},
	}

	cmd.PersistentFlags().BoolVar(&reveal, "reveal", false, "Print API keys in full")
	cmd.AddCommand(list, show, del)
	return cmd
}

func newModelsCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "models [query]",
		Short: "Search models across providers",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			for _, hit := range e.app.Catalog.SearchModels(query) {
				fmt.Fprintf(e.out, "%s %s/%s  %s\n",
					cli.Arrow(), hit.ProviderID, hit.Model.ID, cli.Style(hit.Model.Name, cli.DimCode))
			}
			return nil
		},
	}
}

func newDiscoverCmd(e *env) *cobra.Command {
	var apply bool

	cmd := &cobra.Command{
		Use:   "discover <provider-id>",
		Short: "List the models a provider's API advertises",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := e.app.Discovery.Discover(cmd.Context(), args[0], apply)
			if err != nil {
				e.fail("%v", err)
				return errReported
			}

			for _, m := range res.New {
				fmt.Fprintf(e.out, "%s %s\n", cli.Style("+", cli.Green), m.ID)
			}
			if apply {
				e.ok("Added %d of %d fetched models", len(res.Added), len(res.Fetched))
			} else {
				e.ok("%d new of %d fetched models (use --apply to add them)", len(res.New), len(res.Fetched))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&apply, "apply", false, "Add the new models to the catalog")
	return cmd
}
