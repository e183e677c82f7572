package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/angeloszaimis/grocery-proxy/config"
	"github.com/angeloszaimis/grocery-proxy/internal/route"
	"github.com/angeloszaimis/grocery-proxy/internal/upstream"
)

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Print the route table with resolved upstream URLs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		upstreams, err := buildUpstreams(cfg)
		if err != nil {
			return err
		}

		return printRoutes(cmd.OutOrStdout(), route.Default(), upstreams)
	},
}

func printRoutes(out io.Writer, routes *route.Table, upstreams upstream.Set) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PATTERN\tMATCH\tFAMILY\tUPSTREAM")

	for _, r := range routes.Routes() {
		target := "-"
		if up, ok := upstreams[r.Family]; ok {
			target = up.ResolveURL(r.UpstreamPath, "")
			if r.Kind == route.MatchSegment {
				target += "{barcode}"
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Pattern(), r.Kind, r.Family, target)
	}

	return tw.Flush()
}
