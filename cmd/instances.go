package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

type instanceJSON struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	Kind    string `json:"kind"`
	Default bool   `json:"default"`
}

func newInstancesCmd(loader *appLoader) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "instances",
		Short: "List the system controller and the configured subclouds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loader.load(cmd.Context())
			if err != nil {
				return err
			}

			instances := app.registry.List()
			if asJSON {
				out := make([]instanceJSON, 0, len(instances))
				for _, instance := range instances {
					out = append(out, instanceJSON{
						Name:    instance.Name,
						URL:     instance.URL,
						Kind:    string(instance.Kind),
						Default: instance.IsDefault(),
					})
				}
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(out)
			}

			rendered, err := app.instanceRenderer(instances)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print instances as JSON")

	return cmd
}
