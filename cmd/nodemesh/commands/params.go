package commands

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/hupe1980/nodemesh/param"
)

var paramsNode string

// ParamsCmd prints the overrides a parameter file supplies to one node.
var ParamsCmd = &cobra.Command{
	Use:   "params",
	Short: "Show the parameter overrides a node receives",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg := LoadConfig()
		if cfg.ParamsFile == "" {
			return errors.New("no parameter file: use --params-file or NODEMESH_PARAMS_FILE")
		}
		overrides, err := param.LoadOverridesFile(cfg.ParamsFile, paramsNode)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, name := range slices.Sorted(maps.Keys(overrides)) {
			v := overrides[name]
			fmt.Fprintf(out, "%s (%s) = %s\n", name, v.Type(), v)
		}
		return nil
	},
}

func init() {
	ParamsCmd.Flags().StringVar(&paramsNode, "node", "/talker", "fully qualified node name")
}
