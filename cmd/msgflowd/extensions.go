package main

import (
	"fmt"

	"github.com/spf13/cobra"

	codecpkg "github.com/drblury/msgflow/internal/runtime/codec"
	"github.com/drblury/msgflow/internal/runtime/extensions"
)

func newExtensionsCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "extensions",
		Short: "Print the registered processors and handlers as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			level := root.logLevel
			if level == "" {
				level = "error"
			}
			log, err := newLogger(cmd, level)
			if err != nil {
				return err
			}
			container, err := newContainer(log, extensions.Options{StrictIDs: root.strictIDs})
			if err != nil {
				return err
			}
			out, err := codecpkg.MarshalIndent(container.Inventory(), "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}
}
