package main

import (
	"fmt"

	"github.com/example/go-utterance/internal/pipeline"
	"github.com/spf13/cobra"
)

func newLevelsCmd() *cobra.Command {
	var stages bool

	cmd := &cobra.Command{
		Use:   "levels",
		Short: "List the levels a built utterance contains",
		RunE: func(cmd *cobra.Command, _ []string) error {
			names := pipeline.Levels()
			if stages {
				names = pipeline.Default(nil).Stages()
			}
			for _, n := range names {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), n); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&stages, "stages", false, "List the pipeline stages instead")

	return cmd
}
