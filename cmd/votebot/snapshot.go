package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/v0xg/votebot/internal/page"
)

var snapshotOut string

func snapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Save the ballot page's visible text and positions to JSON for offline inspection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBallot(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer b.Close()

			fmt.Print("→ Reading page... ")
			s, err := b.Snapshot(cmd.Context())
			if err != nil {
				fmt.Println("failed")
				return err
			}
			fmt.Printf("done (%d elements)\n", len(s.Elements))

			if err := page.Save(snapshotOut, s); err != nil {
				return err
			}
			fmt.Printf("✓ Saved to %s\n", snapshotOut)
			return nil
		},
	}
	cmd.Flags().StringVarP(&snapshotOut, "out", "o", "snapshot.json", "Output file")
	return cmd
}
