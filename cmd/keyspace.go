package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/unclesp1d3r/meshcrack/crackstate"
	"github.com/unclesp1d3r/meshcrack/lib/display"
	"github.com/unclesp1d3r/meshcrack/lib/roomname"
)

var keyspaceMax int //nolint:gochecknoglobals // Cobra flag target

// keyspaceCmd reports the size of the room-name space and converts between names and positions.
var keyspaceCmd = &cobra.Command{ //nolint:gochecknoglobals // Cobra command
	Use:   "keyspace",
	Short: "Show the number of room names per length",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		maxLength := keyspaceMax
		if maxLength == 0 {
			maxLength = crackstate.State.MaxLength
		}

		counts := make([]uint64, 0, maxLength)
		for length := 1; length <= maxLength; length++ {
			count, err := roomname.CountNamesForLength(length)
			if err != nil {
				return err
			}

			counts = append(counts, count)
		}

		display.Keyspace(counts)

		return nil
	},
}

var keyspaceIndexCmd = &cobra.Command{ //nolint:gochecknoglobals // Cobra command
	Use:   "index <name>",
	Short: "Print the brute-force position of a room name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pos, err := roomname.NameToIndex(args[0])
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), pos)

		return nil
	},
}

var keyspaceNameCmd = &cobra.Command{ //nolint:gochecknoglobals // Cobra command
	Use:   "name <length> <ordinal>",
	Short: "Print the room name at a brute-force position",
	Args:  cobra.ExactArgs(2), //nolint:mnd // Length and ordinal
	RunE: func(cmd *cobra.Command, args []string) error {
		length, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid length %q: %w", args[0], err)
		}

		ordinal, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid ordinal %q: %w", args[1], err)
		}

		name, err := roomname.IndexToName(length, ordinal)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), name)

		return nil
	},
}

func init() {
	keyspaceCmd.Flags().IntVar(&keyspaceMax, "max-length", 0, "Longest length to report (default from config)")
	keyspaceCmd.AddCommand(keyspaceIndexCmd, keyspaceNameCmd)
}
