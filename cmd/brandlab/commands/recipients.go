package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ukaseai/brandlab/internal/recipients"
)

var recipientsStrict bool

var recipientsCmd = &cobra.Command{
	Use:   "recipients [file]",
	Short: "Parse and validate a recipient list",
	Long: `Parse a recipient list with one "email,first,last,company" line per
recipient and print the valid and invalid entries as JSON. Reads stdin when
no file is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		}
		in, err := openInput(cmd, path)
		if err != nil {
			return err
		}
		defer in.Close()

		res, err := recipients.ParseReader(in)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
		if recipientsStrict && len(res.Invalid) > 0 {
			return fmt.Errorf("%d invalid line(s)", len(res.Invalid))
		}
		return nil
	},
}

func init() {
	recipientsCmd.Flags().BoolVar(&recipientsStrict, "strict", false, "Exit non-zero when any line is invalid")
	rootCmd.AddCommand(recipientsCmd)
}
