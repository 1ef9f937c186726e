package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ukaseai/brandlab/internal/provenance"
)

var (
	embedKind  string
	embedInput string
)

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Append the ownership notice to content",
	Long: `Read content from --in (or stdin) and write it back with the ownership
notice attached: an HTML comment for html, a link-reference comment for
markdown, a plain trailer otherwise.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := openInput(cmd, embedInput)
		if err != nil {
			return err
		}
		defer in.Close()

		content, err := io.ReadAll(in)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), embedder().Embed(string(content), provenance.ParseKind(embedKind)))
		return err
	},
}

func init() {
	embedCmd.Flags().StringVar(&embedKind, "kind", "html", "Content kind: html, markdown or plain")
	embedCmd.Flags().StringVar(&embedInput, "in", "", "Input file (default stdin)")
	rootCmd.AddCommand(embedCmd)
}
