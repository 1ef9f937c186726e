package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ukaseai/brandlab/internal/dispatch"
	"github.com/ukaseai/brandlab/internal/recipients"
	"github.com/ukaseai/brandlab/internal/transport"
)

var sendOpts struct {
	subject    string
	body       string
	bodyFile   string
	recipients string
	dryRun     bool
	report     string
}

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Personalize and send a campaign",
	Long: `Personalize the subject and body for every valid recipient in the list
and send through the configured email provider. Invalid lines are reported
and skipped. --dry-run counts the recipients without sending.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		body := sendOpts.body
		if sendOpts.bodyFile != "" {
			data, err := os.ReadFile(sendOpts.bodyFile)
			if err != nil {
				return err
			}
			body = string(data)
		}
		campaign := dispatch.Campaign{Subject: sendOpts.subject, Body: body}
		if err := campaign.Validate(); err != nil {
			return err
		}

		in, err := openInput(cmd, sendOpts.recipients)
		if err != nil {
			return err
		}
		parsed, err := recipients.ParseReader(in)
		in.Close()
		if err != nil {
			return err
		}
		for _, bad := range parsed.Invalid {
			fmt.Fprintf(cmd.ErrOrStderr(), "skipping %q: %s\n", bad.Line, bad.Reason)
		}

		var sender transport.Sender
		if !sendOpts.dryRun {
			sender, err = transport.New(ctx, cfg.Email)
			if errors.Is(err, transport.ErrNotConfigured) {
				return errors.New("no email provider configured; set email.provider or use --dry-run")
			}
			if err != nil {
				return err
			}
		}

		d := dispatch.New(sender, dispatch.Options{
			From:        cfg.Email.From,
			Concurrency: cfg.Dispatch.Concurrency,
			SendTimeout: cfg.Dispatch.SendTimeout(),
			Embedder:    embedder(),
		})
		res := d.Dispatch(ctx, campaign, parsed.Valid, sendOpts.dryRun)

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}

		if sendOpts.report != "" {
			f, err := os.Create(sendOpts.report)
			if err != nil {
				return err
			}
			if err := res.WriteCSV(f); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	f := sendCmd.Flags()
	f.StringVar(&sendOpts.subject, "subject", "", "Subject template, e.g. \"Hi {first_name}\"")
	f.StringVar(&sendOpts.body, "body", "", "HTML body template")
	f.StringVar(&sendOpts.bodyFile, "body-file", "", "Read the HTML body template from a file")
	f.StringVar(&sendOpts.recipients, "recipients", "", "Recipient list file (default stdin)")
	f.BoolVar(&sendOpts.dryRun, "dry-run", false, "Count recipients without sending")
	f.StringVar(&sendOpts.report, "report", "", "Write per-recipient status as CSV")
	rootCmd.AddCommand(sendCmd)
}
