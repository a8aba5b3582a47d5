package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gompdf/rasterpdf/internal/filename"
	"github.com/gompdf/rasterpdf/pkg/errors"
)

type filenameOpts struct {
	subject string
	prefix  string
	date    string
}

func newFilenameCmd() *cobra.Command {
	var opts filenameOpts

	cmd := &cobra.Command{
		Use:   "filename [title] [subject]",
		Short: "Print the default file name for a title and subject",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r := filename.Default()
			if cmd.Flags().Changed("prefix") {
				r.Prefix = opts.prefix
			}
			if opts.date != "" {
				t, err := time.Parse(time.DateOnly, opts.date)
				if err != nil {
					return errors.Wrap(errors.ErrCodeInvalidInput, err, "parse --date")
				}
				r.Now = func() time.Time { return t }
			}
			var title string
			subject := opts.subject
			if len(args) > 0 {
				title = args[0]
			}
			if len(args) > 1 {
				subject = args[1]
			}
			fmt.Fprintln(cmd.OutOrStdout(), r.Resolve(title, subject))
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.subject, "subject", "", "subject appended after the title")
	cmd.Flags().StringVar(&opts.prefix, "prefix", filename.DefaultPrefix, "name prefix")
	cmd.Flags().StringVar(&opts.date, "date", "", "date stamped into the name, YYYY-MM-DD (default today)")
	return cmd
}
