package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/gompdf/rasterpdf/internal/verify"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file.pdf>",
		Short: "Print page count, page sizes and metadata of a PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			p := newProgress(logger)

			rep, err := verify.InspectFile(args[0])
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), rep)
			p.done("Inspected", "file", args[0])
			return nil
		},
	}
}

func printReport(w io.Writer, r *verify.Report) {
	field := func(name, value string) {
		if value != "" {
			fmt.Fprintf(w, "%-9s %s\n", name+":", value)
		}
	}
	field("title", r.Title)
	field("subject", r.Subject)
	field("author", r.Author)
	field("creator", r.Creator)
	field("producer", r.Producer)
	fmt.Fprintf(w, "%-9s %d\n", "bytes:", r.Bytes)
	fmt.Fprintf(w, "%-9s %d\n", "pages:", r.Pages)
	for i, s := range r.Sizes {
		fmt.Fprintf(w, "  %3d  %.1fx%.1f mm\n", i+1, s.Width, s.Height)
	}
}
