package cli

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/vault-cli/pwvault/internal/domain"
)

// MaxOutputSize is the maximum allowed size for output to prevent memory exhaustion
const MaxOutputSize = 10 * 1024 * 1024 // 10MB

var (
	successStyle = color.New(color.FgGreen)
	warningStyle = color.New(color.FgYellow)
	labelStyle   = color.New(color.FgCyan, color.Bold)
	mutedStyle   = color.New(color.Faint)
)

// writeString writes a string to the writer with error checking and size limits
func writeString(w io.Writer, s string) error {
	if len(s) > MaxOutputSize {
		return fmt.Errorf("output size %d exceeds maximum allowed size %d",
			len(s), MaxOutputSize)
	}

	n, err := fmt.Fprint(w, s)
	if err != nil {
		return fmt.Errorf("failed to write output (wrote %d bytes): %w", n, err)
	}

	if f, ok := w.(interface{ Flush() error }); ok {
		if flushErr := f.Flush(); flushErr != nil {
			return fmt.Errorf("failed to flush output: %w", flushErr)
		}
	}

	return nil
}

// writeOutput is a helper function to write formatted output with error checking and size limits
func writeOutput(w io.Writer, format string, args ...interface{}) error {
	return writeString(w, fmt.Sprintf(format, args...))
}

func printSuccess(w io.Writer, format string, args ...interface{}) error {
	return writeOutput(w, "%s %s\n", successStyle.Sprint("✓"), fmt.Sprintf(format, args...))
}

func printWarning(w io.Writer, format string, args ...interface{}) error {
	return writeOutput(w, "%s %s\n", warningStyle.Sprint("!"), fmt.Sprintf(format, args...))
}

// shortID is the id prefix shown in tables. Any unique prefix of at least
// four characters is accepted back as a reference.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// writeEntryTable prints entries with masked secrets.
func writeEntryTable(out io.Writer, entries []domain.Entry) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	if _, err := fmt.Fprintln(w, "ID\tLABEL\tSECRET\tUPDATED"); err != nil {
		return fmt.Errorf("failed to write table header: %w", err)
	}
	for _, e := range entries {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			shortID(e.ID), e.Label, e.Masked(), e.UpdatedAt.Local().Format("2006-01-02 15:04")); err != nil {
			return fmt.Errorf("failed to write entry: %w", err)
		}
	}

	return w.Flush()
}

// withSpinner runs fn behind a spinner on w. Nothing is drawn unless w is a terminal.
func withSpinner(w io.Writer, suffix string, fn func() error) error {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return fn()
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriterFile(f))
	s.Suffix = " " + suffix
	s.Start()
	defer s.Stop()

	return fn()
}
