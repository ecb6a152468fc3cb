package commands

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/codealong/pkg/event"
)

const maxEventLine = 16 << 20

// ErrInvalidEvents is returned when at least one event fails validation.
var ErrInvalidEvents = errors.New("invalid events")

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "validate [events-file|-]",
		Short: "Check emitted events against the event schema",
		Long: `Validate reads JSON lines or an Elasticsearch bulk body produced by
analyze and checks every event document against the embedded JSON schema.
Bulk action lines are skipped. Reads stdin when no file is given or it is "-".`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, label, closeIn, err := openInput(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			defer closeIn()

			return validateEvents(in, label, cmd.OutOrStdout(), quiet)
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only report failures")

	return cmd
}

func openInput(args []string, stdin io.Reader) (io.Reader, string, func(), error) {
	if len(args) == 0 || args[0] == "-" {
		return stdin, "stdin", func() {}, nil
	}

	f, err := os.Open(args[0])
	if err != nil {
		return nil, "", nil, fmt.Errorf("open input: %w", err)
	}

	return f, args[0], func() { _ = f.Close() }, nil
}

func validateEvents(in io.Reader, label string, out io.Writer, quiet bool) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxEventLine)

	red := color.New(color.FgRed)

	var checked, failed, line int

	for sc.Scan() {
		line++

		doc := bytes.TrimSpace(sc.Bytes())
		if len(doc) == 0 || isBulkAction(doc) {
			continue
		}

		checked++

		violations, err := event.Validate(doc)
		if err != nil {
			failed++

			red.Fprintf(out, "line %d: %v\n", line, err)

			continue
		}

		if len(violations) == 0 {
			continue
		}

		failed++

		red.Fprintf(out, "line %d: %d violations\n", line, len(violations))

		for _, v := range violations {
			red.Fprintf(out, "  - %s: %s\n", v.Field, v.Description)
		}
	}

	err := sc.Err()
	if err != nil {
		return fmt.Errorf("read %s: %w", label, err)
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d in %s", ErrInvalidEvents, failed, checked, label)
	}

	if !quiet {
		color.New(color.FgGreen).Fprintf(out, "%d events valid (%s)\n", checked, label)
	}

	return nil
}

// isBulkAction reports whether doc is an {"index": {...}} bulk action line.
func isBulkAction(doc []byte) bool {
	var action map[string]json.RawMessage

	err := json.Unmarshal(doc, &action)
	if err != nil || len(action) != 1 {
		return false
	}

	_, ok := action["index"]

	return ok
}
