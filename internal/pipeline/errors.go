package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/robert-at-pretension-io/sim-build/internal/toplevel"
)

// UsageError reports bad or missing command line input.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string {
	return e.Message
}

// FileNotFoundError reports a missing RTL file. The parser is never invoked.
type FileNotFoundError struct {
	Path string
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("File does not exist: %s", e.Path)
}

// ParseError reports a parser failure or a parser returning no tree.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("parsing %s: no syntax tree", e.Path)
	}
	return fmt.Sprintf("parsing %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// UserMessage renders err as the text shown on the console.
func UserMessage(err error) string {
	var (
		usage     *UsageError
		notFound  *FileNotFoundError
		parse     *ParseError
		ambiguous *toplevel.AmbiguousError
	)

	switch {
	case errors.As(err, &usage):
		return usage.Message
	case errors.As(err, &notFound):
		return notFound.Error()
	case errors.As(err, &parse):
		msg := "Sorry, but the given top-level RTL file failed to parse"
		if parse.Err != nil {
			msg += ": " + parse.Err.Error()
		}
		return msg
	case errors.Is(err, toplevel.ErrNoModulesFound):
		return "Sorry, couldn't find any Verilog module declarations in that file"
	case errors.As(err, &ambiguous):
		var b strings.Builder
		b.WriteString("Sorry, couldn't work out what the top-level module is, please help by running again and specifying it via the --top switch with one of the following names:")
		for _, name := range ambiguous.Candidates {
			b.WriteString("\n  " + name)
		}
		return b.String()
	}
	return err.Error()
}
