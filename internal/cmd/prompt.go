package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

type patternChoice int

const (
	choiceRecord patternChoice = iota
	choiceReuse
	choiceReset
)

func (c patternChoice) String() string {
	switch c {
	case choiceReuse:
		return "reuse"
	case choiceReset:
		return "reset"
	default:
		return "record"
	}
}

var (
	promptColor    = color.New(color.FgYellow, color.Bold)
	countdownColor = color.New(color.FgCyan)
	noticeColor    = color.New(color.FgGreen)
	warnColor      = color.New(color.FgRed)
)

// promptPatternChoice asks whether to reuse the saved pattern. "y" reuses it,
// "r" deletes it and records anew, and anything else records over it.
func promptPatternChoice(in io.Reader, out io.Writer) (patternChoice, error) {
	promptColor.Fprint(out, "Saved pattern found. Use it? (y/n) or 'r' to reset: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return choiceRecord, fmt.Errorf("read answer: %w", err)
	}
	if errors.Is(err, io.EOF) {
		fmt.Fprintln(out)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return choiceReuse, nil
	case "r", "reset":
		return choiceReset, nil
	default:
		return choiceRecord, nil
	}
}

// countdownPrinter returns a callback that prints "<label> in N..." lines.
func countdownPrinter(out io.Writer, label string) func(int) {
	return func(left int) {
		countdownColor.Fprintf(out, "%s in %d...\n", label, left)
	}
}

func notice(out io.Writer, format string, args ...any) {
	noticeColor.Fprintf(out, format+"\n", args...)
}

func warn(out io.Writer, format string, args ...any) {
	warnColor.Fprintf(out, format+"\n", args...)
}
