package hostio

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// TermPrompter reads a password from stdin with echo disabled, the way
// barnettlynn-nfctools' keyswap/permissionsedit commands put the terminal
// into raw mode for sensitive input.
type TermPrompter struct {
	in  *os.File
	out io.Writer
}

// NewTermPrompter returns a PasswordPrompter reading from stdin and
// writing prompts to stderr.
func NewTermPrompter() *TermPrompter {
	return &TermPrompter{in: os.Stdin, out: os.Stderr}
}

func (p *TermPrompter) Prompt(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)

	if term.IsTerminal(int(p.in.Fd())) {
		raw, err := term.ReadPassword(int(p.in.Fd()))
		fmt.Fprintln(p.out)

		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}

		return string(raw), nil
	}

	// Non-interactive stdin (e.g. piped input in tests): fall back to a
	// plain line read instead of failing the whole session.
	line, err := bufio.NewReader(p.in).ReadString('\n')
	if err != nil && !errorsIsEOF(err) {
		return "", fmt.Errorf("reading password: %w", err)
	}

	return trimNewline(line), nil
}

func errorsIsEOF(err error) bool {
	return err == io.EOF
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}

	return s
}
