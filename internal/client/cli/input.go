package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/repopix/internal/client/auth"
	"github.com/dmitrijs2005/repopix/internal/cryptox"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
// In tests you can replace it with a stub to avoid touching the terminal.
var readPassword = term.ReadPassword

// GetSimpleText prints a prompt to w and reads a single line of input from reader.
// The trailing newline is trimmed. If EOF occurs after some input was read,
// the partial line is returned.
//
// Example prompt format:
//
//	Prompt text
//	> _
func GetSimpleText(reader *bufio.Reader, prompt string, w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, prompt+"\n> "); err != nil {
		return "", err
	}
	line, err := reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// GetPassword prints prompt to w and reads a password from the user's
// terminal without echo. A newline is printed after the read to keep the
// UI tidy.
func GetPassword(w io.Writer, prompt string) ([]byte, error) {
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return nil, err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return nil, err
	}
	return pw, nil
}

// terminalPrompter asks for the upload password on the terminal.
type terminalPrompter struct {
	out io.Writer
}

func newTerminalPrompter(w io.Writer) *terminalPrompter {
	return &terminalPrompter{out: w}
}

// Password returns the typed password. An empty line means the user gave
// up; EOF (Ctrl-D) is reported as auth.ErrCancelled.
func (p *terminalPrompter) Password(ctx context.Context, attempt int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if attempt > 1 {
		fmt.Fprintln(p.out, "Wrong password.")
	}
	prompt := "Upload password (empty to cancel): "
	if attempt > 1 {
		prompt = fmt.Sprintf("Upload password, attempt %d of %d: ", attempt, auth.MaxPasswordAttempts)
	}

	pw, err := GetPassword(p.out, prompt)
	if errors.Is(err, io.EOF) {
		return "", auth.ErrCancelled
	}
	if err != nil {
		return "", err
	}
	defer cryptox.Wipe(pw)
	return strings.TrimSpace(string(pw)), nil
}
