// Package prompt asks the operator for inputs that were not supplied on the
// command line. It is only used when stdin is a terminal.
package prompt

import (
	"errors"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/ruteri/vault-bootstrap/interfaces"
	"golang.org/x/term"
)

// ErrAborted is returned when the user aborts a prompt (Ctrl+C).
var ErrAborted = errors.New("aborted")

// IsAborted returns true if the error indicates the user aborted (Ctrl+C).
func IsAborted(err error) bool {
	return errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrAbort) || errors.Is(err, promptui.ErrEOF) || errors.Is(err, ErrAborted)
}

func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if IsAborted(err) {
		return ErrAborted
	}
	return err
}

// IsInteractive reports whether stdin is attached to a terminal.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Prompter reads answers from a terminal. Zero values use os.Stdin and os.Stdout.
type Prompter struct {
	Stdin  *os.File
	Stdout *os.File
}

// UnsealKey prompts for an unseal key share with masking.
func (p *Prompter) UnsealKey() (string, error) {
	prompt := promptui.Prompt{
		Label:    "Unseal key",
		Mask:     '*',
		Validate: validateRequired,
	}
	p.attach(&prompt)

	result, err := prompt.Run()
	return strings.TrimSpace(result), wrapError(err)
}

// SnapshotLocation prompts for a snapshot URI and rejects unsupported schemes.
func (p *Prompter) SnapshotLocation() (string, error) {
	prompt := promptui.Prompt{
		Label:    "Snapshot URL",
		Validate: ValidateSnapshotLocation,
	}
	p.attach(&prompt)

	result, err := prompt.Run()
	return strings.TrimSpace(result), wrapError(err)
}

func (p *Prompter) attach(prompt *promptui.Prompt) {
	if p.Stdin != nil {
		prompt.Stdin = p.Stdin
	}
	if p.Stdout != nil {
		prompt.Stdout = p.Stdout
	}
}

func validateRequired(input string) error {
	if strings.TrimSpace(input) == "" {
		return errors.New("value is required")
	}
	return nil
}

// ValidateSnapshotLocation accepts URIs with a supported scheme.
func ValidateSnapshotLocation(input string) error {
	if err := validateRequired(input); err != nil {
		return err
	}
	_, err := interfaces.NewSnapshotLocation(strings.TrimSpace(input))
	return err
}
