// Package prompt wraps promptui for the interactive parts of lhubctl.
package prompt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
)

// ErrAborted is returned when the user presses Ctrl+C or Ctrl+D.
var ErrAborted = errors.New("aborted")

// IsAborted reports whether err means the user gave up on a prompt.
func IsAborted(err error) bool {
	return errors.Is(err, ErrAborted) ||
		errors.Is(err, promptui.ErrInterrupt) ||
		errors.Is(err, promptui.ErrEOF)
}

func wrapError(err error) error {
	if err != nil && IsAborted(err) {
		return ErrAborted
	}
	return err
}

// Input prompts for free text. Empty input yields defaultValue.
func Input(label, defaultValue string) (string, error) {
	p := promptui.Prompt{Label: label, Default: defaultValue}
	result, err := p.Run()
	return strings.TrimSpace(result), wrapError(err)
}

// InputRequired prompts until the user enters something other than blanks.
func InputRequired(label string) (string, error) {
	p := promptui.Prompt{
		Label:    label,
		Validate: notBlank,
	}
	result, err := p.Run()
	return strings.TrimSpace(result), wrapError(err)
}

func notBlank(input string) error {
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("value is required")
	}
	return nil
}
