package prompt

import (
	"errors"
	"fmt"

	"github.com/manifoldco/promptui"
)

// Confirm asks a yes/no question. Pressing Enter picks defaultYes.
func Confirm(label string, defaultYes bool) (bool, error) {
	hint := "y/N"
	if defaultYes {
		hint = "Y/n"
	}
	p := promptui.Prompt{
		Label:     fmt.Sprintf("%s [%s]", label, hint),
		IsConfirm: true,
	}

	result, err := p.Run()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, promptui.ErrAbort):
		// promptui reports both "n" and an empty answer as ErrAbort.
		if result == "" {
			return defaultYes, nil
		}
		return false, nil
	}
	return false, wrapError(err)
}

// ConfirmWithForce skips the question when force is set.
func ConfirmWithForce(label string, force bool) (bool, error) {
	if force {
		return true, nil
	}
	return Confirm(label, false)
}
