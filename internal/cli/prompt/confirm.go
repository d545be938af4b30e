// Package prompt wraps promptui for the interactive parts of the CLI.
package prompt

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
)

// Confirm asks a yes/no question. An empty answer picks defaultYes.
// Ctrl+C returns ErrAborted.
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
	return confirmed(result, err, defaultYes)
}

// confirmed interprets a promptui confirm result. promptui reports any
// answer other than "y" as ErrAbort, including an empty one.
func confirmed(result string, err error, defaultYes bool) (bool, error) {
	switch {
	case errors.Is(err, promptui.ErrInterrupt):
		return false, ErrAborted
	case errors.Is(err, promptui.ErrAbort):
		return strings.TrimSpace(result) == "" && defaultYes, nil
	case err != nil:
		return false, err
	}

	switch strings.ToLower(strings.TrimSpace(result)) {
	case "y", "yes":
		return true, nil
	case "":
		return defaultYes, nil
	default:
		return false, nil
	}
}

// ConfirmWithForce returns true immediately if force is true,
// otherwise prompts for confirmation.
func ConfirmWithForce(label string, force bool) (bool, error) {
	if force {
		return true, nil
	}
	return Confirm(label, false)
}

// ConfirmOverwrite reports whether path may be written. A missing file needs
// no confirmation; an existing one needs force or a yes.
func ConfirmOverwrite(path string, force bool) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	if info.IsDir() {
		return false, fmt.Errorf("%s is a directory", path)
	}
	return ConfirmWithForce(fmt.Sprintf("%s already exists. Overwrite", path), force)
}
