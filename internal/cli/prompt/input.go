package prompt

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/manifoldco/promptui"
)

// ErrAborted is returned when the user aborts a prompt (Ctrl+C).
var ErrAborted = errors.New("aborted")

// IsAborted returns true if the error indicates the user aborted (Ctrl+C).
func IsAborted(err error) bool {
	return errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrAbort) || errors.Is(err, ErrAborted)
}

// wrapError converts promptui interrupt/abort errors to ErrAborted.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if IsAborted(err) {
		return ErrAborted
	}
	return err
}

// Input prompts for text input, validated by validate when non-nil.
func Input(label, defaultValue string, validate func(string) error) (string, error) {
	prompt := promptui.Prompt{
		Label:    label,
		Default:  defaultValue,
		Validate: validate,
	}

	result, err := prompt.Run()
	return result, wrapError(err)
}

// InputInt prompts for integer input. Negative values are accepted.
func InputInt(label string, defaultValue int) (int, error) {
	result, err := Input(label, strconv.Itoa(defaultValue), func(input string) error {
		if _, err := strconv.Atoi(input); err != nil {
			return fmt.Errorf("must be a valid integer")
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	value, _ := strconv.Atoi(result)
	return value, nil
}
