package prompt

import (
	"slices"

	"github.com/manifoldco/promptui"
)

// SelectString prompts the user to pick one of items, starting the cursor on
// current when it is present.
func SelectString(label string, items []string, current string) (string, error) {
	prompt := promptui.Select{
		Label:     label,
		Items:     items,
		Size:      10,
		CursorPos: max(slices.Index(items, current), 0),
	}

	_, result, err := prompt.Run()
	return result, wrapError(err)
}
