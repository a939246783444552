package main

import (
	"errors"
	"fmt"
	"github.com/manifoldco/promptui"
	"gitlab.com/calyxos/image-burner/internal/device"
	"strings"
)

// promptDecider asks the questions on the terminal.
type promptDecider struct{}

func (promptDecider) ConfirmUnmount(d *device.Device) (bool, error) {
	return confirm(fmt.Sprintf("%v is already mounted. Would you like to attempt to unmount it", d.Path()))
}

func (promptDecider) ConfirmWrite(d *device.Device, text string) (bool, error) {
	return confirm(strings.TrimSuffix(text, "?"))
}

func confirm(label string) (bool, error) {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}
	_, err := prompt.Run()
	if errors.Is(err, promptui.ErrAbort) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func selectItem(label string, items []string) (int, error) {
	s := promptui.Select{
		Label: label,
		Items: items,
		Size:  10,
	}
	i, _, err := s.Run()
	return i, err
}
