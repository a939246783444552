package flash

import (
	"fmt"
	"gitlab.com/calyxos/image-burner/internal/device"
)

// ConfirmationText is the question asked before anything is written to d.
func ConfirmationText(d *device.Device) string {
	if d.Removable() {
		return fmt.Sprintf("This will overwrite the contents of %v. Are you sure you want to continue?", d.Path())
	}
	return fmt.Sprintf("%v is a non-removable hard drive, and this will overwrite the contents. Are you SURE you want to continue?", d.Path())
}

// Answers is a Decider with fixed answers, used when the choices were made up
// front (command line flags, HTTP request body).
type Answers struct {
	Unmount bool
	Write   bool
}

func (a Answers) ConfirmUnmount(*device.Device) (bool, error) {
	return a.Unmount, nil
}

func (a Answers) ConfirmWrite(*device.Device, string) (bool, error) {
	return a.Write, nil
}
