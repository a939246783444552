package device

import (
	"fmt"
	"strings"
)

// UnknownVendor is reported when the host has no vendor string for a device.
const UnknownVendor = "Unknown Device"

const mebibyte = 1024 * 1024

// Device describes one candidate storage device found during a scan. It is never
// mutated after New returns; a rescan produces new values.
type Device struct {
	path         string
	identity     string
	vendor       string
	model        string
	displayLabel string
	sizeBytes    uint64
	removable    bool
}

type Info struct {
	Path      string
	Identity  string
	Vendor    string
	Model     string
	SizeBytes uint64
	Removable bool
}

func New(info Info) *Device {
	vendor := strings.TrimSpace(info.Vendor)
	if vendor == "" {
		vendor = UnknownVendor
	}
	d := &Device{
		path:      info.Path,
		identity:  info.Identity,
		vendor:    vendor,
		model:     strings.TrimSpace(info.Model),
		sizeBytes: info.SizeBytes,
		removable: info.Removable,
	}
	d.displayLabel = d.label()
	return d
}

func (d *Device) label() string {
	name := d.vendor
	if d.model != "" {
		name = fmt.Sprintf("%v %v", d.vendor, d.model)
	}
	return fmt.Sprintf("%v - %v (%v MB)", name, d.path, d.sizeBytes/mebibyte)
}

// Path is the OS device node used as the write target.
func (d *Device) Path() string { return d.path }

// Identity is the backend handle used for mount queries and unmount requests.
func (d *Device) Identity() string { return d.identity }

func (d *Device) Vendor() string       { return d.vendor }
func (d *Device) Model() string        { return d.model }
func (d *Device) DisplayLabel() string { return d.displayLabel }
func (d *Device) SizeBytes() uint64    { return d.sizeBytes }
func (d *Device) Removable() bool      { return d.removable }

func (d *Device) String() string {
	return fmt.Sprintf("path=%v identity=%v", d.path, d.identity)
}
