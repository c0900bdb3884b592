// Package clone copies a VirtualBox VM: it creates a new machine, replays
// the source's settings onto it with modifyvm/storagectl, and clones every
// attached hard disk before attaching the copies.
package clone

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/mjshashank/vboxclonevm/internal/disk"
	"github.com/mjshashank/vboxclonevm/internal/vboxmanage"
	"go.uber.org/zap"
)

var (
	// ErrNoOSType is returned when neither the request nor the source VM names an OS type
	ErrNoOSType = errors.New("no ostype given and source vm has none")

	// ErrUnknownOSType is returned when the source's OS type matches no
	// entry of `VBoxManage list ostypes`
	ErrUnknownOSType = errors.New("unknown ostype")
)

// settings copied verbatim with `modifyvm --<option> <value>`
var vmOptions = []string{
	"accelerate3d",
	"acpi",
	"audio",
	"boot1",
	"boot2",
	"boot3",
	"boot4",
	"clipboard",
	"cpus",
	"firmware",
	"guestmemoryballoon",
	"hpet",
	"hwvirtex",
	"hwvirtexexcl",
	"ioapic",
	"largepages",
	"memory",
	"monitorcount",
	"nestedpaging",
	"pae",
	"rtcuseutc",
	"usb",
	"usbehci",
	"vram",
	"vrdeaddress",
	"vrdeauthtype",
	"vrdemulticon",
	"vrdeport",
	"vrdereusecon",
	"vrdevideochannel",
	"vrdevideochannelquality",
	"vtxvpid",
}

// per-adapter settings, suffixed with the 1-based adapter index
var nicOptions = []string{
	"nic",
	"nictype",
	"cableconnected",
	"bridgeadapter",
	"hostonlyadapter",
	"intnet",
	"vdenet",
	"natnet",
}

// Request describes a clone
type Request struct {
	Source string // name or UUID of the VM to copy
	Name   string // name of the new VM
	OSType string // empty uses the source VM's ostype, mapped to its ID
}

// Machine is a VM together with its machine-readable settings
type Machine struct {
	vboxmanage.VM
	Info vboxmanage.VMInfo
}

// Cloner replays a source VM onto a new one through VBoxManage
type Cloner struct {
	client     vboxmanage.Client
	log        *zap.Logger
	out        io.Writer
	diskFormat string
}

// Option configures a Cloner
type Option func(*Cloner)

// WithLogger sets the logger
func WithLogger(log *zap.Logger) Option {
	return func(c *Cloner) {
		if log != nil {
			c.log = log
		}
	}
}

// WithOutput sets where progress messages are written
func WithOutput(w io.Writer) Option {
	return func(c *Cloner) {
		if w != nil {
			c.out = w
		}
	}
}

// WithDiskFormat sets the image format of cloned disks (VDI, VMDK, VHD)
func WithDiskFormat(format string) Option {
	return func(c *Cloner) {
		if format != "" {
			c.diskFormat = format
		}
	}
}

// New creates a Cloner
func New(client vboxmanage.Client, opts ...Option) *Cloner {
	c := &Cloner{
		client:     client,
		log:        zap.NewNop(),
		out:        io.Discard,
		diskFormat: "VDI",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Clone creates req.Name as a copy of req.Source and returns the new VM
func (c *Cloner) Clone(ctx context.Context, req Request) (*vboxmanage.VM, error) {
	forest, err := disk.Load(ctx, c.client)
	if err != nil {
		return nil, fmt.Errorf("failed to list hdds: %w", err)
	}

	src, err := c.LoadMachine(ctx, req.Source)
	if err != nil {
		return nil, err
	}

	ostype := req.OSType
	if ostype == "" {
		if ostype, err = c.SourceOSType(ctx, src); err != nil {
			return nil, err
		}
	}

	c.log.Info("cloning vm",
		zap.String("source", src.Name),
		zap.String("source_uuid", src.UUID),
		zap.String("name", req.Name),
		zap.String("ostype", ostype))

	dst, err := c.CreateVM(ctx, req.Name, ostype)
	if err != nil {
		return nil, err
	}

	c.progress("Setting options for new VM from old VM (this may take a while)... ")
	if err := c.CopyOptions(ctx, src, dst); err != nil {
		return nil, err
	}
	c.done()

	c.progress("Setting network options for new VM from old VM... ")
	if err := c.CopyNetwork(ctx, src, dst); err != nil {
		return nil, err
	}
	c.done()

	c.progress("Setting storage controller options for new VM from old VM... ")
	if err := c.CopyStorageControllers(ctx, src, dst); err != nil {
		return nil, err
	}
	c.done()

	c.progress("Copying storage devices for new VM from old VM (this may take a long time)... ")
	if err := c.CopyStorageDevices(ctx, src, dst, forest); err != nil {
		return nil, err
	}
	c.done()

	return dst, nil
}

// LoadMachine looks up a VM by name or UUID and reads its settings
func (c *Cloner) LoadMachine(ctx context.Context, nameOrUUID string) (*Machine, error) {
	vm, err := c.client.FindVM(ctx, nameOrUUID)
	if err != nil {
		return nil, err
	}
	info, err := c.client.ShowVMInfo(ctx, vm.UUID)
	if err != nil {
		return nil, err
	}
	return &Machine{VM: *vm, Info: info}, nil
}

// SourceOSType returns the createvm OS type ID of src. showvminfo reports
// the OS description ("Ubuntu (64-bit)"), so it is mapped back to its ID
// ("Ubuntu_64") through `list ostypes`; a value that already is an ID is
// kept.
func (c *Cloner) SourceOSType(ctx context.Context, src *Machine) (string, error) {
	reported := src.Info.Get("ostype")
	if reported == "" {
		return "", ErrNoOSType
	}

	types, err := c.client.ListOSTypes(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list ostypes: %w", err)
	}
	for _, t := range types {
		if t.ID == reported {
			return t.ID, nil
		}
	}
	for _, t := range types {
		if t.Description == reported {
			c.log.Debug("mapped ostype description to id",
				zap.String("description", reported), zap.String("id", t.ID))
			return t.ID, nil
		}
	}
	return "", fmt.Errorf("%w: source vm reports %q, pass --ostype", ErrUnknownOSType, reported)
}

// CreateVM creates and registers an empty VM and returns it
func (c *Cloner) CreateVM(ctx context.Context, name, ostype string) (*vboxmanage.VM, error) {
	c.progress("Creating new vm... ")
	if err := c.client.CreateVM(ctx, name, ostype); err != nil {
		return nil, err
	}
	c.done()

	return c.client.FindVM(ctx, name)
}

// CopyOptions copies the general machine settings the source has set
func (c *Cloner) CopyOptions(ctx context.Context, src *Machine, dst *vboxmanage.VM) error {
	for _, option := range vmOptions {
		if _, err := c.setOption(ctx, src, dst, option); err != nil {
			return err
		}
	}
	return nil
}

// CopyNetwork copies adapter settings for adapters 1, 2, ... until an
// index where the source has none of the per-adapter settings.
func (c *Cloner) CopyNetwork(ctx context.Context, src *Machine, dst *vboxmanage.VM) error {
	for i := 1; ; i++ {
		anySet := false
		for _, option := range nicOptions {
			set, err := c.setOption(ctx, src, dst, fmt.Sprintf("%s%d", option, i))
			if err != nil {
				return err
			}
			anySet = anySet || set
		}
		if !anySet {
			return nil
		}
	}
}

// setOption copies one setting and reports whether the source had it
func (c *Cloner) setOption(ctx context.Context, src *Machine, dst *vboxmanage.VM, option string) (bool, error) {
	if !src.Info.Has(option) {
		c.log.Debug("option not set on source, skipping", zap.String("option", option))
		return false, nil
	}
	value := src.Info.Get(option)
	c.log.Debug("setting option", zap.String("option", option), zap.String("value", value))
	if err := c.client.ModifyVM(ctx, dst.UUID, option, value); err != nil {
		return false, fmt.Errorf("failed to set --%s: %w", option, err)
	}
	return true, nil
}

func (c *Cloner) progress(msg string) {
	fmt.Fprint(c.out, msg)
}

func (c *Cloner) done() {
	fmt.Fprintln(c.out, "Done.")
}
