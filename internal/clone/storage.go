package clone

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/mjshashank/vboxclonevm/internal/disk"
	"github.com/mjshashank/vboxclonevm/internal/vboxmanage"
	"go.uber.org/zap"
)

// ErrUnknownController is returned for controller chipsets with no known bus
var ErrUnknownController = errors.New("could not figure out controller type")

// controllerUnknown is reported for controllers VirtualBox can't describe
const controllerUnknown = "unknown"

// chipset -> storagectl --add bus
var controllerBuses = map[string]string{
	"PIIX3":       "ide",
	"PIIX4":       "ide",
	"ICH6":        "ide",
	"I82078":      "floppy",
	"IntelAhci":   "sata",
	"LsiLogic":    "scsi",
	"BusLogic":    "scsi",
	"LSILogicSAS": "sas",
	"NVMe":        "pcie",
	"VirtioSCSI":  "virtio-scsi",
	"USB":         "usb",
}

// BusFor returns the storagectl bus for a controller chipset
func BusFor(controller string) (string, error) {
	bus, ok := controllerBuses[controller]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownController, controller)
	}
	return bus, nil
}

// Controller is one storage controller of the source VM
type Controller struct {
	Index    int
	Name     string
	Type     string
	Bootable string
}

// Controllers returns the source's storage controllers in index order,
// stopping at the first index without both a name and a type.
func Controllers(info vboxmanage.VMInfo) []Controller {
	var out []Controller
	for i := 0; ; i++ {
		nameKey := fmt.Sprintf("storagecontrollername%d", i)
		typeKey := fmt.Sprintf("storagecontrollertype%d", i)
		if !info.Has(nameKey) || !info.Has(typeKey) {
			return out
		}
		out = append(out, Controller{
			Index:    i,
			Name:     info.Get(nameKey),
			Type:     info.Get(typeKey),
			Bootable: info.Get(fmt.Sprintf("storagecontrollerbootable%d", i)),
		})
	}
}

// CopyStorageControllers recreates the source's storage controllers
func (c *Cloner) CopyStorageControllers(ctx context.Context, src *Machine, dst *vboxmanage.VM) error {
	for _, ctl := range Controllers(src.Info) {
		if ctl.Type == controllerUnknown {
			c.log.Debug("not adding controller of unknown type", zap.String("controller", ctl.Name))
			continue
		}
		bus, err := BusFor(ctl.Type)
		if err != nil {
			return err
		}
		err = c.client.StorageCtl(ctx, dst.UUID, vboxmanage.StorageControllerOptions{
			Name:       ctl.Name,
			Controller: ctl.Type,
			Bootable:   ctl.Bootable,
			Bus:        bus,
		})
		if err != nil {
			return fmt.Errorf("failed to add storage controller %q: %w", ctl.Name, err)
		}
	}
	return nil
}

// Slot is a port/device position on a controller
type Slot struct {
	Port   int
	Device int
	Value  string // medium location, "none" or "emptydrive"
}

// Slots returns the populated and empty positions the source reports for a
// controller, ordered by port then device.
func Slots(info vboxmanage.VMInfo, controller string) []Slot {
	re := regexp.MustCompile(`^` + regexp.QuoteMeta(strings.ToLower(controller)) + `-(\d\d?)-(\d\d?)$`)

	var out []Slot
	for key, value := range info {
		m := re.FindStringSubmatch(key)
		if m == nil {
			continue
		}
		port, _ := strconv.Atoi(m[1])
		device, _ := strconv.Atoi(m[2])
		out = append(out, Slot{Port: port, Device: device, Value: value})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Port != out[j].Port {
			return out[i].Port < out[j].Port
		}
		return out[i].Device < out[j].Device
	})
	return out
}

// deviceCopier carries the per-clone state of CopyStorageDevices
type deviceCopier struct {
	*Cloner
	src    *Machine
	dst    *vboxmanage.VM
	forest *disk.Forest

	cloned  int
	destDir string
}

// CopyStorageDevices attaches to dst every medium the source has attached.
// Empty drives, optical and floppy media are attached as-is; hard disks
// are cloned next to the new VM's settings file first.
func (c *Cloner) CopyStorageDevices(ctx context.Context, src *Machine, dst *vboxmanage.VM, forest *disk.Forest) error {
	d := &deviceCopier{Cloner: c, src: src, dst: dst, forest: forest}

	for _, ctl := range Controllers(src.Info) {
		if ctl.Type == controllerUnknown {
			fmt.Fprint(c.out, "Skipping unknown device... ")
			continue
		}
		for _, slot := range Slots(src.Info, ctl.Name) {
			if err := d.copySlot(ctx, ctl, slot); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *deviceCopier) copySlot(ctx context.Context, ctl Controller, slot Slot) error {
	if slot.Value == vboxmanage.SlotNone {
		return nil
	}

	attach := vboxmanage.StorageAttachOptions{
		Controller: ctl.Name,
		Port:       strconv.Itoa(slot.Port),
		Device:     strconv.Itoa(slot.Device),
	}

	if slot.Value == vboxmanage.MediumEmptyDrive {
		attach.Medium = vboxmanage.MediumEmptyDrive
		return d.attach(ctx, attach)
	}

	imageKey := fmt.Sprintf("%s-imageuuid-%d-%d", strings.ToLower(ctl.Name), slot.Port, slot.Device)
	imageUUID := d.src.Info.Get(imageKey)
	if imageUUID == "" {
		return fmt.Errorf("no image uuid for %s port %d device %d", ctl.Name, slot.Port, slot.Device)
	}

	kind, err := disk.StorageTypeOf(ctx, d.client, imageUUID)
	if err != nil {
		return err
	}

	switch {
	case kind.IsRemovable():
		attach.Medium = imageUUID
		if kind.IsHost() {
			attach.Medium = "host:" + imageUUID
		}
		attach.Type = kind.DriveType()
		return d.attach(ctx, attach)

	case kind == disk.StorageHDD:
		newUUID, err := d.cloneHDD(ctx, imageUUID)
		if err != nil {
			return err
		}
		attach.Medium = newUUID
		attach.Type = kind.DriveType()
		return d.attach(ctx, attach)

	default:
		return fmt.Errorf("medium %s on %s port %d device %d is not a known dvd, floppy or hdd",
			imageUUID, ctl.Name, slot.Port, slot.Device)
	}
}

// cloneHDD copies the source's attached disk with the given UUID and
// returns the UUID VirtualBox assigned to the copy.
func (d *deviceCopier) cloneHDD(ctx context.Context, imageUUID string) (string, error) {
	var matches []*disk.HDD
	for _, h := range d.forest.AttachedTo(d.src.UUID) {
		if h.UUID == imageUUID {
			matches = append(matches, h)
		}
	}
	if len(matches) != 1 {
		return "", fmt.Errorf("expected one hdd %s attached to %s, found %d", imageUUID, d.src.Name, len(matches))
	}
	hdd := matches[0]

	dir, err := d.destinationDir(ctx)
	if err != nil {
		return "", err
	}

	d.cloned++
	location := filepath.Join(dir, fmt.Sprintf("%s-%d.%s", d.dst.Name, d.cloned, strings.ToLower(d.diskFormat)))

	d.log.Info("cloning hdd",
		zap.String("uuid", hdd.UUID),
		zap.String("from", hdd.Location),
		zap.String("to", location))
	if err := d.client.CloneHD(ctx, hdd.UUID, location, d.diskFormat); err != nil {
		return "", fmt.Errorf("failed to clone hdd %s: %w", hdd.UUID, err)
	}

	forest, err := disk.Load(ctx, d.client)
	if err != nil {
		return "", fmt.Errorf("failed to list hdds after clone: %w", err)
	}
	d.forest = forest

	found := forest.FindByLocation(location)
	if len(found) != 1 {
		return "", fmt.Errorf("expected one hdd at %s after clone, found %d", location, len(found))
	}
	return found[0].UUID, nil
}

// destinationDir is the directory holding the new VM's settings file
func (d *deviceCopier) destinationDir(ctx context.Context) (string, error) {
	if d.destDir != "" {
		return d.destDir, nil
	}

	info, err := d.client.ShowVMInfo(ctx, d.dst.UUID)
	if err != nil {
		return "", err
	}
	cfgFile := info.Get("cfgfile")
	if cfgFile == "" {
		return "", fmt.Errorf("vm %s reports no cfgfile", d.dst.Name)
	}
	st, err := os.Stat(cfgFile)
	if err != nil {
		return "", fmt.Errorf("settings file of %s: %w", d.dst.Name, err)
	}
	if !st.Mode().IsRegular() {
		return "", fmt.Errorf("settings file of %s is not a regular file: %s", d.dst.Name, cfgFile)
	}

	d.destDir = filepath.Dir(cfgFile)
	return d.destDir, nil
}

func (d *deviceCopier) attach(ctx context.Context, opts vboxmanage.StorageAttachOptions) error {
	d.log.Debug("attaching medium",
		zap.String("controller", opts.Controller),
		zap.String("port", opts.Port),
		zap.String("device", opts.Device),
		zap.String("medium", opts.Medium))
	if err := d.client.StorageAttach(ctx, d.dst.UUID, opts); err != nil {
		return fmt.Errorf("failed to attach %s to %s: %w", opts.Medium, opts.Controller, err)
	}
	return nil
}
