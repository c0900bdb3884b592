// Package disk models the hard disk images VirtualBox knows about and
// the parent/child relationships between base and differencing images.
package disk

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// ParentBase is the Parent UUID reported for images without a parent
const ParentBase = "base"

var (
	usageRe         = regexp.MustCompile(`^(.*?) \(UUID: ([\w-]+)\)$`)
	usageSnapshotRe = regexp.MustCompile(`^(.*?) \(UUID: ([\w-]+)\) \[(.*?) \(UUID: ([\w-]+)\)\]$`)
)

// HDD is one entry of `VBoxManage list hdds`
type HDD struct {
	UUID       string
	ParentUUID string
	Format     string
	Location   string
	State      string
	Type       string

	// Usage is the raw usage line; the fields below are parsed from it
	Usage        string
	VMName       string
	VMUUID       string
	SnapshotName string
	SnapshotUUID string

	// Parent is set once the disk is added to a Forest that also holds its parent
	Parent *HDD
}

// IsBase reports whether the image has no parent
func (h *HDD) IsBase() bool {
	return h.ParentUUID == "" || h.ParentUUID == ParentBase
}

// InUse reports whether a VM uses the image
func (h *HDD) InUse() bool {
	return h.VMUUID != ""
}

func (h *HDD) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "uuid: %s\n", h.UUID)
	fmt.Fprintf(&b, "parent: %s\n", h.ParentUUID)
	fmt.Fprintf(&b, "format: %s\n", h.Format)
	fmt.Fprintf(&b, "location: %s\n", h.Location)
	fmt.Fprintf(&b, "state: %s\n", h.State)
	fmt.Fprintf(&b, "type: %s\n", h.Type)
	if h.InUse() {
		fmt.Fprintf(&b, "vm: %s (%s)\n", h.VMUUID, h.VMName)
		if h.SnapshotUUID != "" {
			fmt.Fprintf(&b, "snapshot: %s (%s)\n", h.SnapshotUUID, h.SnapshotName)
		}
	}
	return b.String()
}

// ParseHDD parses one blank-line separated block of `VBoxManage list hdds`.
// Both the older (Format/Usage) and newer (Storage format/In use by VMs)
// key spellings are accepted; unrecognized keys are ignored.
func ParseHDD(block string) (*HDD, error) {
	h := &HDD{}
	for _, line := range strings.Split(strings.TrimSpace(block), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("unexpected hdd line: %q", line)
		}
		value = strings.TrimSpace(value)

		switch strings.TrimSpace(key) {
		case "UUID":
			h.UUID = value
		case "Parent UUID":
			h.ParentUUID = value
		case "Format", "Storage format":
			h.Format = value
		case "Location":
			h.Location = value
		case "State":
			h.State = value
		case "Type":
			h.Type = value
		case "Usage", "In use by VMs":
			h.Usage = value
		}
	}

	if h.UUID == "" {
		return nil, fmt.Errorf("hdd block has no UUID: %q", block)
	}
	if _, err := uuid.Parse(h.UUID); err != nil {
		return nil, fmt.Errorf("invalid hdd uuid %q: %w", h.UUID, err)
	}
	if h.ParentUUID == "" {
		return nil, fmt.Errorf("hdd %s has no Parent UUID", h.UUID)
	}
	if !h.IsBase() {
		if _, err := uuid.Parse(h.ParentUUID); err != nil {
			return nil, fmt.Errorf("invalid parent uuid %q for hdd %s: %w", h.ParentUUID, h.UUID, err)
		}
	}
	if h.Location == "" {
		return nil, fmt.Errorf("hdd %s has no Location", h.UUID)
	}

	if h.Usage != "" {
		if err := h.parseUsage(); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func (h *HDD) parseUsage() error {
	if m := usageRe.FindStringSubmatch(h.Usage); m != nil {
		h.VMName, h.VMUUID = m[1], m[2]
		return nil
	}
	if m := usageSnapshotRe.FindStringSubmatch(h.Usage); m != nil {
		h.VMName, h.VMUUID = m[1], m[2]
		h.SnapshotName, h.SnapshotUUID = m[3], m[4]
		return nil
	}
	return fmt.Errorf("couldn't get usage information for hdd %s: %s", h.UUID, h.Usage)
}
