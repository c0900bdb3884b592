package vboxmanage

import (
	"sort"
	"strings"
)

// VM represents a registered machine from `VBoxManage list vms`
type VM struct {
	Name string
	UUID string
}

// VMInfo holds the output of `VBoxManage showvminfo --machinereadable`.
// Keys are lower-cased.
type VMInfo map[string]string

// Get returns the value for key, or "" if unset
func (i VMInfo) Get(key string) string {
	return i[strings.ToLower(key)]
}

// Has reports whether key is present
func (i VMInfo) Has(key string) bool {
	_, ok := i[strings.ToLower(key)]
	return ok
}

// Keys returns all keys in sorted order
func (i VMInfo) Keys() []string {
	keys := make([]string, 0, len(i))
	for k := range i {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// OSType is one entry of `VBoxManage list ostypes`
type OSType struct {
	ID          string // e.g., "Ubuntu_64", accepted by createvm --ostype
	Description string // e.g., "Ubuntu (64-bit)", as showvminfo reports it
}

// MediaKind is an argument to `VBoxManage list`
type MediaKind string

const (
	MediaHostDVDs     MediaKind = "hostdvds"
	MediaHostFloppies MediaKind = "hostfloppies"
	MediaFloppies     MediaKind = "floppies"
	MediaDVDs         MediaKind = "dvds"
	MediaHDDs         MediaKind = "hdds"
)

// StorageControllerOptions holds the arguments for `VBoxManage storagectl --add`
type StorageControllerOptions struct {
	Name       string
	Controller string // e.g., "IntelAhci", "PIIX4"
	Bootable   string // "on", "off" or "" to leave unset
	Bus        string // e.g., "sata", "ide"
}

// StorageAttachOptions holds the arguments for `VBoxManage storageattach`
type StorageAttachOptions struct {
	Controller string
	Port       string
	Device     string
	Medium     string // UUID, "emptydrive" or "host:<uuid>"
	Type       string // "hdd", "dvddrive", "fdd" or "" to leave unset
}

// Well-known values
const (
	MediumEmptyDrive = "emptydrive"
	SlotNone         = "none"
)
