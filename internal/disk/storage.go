package disk

import (
	"context"

	"github.com/mjshashank/vboxclonevm/internal/vboxmanage"
)

// StorageType classifies a medium UUID
type StorageType string

const (
	StorageUnknown    StorageType = ""
	StorageHostDVD    StorageType = "hostdvd"
	StorageHostFloppy StorageType = "hostfloppy"
	StorageFloppy     StorageType = "floppy"
	StorageDVD        StorageType = "dvd"
	StorageHDD        StorageType = "hdd"
)

// MediaLister is the part of the VBoxManage client StorageTypeOf needs
type MediaLister interface {
	ListMediaUUIDs(ctx context.Context, kind vboxmanage.MediaKind) ([]string, error)
}

// lookup order matters: the first list containing the UUID wins
var storageLookups = []struct {
	kind vboxmanage.MediaKind
	typ  StorageType
}{
	{vboxmanage.MediaHostDVDs, StorageHostDVD},
	{vboxmanage.MediaHostFloppies, StorageHostFloppy},
	{vboxmanage.MediaFloppies, StorageFloppy},
	{vboxmanage.MediaDVDs, StorageDVD},
	{vboxmanage.MediaHDDs, StorageHDD},
}

// StorageTypeOf returns the kind of medium with the given UUID, or
// StorageUnknown if no media list contains it.
func StorageTypeOf(ctx context.Context, lister MediaLister, id string) (StorageType, error) {
	for _, l := range storageLookups {
		ids, err := lister.ListMediaUUIDs(ctx, l.kind)
		if err != nil {
			return StorageUnknown, err
		}
		for _, got := range ids {
			if got == id {
				return l.typ, nil
			}
		}
	}
	return StorageUnknown, nil
}

// IsHost reports whether the medium is a host drive
func (t StorageType) IsHost() bool {
	return t == StorageHostDVD || t == StorageHostFloppy
}

// IsRemovable reports whether the medium is an optical or floppy disk
func (t StorageType) IsRemovable() bool {
	switch t {
	case StorageHostDVD, StorageHostFloppy, StorageFloppy, StorageDVD:
		return true
	}
	return false
}

// DriveType returns the storageattach --type for the medium
func (t StorageType) DriveType() string {
	switch t {
	case StorageDVD, StorageHostDVD:
		return "dvddrive"
	case StorageFloppy, StorageHostFloppy:
		return "fdd"
	case StorageHDD:
		return "hdd"
	}
	return ""
}
