package disk

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mjshashank/vboxclonevm/internal/vboxmanage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	baseUUID  = "11111111-1111-4111-8111-111111111111"
	snapUUID  = "22222222-2222-4222-8222-222222222222"
	leafUUID  = "33333333-3333-4333-8333-333333333333"
	otherUUID = "44444444-4444-4444-8444-444444444444"
	vmUUID    = "aaaaaaaa-aaaa-4aaa-8aaa-aaaaaaaaaaaa"
	snapID    = "bbbbbbbb-bbbb-4bbb-8bbb-bbbbbbbbbbbb"
)

// base -> snap -> leaf, plus an unrelated disk on another VM
var listHDDs = strings.Join([]string{
	`UUID:           ` + baseUUID + `
Parent UUID:    base
Format:         VDI
Location:       /vms/dev/dev.vdi
State:          created
Type:           normal (base)
Usage:          dev (UUID: ` + vmUUID + `) [first (UUID: ` + snapID + `)]`,
	`UUID:           ` + snapUUID + `
Parent UUID:    ` + baseUUID + `
Format:         VDI
Location:       /vms/dev/Snapshots/{` + snapUUID + `}.vdi
State:          created
Type:           normal (differencing)`,
	`UUID:           ` + leafUUID + `
Parent UUID:    ` + snapUUID + `
Format:         VDI
Location:       /vms/dev/Snapshots/{` + leafUUID + `}.vdi
State:          created
Type:           normal (differencing)
Usage:          dev (UUID: ` + vmUUID + `)`,
	`UUID:           ` + otherUUID + `
Parent UUID:    base
State:          created
Type:           normal (base)
Location:       C:\VMs\other\other.vdi
Storage format: VDI
Capacity:       20480 MBytes
Encryption:     disabled
In use by VMs:  other (UUID: cccccccc-cccc-4ccc-8ccc-cccccccccccc)`,
}, "\n\n") + "\n"

type fakeLister struct {
	out string
	err error
}

func (f fakeLister) ListHDDs(context.Context) (string, error) {
	return f.out, f.err
}

func TestParseHDD(t *testing.T) {
	h, err := ParseHDD(`UUID:           ` + baseUUID + `
Parent UUID:    base
Format:         VDI
Location:       /vms/dev/dev.vdi
State:          created
Type:           normal (base)
Usage:          dev (UUID: ` + vmUUID + `) [first (UUID: ` + snapID + `)]`)
	require.NoError(t, err)

	assert.Equal(t, baseUUID, h.UUID)
	assert.True(t, h.IsBase())
	assert.Equal(t, "VDI", h.Format)
	assert.Equal(t, "/vms/dev/dev.vdi", h.Location)
	assert.Equal(t, "normal (base)", h.Type)
	assert.Equal(t, "dev", h.VMName)
	assert.Equal(t, vmUUID, h.VMUUID)
	assert.Equal(t, "first", h.SnapshotName)
	assert.Equal(t, snapID, h.SnapshotUUID)
	assert.Contains(t, h.String(), "snapshot: "+snapID+" (first)")
}

func TestParseHDD_NewerFormat(t *testing.T) {
	h, err := ParseHDD(`UUID:           ` + otherUUID + `
Parent UUID:    base
State:          created
Type:           normal (base)
Location:       C:\VMs\other\other.vdi
Storage format: VDI
In use by VMs:  other vm (UUID: cccccccc-cccc-4ccc-8ccc-cccccccccccc)`)
	require.NoError(t, err)

	assert.Equal(t, `C:\VMs\other\other.vdi`, h.Location)
	assert.Equal(t, "VDI", h.Format)
	assert.Equal(t, "other vm", h.VMName)
	assert.Empty(t, h.SnapshotUUID)
}

func TestParseHDD_Errors(t *testing.T) {
	tests := []struct {
		name  string
		block string
	}{
		{"missing_uuid", "Parent UUID: base\nLocation: /x.vdi"},
		{"bad_uuid", "UUID: nope\nParent UUID: base\nLocation: /x.vdi"},
		{"missing_parent", "UUID: " + baseUUID + "\nLocation: /x.vdi"},
		{"bad_parent", "UUID: " + baseUUID + "\nParent UUID: nope\nLocation: /x.vdi"},
		{"missing_location", "UUID: " + baseUUID + "\nParent UUID: base"},
		{"bad_usage", "UUID: " + baseUUID + "\nParent UUID: base\nLocation: /x.vdi\nUsage: something else"},
		{"no_colon", "UUID: " + baseUUID + "\ngarbage"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseHDD(tt.block)
			assert.Error(t, err)
		})
	}
}

func TestParseForest(t *testing.T) {
	f, err := ParseForest(listHDDs)
	require.NoError(t, err)

	assert.Equal(t, 4, f.Len())
	assert.True(t, f.Contains(leafUUID))

	leaf := f.Get(leafUUID)
	require.NotNil(t, leaf.Parent)
	assert.Equal(t, snapUUID, leaf.Parent.UUID)
	require.NotNil(t, leaf.Parent.Parent)
	assert.Equal(t, baseUUID, leaf.Parent.Parent.UUID)
	assert.Nil(t, f.Get(baseUUID).Parent)

	children := f.Children(baseUUID)
	require.Len(t, children, 1)
	assert.Equal(t, snapUUID, children[0].UUID)

	var ends []string
	for _, n := range f.Ends() {
		ends = append(ends, n.UUID)
	}
	assert.Equal(t, []string{leafUUID, otherUUID}, ends)

	var roots []string
	for _, n := range f.Roots() {
		roots = append(roots, n.UUID)
	}
	assert.Equal(t, []string{baseUUID, otherUUID}, roots)
}

func TestParseForest_Empty(t *testing.T) {
	_, err := ParseForest("  \n")
	assert.ErrorIs(t, err, ErrNoHDDs)
}

func TestForest_AddLinksRegardlessOfOrder(t *testing.T) {
	f := NewForest()
	f.Add(&HDD{UUID: leafUUID, ParentUUID: snapUUID})
	f.Add(&HDD{UUID: baseUUID, ParentUUID: ParentBase})
	f.Add(&HDD{UUID: snapUUID, ParentUUID: baseUUID})

	require.NotNil(t, f.Get(leafUUID).Parent)
	assert.Equal(t, snapUUID, f.Get(leafUUID).Parent.UUID)
	assert.Equal(t, baseUUID, f.Get(snapUUID).Parent.UUID)

	// replacing a node relinks its children to the new value
	replacement := &HDD{UUID: snapUUID, ParentUUID: baseUUID, Location: "/moved.vdi"}
	f.Add(replacement)
	assert.Same(t, replacement, f.Get(leafUUID).Parent)
	assert.Equal(t, 3, f.Len())
}

func TestForest_AttachedTo(t *testing.T) {
	f, err := ParseForest(listHDDs)
	require.NoError(t, err)

	// the base disk also names the VM but is not a leaf
	byName := f.AttachedTo("dev")
	require.Len(t, byName, 1)
	assert.Equal(t, leafUUID, byName[0].UUID)

	byUUID := f.AttachedTo(vmUUID)
	require.Len(t, byUUID, 1)
	assert.Equal(t, leafUUID, byUUID[0].UUID)

	assert.Empty(t, f.AttachedTo("nobody"))
}

func TestForest_FindByLocation(t *testing.T) {
	f, err := ParseForest(listHDDs)
	require.NoError(t, err)

	found := f.FindByLocation("/vms/dev/dev.vdi")
	require.Len(t, found, 1)
	assert.Equal(t, baseUUID, found[0].UUID)
	assert.Empty(t, f.FindByLocation("/nowhere.vdi"))
}

func TestForest_Lineage(t *testing.T) {
	f, err := ParseForest(listHDDs)
	require.NoError(t, err)

	chain, err := f.Lineage(leafUUID)
	require.NoError(t, err)
	require.Len(t, chain, 3)
	assert.Equal(t, leafUUID, chain[0].UUID)
	assert.Equal(t, baseUUID, chain[2].UUID)

	_, err = f.Lineage("missing")
	assert.Error(t, err)
}

func TestForest_String(t *testing.T) {
	f, err := ParseForest(listHDDs)
	require.NoError(t, err)

	out := f.String()
	assert.True(t, strings.HasPrefix(out, "4 nodes\n"))
	assert.Contains(t, out, "\n    "+leafUUID)
	assert.Contains(t, out, "[dev] (snapshot first)")
}

func TestLoad(t *testing.T) {
	f, err := Load(context.Background(), fakeLister{out: listHDDs})
	require.NoError(t, err)
	assert.Equal(t, 4, f.Len())

	boom := errors.New("boom")
	_, err = Load(context.Background(), fakeLister{err: boom})
	assert.ErrorIs(t, err, boom)
}

type fakeMedia map[vboxmanage.MediaKind][]string

func (f fakeMedia) ListMediaUUIDs(_ context.Context, kind vboxmanage.MediaKind) ([]string, error) {
	return f[kind], nil
}

func TestStorageTypeOf(t *testing.T) {
	media := fakeMedia{
		vboxmanage.MediaHostDVDs: {"host-dvd"},
		vboxmanage.MediaDVDs:     {"iso"},
		vboxmanage.MediaFloppies: {"floppy"},
		vboxmanage.MediaHDDs:     {baseUUID, "iso"},
	}

	tests := []struct {
		id       string
		expected StorageType
	}{
		{"host-dvd", StorageHostDVD},
		{"iso", StorageDVD},
		{"floppy", StorageFloppy},
		{baseUUID, StorageHDD},
		{"missing", StorageUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got, err := StorageTypeOf(context.Background(), media, tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	assert.Equal(t, "dvddrive", StorageHostDVD.DriveType())
	assert.Equal(t, "fdd", StorageFloppy.DriveType())
	assert.Equal(t, "hdd", StorageHDD.DriveType())
	assert.True(t, StorageHostFloppy.IsHost())
	assert.False(t, StorageHDD.IsRemovable())
}
