package disk

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// ErrNoHDDs is returned when VBoxManage reports no hard disks at all
var ErrNoHDDs = errors.New("no hdds")

var blockSepRe = regexp.MustCompile(`\r?\n[ \t]*\r?\n`)

// HDDLister is the part of the VBoxManage client the forest needs
type HDDLister interface {
	ListHDDs(ctx context.Context) (string, error)
}

// Forest holds every known disk keyed by UUID. Each tree is a base
// image with its chain of differencing images.
type Forest struct {
	nodes map[string]*HDD
}

// NewForest creates an empty forest
func NewForest() *Forest {
	return &Forest{nodes: make(map[string]*HDD)}
}

// Load queries VBoxManage and builds the forest of all registered disks
func Load(ctx context.Context, lister HDDLister) (*Forest, error) {
	out, err := lister.ListHDDs(ctx)
	if err != nil {
		return nil, err
	}
	return ParseForest(out)
}

// ParseForest builds a forest from `VBoxManage list hdds` output
func ParseForest(out string) (*Forest, error) {
	out = strings.TrimSpace(out)
	if out == "" {
		return nil, ErrNoHDDs
	}

	f := NewForest()
	for _, block := range blockSepRe.Split(out, -1) {
		h, err := ParseHDD(block)
		if err != nil {
			return nil, err
		}
		f.Add(h)
	}
	return f, nil
}

// Add inserts h, replacing any node with the same UUID, and links it to
// its parent and children already in the forest.
func (f *Forest) Add(h *HDD) {
	h.Parent = nil
	for _, n := range f.nodes {
		if n.UUID == h.UUID {
			continue
		}
		if n.ParentUUID == h.UUID {
			n.Parent = h
		}
		if n.UUID == h.ParentUUID {
			h.Parent = n
		}
	}
	f.nodes[h.UUID] = h
}

// Get returns the disk with the given UUID, or nil
func (f *Forest) Get(id string) *HDD {
	return f.nodes[id]
}

// Contains reports whether a disk with the given UUID exists
func (f *Forest) Contains(id string) bool {
	_, ok := f.nodes[id]
	return ok
}

// Len returns the number of disks
func (f *Forest) Len() int {
	return len(f.nodes)
}

// Nodes returns all disks sorted by UUID
func (f *Forest) Nodes() []*HDD {
	return f.filter(func(*HDD) bool { return true })
}

// Children returns the disks whose parent is parentUUID
func (f *Forest) Children(parentUUID string) []*HDD {
	return f.filter(func(n *HDD) bool { return n.ParentUUID == parentUUID })
}

// Ends returns the disks that have no children
func (f *Forest) Ends() []*HDD {
	return f.filter(func(n *HDD) bool { return len(f.Children(n.UUID)) == 0 })
}

// Roots returns the disks with no parent in the forest
func (f *Forest) Roots() []*HDD {
	return f.filter(func(n *HDD) bool { return n.Parent == nil })
}

// AttachedTo returns the leaf disks currently used by the VM with the
// given name or UUID.
func (f *Forest) AttachedTo(vm string) []*HDD {
	var out []*HDD
	for _, n := range f.Ends() {
		if n.VMName == vm || n.VMUUID == vm {
			out = append(out, n)
		}
	}
	return out
}

// FindByLocation returns the disks stored at path
func (f *Forest) FindByLocation(path string) []*HDD {
	return f.filter(func(n *HDD) bool { return n.Location == path })
}

// Lineage returns the chain from the disk up to its base image
func (f *Forest) Lineage(id string) ([]*HDD, error) {
	n := f.Get(id)
	if n == nil {
		return nil, fmt.Errorf("hdd not found: %s", id)
	}

	var chain []*HDD
	seen := make(map[string]bool)
	for ; n != nil; n = n.Parent {
		if seen[n.UUID] {
			return nil, fmt.Errorf("hdd parent cycle at %s", n.UUID)
		}
		seen[n.UUID] = true
		chain = append(chain, n)
	}
	return chain, nil
}

// String renders every tree, children indented under their parent
func (f *Forest) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d nodes\n", f.Len())
	for _, root := range f.Roots() {
		f.render(&b, root, 0, make(map[string]bool))
	}
	return b.String()
}

func (f *Forest) render(b *strings.Builder, n *HDD, depth int, seen map[string]bool) {
	if seen[n.UUID] {
		return
	}
	seen[n.UUID] = true

	fmt.Fprintf(b, "%s%s %s", strings.Repeat("  ", depth), n.UUID, n.Location)
	if n.InUse() {
		fmt.Fprintf(b, " [%s]", n.VMName)
		if n.SnapshotName != "" {
			fmt.Fprintf(b, " (snapshot %s)", n.SnapshotName)
		}
	}
	b.WriteString("\n")

	for _, child := range f.Children(n.UUID) {
		f.render(b, child, depth+1, seen)
	}
}

func (f *Forest) filter(keep func(*HDD) bool) []*HDD {
	var out []*HDD
	for _, n := range f.nodes {
		if keep(n) {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UUID < out[j].UUID })
	return out
}
