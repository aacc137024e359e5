package rv64

import "github.com/google/btree"

// Device is a memory-mapped segment: a (load, store) pair addressed by
// an offset from its own base, plus the enclosing [base, base+size)
// range the AddressDecoder routes traffic to it for.
type Device interface {
	Base() uint64
	Size() uint64
	Load(offset uint64, width int) (uint64, error)
	Store(offset uint64, width int, value uint64) error
}

// segmentItem is the btree.Item keyed on a segment's base address, used
// to answer floor queries ("which segment starts at or before addr").
type segmentItem struct {
	base uint64
	dev  Device
}

func (s *segmentItem) Less(than btree.Item) bool {
	return s.base < than.(*segmentItem).base
}

// AddressDecoder maps a physical address to the Device that claims it,
// in O(log n) via an ordered tree keyed by segment start address
// (mirroring the Rust original's BTreeMap::range(..=addr).next_back()
// floor query).
type AddressDecoder struct {
	tree *btree.BTree
}

// NewAddressDecoder returns an empty decoder.
func NewAddressDecoder() *AddressDecoder {
	return &AddressDecoder{tree: btree.New(4)}
}

// Register installs dev, claiming [dev.Base(), dev.Base()+dev.Size()).
// Exactly one segment may claim any given byte address.
func (d *AddressDecoder) Register(dev Device) {
	d.tree.ReplaceOrInsert(&segmentItem{base: dev.Base(), dev: dev})
}

// Lookup returns the device claiming addr and addr's offset within it,
// or ok=false if no segment claims the address.
func (d *AddressDecoder) Lookup(addr uint64) (dev Device, offset uint64, ok bool) {
	var found *segmentItem
	d.tree.DescendLessOrEqual(&segmentItem{base: addr}, func(i btree.Item) bool {
		found = i.(*segmentItem)
		return false
	})
	if found == nil {
		return nil, 0, false
	}
	end := found.base + found.dev.Size()
	if addr < found.base || addr >= end {
		return nil, 0, false
	}
	return found.dev, addr - found.base, true
}
