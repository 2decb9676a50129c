package bootinfo

import "testing"

func TestRegionTypeString(t *testing.T) {
	specs := []struct {
		input RegionType
		exp   string
	}{
		{RegionUsable, "usable"},
		{RegionReserved, "reserved"},
		{RegionAcpiReclaimable, "ACPI (reclaimable)"},
		{RegionAcpiNvs, "ACPI NVS"},
		{RegionBadMemory, "bad memory"},
		{RegionType(0), "unknown"},
		{RegionType(123), "unknown"},
	}

	for specIndex, spec := range specs {
		if got := spec.input.String(); got != spec.exp {
			t.Errorf("[spec %d] expected %q; got %q", specIndex, spec.exp, got)
		}
	}
}

func TestMemoryMap(t *testing.T) {
	var m MemoryMap

	regions := []MemoryRegion{
		{Start: 0x0, End: 0x9fc00, Type: RegionUsable},
		{Start: 0x9fc00, End: 0xa0000, Type: RegionReserved},
		{Start: 0x100000, End: 0x7fe0000, Type: RegionUsable},
	}

	for _, region := range regions {
		if err := m.Add(region); err != nil {
			t.Fatal(err)
		}
	}

	if m.Len() != len(regions) {
		t.Fatalf("expected map to contain %d regions; got %d", len(regions), m.Len())
	}

	for i, region := range m.Regions() {
		if region != regions[i] {
			t.Errorf("[region %d] expected %+v; got %+v", i, regions[i], region)
		}
	}

	if exp, got := uint64(0x9fc00), m.Regions()[0].Length(); got != exp {
		t.Errorf("expected region length %x; got %x", exp, got)
	}

	if !m.Regions()[0].Usable() || m.Regions()[1].Usable() {
		t.Error("unexpected region usability classification")
	}

	t.Run("visit aborts when visitor returns false", func(t *testing.T) {
		var visited int
		m.Visit(func(r *MemoryRegion) bool {
			visited++
			return r.Type == RegionUsable
		})

		if visited != 2 {
			t.Fatalf("expected visitor to be invoked 2 times; got %d", visited)
		}
	})

	t.Run("invalid region", func(t *testing.T) {
		if err := m.Add(MemoryRegion{Start: 0x2000, End: 0x1000}); err != errInvalidRegion {
			t.Fatalf("expected errInvalidRegion; got %v", err)
		}
	})

	t.Run("map full", func(t *testing.T) {
		var full MemoryMap
		for i := 0; i < MaxRegions; i++ {
			if err := full.Add(MemoryRegion{Start: uint64(i) << 12, End: uint64(i+1) << 12, Type: RegionUsable}); err != nil {
				t.Fatal(err)
			}
		}

		if err := full.Add(MemoryRegion{Type: RegionUsable}); err != errMemoryMapFull {
			t.Fatalf("expected errMemoryMapFull; got %v", err)
		}
	})
}
