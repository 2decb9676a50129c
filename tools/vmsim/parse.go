package main

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/nearsyh/near-os/kernel/bootinfo"
)

// allocRequest describes an allocation performed on the booted heap.
type allocRequest struct {
	size, align uintptr
}

var regionTypes = map[string]bootinfo.RegionType{
	"usable":   bootinfo.RegionUsable,
	"reserved": bootinfo.RegionReserved,
	"acpi":     bootinfo.RegionAcpiReclaimable,
	"nvs":      bootinfo.RegionAcpiNvs,
	"bad":      bootinfo.RegionBadMemory,
}

// parseSize parses a byte count with an optional K, M or G suffix. Plain
// numbers may use any prefix accepted by strconv.ParseUint.
func parseSize(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty size")
	}

	shift := uint(0)
	switch s[len(s)-1] {
	case 'K', 'k':
		shift = 10
	case 'M', 'm':
		shift = 20
	case 'G', 'g':
		shift = 30
	}
	if shift != 0 {
		s = s[:len(s)-1]
	}

	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid size %q", s)
	}

	if v > (^uint64(0))>>shift {
		return 0, errors.Errorf("size %q overflows", s)
	}

	return v << shift, nil
}

// parseRegions parses a comma separated list of start-end:type entries.
func parseRegions(s string) ([]bootinfo.MemoryRegion, error) {
	var regions []bootinfo.MemoryRegion
	if strings.TrimSpace(s) == "" {
		return regions, nil
	}

	for _, entry := range strings.Split(s, ",") {
		rangeSpec, typeName, ok := strings.Cut(strings.TrimSpace(entry), ":")
		if !ok {
			return nil, errors.Errorf("region %q: missing type", entry)
		}

		regionType, ok := regionTypes[strings.ToLower(typeName)]
		if !ok {
			return nil, errors.Errorf("region %q: unknown type %q", entry, typeName)
		}

		startSpec, endSpec, ok := strings.Cut(rangeSpec, "-")
		if !ok {
			return nil, errors.Errorf("region %q: expected start-end", entry)
		}

		start, err := parseSize(startSpec)
		if err != nil {
			return nil, errors.Wrapf(err, "region %q", entry)
		}

		end, err := parseSize(endSpec)
		if err != nil {
			return nil, errors.Wrapf(err, "region %q", entry)
		}

		if end < start {
			return nil, errors.Errorf("region %q: end is before start", entry)
		}

		regions = append(regions, bootinfo.MemoryRegion{Start: start, End: end, Type: regionType})
	}

	return regions, nil
}

// parseAllocs parses a comma separated list of size[:align] entries. The
// alignment defaults to 8.
func parseAllocs(s string) ([]allocRequest, error) {
	var reqs []allocRequest
	if strings.TrimSpace(s) == "" {
		return reqs, nil
	}

	for _, entry := range strings.Split(s, ",") {
		sizeSpec, alignSpec, hasAlign := strings.Cut(strings.TrimSpace(entry), ":")

		size, err := parseSize(sizeSpec)
		if err != nil {
			return nil, errors.Wrapf(err, "allocation %q", entry)
		}

		align := uint64(8)
		if hasAlign {
			if align, err = parseSize(alignSpec); err != nil {
				return nil, errors.Wrapf(err, "allocation %q", entry)
			}
		}

		reqs = append(reqs, allocRequest{size: uintptr(size), align: uintptr(align)})
	}

	return reqs, nil
}
