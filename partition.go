package morph

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	k8ssets "k8s.io/apimachinery/pkg/util/sets"
)

// recognisedTableFormats are the partition table formats Plan understands.
// "dos" and "mbr" are synonyms for the same 4-primary-partition layout.
var recognisedTableFormats = k8ssets.New("dos", "mbr", "gpt")

const fillSize = "fill"

// alignmentBytes is the boundary partition sizes are rounded up to, and the
// boundary partition starts are checked against (a misaligned start is a
// warning, not rounded). 4096 matches the physical sector size of modern
// disks even when the logical sector size reported is 512.
const alignmentBytes = 4096

// minStartBytes is the minimum distance the first partition's data region
// may begin from the start of the disk, regardless of table format.
const minStartBytes = 1 << 20

// gptTrailingReserveSectors returns the number of sectors GPT reserves at
// the end of the disk for its secondary header and partition entry array:
// ceil((sectorSize + 16 KiB) / sectorSize).
func gptTrailingReserveSectors(sectorSize uint64) uint64 {
	return (2*sectorSize + 16*1024 - 1) / sectorSize
}

// PartitionEntry is one partition as declared in a PartitionDocument, before
// sizes and positions have been resolved against a concrete disk size.
type PartitionEntry struct {
	// Number is the partition's explicit table slot, if pinned. Nil means
	// "assign the next free slot in declaration order".
	Number *int `yaml:"number,omitempty" json:"number,omitempty"`
	// Size is either a size string following the grammar
	// ^\d+[kmgKMG]?$ (bytes, KiB, MiB, GiB), or the literal "fill" to mean
	// "consume all space left after every other partition is sized".
	Size string `yaml:"size" json:"size" jsonschema:"required"`
	// Mountpoint is where this partition is mounted in the assembled
	// system. Exactly one partition in a document must declare "/".
	Mountpoint string `yaml:"mountpoint" json:"mountpoint" jsonschema:"required"`
	// Bootable is a boolean string: yes/no/true/false/1/0.
	Bootable string `yaml:"bootable,omitempty" json:"bootable,omitempty"`
	// Format is the filesystem to create: one of the recognized filesystem
	// names, or "none" to reserve the partition without formatting it.
	Format string `yaml:"format,omitempty" json:"format,omitempty"`
	// FdiskType is the partition type byte (mbr) or GUID (gpt), or the
	// literal "none" meaning "reserve but do not create".
	FdiskType string `yaml:"fdisk-type,omitempty" json:"fdisk-type,omitempty"`
	// Files lists files to be copied into the partition by a downstream
	// copier; consumed only by the image writer, not by Plan itself.
	Files []string `yaml:"files,omitempty" json:"files,omitempty"`
	// RawFiles lists files to be written at a byte offset into the raw
	// partition by a downstream writer; consumed only by the image writer.
	RawFiles []string `yaml:"raw-files,omitempty" json:"raw-files,omitempty"`
}

// PartitionDocument is a disk layout as declared by the user: a table
// format, the sector offset the first partition's data region may begin at,
// and an ordered list of partitions.
type PartitionDocument struct {
	TableFormat string `yaml:"table-format" json:"table-format" jsonschema:"required"`
	SectorSize  int    `yaml:"sector-size,omitempty" json:"sector-size,omitempty"`
	// StartOffset is given in 512-byte units, matching the source document
	// regardless of the disk's actual sector size - see Plan's step 4.
	StartOffset uint64           `yaml:"start-offset" json:"start-offset" jsonschema:"required"`
	Partitions  []PartitionEntry `yaml:"partitions" json:"partitions" jsonschema:"required"`
}

// ResolvedPartition is a partition with its sizes and position fully
// resolved against a concrete disk size and sector size.
type ResolvedPartition struct {
	Number      int
	StartSector uint64
	EndSector   uint64
	SizeSectors uint64
	Mountpoint  string
	Bootable    bool
	Format      string
	FdiskType   string
	Files       []string
	RawFiles    []string
}

// ResolvedPlan is the final, validated disk layout: every partition
// positioned and sized, sorted by partition number.
type ResolvedPlan struct {
	TableFormat string
	SectorSize  int
	Partitions  []ResolvedPartition
	// Warnings holds non-fatal conditions, such as a partition start that
	// isn't aligned to alignmentBytes - surfaced to the caller to log, never
	// to fail the plan.
	Warnings []string
}

// BadTableFormat is returned when TableFormat isn't one of dos/mbr/gpt.
type BadTableFormat struct{ Format string }

func (e *BadTableFormat) Error() string {
	return fmt.Sprintf("unrecognised table format %q", e.Format)
}

// BadPartitionNumber is returned when an explicit partition number falls
// outside the range the table format supports.
type BadPartitionNumber struct {
	Number      int
	TableFormat string
}

func (e *BadPartitionNumber) Error() string {
	return fmt.Sprintf("partition number %d is out of range for table format %q", e.Number, e.TableFormat)
}

// ExplicitNumberNotAllowed is returned when a gpt document requests an
// explicit partition number - gpt partitions are always numbered in
// declaration order.
type ExplicitNumberNotAllowed struct{ Number int }

func (e *ExplicitNumberNotAllowed) Error() string {
	return fmt.Sprintf("explicit partition number %d not allowed on a gpt table", e.Number)
}

// DuplicateNumber is returned when two partitions claim the same number.
type DuplicateNumber struct{ Number int }

func (e *DuplicateNumber) Error() string {
	return fmt.Sprintf("duplicate partition number %d", e.Number)
}

// DuplicateMountpoint is returned when two partitions share a mountpoint.
type DuplicateMountpoint struct{ Mountpoint string }

func (e *DuplicateMountpoint) Error() string {
	return fmt.Sprintf("duplicate mountpoint %q", e.Mountpoint)
}

// NoRootMountpoint is returned when no partition mounts at "/".
type NoRootMountpoint struct{}

func (e *NoRootMountpoint) Error() string { return `no partition has mountpoint "/"` }

// MultipleFill is returned when more than one partition's size is "fill".
type MultipleFill struct{}

func (e *MultipleFill) Error() string { return `at most one partition may have size "fill"` }

// Overflow is returned when the declared partitions don't fit on the disk.
type Overflow struct {
	NeededSectors, AvailableSectors uint64
}

func (e *Overflow) Error() string {
	return fmt.Sprintf("partitions need %d sectors but only %d are available", e.NeededSectors, e.AvailableSectors)
}

// StartOffsetTooSmall is returned when the document's start-offset places
// the first partition's data region less than 1 MiB into the disk.
type StartOffsetTooSmall struct{ StartBytes uint64 }

func (e *StartOffsetTooSmall) Error() string {
	return fmt.Sprintf("start offset of %d bytes is less than the required 1 MiB minimum", e.StartBytes)
}

// MisalignedStart is recorded as a ResolvedPlan.Warnings entry, never
// returned as an error: it's informational, not fatal.
type MisalignedStart struct {
	Number      int
	StartSector uint64
}

func (e *MisalignedStart) Error() string {
	return fmt.Sprintf("partition %d starts at sector %d, which is not %d-byte aligned", e.Number, e.StartSector, alignmentBytes)
}

// MisalignedStartOffset is recorded as a ResolvedPlan.Warnings entry when
// the document's start-offset itself isn't 4 KiB aligned.
type MisalignedStartOffset struct{ StartSector uint64 }

func (e *MisalignedStartOffset) Error() string {
	return fmt.Sprintf("start offset at sector %d is not %d-byte aligned", e.StartSector, alignmentBytes)
}

var sizePattern = regexp.MustCompile(`^(\d+)([kmgKMG]?)$`)

var sizeFactors = map[string]uint64{
	"":  1,
	"k": 1024,
	"K": 1024,
	"m": 1024 * 1024,
	"M": 1024 * 1024,
	"g": 1024 * 1024 * 1024,
	"G": 1024 * 1024 * 1024,
}

// parseSize parses a size string of the form ^\d+[kmgKMG]?$ into bytes.
func parseSize(s string) (uint64, error) {
	m := sizePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid size %q: must match %s", s, sizePattern.String())
	}
	n, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return n * sizeFactors[m[2]], nil
}

// parseBoolean accepts the yes/no/true/false/1/0 grammar.
func parseBoolean(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0", "":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean %q: expected yes/no/true/false/1/0", s)
	}
}

func maxPartitionNumber(tableFormat string) int {
	if tableFormat == "gpt" {
		return 128
	}
	return 4
}

func roundUpSectors(n, align uint64) uint64 {
	if align == 0 {
		return n
	}
	if rem := n % align; rem != 0 {
		return n + (align - rem)
	}
	return n
}

// Plan resolves doc into a concrete partition layout for a disk of
// diskSizeBytes, using sectorSizeBytes as the logical sector size (doc's own
// SectorSize, if set, overrides the parameter).
func Plan(doc *PartitionDocument, diskSizeBytes uint64, sectorSizeBytes uint64) (*ResolvedPlan, error) {
	tableFormat := strings.ToLower(doc.TableFormat)
	if !recognisedTableFormats.Has(tableFormat) {
		return nil, &BadTableFormat{Format: doc.TableFormat}
	}

	sectorSize := sectorSizeBytes
	if doc.SectorSize > 0 {
		sectorSize = uint64(doc.SectorSize)
	}
	if sectorSize == 0 {
		sectorSize = 512
	}

	// Step 1: assign/validate partition numbers.
	numbers := make([]int, len(doc.Partitions))
	used := k8ssets.New[int]()
	maxNum := maxPartitionNumber(tableFormat)
	for i, p := range doc.Partitions {
		if p.Number == nil {
			continue
		}
		if tableFormat == "gpt" {
			return nil, &ExplicitNumberNotAllowed{Number: *p.Number}
		}
		if *p.Number < 1 || *p.Number > maxNum {
			return nil, &BadPartitionNumber{Number: *p.Number, TableFormat: tableFormat}
		}
		if used.Has(*p.Number) {
			return nil, &DuplicateNumber{Number: *p.Number}
		}
		used.Insert(*p.Number)
		numbers[i] = *p.Number
	}
	next := 1
	for i, p := range doc.Partitions {
		if p.Number != nil {
			continue
		}
		for used.Has(next) {
			next++
		}
		if next > maxNum {
			return nil, &BadPartitionNumber{Number: next, TableFormat: tableFormat}
		}
		used.Insert(next)
		numbers[i] = next
	}

	// Step 2: normalize booleans and validate mountpoints.
	bootable := make([]bool, len(doc.Partitions))
	mountpoints := k8ssets.New[string]()
	haveRoot := false
	for i, p := range doc.Partitions {
		b, err := parseBoolean(p.Bootable)
		if err != nil {
			return nil, fmt.Errorf("partition %d: %w", numbers[i], err)
		}
		bootable[i] = b

		if p.Mountpoint == "" {
			continue
		}
		if mountpoints.Has(p.Mountpoint) {
			return nil, &DuplicateMountpoint{Mountpoint: p.Mountpoint}
		}
		mountpoints.Insert(p.Mountpoint)
		if p.Mountpoint == "/" {
			haveRoot = true
		}
	}
	if !haveRoot {
		return nil, &NoRootMountpoint{}
	}

	// Step 3: resolve declared sizes; locate the fill partition, if any.
	sizeBytes := make([]uint64, len(doc.Partitions))
	fillIdx := -1
	for i, p := range doc.Partitions {
		if p.Size == fillSize {
			if fillIdx != -1 {
				return nil, &MultipleFill{}
			}
			fillIdx = i
			continue
		}
		b, err := parseSize(p.Size)
		if err != nil {
			return nil, fmt.Errorf("partition %d: %w", numbers[i], err)
		}
		sizeBytes[i] = b
	}

	// Step 4: compute sector geometry and reserves.
	totalSectors := diskSizeBytes / sectorSize
	alignSectors := alignmentBytes / sectorSize
	if alignSectors == 0 {
		alignSectors = 1
	}

	start := doc.StartOffset * 512 / sectorSize
	var warnings []string
	if start*sectorSize < minStartBytes {
		return nil, &StartOffsetTooSmall{StartBytes: start * sectorSize}
	}
	if (start*sectorSize)%alignmentBytes != 0 {
		warnings = append(warnings, (&MisalignedStartOffset{StartSector: start}).Error())
	}

	backReserve := uint64(0)
	if tableFormat == "gpt" {
		backReserve = gptTrailingReserveSectors(sectorSize)
	}

	if totalSectors < start+backReserve {
		return nil, &Overflow{NeededSectors: start + backReserve, AvailableSectors: totalSectors}
	}
	usableSectors := totalSectors - start - backReserve

	// Step 5: size every non-fill partition in sectors, rounded up to the
	// alignment boundary, and sum them.
	sizeSectors := make([]uint64, len(doc.Partitions))
	var fixedTotal uint64
	for i := range doc.Partitions {
		if i == fillIdx {
			continue
		}
		s := roundUpSectors((sizeBytes[i]+sectorSize-1)/sectorSize, alignSectors)
		sizeSectors[i] = s
		fixedTotal += s
	}
	if fixedTotal > usableSectors {
		return nil, &Overflow{NeededSectors: fixedTotal, AvailableSectors: usableSectors}
	}
	if fillIdx != -1 {
		sizeSectors[fillIdx] = usableSectors - fixedTotal
	}

	// Step 6 & 7: walk partitions in declaration order, assigning start
	// sectors; collect alignment warnings (non-fatal).
	resolved := make([]ResolvedPartition, len(doc.Partitions))
	cursor := start
	for i, p := range doc.Partitions {
		partStart := cursor
		if partStart%alignSectors != 0 {
			warnings = append(warnings, (&MisalignedStart{Number: numbers[i], StartSector: partStart}).Error())
		}
		resolved[i] = ResolvedPartition{
			Number:      numbers[i],
			StartSector: partStart,
			EndSector:   partStart + sizeSectors[i] - 1,
			SizeSectors: sizeSectors[i],
			Mountpoint:  p.Mountpoint,
			Bootable:    bootable[i],
			Format:      p.Format,
			FdiskType:   p.FdiskType,
			Files:       p.Files,
			RawFiles:    p.RawFiles,
		}
		cursor += sizeSectors[i]
	}
	if cursor > start+usableSectors {
		return nil, &Overflow{NeededSectors: cursor + backReserve, AvailableSectors: totalSectors}
	}

	// Step 8: final emission, sorted by partition number.
	sortPartitionsByNumber(resolved)

	return &ResolvedPlan{
		TableFormat: tableFormat,
		SectorSize:  int(sectorSize),
		Partitions:  resolved,
		Warnings:    warnings,
	}, nil
}

func sortPartitionsByNumber(ps []ResolvedPartition) {
	for i := 1; i < len(ps); i++ {
		for j := i; j > 0 && ps[j-1].Number > ps[j].Number; j-- {
			ps[j-1], ps[j] = ps[j], ps[j-1]
		}
	}
}
