package morph

import "testing"

func TestParseSize(t *testing.T) {
	cases := []struct {
		in   string
		want uint64
	}{
		{"512", 512},
		{"10k", 10 * 1024},
		{"10K", 10 * 1024},
		{"2m", 2 * 1024 * 1024},
		{"1g", 1024 * 1024 * 1024},
	}
	for _, c := range cases {
		got, err := parseSize(c.in)
		if err != nil {
			t.Fatalf("parseSize(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("parseSize(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestParseSizeRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "abc", "10x", "-5", "5.5m"} {
		if _, err := parseSize(in); err == nil {
			t.Fatalf("parseSize(%q): expected error", in)
		}
	}
}

func TestParseBoolean(t *testing.T) {
	truthy := []string{"yes", "true", "1", "YES", "True"}
	falsy := []string{"no", "false", "0", ""}
	for _, s := range truthy {
		got, err := parseBoolean(s)
		if err != nil || !got {
			t.Fatalf("parseBoolean(%q) = %v, %v, want true, nil", s, got, err)
		}
	}
	for _, s := range falsy {
		got, err := parseBoolean(s)
		if err != nil || got {
			t.Fatalf("parseBoolean(%q) = %v, %v, want false, nil", s, got, err)
		}
	}
	if _, err := parseBoolean("maybe"); err == nil {
		t.Fatal("parseBoolean(\"maybe\"): expected error")
	}
}

// defaultStartOffset is 2048 512-byte units (1 MiB), the smallest start
// offset that clears the minStartBytes check at a 512-byte sector size.
const defaultStartOffset = 2048

func simplePlan() *PartitionDocument {
	return &PartitionDocument{
		TableFormat: "gpt",
		StartOffset: defaultStartOffset,
		Partitions: []PartitionEntry{
			{Size: "64M", Mountpoint: "/boot", Bootable: "yes"},
			{Size: "fill", Mountpoint: "/"},
		},
	}
}

func TestPlanResolvesBasicLayout(t *testing.T) {
	plan, err := Plan(simplePlan(), 1<<30, 512)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(plan.Partitions) != 2 {
		t.Fatalf("len(Partitions) = %d, want 2", len(plan.Partitions))
	}
	if plan.Partitions[0].Number != 1 || plan.Partitions[1].Number != 2 {
		t.Fatalf("partition numbers = %d, %d", plan.Partitions[0].Number, plan.Partitions[1].Number)
	}
	if !plan.Partitions[0].Bootable {
		t.Fatal("expected /boot to be bootable")
	}
	if plan.Partitions[1].SizeSectors == 0 {
		t.Fatal("expected fill partition to consume remaining space")
	}
	if plan.Partitions[0].StartSector != defaultStartOffset {
		t.Fatalf("first partition start sector = %d, want %d", plan.Partitions[0].StartSector, defaultStartOffset)
	}
	wantEnd := plan.Partitions[0].StartSector + plan.Partitions[0].SizeSectors - 1
	if plan.Partitions[0].EndSector != wantEnd {
		t.Fatalf("first partition end sector = %d, want %d", plan.Partitions[0].EndSector, wantEnd)
	}
}

func TestPlanRejectsBadTableFormat(t *testing.T) {
	doc := simplePlan()
	doc.TableFormat = "zfs"
	if _, err := Plan(doc, 1<<30, 512); err == nil {
		t.Fatal("expected BadTableFormat error")
	}
}

func TestPlanRejectsMissingRoot(t *testing.T) {
	doc := &PartitionDocument{
		TableFormat: "gpt",
		StartOffset: defaultStartOffset,
		Partitions: []PartitionEntry{
			{Size: "64M", Mountpoint: "/boot"},
		},
	}
	_, err := Plan(doc, 1<<30, 512)
	if _, ok := err.(*NoRootMountpoint); !ok {
		t.Fatalf("err = %v (%T), want *NoRootMountpoint", err, err)
	}
}

func TestPlanRejectsDuplicateMountpoint(t *testing.T) {
	doc := &PartitionDocument{
		TableFormat: "gpt",
		StartOffset: defaultStartOffset,
		Partitions: []PartitionEntry{
			{Size: "64M", Mountpoint: "/"},
			{Size: "64M", Mountpoint: "/"},
		},
	}
	_, err := Plan(doc, 1<<30, 512)
	if _, ok := err.(*DuplicateMountpoint); !ok {
		t.Fatalf("err = %v (%T), want *DuplicateMountpoint", err, err)
	}
}

func TestPlanRejectsMultipleFill(t *testing.T) {
	doc := &PartitionDocument{
		TableFormat: "gpt",
		StartOffset: defaultStartOffset,
		Partitions: []PartitionEntry{
			{Size: "fill", Mountpoint: "/"},
			{Size: "fill", Mountpoint: "/data"},
		},
	}
	_, err := Plan(doc, 1<<30, 512)
	if _, ok := err.(*MultipleFill); !ok {
		t.Fatalf("err = %v (%T), want *MultipleFill", err, err)
	}
}

func TestPlanRejectsOverflow(t *testing.T) {
	doc := &PartitionDocument{
		TableFormat: "gpt",
		StartOffset: defaultStartOffset,
		Partitions: []PartitionEntry{
			{Size: "900M", Mountpoint: "/"},
			{Size: "900M", Mountpoint: "/data"},
		},
	}
	_, err := Plan(doc, 1<<30, 512)
	if _, ok := err.(*Overflow); !ok {
		t.Fatalf("err = %v (%T), want *Overflow", err, err)
	}
}

func TestPlanRejectsExplicitNumberOutOfRange(t *testing.T) {
	bad := 9
	doc := &PartitionDocument{
		TableFormat: "dos",
		StartOffset: defaultStartOffset,
		Partitions: []PartitionEntry{
			{Number: &bad, Size: "64M", Mountpoint: "/"},
		},
	}
	_, err := Plan(doc, 1<<30, 512)
	if _, ok := err.(*BadPartitionNumber); !ok {
		t.Fatalf("err = %v (%T), want *BadPartitionNumber", err, err)
	}
}

func TestPlanRejectsExplicitNumberOnGPT(t *testing.T) {
	one := 1
	doc := &PartitionDocument{
		TableFormat: "gpt",
		StartOffset: defaultStartOffset,
		Partitions: []PartitionEntry{
			{Number: &one, Size: "64M", Mountpoint: "/"},
		},
	}
	_, err := Plan(doc, 1<<30, 512)
	if _, ok := err.(*ExplicitNumberNotAllowed); !ok {
		t.Fatalf("err = %v (%T), want *ExplicitNumberNotAllowed", err, err)
	}
}

func TestPlanRejectsStartOffsetTooSmall(t *testing.T) {
	doc := simplePlan()
	doc.StartOffset = 1 // 512 bytes, well under the 1 MiB minimum
	_, err := Plan(doc, 1<<30, 512)
	if _, ok := err.(*StartOffsetTooSmall); !ok {
		t.Fatalf("err = %v (%T), want *StartOffsetTooSmall", err, err)
	}
}

func TestPlanWarnsOnMisalignedStartOffset(t *testing.T) {
	doc := simplePlan()
	// 2049 512-byte sectors = 1049088 bytes: clears the 1 MiB minimum but
	// isn't a multiple of the 4096-byte alignment boundary.
	doc.StartOffset = 2049
	plan, err := Plan(doc, 1<<30, 512)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(plan.Warnings) == 0 {
		t.Fatal("expected a misaligned start-offset warning")
	}
}

func TestPlanGPTTrailingReserveScalesWithSectorSize(t *testing.T) {
	doc := simplePlan()
	// At a 4096-byte sector size, the trailing GPT reserve is much smaller
	// in sector count than the 33 sectors it comes to at a 512-byte sector
	// size.
	plan, err := Plan(doc, 1<<30, 4096)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	got := gptTrailingReserveSectors(4096)
	want := uint64(5) // ceil((4096+16384)/4096) = 5
	if got != want {
		t.Fatalf("gptTrailingReserveSectors(4096) = %d, want %d", got, want)
	}
	if len(plan.Partitions) != 2 {
		t.Fatalf("len(Partitions) = %d, want 2", len(plan.Partitions))
	}
}

func TestPlanCarriesPartitionRecordFields(t *testing.T) {
	doc := &PartitionDocument{
		TableFormat: "gpt",
		StartOffset: defaultStartOffset,
		Partitions: []PartitionEntry{
			{
				Size:       "64M",
				Mountpoint: "/",
				Format:     "ext4",
				FdiskType:  "8300",
				Files:      []string{"etc/fstab"},
				RawFiles:   []string{"boot/bootloader.bin@0"},
			},
		},
	}
	plan, err := Plan(doc, 1<<30, 512)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	got := plan.Partitions[0]
	if got.Format != "ext4" || got.FdiskType != "8300" {
		t.Fatalf("got Format=%q FdiskType=%q", got.Format, got.FdiskType)
	}
	if len(got.Files) != 1 || got.Files[0] != "etc/fstab" {
		t.Fatalf("got Files=%v", got.Files)
	}
	if len(got.RawFiles) != 1 || got.RawFiles[0] != "boot/bootloader.bin@0" {
		t.Fatalf("got RawFiles=%v", got.RawFiles)
	}
}
