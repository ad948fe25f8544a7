package export_test

import (
	"fmt"
	"testing"

	"github.com/sendroom/sendroom/internal/dataroom"
	"github.com/sendroom/sendroom/internal/export"
)

// buildFlatManifest returns a manifest of n root-level files, sizing file i
// with sizes[i%len(sizes)]. Size 0 means unknown.
func buildFlatManifest(n int, sizes ...int64) *export.Manifest {
	m := export.NewManifest()
	for i := 0; i < n; i++ {
		var size int64
		if len(sizes) > 0 {
			size = sizes[i%len(sizes)]
		}
		m.AddFile(export.File{
			Name:       fmt.Sprintf("file-%04d.pdf", i),
			Key:        fmt.Sprintf("key-%04d", i),
			Kind:       dataroom.KindPDF,
			Size:       size,
			FolderPath: "/",
		})
	}
	return m
}

func TestPlanBatches_UnderCountCapIsAlwaysOneBatch(t *testing.T) {
	// Sizes far beyond the byte budget must not split a small file set.
	m := buildFlatManifest(10, 10<<30)

	batches := export.PlanBatches(m, export.PlannerConfig{MaxFiles: 500, MaxBytes: 1 << 20})

	if len(batches) != 1 {
		t.Fatalf("got %d batches, want 1", len(batches))
	}
	if batches[0].Number != 1 {
		t.Errorf("batch number = %d, want 1", batches[0].Number)
	}
	if len(batches[0].Files) != 10 {
		t.Errorf("batch has %d files, want 10", len(batches[0].Files))
	}
}

func TestPlanBatches_CountChunkingWhenSizesMostlyUnknown(t *testing.T) {
	// 1200 files, almost all with unknown size, cap 500: pure count-based
	// chunking must produce 500/500/200.
	m := buildFlatManifest(1200, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1024)

	batches := export.PlanBatches(m, export.PlannerConfig{MaxFiles: 500})

	if len(batches) != 3 {
		t.Fatalf("got %d batches, want 3", len(batches))
	}
	wantCounts := []int{500, 500, 200}
	for i, b := range batches {
		if len(b.Files) != wantCounts[i] {
			t.Errorf("batch %d has %d files, want %d", b.Number, len(b.Files), wantCounts[i])
		}
	}
}

func TestPlanBatches_SizeAwarePackingHonorsByteBudget(t *testing.T) {
	// 6 known-size files of 40 bytes with a 100-byte budget: 2+2+2.
	m := buildFlatManifest(6, 40)

	batches := export.PlanBatches(m, export.PlannerConfig{MaxFiles: 4, MaxBytes: 100})

	if len(batches) != 3 {
		t.Fatalf("got %d batches, want 3: %+v", len(batches), batches)
	}
	for _, b := range batches {
		if b.Size > 100 {
			t.Errorf("batch %d cumulative size %d exceeds budget", b.Number, b.Size)
		}
	}
}

func TestPlanBatches_SizeAwareRespectsFileCap(t *testing.T) {
	// Tiny files never hit the byte budget, so the count cap must trigger.
	m := buildFlatManifest(10, 1)

	batches := export.PlanBatches(m, export.PlannerConfig{MaxFiles: 4, MaxBytes: 1 << 20})

	if len(batches) != 3 {
		t.Fatalf("got %d batches, want 3", len(batches))
	}
	for _, b := range batches {
		if len(b.Files) > 4 {
			t.Errorf("batch %d has %d files, over the cap", b.Number, len(b.Files))
		}
	}
}

func TestPlanBatches_OversizedFileGetsOwnBatch(t *testing.T) {
	m := buildFlatManifest(5, 10, 10, 500, 10, 10)

	batches := export.PlanBatches(m, export.PlannerConfig{MaxFiles: 2, MaxBytes: 100})

	// The 500-byte file exceeds the whole budget alone; it must land in its
	// own batch, never be dropped.
	found := false
	for _, b := range batches {
		if len(b.Files) == 1 && b.Files[0].Size == 500 {
			found = true
		}
	}
	if !found {
		t.Errorf("oversized file not isolated in its own batch: %+v", batches)
	}
}

func TestPlanBatches_UnknownSizesCountAgainstBudget(t *testing.T) {
	// Unknown sizes take the conservative estimate, not zero: with a
	// 100-byte budget and a 60-byte estimate, no batch fits two files.
	m := buildFlatManifest(4, 50, 0, 50, 0)

	batches := export.PlanBatches(m, export.PlannerConfig{
		MaxFiles:            3,
		MaxBytes:            100,
		UnknownSizeEstimate: 60,
	})

	for _, b := range batches {
		if len(b.Files) > 2 {
			t.Errorf("batch %d packed %d files; unknown sizes were treated as free", b.Number, len(b.Files))
		}
	}
}

func TestPlanBatches_ConcatenationReproducesInput(t *testing.T) {
	m := buildFlatManifest(23, 10, 0, 30)

	batches := export.PlanBatches(m, export.PlannerConfig{MaxFiles: 5, MaxBytes: 45})

	var keys []string
	for _, b := range batches {
		for _, f := range b.Files {
			keys = append(keys, f.Key)
		}
	}

	want := m.FileKeys()
	if len(keys) != len(want) {
		t.Fatalf("concatenated %d files, want %d (no loss, no duplication)", len(keys), len(want))
	}
	for i := range keys {
		if keys[i] != want[i] {
			t.Errorf("file %d = %q, want %q", i, keys[i], want[i])
		}
	}
}

func TestPlanBatches_BatchManifestsAreSelfContained(t *testing.T) {
	m := export.NewManifest()
	m.AddFolder("/Legal")
	m.AddFolder("/Legal/Contracts")
	for i := 0; i < 6; i++ {
		m.AddFile(export.File{
			Name:       fmt.Sprintf("f%d.pdf", i),
			Key:        fmt.Sprintf("k%d", i),
			Size:       10,
			FolderPath: "/Legal/Contracts",
		})
	}

	batches := export.PlanBatches(m, export.PlannerConfig{MaxFiles: 2, MaxBytes: 15})

	if len(batches) < 2 {
		t.Fatalf("expected a split, got %d batches", len(batches))
	}
	for _, b := range batches {
		for _, path := range []string{"/", "/Legal", "/Legal/Contracts"} {
			if _, ok := b.Manifest.Entry(path); !ok {
				t.Errorf("batch %d manifest missing %q; batches must reconstruct structure on their own", b.Number, path)
			}
		}
	}
}

func TestDefaultPlannerConfig(t *testing.T) {
	cfg := export.DefaultPlannerConfig()

	if cfg.MaxFiles != export.DefaultMaxBatchFiles {
		t.Errorf("MaxFiles = %d, want %d", cfg.MaxFiles, export.DefaultMaxBatchFiles)
	}
	if cfg.MaxBytes != export.DefaultMaxBatchBytes {
		t.Errorf("MaxBytes = %d, want %d", cfg.MaxBytes, export.DefaultMaxBatchBytes)
	}
	if cfg.UnknownSizeEstimate != export.DefaultUnknownSizeEstimate {
		t.Errorf("UnknownSizeEstimate = %d, want %d", cfg.UnknownSizeEstimate, export.DefaultUnknownSizeEstimate)
	}
}
