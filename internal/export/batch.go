package export

// Batch splitting limits. The downstream archive worker has a fixed payload
// and wall-clock budget: the file count cap protects the invocation
// transport's payload limit, the byte budget protects the worker's time
// limit for reading, zipping, and uploading.
const (
	// DefaultMaxBatchFiles is the maximum number of files per batch.
	DefaultMaxBatchFiles = 500

	// DefaultMaxBatchBytes is the cumulative declared-size budget per batch.
	DefaultMaxBatchBytes = 2 << 30 // 2 GiB

	// DefaultUnknownSizeEstimate stands in for files with no declared size
	// so they still count against the byte budget. This is a heuristic
	// tunable, not a measured value.
	DefaultUnknownSizeEstimate = 10 << 20 // 10 MiB
)

// PlannerConfig holds the batch planner's tunables.
type PlannerConfig struct {
	MaxFiles            int
	MaxBytes            int64
	UnknownSizeEstimate int64
}

// DefaultPlannerConfig returns the default batch limits.
func DefaultPlannerConfig() PlannerConfig {
	return PlannerConfig{
		MaxFiles:            DefaultMaxBatchFiles,
		MaxBytes:            DefaultMaxBatchBytes,
		UnknownSizeEstimate: DefaultUnknownSizeEstimate,
	}
}

func (c PlannerConfig) withDefaults() PlannerConfig {
	if c.MaxFiles <= 0 {
		c.MaxFiles = DefaultMaxBatchFiles
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = DefaultMaxBatchBytes
	}
	if c.UnknownSizeEstimate <= 0 {
		c.UnknownSizeEstimate = DefaultUnknownSizeEstimate
	}
	return c
}

// Batch is one archive-worker invocation's worth of files: a sub-manifest
// that independently reconstructs its files' relative structure, plus the
// batch's cumulative declared size. Batches are numbered 1..N.
type Batch struct {
	Number   int
	Manifest *Manifest
	Files    []File
	Size     int64
}

// PlanBatches splits a manifest's file list into ordered batches. When at
// least half the files carry a known non-zero size, it packs by size and
// count; otherwise it falls back to pure count-based chunking. Concatenating
// all batches' files in order reproduces the input list exactly.
func PlanBatches(m *Manifest, cfg PlannerConfig) []Batch {
	cfg = cfg.withDefaults()

	files := m.Files()
	if len(files) == 0 {
		return nil
	}

	if len(files) <= cfg.MaxFiles {
		return []Batch{singleBatch(m, files)}
	}

	known := 0
	for _, f := range files {
		if f.Size > 0 {
			known++
		}
	}

	if known*2 >= len(files) {
		return packBySize(m, files, cfg)
	}
	return chunkByCount(m, files, cfg.MaxFiles)
}

func singleBatch(m *Manifest, files []File) Batch {
	var size int64
	for _, f := range files {
		size += f.Size
	}
	return Batch{Number: 1, Manifest: m, Files: files, Size: size}
}

// packBySize accumulates files into the current batch until the next file
// would exceed the byte budget or the batch is at the file cap. A single
// file larger than the whole budget becomes its own batch; it is never
// dropped.
func packBySize(m *Manifest, files []File, cfg PlannerConfig) []Batch {
	var batches []Batch
	var current []File
	var currentSize int64

	flush := func() {
		if len(current) == 0 {
			return
		}
		batches = append(batches, Batch{
			Number:   len(batches) + 1,
			Manifest: m.Subset(current),
			Files:    current,
			Size:     currentSize,
		})
		current = nil
		currentSize = 0
	}

	for _, f := range files {
		size := f.Size
		if size <= 0 {
			size = cfg.UnknownSizeEstimate
		}

		if len(current) > 0 && (len(current) >= cfg.MaxFiles || currentSize+size > cfg.MaxBytes) {
			flush()
		}

		current = append(current, f)
		currentSize += size
	}
	flush()

	return batches
}

// chunkByCount slices the file list into fixed-size windows, ignoring size.
func chunkByCount(m *Manifest, files []File, maxFiles int) []Batch {
	var batches []Batch

	for start := 0; start < len(files); start += maxFiles {
		end := start + maxFiles
		if end > len(files) {
			end = len(files)
		}
		window := files[start:end]

		var size int64
		for _, f := range window {
			size += f.Size
		}

		batches = append(batches, Batch{
			Number:   len(batches) + 1,
			Manifest: m.Subset(window),
			Files:    window,
			Size:     size,
		})
	}

	return batches
}
