package suffixstore

// Stats is a point-in-time snapshot of the engine's resident structures,
// gathered by walking the resident tree purely to report node and MLS-run
// counts (plus pool and file-table sizes), without disturbing residency or
// triggering eviction.
type Stats struct {
	NodeCount       int
	MLSRunCount     int
	MLSSlotTotal    int
	PoolEntryCount  int
	PoolByteCount   int
	FileCount       int
	ResidentMemory  int
}

// Stats walks every resident node and reports counters useful for tuning
// memory_limit and for diagnosing a misbehaving index.
func (e *Engine) Stats() Stats {
	s := Stats{
		FileCount:      e.files.count(),
		PoolEntryCount: e.pl.len(),
		ResidentMemory: e.usedMemory,
	}
	for _, entry := range e.pl.entries {
		s.PoolByteCount += len(entry)
	}
	e.walkStats(e.root, &s)
	return s
}

func (e *Engine) walkStats(n *node, s *Stats) {
	if n == nil {
		return
	}
	s.NodeCount++
	if n.mlsSize > 1 {
		s.MLSRunCount++
		s.MLSSlotTotal += int(n.mlsSize)
	}
	for i := 0; i < n.slots(); i++ {
		e.walkStats(n.child[i], s)
	}
	e.walkStats(n.link, s)
}

// AverageMLSRunLength is MLSSlotTotal / MLSRunCount, or 0 when there are
// no runs.
func (s Stats) AverageMLSRunLength() float64 {
	if s.MLSRunCount == 0 {
		return 0
	}
	return float64(s.MLSSlotTotal) / float64(s.MLSRunCount)
}
