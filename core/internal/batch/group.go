package batch

// rangeGroup is a contiguous byte range of the archive and the entries
// whose payloads fall inside it. One ReadAt fetches the whole group.
type rangeGroup struct {
	start   uint64
	end     uint64 // exclusive
	entries []*Entry
}

func (g rangeGroup) size() uint64 {
	return g.end - g.start
}

// groupAdjacentEntries groups entries whose payloads touch or overlap.
//
// Entries must be sorted by DataOffset and non-empty. Payload-free entries
// (directories, empty files) join the group they sit at the edge of.
func groupAdjacentEntries(entries []*Entry) []rangeGroup {
	groups := make([]rangeGroup, 0, len(entries))
	current := rangeGroup{
		start:   entries[0].DataOffset,
		end:     entries[0].DataOffset + entries[0].CompSize,
		entries: []*Entry{entries[0]},
	}

	for _, entry := range entries[1:] {
		entryEnd := entry.DataOffset + entry.CompSize
		if entry.DataOffset <= current.end {
			current.end = max(current.end, entryEnd)
			current.entries = append(current.entries, entry)
			continue
		}
		groups = append(groups, current)
		current = rangeGroup{
			start:   entry.DataOffset,
			end:     entryEnd,
			entries: []*Entry{entry},
		}
	}
	return append(groups, current)
}
