// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package pagetree

//go:generate mockgen -source report.go -destination report_mocks.go -package pagetree

import (
	"fmt"
	"strings"
)

// DataUsageReporter consumes per-page usage reports of a tree walk. It is
// intended for diagnostics, not correctness.
type DataUsageReporter interface {
	// ReportDataUsage is called once per visited page, bottom-up, with the
	// page's level in the tree, the number of populated buckets and the
	// number of entries held by the page's data region.
	ReportDataUsage(level int, bucketsUsed int, entries int)
}

// Report walks this subtree depth-first and reports every page. The entry
// count is taken from the hashing-cache view when all buckets are populated
// and from the map view otherwise.
func (d DataPage) Report(reporter DataUsageReporter, batch Batch, level int) error {
	for n := 0; n < NumNibbles; n++ {
		addr := d.page.Bucket(Nibble(n))
		if addr.IsNull() {
			continue
		}
		child, err := batch.GetAt(addr)
		if err != nil {
			return err
		}
		if err := NewDataPage(child).Report(reporter, batch, level+1); err != nil {
			return err
		}
	}

	var entries int
	if d.page.AllBucketsFull() {
		entries = NewHashingMap(d.page.DataSpan()).Count()
	} else {
		entries = NewNibbleBasedMap(d.page.DataSpan()).NumLive()
	}
	reporter.ReportDataUsage(level, d.page.NumUsedBuckets(), entries)
	return nil
}

// UsageStatistics aggregates the reports of a tree walk.
type UsageStatistics struct {
	levels []levelStatistics
}

type levelStatistics struct {
	pages   int
	buckets int
	entries int
}

// ReportDataUsage implements the DataUsageReporter interface.
func (s *UsageStatistics) ReportDataUsage(level int, bucketsUsed int, entries int) {
	for len(s.levels) <= level {
		s.levels = append(s.levels, levelStatistics{})
	}
	s.levels[level].pages++
	s.levels[level].buckets += bucketsUsed
	s.levels[level].entries += entries
}

// NumPages returns the total number of visited pages.
func (s *UsageStatistics) NumPages() int {
	sum := 0
	for _, l := range s.levels {
		sum += l.pages
	}
	return sum
}

// NumEntries returns the total number of in-page entries.
func (s *UsageStatistics) NumEntries() int {
	sum := 0
	for _, l := range s.levels {
		sum += l.entries
	}
	return sum
}

// Depth returns the number of levels in the walked tree.
func (s *UsageStatistics) Depth() int {
	return len(s.levels)
}

func (s *UsageStatistics) String() string {
	builder := strings.Builder{}
	for level, l := range s.levels {
		fmt.Fprintf(&builder, "level %2d: %6d pages, %6d buckets, %8d entries\n",
			level, l.pages, l.buckets, l.entries)
	}
	return builder.String()
}
