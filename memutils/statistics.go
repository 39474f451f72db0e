package memutils

import "math"

// Statistics is a cheap summary of one or more heaps. All sizes are in bytes.
type Statistics struct {
	// HeapCount is the number of heaps summed into this object
	HeapCount int
	// BlockCount is the number of carved blocks, allocated and free
	BlockCount int
	// AllocationCount is the number of live allocations
	AllocationCount int
	// CapacityBytes is the total usable capacity of the heaps
	CapacityBytes int
	// AllocationBytes is the payload size of all live allocations
	AllocationBytes int
	// HeaderBytes is the space consumed by the headers of carved blocks
	HeaderBytes int
}

func (s *Statistics) Clear() {
	s.HeapCount = 0
	s.BlockCount = 0
	s.AllocationCount = 0
	s.CapacityBytes = 0
	s.AllocationBytes = 0
	s.HeaderBytes = 0
}

func (s *Statistics) AddStatistics(other *Statistics) {
	s.HeapCount += other.HeapCount
	s.BlockCount += other.BlockCount
	s.AllocationCount += other.AllocationCount
	s.CapacityBytes += other.CapacityBytes
	s.AllocationBytes += other.AllocationBytes
	s.HeaderBytes += other.HeaderBytes
}

// SizeRange tracks the smallest and largest of a set of sizes. Clear must be called before use.
type SizeRange struct {
	Min int
	Max int
}

func (r *SizeRange) Clear() {
	r.Min = math.MaxInt
	r.Max = 0
}

// Empty returns true if no size has been added since the last Clear
func (r SizeRange) Empty() bool {
	return r.Min > r.Max
}

func (r *SizeRange) Add(size int) {
	if size < r.Min {
		r.Min = size
	}

	if size > r.Max {
		r.Max = size
	}
}

func (r *SizeRange) Merge(other SizeRange) {
	if other.Empty() {
		return
	}

	r.Add(other.Min)
	r.Add(other.Max)
}

// DetailedStatistics extends Statistics with the distribution of allocation and unused range sizes.
// An unused range is either a free block or the virgin region past the frontier.
type DetailedStatistics struct {
	Statistics
	UnusedRangeCount int
	// UnusedBytes is the combined payload capacity of every unused range
	UnusedBytes      int
	AllocationSizes  SizeRange
	UnusedRangeSizes SizeRange
}

func (s *DetailedStatistics) Clear() {
	s.Statistics.Clear()
	s.UnusedRangeCount = 0
	s.UnusedBytes = 0
	s.AllocationSizes.Clear()
	s.UnusedRangeSizes.Clear()
}

func (s *DetailedStatistics) AddUnusedRange(size int) {
	s.UnusedRangeCount++
	s.UnusedBytes += size
	s.UnusedRangeSizes.Add(size)
}

func (s *DetailedStatistics) AddAllocation(size int) {
	s.AllocationCount++
	s.AllocationBytes += size
	s.AllocationSizes.Add(size)
}

func (s *DetailedStatistics) AddDetailedStatistics(other *DetailedStatistics) {
	s.Statistics.AddStatistics(&other.Statistics)
	s.UnusedRangeCount += other.UnusedRangeCount
	s.UnusedBytes += other.UnusedBytes
	s.AllocationSizes.Merge(other.AllocationSizes)
	s.UnusedRangeSizes.Merge(other.UnusedRangeSizes)
}

// Fragmentation returns the share of unused bytes that lie outside the largest unused range: 0 when
// all unused space is contiguous, approaching 1 as it is scattered across many small ranges.
func (s *DetailedStatistics) Fragmentation() float64 {
	if s.UnusedBytes == 0 {
		return 0
	}

	return 1 - float64(s.UnusedRangeSizes.Max)/float64(s.UnusedBytes)
}
