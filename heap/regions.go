package heap

import (
	"fmt"

	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/staticheap/memutils"
	"golang.org/x/exp/slog"
)

// RegionType identifies the kind of region reported by the JSON map
type RegionType uint32

const (
	RegionFree RegionType = iota
	RegionAllocation
	RegionVirgin
)

var regionTypeMapping = map[RegionType]string{
	RegionFree:       "Free",
	RegionAllocation: "Allocation",
	RegionVirgin:     "Virgin",
}

func (t RegionType) String() string {
	return regionTypeMapping[t]
}

// VisitAllRegions calls handleBlock once for each carved block, from the lowest address to the
// highest. offset is the byte offset of the block's header and size is the payload size in bytes.
// The virgin region is not visited. Iteration stops at the first error, which is returned.
func (h *Heap) VisitAllRegions(handleBlock func(handle Handle, offset int, size int, userData any, free bool) error) error {
	isFree := make(map[int]bool, h.freeCount)
	for block := h.freeHead; block != noBlock; block = h.next(block) {
		isFree[block] = true
	}

	for block := 0; block < h.frontier; block = h.end(block) {
		handle := h.handle(block)

		var userData any
		if !isFree[block] {
			userData, _ = h.userData.Get(handle)
		}

		err := handleBlock(handle, h.headerOffset(block), h.size(block)*h.unit, userData, isFree[block])
		if err != nil {
			return err
		}
	}

	return nil
}

// AddStatistics sums this heap's allocation statistics into stats
func (h *Heap) AddStatistics(stats *memutils.Statistics) {
	blockCount := h.allocCount + h.freeCount

	stats.HeapCount++
	stats.BlockCount += blockCount
	stats.AllocationCount += h.allocCount
	stats.CapacityBytes += h.Capacity()
	stats.AllocationBytes += (h.frontier - blockCount - h.freeUnits) * h.unit
	stats.HeaderBytes += blockCount * h.unit
}

// AddDetailedStatistics sums this heap's allocation statistics, including the size distribution of
// allocations and unused ranges, into stats
func (h *Heap) AddDetailedStatistics(stats *memutils.DetailedStatistics) {
	stats.HeapCount++
	stats.CapacityBytes += h.Capacity()

	if h.VirginSize() > 0 {
		stats.AddUnusedRange(h.VirginSize())
	}

	_ = h.VisitAllRegions(func(handle Handle, offset int, size int, userData any, free bool) error {
		stats.BlockCount++
		stats.HeaderBytes += h.unit

		if free {
			stats.AddUnusedRange(size)
		} else {
			stats.AddAllocation(size)
		}

		return nil
	})
}

// BlockJsonData populates a json object with summary information about this heap
func (h *Heap) BlockJsonData(json *jwriter.ObjectState) {
	var stats memutils.Statistics
	h.AddStatistics(&stats)

	json.Name("TotalBytes").Int(h.Capacity())
	json.Name("HeaderSize").Int(h.unit)
	json.Name("SizeWidth").Int(int(h.layout.SizeWidth))
	json.Name("LinkWidth").Int(int(h.layout.LinkWidth))
	json.Name("FrontierOffset").Int(h.FrontierOffset())
	json.Name("UnusedBytes").Int(h.SumFreeSize())
	json.Name("HeaderBytes").Int(stats.HeaderBytes)
	json.Name("Allocations").Int(h.allocCount)
	json.Name("UnusedRanges").Int(h.FreeRegionsCount())
}

// PrintDetailedMap writes a json object describing the heap and every region in it
func (h *Heap) PrintDetailedMap(writer *jwriter.Writer) {
	objState := writer.Object()
	defer objState.End()

	h.BlockJsonData(&objState)
	h.printDetailedMapRegions(&objState)
}

func (h *Heap) printDetailedMapRegions(json *jwriter.ObjectState) {
	arrayState := json.Name("Regions").Array()
	defer arrayState.End()

	_ = h.VisitAllRegions(func(handle Handle, offset int, size int, userData any, free bool) error {
		obj := arrayState.Object()
		defer obj.End()

		obj.Name("Offset").Int(offset)
		obj.Name("Size").Int(size)

		if free {
			obj.Name("Type").String(RegionFree.String())
			return nil
		}

		obj.Name("Type").String(RegionAllocation.String())
		obj.Name("Handle").Int(int(handle))
		if userData != nil {
			obj.Name("CustomData").String(fmt.Sprintf("%+v", userData))
		}

		return nil
	})

	if h.VirginSize() > 0 {
		obj := arrayState.Object()
		obj.Name("Offset").Int(h.FrontierOffset())
		obj.Name("Size").Int(h.VirginSize())
		obj.Name("Type").String(RegionVirgin.String())
		obj.End()
	}
}

// BuildStatsString returns a json document describing the heap. If detailed is true, every region is
// listed, otherwise only the summary is written.
func (h *Heap) BuildStatsString(detailed bool) string {
	writer := jwriter.NewWriter()

	if detailed {
		h.PrintDetailedMap(&writer)
	} else {
		objState := writer.Object()
		h.BlockJsonData(&objState)
		objState.End()
	}

	return string(writer.Bytes())
}

// DebugLogAllAllocations calls logFunc once for each live allocation
func (h *Heap) DebugLogAllAllocations(logger *slog.Logger, logFunc func(log *slog.Logger, handle Handle, size int, userData any)) {
	_ = h.VisitAllRegions(func(handle Handle, offset int, size int, userData any, free bool) error {
		if !free {
			logFunc(logger, handle, size, userData)
		}
		return nil
	})
}
