package vcmem

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

// BuildStatsString renders the allocator's live state as JSON: aggregate
// counters plus one record per live allocation. Intended for diagnostics
// output, not for machine consumption across versions.
func (a *Allocator) BuildStatsString() string {
	writer := jwriter.NewWriter()

	a.registryMutex.Lock()
	defer a.registryMutex.Unlock()

	obj := writer.Object()

	totals := obj.Name("Totals").Object()
	totals.Name("AllocationCount").Int(a.stats.AllocationCount)
	totals.Name("AllocationBytes").Int(a.stats.AllocationBytes)
	totals.Name("MappingCount").Int(a.stats.MappingCount)
	totals.Name("MappingBytes").Int(a.stats.MappingBytes)
	totals.End()

	obj.Name("PageSize").Int(a.pageSize)

	allocsName := obj.Name("Allocations")
	a.allocations.BuildStatsString(allocsName)

	obj.End()

	return string(writer.Bytes())
}
