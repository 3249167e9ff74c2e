package memutils

// Statistics aggregates counters for live firmware allocations and live
// physical-memory mapping windows.
type Statistics struct {
	AllocationCount int
	AllocationBytes int
	MappingCount    int
	MappingBytes    int
}

func (s *Statistics) Clear() {
	s.AllocationCount = 0
	s.AllocationBytes = 0
	s.MappingCount = 0
	s.MappingBytes = 0
}

func (s *Statistics) AddAllocation(size int) {
	s.AllocationCount++
	s.AllocationBytes += size
}

func (s *Statistics) RemoveAllocation(size int) {
	s.AllocationCount--
	s.AllocationBytes -= size
}

func (s *Statistics) AddMapping(size int) {
	s.MappingCount++
	s.MappingBytes += size
}

func (s *Statistics) RemoveMapping(size int) {
	s.MappingCount--
	s.MappingBytes -= size
}

func (s *Statistics) AddStatistics(other *Statistics) {
	s.AllocationCount += other.AllocationCount
	s.AllocationBytes += other.AllocationBytes
	s.MappingCount += other.MappingCount
	s.MappingBytes += other.MappingBytes
}
