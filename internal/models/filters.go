package models

// CourseFilter narrows course listings.
type CourseFilter struct {
	Active   *bool
	Type     CourseType
	Search   string
	Page     int
	PageSize int
}

// RoomFilter narrows room listings.
type RoomFilter struct {
	Active      *bool
	MinCapacity int
	Page        int
	PageSize    int
}

// RunFilter narrows optimization run listings.
type RunFilter struct {
	ScheduleID string
	Status     RunStatus
	Page       int
	PageSize   int
}
