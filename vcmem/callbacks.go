package vcmem

type AllocateMemoryCallback func(
	allocator *Allocator,
	handle MemoryHandle,
	size int,
	userData interface{},
)

type FreeMemoryCallback func(
	allocator *Allocator,
	handle MemoryHandle,
	size int,
	userData interface{},
)

// MemoryCallbackOptions is an optional set of callbacks executed when
// firmware memory is allocated or released through an Allocator. Useful when
// the consumer wants allocator-level accounting of GPU memory.
type MemoryCallbackOptions struct {
	Allocate AllocateMemoryCallback
	Free     FreeMemoryCallback
	UserData interface{}
}

type memoryCallbacks struct {
	Callbacks *MemoryCallbackOptions
	Allocator *Allocator
}

func (c *memoryCallbacks) Allocate(handle MemoryHandle, size int) {
	if c.Callbacks != nil && c.Callbacks.Allocate != nil {
		c.Callbacks.Allocate(c.Allocator, handle, size, c.Callbacks.UserData)
	}
}

func (c *memoryCallbacks) Free(handle MemoryHandle, size int) {
	if c.Callbacks != nil && c.Callbacks.Free != nil {
		c.Callbacks.Free(c.Allocator, handle, size, c.Callbacks.UserData)
	}
}
