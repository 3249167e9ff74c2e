package mbox

// TagID identifies one property-tag request type understood by the VideoCore
// firmware.
//
// https://github.com/raspberrypi/firmware/wiki/Mailbox-property-interface
type TagID uint32

const (
	TagGetFirmwareRevision TagID = 0x00000001
	TagGetARMMemory        TagID = 0x00010005
	TagGetVCMemory         TagID = 0x00010006
	TagAllocateMemory      TagID = 0x0003000C
	TagLockMemory          TagID = 0x0003000D
	TagUnlockMemory        TagID = 0x0003000E
	TagReleaseMemory       TagID = 0x0003000F
	TagExecuteQPU          TagID = 0x00030011
	TagEnableQPU           TagID = 0x00030012
)

var tagNameMapping = make(map[TagID]string)

func (t TagID) String() string {
	name, ok := tagNameMapping[t]
	if !ok {
		return "TagUnknown"
	}
	return name
}

func init() {
	tagNameMapping[TagGetFirmwareRevision] = "TagGetFirmwareRevision"
	tagNameMapping[TagGetARMMemory] = "TagGetARMMemory"
	tagNameMapping[TagGetVCMemory] = "TagGetVCMemory"
	tagNameMapping[TagAllocateMemory] = "TagAllocateMemory"
	tagNameMapping[TagLockMemory] = "TagLockMemory"
	tagNameMapping[TagUnlockMemory] = "TagUnlockMemory"
	tagNameMapping[TagReleaseMemory] = "TagReleaseMemory"
	tagNameMapping[TagExecuteQPU] = "TagExecuteQPU"
	tagNameMapping[TagEnableQPU] = "TagEnableQPU"
}

const (
	// RequestCode is the value of word 1 on the way into the firmware.
	RequestCode uint32 = 0x00000000
	// ResponseSuccess is the value of word 1 after a successful transaction.
	ResponseSuccess uint32 = 0x80000000
	// ResponseError is the value of word 1 after the firmware rejects the
	// request buffer.
	ResponseError uint32 = 0x80000001

	// responseBit is set in a tag's indicator word when the firmware has
	// written a response; the low 31 bits carry the response length in bytes.
	responseBit        uint32 = 0x80000000
	responseLengthMask uint32 = 0x7FFFFFFF

	endTagMarker uint32 = 0x00000000
)
