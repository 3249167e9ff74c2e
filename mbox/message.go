package mbox

import (
	"unsafe"

	cerrors "github.com/cockroachdb/errors"
)

const (
	headerWords    = 2
	tagHeaderWords = 3

	// bufferAlignment is the address and size alignment the firmware requires
	// of a property buffer.
	bufferAlignment = 16
)

// Tag describes a single property-tag request: the tag ID, the request value
// words, and the number of response bytes the firmware may write back. The
// codec computes all word offsets from this record; callers never index into
// the raw buffer.
type Tag struct {
	ID      TagID
	Request []uint32

	// ResponseCapacity is the value-buffer capacity in bytes. It must be at
	// least as large as the biggest response the firmware can produce for
	// this tag; the protocol has no discovery mechanism, so capacities are
	// hardcoded per tag by the caller. If it is smaller than the request, the
	// request size wins.
	ResponseCapacity int
}

func (t Tag) valueWords() int {
	capacityWords := (t.ResponseCapacity + 3) / 4
	if len(t.Request) > capacityWords {
		return len(t.Request)
	}
	return capacityWords
}

// Message is a property buffer laid out for one mailbox transaction. The
// firmware mutates the buffer in place: word 1 becomes the response code and
// each tag's value region is overwritten with response values.
//
// A Message must not be shared between concurrent transactions.
type Message struct {
	// backing over-allocates so that words can start on a 16-byte boundary
	backing []uint32
	words   []uint32

	tags         []Tag
	valueOffsets []int
	valueCounts  []int
}

// NewMessage lays out a property buffer containing the provided tags in
// order. The total size is rounded up to 16-byte alignment and recorded in
// word 0.
func NewMessage(tags ...Tag) *Message {
	totalWords := headerWords
	valueOffsets := make([]int, len(tags))
	valueCounts := make([]int, len(tags))

	for i, tag := range tags {
		valueOffsets[i] = totalWords + tagHeaderWords
		valueCounts[i] = tag.valueWords()
		totalWords += tagHeaderWords + valueCounts[i]
	}
	totalWords++ // end marker
	totalWords = memAlignWords(totalWords)

	backing := make([]uint32, totalWords+bufferAlignment/4-1)
	words := alignWordSlice(backing, totalWords)

	m := &Message{
		backing:      backing,
		words:        words,
		tags:         tags,
		valueOffsets: valueOffsets,
		valueCounts:  valueCounts,
	}
	m.Reset()
	return m
}

func memAlignWords(words int) int {
	const wordsPerAlignment = bufferAlignment / 4
	return (words + wordsPerAlignment - 1) &^ (wordsPerAlignment - 1)
}

func alignWordSlice(backing []uint32, length int) []uint32 {
	base := uintptr(unsafe.Pointer(&backing[0]))
	offsetBytes := (bufferAlignment - base%bufferAlignment) % bufferAlignment
	offsetWords := int(offsetBytes / 4)
	return backing[offsetWords : offsetWords+length]
}

// Reset re-arms the message for a fresh transaction, restoring the request
// code and every request value word. The firmware may clobber any word in a
// value region during a transaction, so a message must be Reset before it is
// sent again.
func (m *Message) Reset() {
	for i := range m.words {
		m.words[i] = 0
	}

	m.words[0] = uint32(len(m.words) * 4)
	m.words[1] = RequestCode

	for i, tag := range m.tags {
		headerOffset := m.valueOffsets[i] - tagHeaderWords
		m.words[headerOffset] = uint32(tag.ID)
		m.words[headerOffset+1] = uint32(m.valueCounts[i] * 4)
		m.words[headerOffset+2] = uint32(len(tag.Request) * 4)
		copy(m.words[m.valueOffsets[i]:], tag.Request)
	}
	// The end marker is already zero
}

// Words exposes the live wire buffer. The slice begins on a 16-byte boundary
// as the firmware requires.
func (m *Message) Words() []uint32 {
	return m.words
}

// Size is the total buffer size in bytes, as recorded in word 0.
func (m *Message) Size() int {
	return len(m.words) * 4
}

func (m *Message) TagCount() int {
	return len(m.tags)
}

// ParseResponse validates the buffer after a transaction. It fails with
// ErrBadResponse unless the firmware wrote the success code, and checks that
// no tag claims a response larger than its value buffer.
func (m *Message) ParseResponse() error {
	switch m.words[1] {
	case ResponseSuccess:
	case ResponseError:
		return cerrors.Wrapf(ErrBadResponse, "firmware rejected the request buffer (%d tags, first tag %s)",
			len(m.tags), m.firstTagName())
	default:
		return cerrors.Wrapf(ErrBadResponse, "unexpected response code 0x%08X", m.words[1])
	}

	for i := range m.tags {
		indicator := m.words[m.valueOffsets[i]-1]
		if indicator&responseBit == 0 {
			continue
		}
		responseLen := int(indicator & responseLengthMask)
		if responseLen > m.valueCounts[i]*4 {
			return cerrors.Wrapf(ErrBadResponse, "%s response is %d bytes but the value buffer holds %d",
				m.tags[i].ID, responseLen, m.valueCounts[i]*4)
		}
	}
	return nil
}

func (m *Message) firstTagName() string {
	if len(m.tags) == 0 {
		return "none"
	}
	return m.tags[0].ID.String()
}

// Value returns the value words of tag i as they sit in the live buffer.
// After a successful transaction these are the response values.
func (m *Message) Value(i int) []uint32 {
	offset := m.valueOffsets[i]
	return m.words[offset : offset+m.valueCounts[i]]
}

// ValueUint32 reads the first response word of tag i. Used for tags whose
// response is a single u32 (handle, bus address, status, revision).
func (m *Message) ValueUint32(i int) uint32 {
	return m.words[m.valueOffsets[i]]
}

// ValueRange reads the (base, size) response pair of tag i. Used for the
// ARM/VideoCore memory-split queries.
func (m *Message) ValueRange(i int) (base, size uint32) {
	offset := m.valueOffsets[i]
	return m.words[offset], m.words[offset+1]
}
