package hsms

import (
	"crypto/rand"
	"encoding/binary"
	"io"
	"sync"

	"go.uber.org/atomic"
)

// msgIDGenerator generates unique message IDs and their corresponding system bytes for HSMS
// messages.
//
// The starting ID is random so that two simulators started at the same time don't produce
// colliding system bytes; IDs are then incremented atomically.
type msgIDGenerator struct {
	id *atomic.Uint32
}

func newMsgIDGenerator() *msgIDGenerator {
	inst := &msgIDGenerator{id: atomic.NewUint32(0)}
	var buf [4]byte
	if _, err := io.ReadFull(rand.Reader, buf[:]); err == nil {
		inst.id.Store(binary.LittleEndian.Uint32(buf[:]))
	}

	return inst
}

var getMsgIDGenerator = sync.OnceValue(newMsgIDGenerator)

// GenerateMsgID returns a unique message ID as a uint32.
func GenerateMsgID() uint32 {
	return getMsgIDGenerator().id.Inc()
}

// GenerateMsgSystemBytes returns a unique 4-byte slice representing the system bytes for a message.
func GenerateMsgSystemBytes() []byte {
	return ToSystemBytes(GenerateMsgID())
}

// ToSystemBytes converts id to 4-byte slice system bytes.
func ToSystemBytes(id uint32) []byte {
	systemBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(systemBytes, id)

	return systemBytes
}
