package serializer

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/ValentinKolb/privlock/rpc/common"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format
type binarySerializerImpl struct {
}

// Bit flags to indicate which optional fields are present.
// Boolean fields are stored in the flags only.
const (
	hasConnID  uint16 = 1 << 0
	isEnabled  uint16 = 1 << 1
	isActive   uint16 = 1 << 2
	isAsync    uint16 = 1 << 3
	hasKey     uint16 = 1 << 4
	hasDetail  uint16 = 1 << 5
	isOk       uint16 = 1 << 6
	hasReason  uint16 = 1 << 7
	hasErr     uint16 = 1 << 8
	hasStats   uint16 = 1 << 9
	isPending  uint16 = 1 << 10
	headerSize        = 3 // MsgType + flags
)

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	result := make([]byte, b.sizeBytes(msg))

	// Write message type
	result[0] = byte(msg.MsgType)

	var flags uint16
	pos := headerSize

	if msg.ConnID != 0 {
		flags |= hasConnID
		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(msg.ConnID))
		pos += 4
	}

	if msg.Enabled {
		flags |= isEnabled
	}
	if msg.Active {
		flags |= isActive
	}
	if msg.Async {
		flags |= isAsync
	}
	if msg.Ok {
		flags |= isOk
	}
	if msg.Pending {
		flags |= isPending
	}

	if msg.Key != "" {
		flags |= hasKey
		pos = putString(result, pos, msg.Key)
	}

	if msg.Detail != "" {
		flags |= hasDetail
		pos = putString(result, pos, msg.Detail)
	}

	if msg.Reason != common.ReasonNone {
		flags |= hasReason
		result[pos] = byte(msg.Reason)
		pos++
	}

	if msg.Err != "" {
		flags |= hasErr
		pos = putString(result, pos, msg.Err)
	}

	if msg.Stats != nil {
		flags |= hasStats
		if len(msg.Stats) > math.MaxUint16 {
			return nil, fmt.Errorf("too many stats: %d", len(msg.Stats))
		}
		binary.BigEndian.PutUint16(result[pos:pos+2], uint16(len(msg.Stats)))
		pos += 2

		// sorted keys keep the output deterministic
		keys := make([]string, 0, len(msg.Stats))
		for k := range msg.Stats {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			pos = putString(result, pos, k)
			binary.BigEndian.PutUint64(result[pos:pos+8], math.Float64bits(msg.Stats[k]))
			pos += 8
		}
	}

	// Set flags after knowing which fields are present
	binary.BigEndian.PutUint16(result[1:3], flags)

	return result, nil
}

func (b binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	if len(data) < headerSize {
		return fmt.Errorf("data too short for message header: %d bytes", len(data))
	}

	*msg = common.Message{}
	msg.MsgType = common.MessageType(data[0])
	flags := binary.BigEndian.Uint16(data[1:3])
	pos := headerSize

	var err error

	if flags&hasConnID != 0 {
		if pos+4 > len(data) {
			return fmt.Errorf("data too short for conn id")
		}
		msg.ConnID = int32(binary.BigEndian.Uint32(data[pos : pos+4]))
		pos += 4
	}

	msg.Enabled = flags&isEnabled != 0
	msg.Active = flags&isActive != 0
	msg.Async = flags&isAsync != 0
	msg.Ok = flags&isOk != 0
	msg.Pending = flags&isPending != 0

	if flags&hasKey != 0 {
		if msg.Key, pos, err = readString(data, pos, "key"); err != nil {
			return err
		}
	}

	if flags&hasDetail != 0 {
		if msg.Detail, pos, err = readString(data, pos, "detail"); err != nil {
			return err
		}
	}

	if flags&hasReason != 0 {
		if pos+1 > len(data) {
			return fmt.Errorf("data too short for reason")
		}
		msg.Reason = common.ErrorReason(data[pos])
		pos++
	}

	if flags&hasErr != 0 {
		if msg.Err, pos, err = readString(data, pos, "error"); err != nil {
			return err
		}
	}

	if flags&hasStats != 0 {
		if pos+2 > len(data) {
			return fmt.Errorf("data too short for stats count")
		}
		count := int(binary.BigEndian.Uint16(data[pos : pos+2]))
		pos += 2

		msg.Stats = make(map[string]float64, count)
		for i := 0; i < count; i++ {
			var name string
			if name, pos, err = readString(data, pos, "stat name"); err != nil {
				return err
			}
			if pos+8 > len(data) {
				return fmt.Errorf("data too short for stat value %q", name)
			}
			msg.Stats[name] = math.Float64frombits(binary.BigEndian.Uint64(data[pos : pos+8]))
			pos += 8
		}
	}

	if pos != len(data) {
		return fmt.Errorf("unexpected %d trailing bytes", len(data)-pos)
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// sizeBytes calculates the exact size needed for serialization
func (b binarySerializerImpl) sizeBytes(msg common.Message) int {
	size := headerSize

	if msg.ConnID != 0 {
		size += 4
	}
	if msg.Key != "" {
		size += 4 + len(msg.Key)
	}
	if msg.Detail != "" {
		size += 4 + len(msg.Detail)
	}
	if msg.Reason != common.ReasonNone {
		size += 1
	}
	if msg.Err != "" {
		size += 4 + len(msg.Err)
	}
	if msg.Stats != nil {
		size += 2
		for k := range msg.Stats {
			size += 4 + len(k) + 8
		}
	}

	return size
}

// putString writes a length prefixed string and returns the new position
func putString(buf []byte, pos int, s string) int {
	binary.BigEndian.PutUint32(buf[pos:pos+4], uint32(len(s)))
	pos += 4
	copy(buf[pos:pos+len(s)], s)
	return pos + len(s)
}

// readString reads a length prefixed string and returns it with the new position
func readString(data []byte, pos int, field string) (string, int, error) {
	if pos+4 > len(data) {
		return "", pos, fmt.Errorf("data too short for %s length", field)
	}
	n := int(binary.BigEndian.Uint32(data[pos : pos+4]))
	pos += 4

	if n < 0 || pos+n > len(data) {
		return "", pos, fmt.Errorf("data too short for %s: need %d bytes, have %d", field, n, len(data)-pos)
	}
	return string(data[pos : pos+n]), pos + n, nil
}
