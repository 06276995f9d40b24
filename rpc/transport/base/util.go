package base

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
)

const (
	// headerSize is the size of a frame header
	headerSize = 20
	// maxFrameSize bounds the payload of a single frame
	maxFrameSize = 16 * 1024 * 1024
)

// writeFrame writes a frame to the connection with the format:
// - 8 bytes: serviceID (uint64, big endian)
// - 8 bytes: requestID (uint64, big endian)
// - 4 bytes: data length (uint32, big endian)
// - N bytes: data payload
func writeFrame(conn net.Conn, serviceID uint64, requestID uint64, data []byte) error {
	if len(data) > maxFrameSize {
		return fmt.Errorf("frame too large: %d bytes", len(data))
	}

	header := make([]byte, headerSize)
	binary.BigEndian.PutUint64(header[:8], serviceID)
	binary.BigEndian.PutUint64(header[8:16], requestID)
	binary.BigEndian.PutUint32(header[16:20], uint32(len(data)))

	b := net.Buffers{header, data}
	_, err := b.WriteTo(conn)
	return err
}

// readFrame reads a frame from the connection using the provided buffer.
// If the buffer is too small, a new buffer is allocated for the data.
func readFrame(r io.Reader, buf []byte) (uint64, uint64, []byte, error) {
	if len(buf) < headerSize {
		buf = make([]byte, headerSize)
	}

	if _, err := io.ReadFull(r, buf[:headerSize]); err != nil {
		return 0, 0, nil, err
	}

	serviceID := binary.BigEndian.Uint64(buf[:8])
	requestID := binary.BigEndian.Uint64(buf[8:16])
	contentLength := binary.BigEndian.Uint32(buf[16:20])

	if contentLength == 0 {
		return serviceID, requestID, []byte{}, nil
	}
	if contentLength > maxFrameSize {
		return serviceID, requestID, nil, fmt.Errorf("frame too large: %d bytes", contentLength)
	}

	// the header is parsed, so the buffer can be reused for the payload
	if len(buf) < int(contentLength) {
		buf = make([]byte, contentLength)
	}

	if _, err := io.ReadFull(r, buf[:contentLength]); err != nil {
		return serviceID, requestID, nil, err
	}

	return serviceID, requestID, buf[:contentLength], nil
}
