package network

import (
	"encoding/binary"
	"fmt"
	"io"
)

// maxMessageSize caps one framed message. Sign requests for large batches stay far below it.
const maxMessageSize = 4 << 20

// writeMessage frames data as a big-endian uint32 length followed by the bytes.
func writeMessage(w io.Writer, data []byte) error {
	if len(data) > maxMessageSize {
		return fmt.Errorf("message of %d bytes exceeds limit of %d", len(data), maxMessageSize)
	}

	frame := binary.BigEndian.AppendUint32(make([]byte, 0, 4+len(data)), uint32(len(data)))
	frame = append(frame, data...)

	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("write frame:\n%w", err)
	}

	return nil
}

// readMessage reads one frame written by writeMessage.
func readMessage(r io.Reader) ([]byte, error) {
	var size uint32
	if err := binary.Read(r, binary.BigEndian, &size); err != nil {
		return nil, fmt.Errorf("read frame size:\n%w", err)
	}

	if size > maxMessageSize {
		return nil, fmt.Errorf("frame of %d bytes exceeds limit of %d", size, maxMessageSize)
	}

	data := make([]byte, size)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("read frame body:\n%w", err)
	}

	return data, nil
}
