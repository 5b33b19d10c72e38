package link

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MaxFrameSize 单帧最大字节数
const MaxFrameSize = 1 << 20

// frameHeaderSize 长度前缀字节数
const frameHeaderSize = 4

// WriteFrame 写入一帧
func WriteFrame(w io.Writer, data []byte) error {
	if len(data) > MaxFrameSize {
		return ErrFrameTooLarge
	}

	// 写入长度前缀 (4 字节大端)
	var lenBuf [frameHeaderSize]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(data)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("failed to write length: %w", err)
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

// ReadFrame 读取一帧
//
// 只读取帧本身的字节，不会从 r 多读。
func ReadFrame(r io.Reader) ([]byte, error) {
	var lenBuf [frameHeaderSize]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}

	length := binary.BigEndian.Uint32(lenBuf[:])
	if length > MaxFrameSize {
		return nil, ErrFrameTooLarge
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("failed to read frame: %w", err)
	}
	return data, nil
}
