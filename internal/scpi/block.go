package scpi

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// ErrInvalidBlock is returned when a reply is not an IEEE 488.2 block
var ErrInvalidBlock = errors.New("invalid block header")

// readBlock reads "#<n><length><payload>" and copies payload to w. A "#0"
// header means an indefinite block terminated by a newline.
func readBlock(r *bufio.Reader, w io.Writer) (int64, error) {
	hash, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	if hash != '#' {
		return 0, fmt.Errorf("%w: expected '#', got %q", ErrInvalidBlock, hash)
	}

	digits, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	if digits < '0' || digits > '9' {
		return 0, fmt.Errorf("%w: invalid length digit count %q", ErrInvalidBlock, digits)
	}

	if digits == '0' {
		payload, err := r.ReadBytes('\n')
		if err != nil {
			return 0, err
		}
		n, err := w.Write(payload[:len(payload)-1])
		return int64(n), err
	}

	header := make([]byte, digits-'0')
	if _, err = io.ReadFull(r, header); err != nil {
		return 0, err
	}

	size, err := strconv.ParseInt(string(header), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid length %q", ErrInvalidBlock, header)
	}

	n, err := io.CopyN(w, r, size)
	if err != nil {
		return n, err
	}

	// the block is followed by the message terminator
	if b, err := r.Peek(1); err == nil && b[0] == '\n' {
		_, _ = r.ReadByte()
	}

	return n, nil
}
