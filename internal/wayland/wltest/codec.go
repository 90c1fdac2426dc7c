package wltest

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	headerSize     = 8
	maxMessageSize = 4096
)

var errShortMessage = errors.New("wltest: short message body")

// FD marks a file descriptor argument to Send. It travels out-of-band.
type FD int

// Args decodes the body of one request in order. The first decoding error
// sticks; later reads return zero values.
type Args struct {
	body []byte
	err  error
}

func (a *Args) word() uint32 {
	if a.err != nil {
		return 0
	}
	if len(a.body) < 4 {
		a.err = errShortMessage
		return 0
	}
	v := binary.LittleEndian.Uint32(a.body)
	a.body = a.body[4:]
	return v
}

// Uint reads a uint argument.
func (a *Args) Uint() uint32 { return a.word() }

// Int reads an int argument.
func (a *Args) Int() int32 { return int32(a.word()) }

// Object reads an object argument.
func (a *Args) Object() uint32 { return a.word() }

// NewID reads a typed new_id argument.
func (a *Args) NewID() uint32 { return a.word() }

// Str reads a string argument.
func (a *Args) Str() string {
	n := int(a.word())
	if a.err != nil || n == 0 {
		return ""
	}
	padded := (n + 3) &^ 3
	if len(a.body) < padded {
		a.err = errShortMessage
		return ""
	}
	s := string(a.body[:n-1])
	a.body = a.body[padded:]
	return s
}

// Err returns the first decoding error.
func (a *Args) Err() error { return a.err }

// marshal encodes one event. FD arguments are returned separately.
func marshal(object uint32, opcode uint16, args ...any) ([]byte, []int, error) {
	body := make([]byte, 0, 64)
	var fds []int
	for _, arg := range args {
		switch v := arg.(type) {
		case uint32:
			body = binary.LittleEndian.AppendUint32(body, v)
		case int32:
			body = binary.LittleEndian.AppendUint32(body, uint32(v))
		case string:
			n := len(v) + 1
			body = binary.LittleEndian.AppendUint32(body, uint32(n))
			body = append(body, v...)
			body = append(body, make([]byte, (n+3)&^3-len(v))...)
		case FD:
			fds = append(fds, int(v))
		default:
			return nil, nil, fmt.Errorf("wltest: unsupported argument type %T", arg)
		}
	}
	size := headerSize + len(body)
	if size > maxMessageSize {
		return nil, nil, fmt.Errorf("wltest: message of %d bytes too large", size)
	}
	msg := make([]byte, headerSize, size)
	binary.LittleEndian.PutUint32(msg, object)
	binary.LittleEndian.PutUint32(msg[4:], uint32(size)<<16|uint32(opcode))
	return append(msg, body...), fds, nil
}

// split cuts the first complete message off buf.
func split(buf []byte) (object uint32, opcode uint16, body, rest []byte, ok bool, err error) {
	if len(buf) < headerSize {
		return 0, 0, nil, buf, false, nil
	}
	object = binary.LittleEndian.Uint32(buf)
	word := binary.LittleEndian.Uint32(buf[4:])
	size := int(word >> 16)
	if size < headerSize || size%4 != 0 {
		return 0, 0, nil, buf, false, fmt.Errorf("wltest: bad message size %d", size)
	}
	if len(buf) < size {
		return 0, 0, nil, buf, false, nil
	}
	return object, uint16(word), buf[headerSize:size], buf[size:], true, nil
}
