// Package wmbus implements the EN 13757-4 wireless M-Bus frame assembly:
// the L-field-delimited Type A multi-block layout (with per-block CRC-16)
// and the single-block Type B layout (spec §3, §4.B).
package wmbus

import (
	"github.com/jfabienke/mbuscrate/codec"
	"github.com/jfabienke/mbuscrate/mbuserr"
)

// Type distinguishes the two wireless block framings.
type Type int

const (
	TypeA Type = iota
	TypeB
)

const (
	block1UserBytes       = 10
	blockNUserBytes       = 16
	crcLen                = 2
)

// blockLayoutA returns the user-byte length of each block in a Type A frame
// carrying l user bytes (the L-field value as Assemble writes it: the
// payload length, CRC bytes not counted).
func blockLayoutA(l int) []int {
	if l <= block1UserBytes {
		return []int{l}
	}
	blocks := []int{block1UserBytes}
	remaining := l - block1UserBytes
	for remaining > blockNUserBytes {
		blocks = append(blocks, blockNUserBytes)
		remaining -= blockNUserBytes
	}
	blocks = append(blocks, remaining)
	return blocks
}

// Disassemble strips per-block CRC-16 from a raw radio buffer (the L byte
// plus every block that follows) and returns the concatenated user
// payload. raw must start at the L-field byte.
func Disassemble(raw []byte, typ Type) ([]byte, error) {
	if len(raw) < 1 {
		return nil, mbuserr.New("wmbus: disassemble", mbuserr.ShortInput)
	}
	l := int(raw[0])
	body := raw[1:]

	var layout []int
	switch typ {
	case TypeB:
		layout = []int{l}
	default:
		layout = blockLayoutA(l)
	}

	out := make([]byte, 0, l)
	pos := 0
	for idx, userLen := range layout {
		if idx > 0 && idx < len(layout)-1 && userLen != blockNUserBytes {
			return nil, mbuserr.WithIndex("wmbus: disassemble", mbuserr.InvalidEncoding, idx)
		}
		need := userLen + crcLen
		if pos+need > len(body) {
			return nil, mbuserr.New("wmbus: disassemble", mbuserr.ShortInput)
		}
		block := body[pos : pos+need]
		user, crcBytes := block[:userLen], block[userLen:]
		got := uint16(crcBytes[0])<<8 | uint16(crcBytes[1])
		// Each block's CRC covers that block's user bytes only; the L
		// byte is not included, not even for block 0.
		want := codec.CRC16Of(user)
		if got != want {
			return nil, mbuserr.WithIndex("wmbus: disassemble", mbuserr.BlockCRC, idx)
		}
		out = append(out, user...)
		pos += need
	}
	return out, nil
}

// Assemble is the inverse of Disassemble: it splits payload into blocks
// per the Type A/B layout and appends a CRC-16 to each, returning a raw
// radio buffer with the leading L byte.
func Assemble(payload []byte, typ Type) ([]byte, error) {
	l := len(payload)
	if l > 0xFF {
		return nil, mbuserr.New("wmbus: assemble", mbuserr.OutOfRange)
	}

	var layout []int
	switch typ {
	case TypeB:
		layout = []int{l}
	default:
		layout = blockLayoutA(l)
	}

	out := []byte{byte(l)}
	pos := 0
	for _, userLen := range layout {
		user := payload[pos : pos+userLen]
		crc := codec.CRC16Of(user)
		out = append(out, user...)
		out = append(out, byte(crc>>8), byte(crc))
		pos += userLen
	}
	return out, nil
}
