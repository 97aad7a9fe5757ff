// Package tape implements TZX tape image loading and the pulse-level
// EAR signal generator that plays a loaded tape back into the ULA.
// Block parsing follows the teacher-domain TZX reference (the
// retroio/spectrum/tzx package retrieved alongside this spec): a
// header struct validated against the fixed "ZXTape!" signature,
// followed by a stream of typed blocks read off the same reader.
package tape

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// Block type IDs this loader understands. Any other ID ends parsing:
// Load returns the blocks read before it (see Load).
const (
	blockIDStandardSpeedData = 0x10
	blockIDTextDescription   = 0x30
)

// StandardSpeedDataBlock is block 0x10: the only block type mandatory
// to support, used for virtually every commercial Spectrum tape.
type StandardSpeedDataBlock struct {
	PauseMillis uint16
	Data        []byte
}

// Tape holds the ordered list of standard-speed data blocks parsed
// from a TZX file. Text description blocks are skipped. Parsing stops at
// the first block of any other unplayed type, so blocks after it are not
// included; this is not reported as an error and nothing logs it.
type Tape struct {
	Blocks []StandardSpeedDataBlock
}

var tzxSignature = [7]byte{'Z', 'X', 'T', 'a', 'p', 'e', '!'}

// Load parses a TZX image from r. Unknown block IDs outside the set
// this loader understands cause Load to stop at that point and return
// the blocks parsed so far, rather than propagating an error — a
// malformed or advanced-format tail should not prevent playing the
// blocks that came before it.
func Load(r io.Reader) (*Tape, error) {
	var sig [7]byte
	if _, err := io.ReadFull(r, sig[:]); err != nil {
		return nil, errors.Wrap(err, "tape: reading signature")
	}
	if sig != tzxSignature {
		return nil, errors.Errorf("tape: bad signature %q, want \"ZXTape!\"", sig)
	}

	var rest [3]byte // terminator, major version, minor version
	if _, err := io.ReadFull(r, rest[:]); err != nil {
		return nil, errors.Wrap(err, "tape: reading header tail")
	}
	if rest[0] != 0x1A {
		return nil, errors.Errorf("tape: bad terminator byte 0x%02X, want 0x1A", rest[0])
	}

	t := &Tape{}
	for {
		idByte := make([]byte, 1)
		if _, err := io.ReadFull(r, idByte); err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.Wrap(err, "tape: reading block id")
		}

		switch idByte[0] {
		case blockIDStandardSpeedData:
			block, err := readStandardSpeedDataBlock(r)
			if err != nil {
				return nil, errors.Wrap(err, "tape: standard speed data block")
			}
			t.Blocks = append(t.Blocks, block)
		case blockIDTextDescription:
			if err := skipTextDescriptionBlock(r); err != nil {
				return nil, errors.Wrap(err, "tape: text description block")
			}
		default:
			// Unrecognised block ID: stop here. The caller decides
			// whether to log and continue with what was parsed.
			return t, nil
		}
	}
	return t, nil
}

func readStandardSpeedDataBlock(r io.Reader) (StandardSpeedDataBlock, error) {
	var header struct {
		PauseMillis uint16
		Length      uint16
	}
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return StandardSpeedDataBlock{}, err
	}
	data := make([]byte, header.Length)
	if _, err := io.ReadFull(r, data); err != nil {
		return StandardSpeedDataBlock{}, err
	}
	return StandardSpeedDataBlock{PauseMillis: header.PauseMillis, Data: data}, nil
}

func skipTextDescriptionBlock(r io.Reader) error {
	lengthByte := make([]byte, 1)
	if _, err := io.ReadFull(r, lengthByte); err != nil {
		return err
	}
	buf := make([]byte, lengthByte[0])
	_, err := io.ReadFull(r, buf)
	return err
}
