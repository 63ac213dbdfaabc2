// Package stream implements spec.md §4.5: the pump that assembles
// arbitrary-sized caller buffers into fixed-size codec blocks and drains
// codec output back out respecting the caller's output capacity.
package stream

import (
	"fmt"

	"aes256filter/internal/aes256/mode"
	"aes256filter/internal/shared/crypto/blockcodec"
)

// Action is the host-supplied / filter-returned signal that drives Process.
type Action int

const (
	// Normal requests ordinary processing of a fresh input buffer.
	Normal Action = iota
	// Repeat asks the filter to continue with the same input buffer,
	// either to drain residual output or to stage more of it.
	Repeat
	// DataEnd signals that no further input will ever follow.
	DataEnd
)

func (a Action) String() string {
	switch a {
	case Normal:
		return "NORMAL"
	case Repeat:
		return "REPEAT"
	case DataEnd:
		return "DATA_END"
	default:
		return "UNKNOWN"
	}
}

// Stream is one session's streaming state machine. It is not safe for
// concurrent use; the spec's single-threaded-cooperative model (§5) makes
// that the caller's responsibility, not this type's.
type Stream struct {
	md    mode.Mode
	codec *blockcodec.Codec
	ivMac blockcodec.IVMac

	bsize int

	inBuffer []byte
	inBytes  int
	dataIn   int

	outBuffer   []byte
	blkBytes    int
	dataOutLeft int

	dataEnd bool
}

// New builds a Stream bound to codec for the given direction.
func New(md mode.Mode, codec *blockcodec.Codec) *Stream {
	bsize := blockcodec.FilterBlockSize
	if md == mode.Download {
		bsize = blockcodec.FramedBlockSize
	}

	return &Stream{
		md:        md,
		codec:     codec,
		bsize:     bsize,
		inBuffer:  make([]byte, blockcodec.FramedBlockSize),
		outBuffer: make([]byte, blockcodec.FramedBlockSize),
	}
}

// Close wipes the session's buffers (spec.md §5: "on finish they are
// wiped (zeroised) and released").
func (s *Stream) Close() {
	for i := range s.inBuffer {
		s.inBuffer[i] = 0
	}

	for i := range s.outBuffer {
		s.outBuffer[i] = 0
	}

	var zero blockcodec.IVMac
	s.ivMac = zero
}

// Process implements the invocation contract of spec.md §4.5: drain path,
// end-marker absorption, stage, codec trigger, emit, decide-next-action,
// in that order. It writes into outBuf starting at offset 0 and returns
// the number of bytes written, which never exceeds len(outBuf).
func (s *Stream) Process(inBuf []byte, action Action, outBuf []byte) (int, Action, error) {
	written := 0
	inLen := len(inBuf)
	outCap := len(outBuf)

	// 1. Drain path.
	if action == Repeat && s.dataOutLeft > 0 {
		start := s.blkBytes - s.dataOutLeft
		n := copy(outBuf[written:], s.outBuffer[start:s.blkBytes])
		written += n

		if n < s.dataOutLeft {
			s.dataOutLeft -= n
			return written, Repeat, nil
		}

		s.dataOutLeft = 0
		s.blkBytes = 0

		if s.dataIn == inLen {
			s.dataIn = 0
			return written, s.endOrNormal(), nil
		}
		// else: fall through and keep filling this same call from the
		// remainder of inBuf, using whatever out_cap is still left.
	}

	// 2. End marker absorption.
	if action == DataEnd {
		s.dataEnd = true
	}

	// 3. Stage bytes.
	if avail := s.bsize - s.inBytes; avail > 0 && s.dataIn < inLen {
		n := inLen - s.dataIn
		if n > avail {
			n = avail
		}

		copy(s.inBuffer[s.inBytes:], inBuf[s.dataIn:s.dataIn+n])
		s.inBytes += n
		s.dataIn += n
	}

	// 4. Codec trigger.
	if s.inBytes == s.bsize || (s.inBytes > 0 && s.dataEnd) {
		out, err := s.runCodec(s.inBuffer[:s.inBytes])
		if err != nil {
			return written, Normal, err
		}

		copy(s.outBuffer, out)
		s.blkBytes = len(out)
		s.inBytes = 0
	}

	// 5. Emit.
	remaining := outCap - written
	if s.blkBytes <= remaining {
		copy(outBuf[written:], s.outBuffer[:s.blkBytes])
		written += s.blkBytes
		s.blkBytes = 0
		s.dataOutLeft = 0
	} else {
		n := copy(outBuf[written:], s.outBuffer[:remaining])
		written += n
		s.dataOutLeft = s.blkBytes - remaining

		return written, Repeat, nil
	}

	// 6./7. Decide next action (doubles as the starvation case: when
	// nothing triggered and blk_bytes was already 0, this is reached with
	// written possibly 0, which is exactly spec.md §4.5 step 7).
	if s.dataIn == inLen {
		s.dataIn = 0
		return written, s.endOrNormal(), nil
	}

	return written, Repeat, nil
}

func (s *Stream) endOrNormal() Action {
	if s.dataEnd {
		return DataEnd
	}

	return Normal
}

func (s *Stream) runCodec(buf []byte) ([]byte, error) {
	if s.md == mode.Upload {
		framed, newIVMac, err := s.codec.EncryptBlock(buf, s.ivMac)
		if err != nil {
			return nil, fmt.Errorf("encrypting block: %w", err)
		}

		s.ivMac = newIVMac

		return framed, nil
	}

	plaintext, err := s.codec.DecryptBlock(buf)
	if err != nil {
		return nil, fmt.Errorf("decrypting block: %w", err)
	}

	return plaintext, nil
}
