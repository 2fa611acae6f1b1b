package lossless

import "errors"

// Encoder errors. The public package re-exports them.
var (
	ErrOutOfMemory  = errors.New("lossless: out of memory")
	ErrInvalidInput = errors.New("lossless: invalid input")
	ErrUserAborted  = errors.New("lossless: aborted by progress callback")
	ErrBadWrite     = errors.New("lossless: write to sink failed")
)

// Decoder errors.
var (
	ErrBadSignature = errors.New("lossless: bad signature")
	ErrBadVersion   = errors.New("lossless: unsupported version")
	ErrBitstream    = errors.New("lossless: corrupt bitstream")
	ErrTruncated    = errors.New("lossless: truncated bitstream")
)
