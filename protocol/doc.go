// Package protocol implements the Redis Serialization Protocol (RESP)
// value model together with its encoder and decoders.
//
// Two decoders are provided. Decode works on a contiguous buffer and reports
// how many bytes the first frame used, returning ErrIncomplete when the
// buffer ends mid-frame. Reader is a blocking streaming decoder for callers
// that own an io.Reader.
//
// Basic usage:
//
//	v, n, err := protocol.Decode(buf)
//	if errors.Is(err, protocol.ErrIncomplete) {
//		// read more bytes and retry
//	}
//	buf = buf[n:]
//
//	out, err := protocol.Encode(protocol.NewSimpleString("OK"))
//
// The package supports the RESP2 data types:
//   - Simple Strings
//   - Errors
//   - Integers
//   - Bulk Strings (including the null bulk string)
//   - Arrays (including the null array)
package protocol
