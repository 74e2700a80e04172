package protocol

import (
	"bytes"
	"io"
	"testing"
)

// BenchmarkDecodeCommand benchmarks decoding a SET command from a buffer
func BenchmarkDecodeCommand(b *testing.B) {
	input := []byte("*5\r\n$3\r\nSET\r\n$3\r\nkey\r\n$5\r\nvalue\r\n$2\r\nPX\r\n$4\r\n1000\r\n")

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, _, err := Decode(input); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkDecodeBulkString benchmarks decoding bulk strings of various sizes
func BenchmarkDecodeBulkString(b *testing.B) {
	sizes := []struct {
		name string
		size int
	}{
		{"small", 16},
		{"medium", 1024},
		{"large", 64 * 1024},
	}

	for _, size := range sizes {
		input, err := Encode(NewBulkString(bytes.Repeat([]byte("x"), size.size)))
		if err != nil {
			b.Fatal(err)
		}

		b.Run(size.name, func(b *testing.B) {
			b.SetBytes(int64(len(input)))
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, _, err := Decode(input); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkReaderParseCommand benchmarks the streaming reader
func BenchmarkReaderParseCommand(b *testing.B) {
	input := []byte("*3\r\n$3\r\nSET\r\n$3\r\nkey\r\n$5\r\nvalue\r\n")

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		r := NewReader(bytes.NewReader(input))
		if _, err := r.ReadNext(); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkEncodeArray benchmarks encoding a nested reply
func BenchmarkEncodeArray(b *testing.B) {
	v := NewArray(
		NewBulkStringFromString("PONG"),
		NewBulkStringFromString("hello"),
		NewInteger(42),
		NullBulkString(),
	)

	b.ResetTimer()
	b.ReportAllocs()

	buf := make([]byte, 0, 128)
	for i := 0; i < b.N; i++ {
		var err error
		if buf, err = AppendValue(buf[:0], v); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkWriterCommand benchmarks writing commands through the buffered writer
func BenchmarkWriterCommand(b *testing.B) {
	w := NewWriter(io.Discard)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if err := w.WriteCommand("REPLCONF", "listening-port", "6380"); err != nil {
			b.Fatal(err)
		}
		if err := w.Flush(); err != nil {
			b.Fatal(err)
		}
	}
}
