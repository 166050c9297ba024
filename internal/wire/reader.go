package wire

import (
	"bufio"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/lonelyradio/lonelyradio/internal/bufpool"
)

// Reader is the streaming decode_one reader from spec §4.1: each Read*
// method consumes exactly the bytes of one top-level object and leaves the
// underlying stream positioned at the first byte after it.
//
// msgpack.Decoder's own doc comment warns it "introduces its own buffering
// and may read data from r beyond the requested msgpack values" unless r is
// already an io.ByteScanner. ReadFragment's raw byte reads (spec §4.1: "raw
// payload bytes are NOT framed by this codec") must see exactly what the
// decoder hasn't already consumed, so both the decoder and ReadFragment
// read through the same *bufio.Reader rather than racing over the
// underlying net.Conn directly.
type Reader struct {
	dec *msgpack.Decoder
	r   *bufio.Reader
}

func NewReader(r io.Reader) *Reader {
	br := bufio.NewReader(r)
	return &Reader{dec: msgpack.NewDecoder(br), r: br}
}

func (r *Reader) ReadServerCapabilities() (ServerCapabilities, error) {
	return DecodeServerCapabilities(r.dec)
}

func (r *Reader) ReadRequest() (Request, error) {
	return DecodeRequest(r.dec)
}

func (r *Reader) ReadRequestResult() (RequestResult, error) {
	return DecodeRequestResult(r.dec)
}

func (r *Reader) ReadPlayMessage() (PlayMessage, error) {
	return DecodePlayMessage(r.dec)
}

// ReadFragment reads exactly n bytes of raw fragment payload directly from
// the transport, bypassing the object codec (spec §4.1: "raw payload bytes
// are NOT framed by this codec"). The returned buffer is drawn from the
// shared buffer pool; callers that are done with it (typically right after
// decoding it into samples) should return it via bufpool.Put.
func (r *Reader) ReadFragment(n uint64) ([]byte, error) {
	buf := bufpool.Get(int(n))
	if _, err := io.ReadFull(r.r, buf); err != nil {
		bufpool.Put(buf)
		return nil, err
	}
	return buf, nil
}
