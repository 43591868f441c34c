package transfer

import (
	"context"
	"io"
	"sync/atomic"
)

// Counter is a cumulative byte counter owned by exactly one connection
// worker. Only the owner adds to it; the sampler reads it atomically.
type Counter struct {
	n atomic.Int64
}

func (c *Counter) Add(n int64) {
	c.n.Add(n)
}

func (c *Counter) Load() int64 {
	return c.n.Load()
}

// countingReader accounts downloaded bytes as they are drained from a
// response body. The context check makes phase teardown cut a stream off
// mid-body instead of waiting for the server to finish.
type countingReader struct {
	ctx     context.Context
	counter *Counter
	r       io.Reader
}

func (cr *countingReader) Read(p []byte) (int, error) {
	if cr.ctx.Err() != nil {
		return 0, io.EOF
	}
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.counter.Add(int64(n))
	}
	return n, err
}

const (
	payloadBufferSize = 1 << 20 // pre-generated random buffer
	payloadChunkSize  = 256 << 10
)

// payloadReader feeds an endless upload body from a shared random ring
// buffer, counting bytes as they are handed to the transport. TCP
// back-pressure keeps the count close to bytes on the wire. It reports
// EOF once its phase context is cancelled.
type payloadReader struct {
	ctx     context.Context
	counter *Counter
	buf     []byte
	pos     int
}

func (pr *payloadReader) Read(p []byte) (int, error) {
	if pr.ctx.Err() != nil {
		return 0, io.EOF
	}
	limit := len(p)
	if limit > payloadChunkSize {
		limit = payloadChunkSize
	}
	n := copy(p[:limit], pr.buf[pr.pos:])
	if n < limit {
		n += copy(p[n:limit], pr.buf[:limit-n])
	}
	pr.pos = (pr.pos + n) % len(pr.buf)
	pr.counter.Add(int64(n))
	return n, nil
}
