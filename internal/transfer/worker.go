package transfer

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptrace"
	"sync"
	"time"

	"github.com/NodePath81/netgauge/internal/util"
)

// worker drives one data connection for the whole phase. It owns its
// http.Client (and so its TCP connection) and is the only writer of its
// Counter. Errors after establishment are absorbed: the worker backs off
// and reconnects while the phase lasts, or goes quiet if it cannot.
type worker struct {
	id      int
	dir     Direction
	url     string
	counter *Counter
	payload []byte
	logger  util.Logger

	client    *http.Client
	transport *http.Transport

	estOnce sync.Once

	connMu       sync.Mutex
	lastConn     net.Conn
	retransmits  uint64
	segmentsSent uint64
}

func newWorker(id int, dir Direction, url string, counter *Counter, payload []byte, logger util.Logger) *worker {
	transport := &http.Transport{
		Proxy:              http.ProxyFromEnvironment,
		DisableCompression: true,
		MaxConnsPerHost:    1,
	}
	return &worker{
		id:        id,
		dir:       dir,
		url:       url,
		counter:   counter,
		payload:   payload,
		logger:    logger,
		transport: transport,
		client:    &http.Client{Transport: transport},
	}
}

func (w *worker) run(ctx context.Context, estCh chan<- bool) {
	defer w.transport.CloseIdleConnections()
	defer w.captureTCPStats()

	trace := &httptrace.ClientTrace{
		GotConn: func(info httptrace.GotConnInfo) {
			w.connMu.Lock()
			w.lastConn = info.Conn
			w.connMu.Unlock()
			w.signal(estCh, true)
		},
	}
	traceCtx := httptrace.WithClientTrace(ctx, trace)

	for ctx.Err() == nil {
		var err error
		if w.dir == Upload {
			err = w.uploadOnce(traceCtx)
		} else {
			err = w.downloadOnce(traceCtx)
		}
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			w.logger.Debug("connection worker error", "worker", w.id, "direction", w.dir.String(), "error", err)
			// A failure before the first connection counts against the
			// establishment policy; later ones are absorbed.
			w.signal(estCh, false)
			select {
			case <-ctx.Done():
				return
			case <-time.After(workerRetryDelay):
			}
		}
	}
}

func (w *worker) downloadOnce(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept-Encoding", "identity")
	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	cr := &countingReader{ctx: ctx, counter: w.counter, r: resp.Body}
	_, err = io.Copy(io.Discard, cr)
	return err
}

func (w *worker) uploadOnce(ctx context.Context) error {
	body := &payloadReader{ctx: ctx, counter: w.counter, buf: w.payload}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, err = io.Copy(io.Discard, resp.Body)
	return err
}

func (w *worker) signal(estCh chan<- bool, ok bool) {
	w.estOnce.Do(func() {
		estCh <- ok
	})
}

// captureTCPStats reads TCP_INFO off the live connection just before the
// worker exits and the socket closes.
func (w *worker) captureTCPStats() {
	w.connMu.Lock()
	conn := w.lastConn
	w.connMu.Unlock()
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return
	}
	st, err := readTCPStats(tcpConn)
	if err != nil {
		return
	}
	w.connMu.Lock()
	w.retransmits = st.Retransmits
	w.segmentsSent = st.SegmentsSent
	w.connMu.Unlock()
}

func (w *worker) tcpStats() (retransmits, segmentsSent uint64) {
	w.connMu.Lock()
	defer w.connMu.Unlock()
	return w.retransmits, w.segmentsSent
}
