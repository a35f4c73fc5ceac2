package mux

import (
	"context"
	"io"
	"net"
	"sync"
	"time"
)

// queue is an unbounded, FIFO, single-mutator byte-slice queue used to back
// each channel's receive side. The multiplexer reader is the only writer;
// any number of protocol-client goroutines may read, one payload slice at
// a time, per spec.md §5.
type queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  [][]byte
	closed bool
}

func newQueue() *queue {
	q := &queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *queue) push(b []byte) {
	q.mu.Lock()
	q.items = append(q.items, b)
	q.cond.Signal()
	q.mu.Unlock()
}

func (q *queue) pop() ([]byte, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return nil, false
	}
	b := q.items[0]
	q.items = q.items[1:]
	return b, true
}

func (q *queue) close() {
	q.mu.Lock()
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()
}

// chanReader adapts a queue of whole-frame payloads into an io.Reader so a
// CBOR decoder can read exactly one message at a time off a channel,
// blocking as needed for more frames to arrive.
type chanReader struct {
	q   *queue
	buf []byte
}

func (r *chanReader) Read(p []byte) (int, error) {
	for len(r.buf) == 0 {
		b, ok := r.q.pop()
		if !ok {
			return 0, io.EOF
		}
		r.buf = b
	}
	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}

// writeRequest is one whole mini-protocol message queued for the writer
// goroutine's bounded mailbox.
type writeRequest struct {
	channel   uint16
	responder bool
	payload   []byte
	done      chan error
}

// mailboxCapacity bounds the writer's mailbox; sends beyond this block,
// providing the backpressure spec.md §5 describes.
const mailboxCapacity = 64

// Muxer frames and demultiplexes mini-protocol traffic over a single
// net.Conn, per spec.md §4.3/§5. The reader goroutine owns the read half
// exclusively; the writer goroutine owns the write half and serializes
// concurrent senders through a bounded mailbox.
type Muxer struct {
	conn      net.Conn
	start     time.Time
	responder bool // true if this side is acting as the protocol responder

	mailbox chan writeRequest

	queuesMu sync.Mutex
	queues   map[uint16]*queue

	closeOnce sync.Once
	closed    chan struct{}
	readErr   error
	readErrMu sync.Mutex
}

// New creates a Muxer over conn. responder marks whether this side is the
// protocol responder (cncli always initiates the connection to the node,
// so responder is normally false).
func New(conn net.Conn, responder bool) *Muxer {
	m := &Muxer{
		conn:      conn,
		start:     time.Now(),
		responder: responder,
		mailbox:   make(chan writeRequest, mailboxCapacity),
		queues:    make(map[uint16]*queue),
		closed:    make(chan struct{}),
	}
	return m
}

// Start launches the reader and writer goroutines. ctx cancellation closes
// the underlying connection, which unwinds both goroutines.
func (m *Muxer) Start(ctx context.Context) {
	go m.readLoop()
	go m.writeLoop()
	go func() {
		<-ctx.Done()
		_ = m.conn.Close()
	}()
}

func (m *Muxer) queueFor(channel uint16) *queue {
	m.queuesMu.Lock()
	defer m.queuesMu.Unlock()
	q, ok := m.queues[channel]
	if !ok {
		q = newQueue()
		select {
		case <-m.closed:
			// Close has already swept m.queues; a queue created afterwards
			// must start closed so its readers see EOF instead of blocking.
			q.closed = true
		default:
		}
		m.queues[channel] = q
	}
	return q
}

// Reader returns an io.Reader that yields the raw byte stream received on
// channel, suitable for feeding directly to a CBOR decoder.
func (m *Muxer) Reader(channel uint16) io.Reader {
	return &chanReader{q: m.queueFor(channel)}
}

// Send queues a whole mini-protocol message for transmission on channel,
// fragmenting it if necessary, and blocks until it has been handed to the
// OS (or the muxer is closed).
func (m *Muxer) Send(channel uint16, payload []byte) error {
	done := make(chan error, 1)
	select {
	case m.mailbox <- writeRequest{channel: channel, responder: m.responder, payload: payload, done: done}:
	case <-m.closed:
		return io.ErrClosedPipe
	}
	select {
	case err := <-done:
		return err
	case <-m.closed:
		return io.ErrClosedPipe
	}
}

func (m *Muxer) readLoop() {
	defer m.Close()
	for {
		f, err := ReadFrame(m.conn)
		if err != nil {
			m.setReadErr(err)
			return
		}
		m.queueFor(f.ChannelID).push(f.Payload)
	}
}

func (m *Muxer) writeLoop() {
	for {
		select {
		case req := <-m.mailbox:
			frames := Fragment(req.channel, req.responder, uint32(time.Since(m.start).Milliseconds()), req.payload)
			var writeErr error
			for _, f := range frames {
				if writeErr = WriteFrame(m.conn, f); writeErr != nil {
					break
				}
			}
			req.done <- writeErr
		case <-m.closed:
			return
		}
	}
}

func (m *Muxer) setReadErr(err error) {
	m.readErrMu.Lock()
	m.readErr = err
	m.readErrMu.Unlock()
}

// ReadError returns the error (if any) that terminated the reader
// goroutine, typically io.EOF or a transport error per spec.md §7.
func (m *Muxer) ReadError() error {
	m.readErrMu.Lock()
	defer m.readErrMu.Unlock()
	return m.readErr
}

// Close shuts the multiplexer down: it closes the underlying connection,
// which unblocks the reader and writer goroutines, and wakes any consumer
// blocked on a channel queue.
func (m *Muxer) Close() {
	m.closeOnce.Do(func() {
		close(m.closed)
		_ = m.conn.Close()
		m.queuesMu.Lock()
		for _, q := range m.queues {
			q.close()
		}
		m.queuesMu.Unlock()
	})
}
