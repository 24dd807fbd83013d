package network

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/quic-go/quic-go"

	"WalletCore/internal/logger"
)

// defaultRequestTimeout bounds a Request whose context has no deadline.
const defaultRequestTimeout = 2 * time.Minute

// streamHandlerFailed resets a response stream whose handler returned an error.
const streamHandlerFailed quic.StreamErrorCode = 1

// Peer is one authenticated connection, dialed or accepted.
type Peer struct {
	publicKey ed25519.PublicKey // publicKey is the remote node key
	address   string            // address is the remote network address
	conn      *quic.Conn        // conn carries one stream per request
	node      *Node             // node owns the peer and its handler
	closed    atomic.Bool       // closed is set once by Close or disconnect
}

// PublicKey returns the remote node key.
func (p *Peer) PublicKey() ed25519.PublicKey {
	return p.publicKey
}

// Address returns the remote address.
func (p *Peer) Address() string {
	return p.address
}

// Close closes the connection. Later calls do nothing.
func (p *Peer) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	return p.conn.CloseWithError(codeClosed, "closed")
}

// Request sends data on a fresh stream and waits for the answer.
// Without a context deadline the request times out after two minutes; signing on
// hardware can take that long.
func (p *Peer) Request(ctx context.Context, data []byte) ([]byte, error) {
	if p.closed.Load() {
		return nil, fmt.Errorf("peer %s is closed", KeyID(p.publicKey))
	}

	stream, err := p.conn.OpenStreamSync(ctx)
	if err != nil {
		return nil, fmt.Errorf("open stream to %s:\n%w", KeyID(p.publicKey), err)
	}
	defer stream.Close()

	if deadline, ok := ctx.Deadline(); ok {
		stream.SetDeadline(deadline)
	} else {
		stream.SetDeadline(time.Now().Add(defaultRequestTimeout))
	}

	stop := context.AfterFunc(ctx, func() {
		stream.CancelRead(0)
		stream.CancelWrite(0)
	})
	defer stop()

	if err := writeMessage(stream, data); err != nil {
		return nil, p.requestErr(ctx, "send request", err)
	}

	answer, err := readMessage(stream)
	if err != nil {
		return nil, p.requestErr(ctx, "await answer", err)
	}

	return answer, nil
}

// requestErr reports ctx's error when the caller gave up, else the stream error.
func (p *Peer) requestErr(ctx context.Context, step string, err error) error {
	if ctx.Err() != nil {
		err = ctx.Err()
	}
	return fmt.Errorf("%s to %s:\n%w", step, KeyID(p.publicKey), err)
}

// serveLoop answers request streams until the connection ends, then detaches the peer.
func (p *Peer) serveLoop() {
	ctx := p.conn.Context()

	for {
		stream, err := p.conn.AcceptStream(ctx)
		if err != nil {
			logger.Debug("peer connection ended", "peer", KeyID(p.publicKey), "error", err)
			break
		}
		go p.answer(ctx, stream)
	}

	p.closed.Store(true)
	p.node.peers.drop(p)
}

// answer reads one request, runs the node handler and writes its result.
func (p *Peer) answer(ctx context.Context, stream *quic.Stream) {
	defer stream.Close()

	log := logger.With("peer", KeyID(p.publicKey))

	req, err := readMessage(stream)
	if err != nil {
		log.Debug("read request failed", "error", err)
		return
	}

	resp, err := p.node.dispatch(ctx, p, req)
	if err != nil {
		log.Warn("request handler failed", "error", err)
		stream.CancelWrite(streamHandlerFailed)
		return
	}

	if err := writeMessage(stream, resp); err != nil {
		log.Debug("write response failed", "error", err)
	}
}
