// Package network is an authenticated QUIC request/response transport between a wallet
// and remote signer hosts. Nodes are identified by ed25519 keys carried in self-signed
// certificates; dialers pin the key they expect and listeners may restrict who connects.
package network

import (
	"cmp"
	"context"
	"crypto/ed25519"
	"crypto/tls"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/quic-go/quic-go"

	"WalletCore/internal/logger"
)

const (
	// alpnProtocol is negotiated by both ends of a signer connection.
	alpnProtocol = "walletcore-signer/1"

	// defaultIdleTimeout closes connections without traffic.
	defaultIdleTimeout = 5 * time.Minute

	// keepAlivePeriod keeps idle wallet connections open while a user is deciding.
	keepAlivePeriod = 20 * time.Second
)

// QUIC application error codes used when closing a connection.
const (
	codeClosed   quic.ApplicationErrorCode = 0
	codeRejected quic.ApplicationErrorCode = 2
)

// Config holds the configuration for a Node.
type Config struct {
	PrivateKey   ed25519.PrivateKey  // PrivateKey identifies the node to its peers
	ListenAddr   string              // ListenAddr is the address to listen on (e.g., ":9400"), empty for dial-only nodes
	AllowedPeers []ed25519.PublicKey // AllowedPeers restricts incoming connections, empty allows any key
	IdleTimeout  time.Duration       // IdleTimeout closes silent connections
}

// RequestHandler answers one request. ctx ends when the connection does.
type RequestHandler func(ctx context.Context, p *Peer, data []byte) ([]byte, error)

// peerSet tracks live peers by node key.
type peerSet struct {
	mu    sync.RWMutex     // mu guards byKey
	byKey map[string]*Peer // byKey maps the raw key bytes to the peer
}

// put registers p, replacing any older connection from the same key.
func (s *peerSet) put(p *Peer) {
	s.mu.Lock()
	s.byKey[string(p.publicKey)] = p
	s.mu.Unlock()
}

// get returns the peer holding key, or nil.
func (s *peerSet) get(key ed25519.PublicKey) *Peer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byKey[string(key)]
}

// drop forgets p if it is still the registered peer for its key.
func (s *peerSet) drop(p *Peer) {
	s.mu.Lock()
	if s.byKey[string(p.publicKey)] == p {
		delete(s.byKey, string(p.publicKey))
	}
	s.mu.Unlock()
}

// list returns the current peers.
func (s *peerSet) list() []*Peer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Collect(maps.Values(s.byKey))
}

// takeAll empties the set and returns what it held.
func (s *peerSet) takeAll() []*Peer {
	s.mu.Lock()
	defer s.mu.Unlock()

	taken := slices.Collect(maps.Values(s.byKey))
	clear(s.byKey)

	return taken
}

// Node accepts and initiates authenticated connections.
type Node struct {
	publicKey  ed25519.PublicKey   // publicKey identifies this node
	listenAddr string              // listenAddr is empty for dial-only nodes
	allowed    map[string]struct{} // allowed holds the raw keys permitted to connect in
	tlsConf    *tls.Config         // tlsConf carries the node certificate
	quicConf   *quic.Config        // quicConf sets idle and keep-alive behaviour

	listener *quic.Listener // listener is set by Start
	peers    peerSet        // peers holds live connections in both directions

	handler   RequestHandler // handler answers incoming requests
	handlerMu sync.RWMutex   // handlerMu guards handler

	ctx    context.Context    // ctx ends when the node closes
	cancel context.CancelFunc // cancel ends ctx
	wg     sync.WaitGroup     // wg tracks the accept loop and serve loops
}

// NewNode creates a node from cfg. It does not listen until Start.
func NewNode(cfg Config) (*Node, error) {
	if cfg.PrivateKey == nil {
		return nil, fmt.Errorf("private key is required")
	}

	cert, err := generateCertificate(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("generate certificate:\n%w", err)
	}

	n := &Node{
		publicKey:  cfg.PrivateKey.Public().(ed25519.PublicKey),
		listenAddr: cfg.ListenAddr,
		allowed:    make(map[string]struct{}, len(cfg.AllowedPeers)),
		tlsConf: &tls.Config{
			Certificates:       []tls.Certificate{cert},
			ClientAuth:         tls.RequireAnyClientCert,
			InsecureSkipVerify: true, // peers are authenticated by their pinned ed25519 key
			NextProtos:         []string{alpnProtocol},
			MinVersion:         tls.VersionTLS13,
		},
		quicConf: &quic.Config{
			MaxIdleTimeout:  cmp.Or(cfg.IdleTimeout, defaultIdleTimeout),
			KeepAlivePeriod: keepAlivePeriod,
		},
		peers: peerSet{byKey: make(map[string]*Peer)},
	}

	for _, k := range cfg.AllowedPeers {
		n.allowed[string(k)] = struct{}{}
	}

	n.ctx, n.cancel = context.WithCancel(context.Background())

	return n, nil
}

// PublicKey returns the node's public key.
func (n *Node) PublicKey() ed25519.PublicKey {
	return n.publicKey
}

// Addr returns the bound listen address, or "" before Start.
func (n *Node) Addr() string {
	if n.listener == nil {
		return ""
	}
	return n.listener.Addr().String()
}

// Start binds the listen address and begins admitting peers.
func (n *Node) Start() error {
	if n.listenAddr == "" {
		return fmt.Errorf("node has no listen address")
	}

	ln, err := quic.ListenAddr(n.listenAddr, n.tlsConf, n.quicConf)
	if err != nil {
		return fmt.Errorf("listen on %s:\n%w", n.listenAddr, err)
	}
	n.listener = ln

	n.wg.Add(1)
	go n.acceptLoop()

	logger.Info("signer node listening", "addr", n.Addr(), "key", KeyID(n.publicKey))

	return nil
}

// Dial connects to the node at addr, which must present the expected key.
func (n *Node) Dial(ctx context.Context, addr string, expected ed25519.PublicKey) (*Peer, error) {
	conn, err := quic.DialAddr(ctx, addr, n.tlsConf, n.quicConf)
	if err != nil {
		return nil, fmt.Errorf("dial %s:\n%w", addr, err)
	}

	key, err := extractPublicKey(conn.ConnectionState().TLS)
	if err != nil || !key.Equal(expected) {
		conn.CloseWithError(codeRejected, "unexpected key")
		return nil, fmt.Errorf("node at %s presented key %s, want %s", addr, KeyID(key), KeyID(expected))
	}

	return n.register(conn, key, addr), nil
}

// Peers returns every connected peer.
func (n *Node) Peers() []*Peer {
	return n.peers.list()
}

// GetPeer returns the connected peer with the given key, or nil.
func (n *Node) GetPeer(key ed25519.PublicKey) *Peer {
	return n.peers.get(key)
}

// OnRequest installs the handler for incoming requests.
func (n *Node) OnRequest(fn RequestHandler) {
	n.handlerMu.Lock()
	defer n.handlerMu.Unlock()
	n.handler = fn
}

// Close stops listening, drops every peer and waits for serve loops to end.
func (n *Node) Close() error {
	n.cancel()

	if n.listener != nil {
		n.listener.Close()
	}

	for _, p := range n.peers.takeAll() {
		p.Close()
	}

	n.wg.Wait()

	return nil
}

// acceptLoop admits incoming connections until the listener closes.
func (n *Node) acceptLoop() {
	defer n.wg.Done()

	for {
		conn, err := n.listener.Accept(n.ctx)
		if err != nil {
			return
		}
		go n.admit(conn)
	}
}

// admit registers an incoming connection if its key is allowed.
func (n *Node) admit(conn *quic.Conn) {
	remote := conn.RemoteAddr().String()

	key, err := extractPublicKey(conn.ConnectionState().TLS)
	if err != nil {
		logger.Warn("connection without node key", "addr", remote, "error", err)
		conn.CloseWithError(codeRejected, "no node key")
		return
	}

	if !n.isAllowed(key) {
		logger.Warn("rejected connection", "addr", remote, "key", KeyID(key))
		conn.CloseWithError(codeRejected, "not allowed")
		return
	}

	n.register(conn, key, remote)
}

// isAllowed reports whether key may connect in.
func (n *Node) isAllowed(key ed25519.PublicKey) bool {
	if len(n.allowed) == 0 {
		return true
	}
	_, ok := n.allowed[string(key)]
	return ok
}

// register wraps conn in a Peer, tracks it and starts serving its streams.
func (n *Node) register(conn *quic.Conn, key ed25519.PublicKey, addr string) *Peer {
	p := &Peer{
		publicKey: slices.Clone(key),
		address:   addr,
		conn:      conn,
		node:      n,
	}
	n.peers.put(p)

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		p.serveLoop()
	}()

	return p
}

// dispatch hands one request to the installed handler.
func (n *Node) dispatch(ctx context.Context, p *Peer, data []byte) ([]byte, error) {
	n.handlerMu.RLock()
	fn := n.handler
	n.handlerMu.RUnlock()

	if fn == nil {
		return nil, fmt.Errorf("node %s serves no requests", KeyID(n.publicKey))
	}

	return fn(ctx, p, data)
}
