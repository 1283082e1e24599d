package swarm

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/flynn/noise"

	"github.com/dep2p/go-swarmscope/internal/util/logger"
	pkgif "github.com/dep2p/go-swarmscope/pkg/interfaces"
)

const (
	// inboxSize 未读消息缓冲，满时丢弃
	inboxSize = 64

	// maxMessageSize 单条明文消息上限（扣除 AEAD 标签）
	maxMessageSize = maxFrameSize - 16
)

// Conn 一条完成 Noise 握手的 TCP 连接
type Conn struct {
	raw       net.Conn
	sendCS    *noise.CipherState
	recvCS    *noise.CipherState
	writeMu   sync.Mutex
	remoteKey []byte
	initiator bool

	remoteHost string
	remotePort int
	localPort  int

	inbox chan []byte
	done  chan struct{}

	mu        sync.Mutex
	closed    bool
	callbacks []func()
	onClosed  func(*Conn) // swarm 从连接集合移除
	closeOnce sync.Once
}

var _ pkgif.Connection = (*Conn)(nil)

// newConn 在握手完成的原始连接上构造 Conn
func newConn(raw net.Conn, hs *handshakeResult, initiator bool) *Conn {
	c := &Conn{
		raw:       raw,
		sendCS:    hs.sendCS,
		recvCS:    hs.recvCS,
		remoteKey: hs.remoteStatic,
		initiator: initiator,
		inbox:     make(chan []byte, inboxSize),
		done:      make(chan struct{}),
	}
	if addr, ok := raw.RemoteAddr().(*net.TCPAddr); ok {
		c.remoteHost = ipString(addr.IP)
		c.remotePort = addr.Port
	}
	if addr, ok := raw.LocalAddr().(*net.TCPAddr); ok {
		c.localPort = addr.Port
	}
	return c
}

// ipString IPv4 地址用点分形式
func ipString(ip net.IP) string {
	if v4 := ip.To4(); v4 != nil {
		return v4.String()
	}
	return ip.String()
}

// RemotePublicKey 返回远端公钥
func (c *Conn) RemotePublicKey() []byte {
	return append([]byte(nil), c.remoteKey...)
}

// RemoteHost 返回远端 IP
func (c *Conn) RemoteHost() string {
	return c.remoteHost
}

// RemotePort 返回远端端口
func (c *Conn) RemotePort() int {
	return c.remotePort
}

// LocalPort 返回本地端口
func (c *Conn) LocalPort() int {
	return c.localPort
}

// Initiator 本地是否为发起方
func (c *Conn) Initiator() bool {
	return c.initiator
}

// String 返回简短描述
func (c *Conn) String() string {
	return fmt.Sprintf("conn(%s %s:%d)", logger.ShortKey(c.remoteKey), c.remoteHost, c.remotePort)
}

// Done 连接关闭时关闭
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// IsClosed 是否已关闭
func (c *Conn) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// OnClose 注册一次性关闭回调，已关闭时立即执行
func (c *Conn) OnClose(fn func()) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		fn()
		return
	}
	c.callbacks = append(c.callbacks, fn)
	c.mu.Unlock()
}

// Close 关闭连接
//
// 先从 swarm 的连接集合中移除，再依次执行 OnClose 回调。
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		callbacks := c.callbacks
		c.callbacks = nil
		hook := c.onClosed
		c.mu.Unlock()

		err = c.raw.Close()
		close(c.done)

		if hook != nil {
			hook(c)
		}
		for _, fn := range callbacks {
			fn()
		}
	})
	return err
}

// setOnClosed 设置 swarm 移除钩子
func (c *Conn) setOnClosed(fn func(*Conn)) {
	c.mu.Lock()
	c.onClosed = fn
	c.mu.Unlock()
}

// ============================================================================
// 加密消息
// ============================================================================

// Send 加密发送一条消息
func (c *Conn) Send(msg []byte) error {
	if len(msg) > maxMessageSize {
		return ErrMessageTooLarge
	}
	if c.IsClosed() {
		return ErrConnClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	ciphertext, err := c.sendCS.Encrypt(nil, nil, msg)
	if err != nil {
		return fmt.Errorf("encrypt: %w", err)
	}
	return writeFrame(c.raw, ciphertext)
}

// Recv 接收下一条消息
func (c *Conn) Recv(ctx context.Context) ([]byte, error) {
	select {
	case msg := <-c.inbox:
		return msg, nil
	case <-c.done:
		// 关闭前已到达的消息仍可读取
		select {
		case msg := <-c.inbox:
			return msg, nil
		default:
			return nil, io.EOF
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// readLoop 持续读取直到连接断开，断开即关闭
func (c *Conn) readLoop() {
	defer c.Close()

	for {
		frame, err := readFrame(c.raw)
		if err != nil {
			if !c.IsClosed() && err != io.EOF {
				log.Debug("连接读取结束", "peer", logger.ShortKey(c.remoteKey), "error", err)
			}
			return
		}
		if len(frame) == 0 {
			continue
		}

		msg, err := c.recvCS.Decrypt(nil, nil, frame)
		if err != nil {
			log.Warn("解密失败，断开连接", "peer", logger.ShortKey(c.remoteKey), "error", err)
			return
		}

		select {
		case c.inbox <- msg:
		default:
			log.Debug("接收缓冲已满，丢弃消息", "peer", logger.ShortKey(c.remoteKey))
		}
	}
}
