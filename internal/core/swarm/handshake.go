package swarm

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/flynn/noise"
)

// maxFrameSize 单帧上限（2 字节长度前缀）
const maxFrameSize = 65535

// cipherSuite swarm 使用的 Noise 套件
var cipherSuite = noise.NewCipherSuite(noise.DH25519, noise.CipherChaChaPoly, noise.HashSHA256)

// handshakeResult 握手结果
type handshakeResult struct {
	sendCS       *noise.CipherState
	recvCS       *noise.CipherState
	remoteStatic []byte
}

// ============================================================================
// Noise XX 握手
// ============================================================================

// performHandshake 在原始连接上执行 Noise XX 握手
//
// 握手期间设置读写截止时间，完成后清除。
// 远端身份就是它的 Curve25519 静态公钥，无需额外 payload。
func performHandshake(conn net.Conn, kp KeyPair, initiator bool, timeout time.Duration) (*handshakeResult, error) {
	if timeout > 0 {
		if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
			return nil, err
		}
		defer conn.SetDeadline(time.Time{})
	}

	hs, err := noise.NewHandshakeState(noise.Config{
		CipherSuite:   cipherSuite,
		Pattern:       noise.HandshakeXX,
		Initiator:     initiator,
		StaticKeypair: kp.dhKey(),
	})
	if err != nil {
		return nil, fmt.Errorf("create handshake state: %w", err)
	}

	var res handshakeResult
	if initiator {
		res.sendCS, res.recvCS, err = clientHandshake(conn, hs)
	} else {
		res.sendCS, res.recvCS, err = serverHandshake(conn, hs)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
	}

	res.remoteStatic = append([]byte(nil), hs.PeerStatic()...)
	if len(res.remoteStatic) != 32 {
		return nil, fmt.Errorf("%w: invalid remote static key length %d", ErrHandshakeFailed, len(res.remoteStatic))
	}
	return &res, nil
}

// clientHandshake 发起方握手
//
//  1. -> e
//  2. <- e, ee, s, es
//  3. -> s, se
func clientHandshake(conn net.Conn, hs *noise.HandshakeState) (*noise.CipherState, *noise.CipherState, error) {
	msg1, _, _, err := hs.WriteMessage(nil, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("write message 1: %w", err)
	}
	if err := writeFrame(conn, msg1); err != nil {
		return nil, nil, fmt.Errorf("send message 1: %w", err)
	}

	msg2, err := readFrame(conn)
	if err != nil {
		return nil, nil, fmt.Errorf("receive message 2: %w", err)
	}
	if _, _, _, err := hs.ReadMessage(nil, msg2); err != nil {
		return nil, nil, fmt.Errorf("read message 2: %w", err)
	}

	msg3, cs1, cs2, err := hs.WriteMessage(nil, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("write message 3: %w", err)
	}
	if err := writeFrame(conn, msg3); err != nil {
		return nil, nil, fmt.Errorf("send message 3: %w", err)
	}

	// 发起方：cs1 发送，cs2 接收
	return cs1, cs2, nil
}

// serverHandshake 响应方握手
func serverHandshake(conn net.Conn, hs *noise.HandshakeState) (*noise.CipherState, *noise.CipherState, error) {
	msg1, err := readFrame(conn)
	if err != nil {
		return nil, nil, fmt.Errorf("receive message 1: %w", err)
	}
	if _, _, _, err := hs.ReadMessage(nil, msg1); err != nil {
		return nil, nil, fmt.Errorf("read message 1: %w", err)
	}

	msg2, _, _, err := hs.WriteMessage(nil, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("write message 2: %w", err)
	}
	if err := writeFrame(conn, msg2); err != nil {
		return nil, nil, fmt.Errorf("send message 2: %w", err)
	}

	msg3, err := readFrame(conn)
	if err != nil {
		return nil, nil, fmt.Errorf("receive message 3: %w", err)
	}
	_, cs1, cs2, err := hs.ReadMessage(nil, msg3)
	if err != nil {
		return nil, nil, fmt.Errorf("read message 3: %w", err)
	}

	// 响应方与发起方相反
	return cs2, cs1, nil
}

// ============================================================================
// 帧
// ============================================================================

// writeFrame 写入帧（2 字节长度 + 数据）
func writeFrame(w io.Writer, data []byte) error {
	if len(data) > maxFrameSize {
		return ErrMessageTooLarge
	}
	buf := make([]byte, 2+len(data))
	binary.BigEndian.PutUint16(buf, uint16(len(data)))
	copy(buf[2:], data)
	_, err := w.Write(buf)
	return err
}

// readFrame 读取帧（2 字节长度 + 数据）
func readFrame(r io.Reader) ([]byte, error) {
	var lenBuf [2]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}

	length := binary.BigEndian.Uint16(lenBuf[:])
	if length == 0 {
		return nil, nil
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}
	return data, nil
}
