package httpd

import (
	"bufio"
	"errors"
	"net"
	"time"

	"go.uber.org/zap"
)

const (
	acceptWait   = time.Millisecond
	peekWait     = time.Millisecond
	writeTimeout = 2 * time.Second
)

var _ Transport = (*TCPTransport)(nil)
var _ Connection = (*tcpConn)(nil)

// TCPTransport polls a TCP listener for pending clients.
type TCPTransport struct {
	ln     *net.TCPListener
	logger *zap.Logger
}

// Listen opens a TCP listener on addr.
func Listen(addr string, logger *zap.Logger) (*TCPTransport, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &TCPTransport{
		ln:     ln.(*net.TCPListener),
		logger: logger,
	}, nil
}

// Addr returns the bound address.
func (t *TCPTransport) Addr() net.Addr {
	return t.ln.Addr()
}

// Accept returns a pending client, if one is waiting.
func (t *TCPTransport) Accept() (Connection, bool) {
	if err := t.ln.SetDeadline(time.Now().Add(acceptWait)); err != nil {
		t.logger.Warn("set accept deadline", zap.Error(err))
		return nil, false
	}

	c, err := t.ln.Accept()
	if err != nil {
		if !isTimeout(err) {
			t.logger.Warn("accept failed", zap.Error(err))
		}
		return nil, false
	}

	t.logger.Debug("new client", zap.Stringer("remote", c.RemoteAddr()))
	return &tcpConn{
		conn: c,
		r:    bufio.NewReader(c),
		open: true,
	}, true
}

// Close stops listening.
func (t *TCPTransport) Close() error {
	return t.ln.Close()
}

type tcpConn struct {
	conn net.Conn
	r    *bufio.Reader
	open bool
}

func (c *tcpConn) IsOpen() bool {
	return c.open
}

func (c *tcpConn) HasBytesAvailable() bool {
	if !c.open {
		return false
	}
	if c.r.Buffered() > 0 {
		return true
	}

	if err := c.conn.SetReadDeadline(time.Now().Add(peekWait)); err != nil {
		c.open = false
		return false
	}
	if _, err := c.r.Peek(1); err != nil {
		if !isTimeout(err) {
			c.open = false
		}
		return false
	}
	return true
}

func (c *tcpConn) ReadByte() (byte, error) {
	if c.r.Buffered() == 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(peekWait)); err != nil {
			return 0, err
		}
	}
	b, err := c.r.ReadByte()
	if err != nil && !isTimeout(err) {
		c.open = false
	}
	return b, err
}

func (c *tcpConn) WriteLine(s string) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	_, err := c.conn.Write([]byte(s + "\r\n"))
	return err
}

func (c *tcpConn) Close() error {
	c.open = false
	return c.conn.Close()
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
