package transport

import (
	"fmt"
	"net"

	at_io "github.com/mysticpants/at/utils/io"
)

// lineTerm terminates every outbound token.
const lineTerm = "\r"

// StreamTransport talks to the partner over a stream connection (tcp,
// unix). Inbound bytes run through the line splitter.
type StreamTransport struct {
	baseTransport
	network  string
	addr     string
	conn     net.Conn
	splitter *at_io.LineSplitter
}

func NewStreamTransport(network string, addr string) *StreamTransport {
	return &StreamTransport{
		network: network,
		addr:    addr,
	}
}

func (t *StreamTransport) String() string {
	return fmt.Sprintf("stream-transport (%s://%s)", t.network, t.addr)
}

func (t *StreamTransport) Open() error {
	if t.IsRunning() {
		return fmt.Errorf("transport is already running")
	}

	if t.onError == nil || t.onToken == nil {
		return fmt.Errorf("transport callbacks are not set")
	}

	c, err := net.Dial(t.network, t.addr)
	if err != nil {
		return err
	}

	t.conn = c
	t.splitter = at_io.NewLineSplitter(t.onToken)
	t.setStateUp()
	go t.receive()

	return nil
}

func (t *StreamTransport) Close() error {
	if t.setStateClosed() {
		if t.conn != nil {
			return t.conn.Close()
		}
	}

	return nil
}

func (t *StreamTransport) WriteToken(token string) error {
	if !t.IsRunning() {
		return fmt.Errorf("transport is not running")
	}

	t.sendMut.Lock()
	defer t.sendMut.Unlock()

	_, err := t.conn.Write([]byte(token + lineTerm))
	return err
}

func (t *StreamTransport) receive() {
	defer t.setStateDown()

	buf := make([]byte, 4096)
	for t.IsRunning() {
		n, err := t.conn.Read(buf)
		if n > 0 {
			t.splitter.Write(buf[:n])
		}
		if err != nil {
			if t.IsRunning() {
				t.onError(err)
			}
			return
		}
	}
}
