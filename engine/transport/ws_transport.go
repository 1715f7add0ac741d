package transport

import (
	"fmt"

	"github.com/gorilla/websocket"

	at_io "github.com/mysticpants/at/utils/io"
)

// WebSocketTransport talks to the partner over websocket text messages.
// Message payloads run through the line splitter, so a message may carry
// any number of lines.
type WebSocketTransport struct {
	baseTransport
	url      string
	conn     *websocket.Conn
	splitter *at_io.LineSplitter
}

func NewWebSocketTransport(url string) *WebSocketTransport {
	return &WebSocketTransport{
		url: url,
	}
}

func (t *WebSocketTransport) String() string {
	return fmt.Sprintf("websocket-transport (%s)", t.url)
}

func (t *WebSocketTransport) Open() error {
	if t.IsRunning() {
		return fmt.Errorf("transport is already running")
	}

	if t.onError == nil || t.onToken == nil {
		return fmt.Errorf("transport callbacks are not set")
	}

	c, _, err := websocket.DefaultDialer.Dial(t.url, nil)
	if err != nil {
		return err
	}

	t.conn = c
	t.splitter = at_io.NewLineSplitter(t.onToken)
	t.setStateUp()
	go t.receive()

	return nil
}

func (t *WebSocketTransport) Close() error {
	if t.setStateClosed() {
		return t.conn.Close()
	}

	return nil
}

func (t *WebSocketTransport) WriteToken(token string) error {
	if !t.IsRunning() {
		return fmt.Errorf("transport is not running")
	}

	t.sendMut.Lock()
	defer t.sendMut.Unlock()

	return t.conn.WriteMessage(websocket.TextMessage, []byte(token+lineTerm))
}

func (t *WebSocketTransport) receive() {
	defer t.setStateDown()

	for t.IsRunning() {
		messageType, pkt, err := t.conn.ReadMessage()
		if err != nil {
			if t.IsRunning() {
				t.onError(err)
			}
			return
		}

		if messageType != websocket.TextMessage {
			continue
		}

		t.splitter.Write(pkt)
	}
}
