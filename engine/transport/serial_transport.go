package transport

import (
	"fmt"

	"go.bug.st/serial"

	at_io "github.com/mysticpants/at/utils/io"
)

// DefaultBaudRate is used when no rate is configured.
const DefaultBaudRate = 115200

// SerialTransport talks to the partner over a serial port, the
// prototypical AT-modem substrate.
type SerialTransport struct {
	baseTransport
	device   string
	baud     int
	port     serial.Port
	splitter *at_io.LineSplitter
}

func NewSerialTransport(device string, baud int) *SerialTransport {
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	return &SerialTransport{
		device: device,
		baud:   baud,
	}
}

func (t *SerialTransport) String() string {
	return fmt.Sprintf("serial-transport (%s@%d)", t.device, t.baud)
}

func (t *SerialTransport) Open() error {
	if t.IsRunning() {
		return fmt.Errorf("transport is already running")
	}

	if t.onError == nil || t.onToken == nil {
		return fmt.Errorf("transport callbacks are not set")
	}

	port, err := serial.Open(t.device, &serial.Mode{BaudRate: t.baud})
	if err != nil {
		return err
	}

	t.port = port
	t.splitter = at_io.NewLineSplitter(t.onToken)
	t.setStateUp()
	go t.receive()

	return nil
}

func (t *SerialTransport) Close() error {
	if t.setStateClosed() {
		if t.port != nil {
			return t.port.Close()
		}
	}

	return nil
}

func (t *SerialTransport) WriteToken(token string) error {
	if !t.IsRunning() {
		return fmt.Errorf("transport is not running")
	}

	t.sendMut.Lock()
	defer t.sendMut.Unlock()

	_, err := t.port.Write([]byte(token + lineTerm))
	return err
}

func (t *SerialTransport) receive() {
	defer t.setStateDown()

	buf := make([]byte, 4096)
	for t.IsRunning() {
		n, err := t.port.Read(buf)
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
