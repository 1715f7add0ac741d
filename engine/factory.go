// Package engine assembles conversations from transports.
package engine

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/mysticpants/at"
	"github.com/mysticpants/at/engine/basic"
	"github.com/mysticpants/at/engine/transport"
	"github.com/mysticpants/at/log"
)

// NewBasicConversation wires a conversation over tp with the wall-clock
// timer: inbound tokens are fed to the conversation, transport errors stop
// the in-flight operation. The transport is not opened; callers open and
// close it around the conversation's lifetime.
func NewBasicConversation(tp at.Transport) at.Conversation {
	conv := basic.NewConversation(tp, basic.NewTimer())
	tp.OnToken(func(token string) {
		if err := conv.Feed(token); err != nil {
			log.Warn(conv, "Dropped dispatch failure", "err", err)
		}
	})
	tp.OnError(func(err error) {
		log.Error(conv, "Transport error", "err", err, "transport", tp)
		if conv.Busy() {
			conv.Stop(err, nil)
		}
	})
	return conv
}

// NewTransport builds a transport from a URI: tcp://host:port,
// unix:///path, ws://host/path, wss://..., or serial:///dev/tty?baud=N.
func NewTransport(uri string) (at.Transport, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid transport URI %s: %w", uri, err)
	}

	switch u.Scheme {
	case "tcp", "tcp4", "tcp6":
		return transport.NewStreamTransport(u.Scheme, u.Host), nil
	case "unix":
		return transport.NewStreamTransport("unix", u.Path), nil
	case "ws", "wss":
		return transport.NewWebSocketTransport(uri), nil
	case "serial":
		baud := 0
		if s := u.Query().Get("baud"); s != "" {
			baud, err = strconv.Atoi(s)
			if err != nil {
				return nil, fmt.Errorf("invalid baud rate %q: %w", s, err)
			}
		}
		return transport.NewSerialTransport(u.Path, baud), nil
	}

	return nil, fmt.Errorf("unsupported transport URI: %s", uri)
}
