package wstask

import (
	"context"
	"net/http"
	"time"

	fastws "github.com/fasthttp/websocket"
	gorillaws "github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

// Backend names the websocket library a WsTransport runs on.
type Backend string

const (
	BackendFasthttp Backend = "fasthttp"
	BackendGorilla  Backend = "gorilla"
)

func (b Backend) valid() bool {
	return b == BackendFasthttp || b == BackendGorilla
}

type wsBackend struct {
	dial        func(ctx context.Context, urlStr string, protocols []string, header http.Header, timeout time.Duration) (wsConn, *http.Response, error)
	closeStatus func(err error) (code int, reason string, ok bool)
	formatClose func(code int, reason string) []byte
}

func backendFor(b Backend) wsBackend {
	if b == BackendGorilla {
		return gorillaBackend()
	}
	return fasthttpBackend()
}

func fasthttpBackend() wsBackend {
	return wsBackend{
		dial: func(ctx context.Context, urlStr string, protocols []string, header http.Header, timeout time.Duration) (wsConn, *http.Response, error) {
			dialer := fastws.Dialer{
				Proxy:            http.ProxyFromEnvironment,
				HandshakeTimeout: timeout,
				Subprotocols:     protocols,
			}
			conn, resp, err := dialer.DialContext(ctx, urlStr, header)
			if err != nil {
				return nil, resp, err
			}
			return conn, resp, nil
		},
		closeStatus: func(err error) (int, string, bool) {
			var ce *fastws.CloseError
			if errors.As(err, &ce) {
				return ce.Code, ce.Text, true
			}
			return 0, "", false
		},
		formatClose: fastws.FormatCloseMessage,
	}
}

func gorillaBackend() wsBackend {
	return wsBackend{
		dial: func(ctx context.Context, urlStr string, protocols []string, header http.Header, timeout time.Duration) (wsConn, *http.Response, error) {
			dialer := gorillaws.Dialer{
				Proxy:            http.ProxyFromEnvironment,
				HandshakeTimeout: timeout,
				Subprotocols:     protocols,
			}
			conn, resp, err := dialer.DialContext(ctx, urlStr, header)
			if err != nil {
				return nil, resp, err
			}
			return conn, resp, nil
		},
		closeStatus: func(err error) (int, string, bool) {
			var ce *gorillaws.CloseError
			if errors.As(err, &ce) {
				return ce.Code, ce.Text, true
			}
			return 0, "", false
		},
		formatClose: gorillaws.FormatCloseMessage,
	}
}
