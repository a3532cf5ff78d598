package proxy

import (
	"fmt"
	"io"
	"net/http"
)

// ReverseProxy carries the shared, connection-pooled HTTP client every
// forward call goes through, matching the source's hyper Client wrapped
// by ReverseProxy<T>.
type ReverseProxy struct {
	Client *http.Client
}

// New returns a ReverseProxy over client. A nil client uses
// http.DefaultClient.
func New(client *http.Client) *ReverseProxy {
	if client == nil {
		client = http.DefaultClient
	}
	return &ReverseProxy{Client: client}
}

// Call forwards r to forwardURL and relays the result to w. On a 101
// Switching Protocols response whose Upgrade matches what the client
// requested, it hijacks w's underlying connection and bridges raw bytes
// both ways until either side closes; otherwise it strips hop-by-hop
// headers from the upstream response and copies status/headers/body to w.
func (p *ReverseProxy) Call(w http.ResponseWriter, r *http.Request, clientIP, forwardURL string) error {
	requestUpgradeType, upgradeRequested := getUpgradeType(r.Header)

	proxiedReq, err := createProxiedRequest(clientIP, forwardURL, r, requestUpgradeType)
	if err != nil {
		return err
	}

	resp, err := p.Client.Do(proxiedReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusSwitchingProtocols {
		responseUpgradeType, _ := getUpgradeType(resp.Header)

		if !upgradeRequested {
			return fmt.Errorf("%w: upstream switched protocols but none was requested", ErrUpgrade)
		}
		if responseUpgradeType != requestUpgradeType {
			return fmt.Errorf("%w: upstream switched to %q, %q was requested", ErrUpgrade, responseUpgradeType, requestUpgradeType)
		}

		return bridge(w, resp)
	}

	createProxiedResponse(resp.Header)

	for k, values := range resp.Header {
		for _, v := range values {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(resp.StatusCode)

	_, err = io.Copy(w, resp.Body)
	return err
}

// bridge hijacks the client connection and pumps bytes bidirectionally
// against the upstream's upgraded connection until either side closes,
// mirroring the source's tokio::io::copy_bidirectional over the two
// OnUpgrade futures. Go's net/http has no typed upgrade future; a 101
// response's Body implements io.ReadWriteCloser over the raw upstream
// connection, which is the direct translation of the same mechanism.
func bridge(w http.ResponseWriter, resp *http.Response) error {
	hijacker, ok := w.(http.Hijacker)
	if !ok {
		return fmt.Errorf("%w: client connection does not support hijacking", ErrUpgrade)
	}

	upstream, ok := resp.Body.(io.ReadWriteCloser)
	if !ok {
		return fmt.Errorf("%w: upstream response does not expose a raw connection", ErrUpgrade)
	}
	defer upstream.Close()

	clientConn, clientBuf, err := hijacker.Hijack()
	if err != nil {
		return fmt.Errorf("%w: hijack client connection: %v", ErrUpgrade, err)
	}
	defer clientConn.Close()

	if _, err := clientConn.Write([]byte("HTTP/1.1 101 Switching Protocols\r\n")); err != nil {
		return err
	}
	if err := resp.Header.Write(clientConn); err != nil {
		return err
	}
	if _, err := clientConn.Write([]byte("\r\n")); err != nil {
		return err
	}

	errCh := make(chan error, 2)
	go func() {
		_, err := io.Copy(upstream, clientBuf)
		errCh <- err
	}()
	go func() {
		_, err := io.Copy(clientConn, upstream)
		errCh <- err
	}()

	return <-errCh
}
