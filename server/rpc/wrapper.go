package rpc

import (
	"bytes"
	"io"
	"net/rpc"
	"net/rpc/jsonrpc"
)

// Wrapper for jsonrpc.ServerCodec: a single request read from r, whose
// response is buffered.
type rpcRequest struct {
	r   io.Reader
	buf bytes.Buffer
}

func newRequest(r io.Reader) *rpcRequest {
	return &rpcRequest{r: r}
}

func (r *rpcRequest) Read(p []byte) (int, error) { return r.r.Read(p) }

func (r *rpcRequest) Write(p []byte) (int, error) { return r.buf.Write(p) }

func (r *rpcRequest) Close() error { return nil }

// Call serves the request synchronously and returns the encoded response.
// Requests for unknown methods still get an error response.
func (r *rpcRequest) Call(srv *rpc.Server) (io.Reader, error) {
	err := srv.ServeRequest(jsonrpc.NewServerCodec(r))
	if r.buf.Len() > 0 {
		return &r.buf, nil
	}
	return nil, err
}
