package client

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"

	clobpb "github.com/abdoElHodaky/tradSys/proto/clob"
)

// jsonCodec mirrors internal/grpc's codec so a ClobClient can call a
// clobd instance without either side renegotiating wire format.
type jsonCodec struct{}

func (jsonCodec) Name() string                                { return "json" }
func (jsonCodec) Marshal(v interface{}) ([]byte, error)       { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }

// ClobClient calls one clobd instance's grpc service, drawing
// connections from a ConnectionPool so repeated calls reuse warm
// connections instead of dialing per request.
type ClobClient struct {
	pool *ConnectionPool
}

// NewClobClient wraps an already-dialed ConnectionPool.
func NewClobClient(pool *ConnectionPool) *ClobClient {
	return &ClobClient{pool: pool}
}

func (c *ClobClient) PlaceOrder(ctx context.Context, req *clobpb.PlaceOrderRequest) (*clobpb.PlaceOrderResponse, error) {
	conn, err := c.pool.Get()
	if err != nil {
		return nil, err
	}
	resp := new(clobpb.PlaceOrderResponse)
	if err := conn.Invoke(ctx, "/clob.Clob/PlaceOrder", req, resp, grpc.ForceCodec(jsonCodec{})); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *ClobClient) Cancel(ctx context.Context, req *clobpb.CancelRequest) (*clobpb.CancelResponse, error) {
	conn, err := c.pool.Get()
	if err != nil {
		return nil, err
	}
	resp := new(clobpb.CancelResponse)
	if err := conn.Invoke(ctx, "/clob.Clob/Cancel", req, resp, grpc.ForceCodec(jsonCodec{})); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *ClobClient) BookDepth(ctx context.Context) (*clobpb.BookDepthResponse, error) {
	conn, err := c.pool.Get()
	if err != nil {
		return nil, err
	}
	resp := new(clobpb.BookDepthResponse)
	if err := conn.Invoke(ctx, "/clob.Clob/BookDepth", &clobpb.BookDepthRequest{}, resp, grpc.ForceCodec(jsonCodec{})); err != nil {
		return nil, err
	}
	return resp, nil
}
