package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"pkt.systems/jellyj/schema"
)

// WatchEvent is one message from WatchTrace. Host is set for attach and
// detach notices; otherwise the trace fields are populated.
type WatchEvent struct {
	Seq       uint64 `json:"seq,omitempty"`
	ElapsedMS int64  `json:"elapsed_ms,omitempty"`
	Message   string `json:"message,omitempty"`
	Line      string `json:"line,omitempty"`
	Host      string `json:"host,omitempty"`
}

// Client talks to a running daemon's control plane.
type Client struct {
	conn *grpc.ClientConn
}

// Dial creates a control client over a Unix domain socket.
func Dial(ctx context.Context, socketPath string) (*Client, error) {
	if socketPath == "" {
		return nil, errors.New("control socket path is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dialer := func(ctx context.Context, addr string) (net.Conn, error) {
		var d net.Dialer
		return d.DialContext(ctx, "unix", addr)
	}
	conn, err := grpc.NewClient(
		"passthrough:///"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithContextDialer(dialer),
	)
	if err != nil {
		return nil, err
	}
	return NewClient(conn), nil
}

// NewClient wraps an existing connection.
func NewClient(conn *grpc.ClientConn) *Client {
	return &Client{conn: conn}
}

// Close closes the underlying gRPC connection.
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Toggle asks the daemon to toggle the companion pane.
func (c *Client) Toggle(ctx context.Context, callerID string) (schema.ToggleResult, error) {
	in, err := structFrom(schema.ToggleRequest{CallerID: callerID})
	if err != nil {
		return schema.ToggleResult{}, err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, methodToggle, in, out); err != nil {
		return schema.ToggleResult{}, fromStatus(err)
	}
	var result schema.ToggleResult
	if err := decodeStruct(out, &result); err != nil {
		return schema.ToggleResult{}, fmt.Errorf("decode toggle result: %w", err)
	}
	return result, nil
}

// Request sends a raw JSON request and returns the response envelope.
// The result field is left as decoded JSON.
func (c *Client) Request(ctx context.Context, payload []byte) (schema.Response, error) {
	in := new(structpb.Struct)
	if err := in.UnmarshalJSON(payload); err != nil {
		return schema.Response{}, fmt.Errorf("%w: %v", schema.ErrInvalidRequest, err)
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, methodRequest, in, out); err != nil {
		return schema.Response{}, fromStatus(err)
	}
	var resp schema.Response
	if err := decodeStruct(out, &resp); err != nil {
		return schema.Response{}, fmt.Errorf("decode response: %w", err)
	}
	return resp, nil
}

// Do marshals req and sends it with Request.
func (c *Client) Do(ctx context.Context, req schema.Request) (schema.Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return schema.Response{}, err
	}
	return c.Request(ctx, payload)
}

// WatchTrace streams up to backlog recent entries then live events until
// ctx is done, the server ends the stream, or fn returns an error.
func (c *Client) WatchTrace(ctx context.Context, backlog int, fn func(WatchEvent) error) error {
	desc := &grpc.StreamDesc{StreamName: "WatchTrace", ServerStreams: true}
	stream, err := c.conn.NewStream(ctx, desc, methodWatchTrace)
	if err != nil {
		return fromStatus(err)
	}
	in := &structpb.Struct{Fields: map[string]*structpb.Value{
		"backlog": structpb.NewNumberValue(float64(backlog)),
	}}
	if err := stream.SendMsg(in); err != nil {
		return fromStatus(err)
	}
	if err := stream.CloseSend(); err != nil {
		return fromStatus(err)
	}
	for {
		msg := new(structpb.Struct)
		if err := stream.RecvMsg(msg); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			return fromStatus(err)
		}
		var event WatchEvent
		if err := decodeStruct(msg, &event); err != nil {
			return fmt.Errorf("decode watch event: %w", err)
		}
		if err := fn(event); err != nil {
			return err
		}
	}
}
