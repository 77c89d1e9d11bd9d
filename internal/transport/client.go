package transport

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"lstmcpipe/internal/validate"
)

// Client calls a remote ConfigService.
type Client struct {
	conn *grpc.ClientConn
}

func Dial(target string, opts ...grpc.DialOption) (*Client, error) {
	if len(opts) == 0 {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}
	cc, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{conn: cc}, nil
}

// Validate returns the workflow kind and production type the remote
// resolved for doc. Rejections wrap validate.ErrInvalidConfig.
func (c *Client) Validate(ctx context.Context, doc map[string]any) (map[string]any, error) {
	return c.call(ctx, "Validate", doc)
}

// Complete returns the remotely completed document. When the server could
// not deliver it to one of its sinks, the document is still returned
// together with a *RemoteDeliveryError.
func (c *Client) Complete(ctx context.Context, doc map[string]any) (map[string]any, error) {
	var trailer metadata.MD
	out, err := c.call(ctx, "Complete", doc, grpc.Trailer(&trailer))
	if err != nil {
		return nil, err
	}
	if msg := trailer.Get(SinkErrorTrailer); len(msg) > 0 {
		return out, &RemoteDeliveryError{Msg: msg[0]}
	}
	return out, nil
}

// RemoteDeliveryError reports a sink failure on the server side.
type RemoteDeliveryError struct {
	Msg string
}

func (e *RemoteDeliveryError) Error() string { return "remote delivery: " + e.Msg }

func (c *Client) call(ctx context.Context, method string, doc map[string]any, opts ...grpc.CallOption) (map[string]any, error) {
	in, err := structpb.NewStruct(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, fromStatus(err)
	}
	return out.AsMap(), nil
}

func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if ok && st.Code() == codes.InvalidArgument {
		return fmt.Errorf("%w: %s", validate.ErrInvalidConfig, st.Message())
	}
	return err
}
