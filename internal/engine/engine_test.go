package engine

import (
	"bytes"
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"lstmcpipe/internal/config"
	"lstmcpipe/internal/logging"
	tu "lstmcpipe/internal/testutil"
	"lstmcpipe/internal/transport"
	"lstmcpipe/internal/validate"
)

func TestEngine_ServesUntilCancelled(t *testing.T) {
	lis := bufconn.Listen(1 << 20)
	var out bytes.Buffer
	s := config.Settings{Sinks: []string{"stdout"}, MetricsPort: -1}

	ctx, cancel := context.WithCancel(context.Background())
	e, err := Bootstrap(ctx, s, Options{
		Completer: tu.Completer(),
		Logger:    logging.Discard(),
		Stdout:    &out,
		Listener:  lis,
	})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	c, err := transport.Dial("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	defer c.Close()

	doc, err := c.Complete(ctx, tu.Raw())
	require.NoError(t, err)
	require.Equal(t, tu.RunID, doc["prod_id"])
	require.Contains(t, out.String(), tu.RunID)

	raw := tu.Raw()
	delete(raw, "prod_type")
	_, err = c.Validate(ctx, raw)
	require.ErrorIs(t, err, validate.ErrInvalidConfig)

	cancel()
	require.NoError(t, <-done)
}

func TestBootstrap_UnknownSink(t *testing.T) {
	_, err := Bootstrap(context.Background(), config.Settings{Sinks: []string{"s3"}}, Options{
		Completer: tu.Completer(),
		Listener:  bufconn.Listen(1024),
	})
	require.Error(t, err)
}
