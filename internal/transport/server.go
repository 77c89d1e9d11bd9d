package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"lstmcpipe/internal/complete"
	"lstmcpipe/internal/logging"
	"lstmcpipe/internal/schema"
	"lstmcpipe/internal/telemetry"
	"lstmcpipe/internal/validate"
	"lstmcpipe/sink"
)

const ServiceName = "lstmcpipe.config.v1.ConfigService"

// SinkErrorTrailer names the trailer carrying a sink delivery failure.
const SinkErrorTrailer = "lstmcpipe-sink-error"

// ConfigServer is the RPC surface over the validator and completer.
// Documents travel as google.protobuf.Struct.
type ConfigServer interface {
	Validate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Complete(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// Processor validates, completes and delivers a raw document.
type Processor interface {
	Process(ctx context.Context, raw map[string]any) (complete.Completed, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ConfigServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Validate", Handler: validateHandler},
		{MethodName: "Complete", Handler: completeHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "lstmcpipe/config/v1/config.proto",
}

func RegisterConfigServer(s grpc.ServiceRegistrar, srv ConfigServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func validateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ConfigServer).Validate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/Validate"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ConfigServer).Validate(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func completeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ConfigServer).Complete(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/Complete"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ConfigServer).Complete(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// ConfigService implements ConfigServer.
type ConfigService struct {
	proc    Processor
	metrics *telemetry.Metrics
	log     *slog.Logger
}

func NewConfigService(p Processor, m *telemetry.Metrics, l *slog.Logger) *ConfigService {
	if l == nil {
		l = logging.Discard()
	}
	return &ConfigService{proc: p, metrics: m, log: l}
}

func (s *ConfigService) Validate(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	v, err := validate.Validate(req.AsMap())
	if s.metrics != nil {
		s.metrics.ObserveValidation(err)
	}
	if err != nil {
		return nil, toStatus(err)
	}
	return structpb.NewStruct(map[string]any{
		"valid":                true,
		schema.KeyWorkflowKind: string(v.WorkflowKind()),
		schema.KeyProdType:     string(v.ProductionType()),
	})
}

// Complete also delivers the document to the server's sinks. A sink
// failure does not fail the call: the completed document is returned and
// the failure is reported in the SinkErrorTrailer trailer.
func (s *ConfigService) Complete(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	out, err := s.proc.Process(ctx, req.AsMap())
	var de *sink.DeliveryError
	switch {
	case errors.As(err, &de) && out.RunIdentifier() != "":
		s.log.Warn("rpc completion not delivered", "prod_id", out.RunIdentifier(), "err", err)
		_ = grpc.SetTrailer(ctx, metadata.Pairs(SinkErrorTrailer, de.Error()))
	case err != nil:
		s.log.Warn("rpc completion failed", "err", err)
		return nil, toStatus(err)
	}
	resp, err := structpb.NewStruct(out.Map())
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode completed configuration: %v", err)
	}
	return resp, nil
}

func toStatus(err error) error {
	var ee *complete.EnvironmentResolutionError
	switch {
	case errors.Is(err, validate.ErrInvalidConfig):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.As(err, &ee):
		return status.Error(codes.FailedPrecondition, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

type Server struct {
	grpc *grpc.Server
	lis  net.Listener
}

func StartServer(port int, svc ConfigServer) (*Server, error) {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, err
	}
	return NewServer(lis, svc), nil
}

// NewServer registers svc on a fresh grpc.Server bound to lis.
func NewServer(lis net.Listener, svc ConfigServer) *Server {
	s := &Server{
		grpc: grpc.NewServer(),
		lis:  lis,
	}
	RegisterConfigServer(s.grpc, svc)
	return s
}

func (s *Server) Addr() net.Addr { return s.lis.Addr() }
func (s *Server) Serve() error   { return s.grpc.Serve(s.lis) }
func (s *Server) Stop()          { s.grpc.GracefulStop() }
