package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// The sidecar contract is a single unary method. The request is a
// google.protobuf.Struct with fields system_blocks (list of strings), user,
// temperature and max_tokens; the reply is a google.protobuf.StringValue.
const (
	generatorServiceName = "edem.generator.v1.Generator"
	generateMethod       = "/" + generatorServiceName + "/Generate"
)

var (
	errConnectionShutdown       = errors.New("connection shutdown")
	errConnectionStateUnchanged = errors.New("connection state did not change")
)

// GRPCConfig holds connection settings for the generator sidecar.
type GRPCConfig struct {
	Address          string
	ConnectTimeout   time.Duration
	KeepaliveTime    time.Duration
	KeepaliveTimeout time.Duration
}

// DefaultGRPCConfig returns default connection settings.
func DefaultGRPCConfig(addr string) GRPCConfig {
	return GRPCConfig{
		Address:          addr,
		ConnectTimeout:   5 * time.Second,
		KeepaliveTime:    2 * time.Minute,
		KeepaliveTimeout: 10 * time.Second,
	}
}

// GRPC calls a generation sidecar over gRPC.
type GRPC struct {
	conn     *grpc.ClientConn
	sampling Sampling
	logger   *slog.Logger
}

// NewGRPC dials the sidecar and waits until the connection is ready so a bad
// address fails at startup instead of on the first turn.
func NewGRPC(cfg GRPCConfig, sampling Sampling, logger *slog.Logger) (*GRPC, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := grpc.NewClient(cfg.Address,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:    cfg.KeepaliveTime,
			Timeout: cfg.KeepaliveTimeout,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create generator client for %s: %w", cfg.Address, err)
	}

	connectCtx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()
	if err := waitForReady(connectCtx, conn); err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			logger.Warn("failed to close gRPC connection after readiness failure", "error", closeErr)
		}
		return nil, fmt.Errorf("generator sidecar at %s not ready: %w", cfg.Address, err)
	}

	logger.Info("Connected to generator sidecar", "address", cfg.Address)
	return NewGRPCWithConn(conn, sampling, logger), nil
}

// NewGRPCWithConn wraps an existing client connection.
func NewGRPCWithConn(conn *grpc.ClientConn, sampling Sampling, logger *slog.Logger) *GRPC {
	if logger == nil {
		logger = slog.Default()
	}
	return &GRPC{conn: conn, sampling: sampling, logger: logger}
}

func waitForReady(ctx context.Context, conn *grpc.ClientConn) error {
	for {
		state := conn.GetState()
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.Idle:
			conn.Connect()
		case connectivity.Shutdown:
			return errConnectionShutdown
		}

		if !conn.WaitForStateChange(ctx, state) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w from %s", errConnectionStateUnchanged, state)
		}
	}
}

// Generate invokes the sidecar once.
func (g *GRPC) Generate(ctx context.Context, req Request) (string, error) {
	in, err := encodeRequest(req, g.sampling)
	if err != nil {
		return "", Permanent(fmt.Errorf("encode generate request: %w", err))
	}

	out := new(wrapperspb.StringValue)
	if err := g.conn.Invoke(ctx, generateMethod, in, out); err != nil {
		switch status.Code(err) {
		case codes.InvalidArgument, codes.Unimplemented, codes.PermissionDenied, codes.Unauthenticated:
			return "", Permanent(fmt.Errorf("generate rpc: %w", err))
		}
		return "", fmt.Errorf("generate rpc: %w", err)
	}
	if out.GetValue() == "" {
		return "", fmt.Errorf("grpc: %w", ErrEmptyResponse)
	}
	return out.GetValue(), nil
}

// Close closes the gRPC connection.
func (g *GRPC) Close() error {
	if g.conn == nil {
		return nil
	}
	return g.conn.Close()
}

func encodeRequest(req Request, sampling Sampling) (*structpb.Struct, error) {
	blocks := make([]any, len(req.SystemBlocks))
	for i, b := range req.SystemBlocks {
		blocks[i] = b
	}
	return structpb.NewStruct(map[string]any{
		"system_blocks": blocks,
		"user":          req.User,
		"model":         sampling.Model,
		"temperature":   sampling.Temperature,
		"max_tokens":    sampling.MaxTokens,
	})
}

func decodeRequest(in *structpb.Struct) Request {
	fields := in.GetFields()
	var req Request
	for _, v := range fields["system_blocks"].GetListValue().GetValues() {
		req.SystemBlocks = append(req.SystemBlocks, v.GetStringValue())
	}
	req.User = fields["user"].GetStringValue()
	return req
}

// RegisterServer exposes gen as a generator sidecar on s.
func RegisterServer(s *grpc.Server, gen Generator) {
	s.RegisterService(&generatorServiceDesc, gen)
}

var generatorServiceDesc = grpc.ServiceDesc{
	ServiceName: generatorServiceName,
	HandlerType: (*Generator)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Generate", Handler: generateHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "edem/generator/v1/generator.proto",
}

func generateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	handle := func(ctx context.Context, req any) (any, error) {
		return serveGenerate(ctx, srv.(Generator), req.(*structpb.Struct))
	}
	if interceptor == nil {
		return handle(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: generateMethod}
	return interceptor(ctx, in, info, handle)
}

func serveGenerate(ctx context.Context, gen Generator, in *structpb.Struct) (*wrapperspb.StringValue, error) {
	req := decodeRequest(in)
	if req.User == "" {
		return nil, status.Error(codes.InvalidArgument, "user message is required")
	}
	text, err := gen.Generate(ctx, req)
	if err != nil {
		return nil, status.Errorf(codes.Unavailable, "generate: %v", err)
	}
	return wrapperspb.String(text), nil
}
