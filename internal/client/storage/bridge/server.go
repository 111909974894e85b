package bridge

import (
	"context"
	"net"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/peng0105/password-xl/internal/client/storage"
	"github.com/peng0105/password-xl/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Server exposes a host-side adapter to bridge clients.
type Server struct {
	backend storage.Adapter
	logger  logging.Logger

	mu       sync.Mutex
	sessions map[string]struct{}
}

func (*Server) bridge() {}

func NewServer(backend storage.Adapter, l logging.Logger) *Server {
	return &Server{
		backend:  backend,
		logger:   logging.OrDiscard(l).With("module", "bridge_server"),
		sessions: make(map[string]struct{}),
	}
}

// Listen opens address; "unix:/path" listens on a unix socket, anything
// else on TCP.
func Listen(address string) (net.Listener, error) {
	if p, ok := strings.CutPrefix(address, "unix:"); ok {
		return net.Listen("unix", strings.TrimPrefix(p, "//"))
	}
	return net.Listen("tcp", address)
}

// Serve accepts bridge clients on lis until ctx is done.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.sessionInterceptor))
	srv.RegisterService(&serviceDesc, s)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping bridge server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting bridge server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}
	return nil
}

// Run is Serve on a listener opened with Listen.
func (s *Server) Run(ctx context.Context, address string) error {
	lis, err := Listen(address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, lis)
}

func (s *Server) sessionInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if info.FullMethod == fullMethod(methodLogin) {
		return handler(ctx, req)
	}

	var session string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(SessionHeaderName); len(values) > 0 {
			session = values[0]
		}
	}
	if !s.known(session) {
		return nil, status.Error(codes.Unauthenticated, "not logged in")
	}
	return handler(ctx, req)
}

func (s *Server) known(session string) bool {
	if session == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[session]
	return ok
}

func (s *Server) login(ctx context.Context, in *structpb.Struct) (*wrapperspb.StringValue, error) {
	form, err := structToForm(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid login form")
	}
	if err := s.backend.Login(ctx, form); err != nil {
		s.logger.Warn(ctx, "backend login failed", "error", storage.UserMessage(err))
		return nil, toStatus(err)
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = struct{}{}
	s.mu.Unlock()

	s.logger.Info(ctx, "bridge client logged in", "loginType", form.LoginType)
	return wrapperspb.String(id), nil
}

func (s *Server) read(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	content, tag, err := s.backend.Read(ctx, in.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"content": structpb.NewStringValue(content),
		"tag":     structpb.NewStringValue(tag),
	}}, nil
}

func (s *Server) write(ctx context.Context, in *structpb.Struct) (*wrapperspb.StringValue, error) {
	tag, err := s.backend.Write(ctx, stringField(in, "name"), stringField(in, "content"))
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.String(tag), nil
}

func (s *Server) remove(ctx context.Context, in *wrapperspb.StringValue) (*emptypb.Empty, error) {
	if err := s.backend.Remove(ctx, in.GetValue()); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *Server) tag(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	tag, err := s.backend.Tag(ctx, in.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.String(tag), nil
}

func (s *Server) upload(ctx context.Context, in *structpb.Struct) (*wrapperspb.StringValue, error) {
	data, err := bytesField(in, "data")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid attachment data")
	}
	key, err := s.backend.UploadBinary(ctx, data, stringField(in, "fileName"), stringField(in, "prefix"))
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.String(key), nil
}

func (s *Server) capabilities(ctx context.Context) (*structpb.Struct, error) {
	c := s.backend.Capabilities()
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"note":       structpb.NewBoolValue(c.Note),
		"binary":     structpb.NewBoolValue(c.Binary),
		"versioning": structpb.NewBoolValue(c.Versioning),
	}}, nil
}
