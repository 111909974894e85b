package bridge

import (
	"context"
	"strings"
	"sync"

	"github.com/peng0105/password-xl/internal/client/models"
	"github.com/peng0105/password-xl/internal/client/storage"
	"github.com/peng0105/password-xl/internal/common"
	"github.com/peng0105/password-xl/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Storage is the bridge client backend.
type Storage struct {
	logger   logging.Logger
	dialOpts []grpc.DialOption

	mu      sync.RWMutex
	conn    *grpc.ClientConn
	session string
	caps    storage.Capabilities
}

var _ storage.Adapter = (*Storage)(nil)

type Option func(*Storage)

// WithDialOptions adds grpc dial options, e.g. a custom dialer.
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(s *Storage) {
		s.dialOpts = append(s.dialOpts, opts...)
	}
}

func New(logger logging.Logger, opts ...Option) *Storage {
	s := &Storage{
		logger:   logging.OrDiscard(logger).With("module", "bridge_storage"),
		dialOpts: []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Login connects to the host at form.BridgeAddr and logs its backend in
// with the rest of the form.
func (s *Storage) Login(ctx context.Context, form models.LoginForm) error {
	addr := strings.TrimSpace(form.BridgeAddr)
	if addr == "" {
		return storage.NewError(common.ErrMalformedEndpoint, "host application address required", nil)
	}

	conn, err := grpc.NewClient(addr, s.dialOpts...)
	if err != nil {
		return storage.NewError(common.ErrMalformedEndpoint, "invalid host application address", err)
	}

	in, err := formToStruct(form)
	if err != nil {
		_ = conn.Close()
		return storage.NewError(common.ErrMalformedEndpoint, "invalid login form", err)
	}

	var session wrapperspb.StringValue
	if err := conn.Invoke(ctx, fullMethod(methodLogin), in, &session); err != nil {
		_ = conn.Close()
		err = fromStatus(err)
		s.logger.Warn(ctx, "bridge login failed", "address", addr, "error", storage.UserMessage(err))
		return err
	}

	var caps structpb.Struct
	md := metadata.Pairs(SessionHeaderName, session.GetValue())
	if err := conn.Invoke(metadata.NewOutgoingContext(ctx, md), fullMethod(methodCapabilities), &emptypb.Empty{}, &caps); err != nil {
		_ = conn.Close()
		return fromStatus(err)
	}

	s.mu.Lock()
	old := s.conn
	s.conn = conn
	s.session = session.GetValue()
	s.caps = storage.Capabilities{
		Note:       caps.GetFields()["note"].GetBoolValue(),
		Binary:     caps.GetFields()["binary"].GetBoolValue(),
		Versioning: caps.GetFields()["versioning"].GetBoolValue(),
	}
	s.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	return nil
}

// Close drops the connection to the host.
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	s.session = ""
	return err
}

func (s *Storage) invoke(ctx context.Context, name string, in, out proto.Message) error {
	s.mu.RLock()
	conn, session := s.conn, s.session
	s.mu.RUnlock()

	if conn == nil {
		return storage.NewError(common.ErrAuth, "not logged in", nil)
	}

	ctx = metadata.AppendToOutgoingContext(ctx, SessionHeaderName, session)
	return fromStatus(conn.Invoke(ctx, fullMethod(name), in, out))
}

func (s *Storage) Read(ctx context.Context, name string) (string, string, error) {
	var out structpb.Struct
	if err := s.invoke(ctx, methodRead, wrapperspb.String(name), &out); err != nil {
		return "", "", err
	}
	return stringField(&out, "content"), stringField(&out, "tag"), nil
}

func (s *Storage) Write(ctx context.Context, name, content string) (string, error) {
	in := &structpb.Struct{Fields: map[string]*structpb.Value{
		"name":    structpb.NewStringValue(name),
		"content": structpb.NewStringValue(content),
	}}
	var out wrapperspb.StringValue
	if err := s.invoke(ctx, methodWrite, in, &out); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}

func (s *Storage) Remove(ctx context.Context, name string) error {
	return s.invoke(ctx, methodRemove, wrapperspb.String(name), &emptypb.Empty{})
}

func (s *Storage) Tag(ctx context.Context, name string) (string, error) {
	var out wrapperspb.StringValue
	if err := s.invoke(ctx, methodTag, wrapperspb.String(name), &out); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}

func (s *Storage) UploadBinary(ctx context.Context, data []byte, fileName, prefix string) (string, error) {
	in := &structpb.Struct{Fields: map[string]*structpb.Value{
		"data":     bytesValue(data),
		"fileName": structpb.NewStringValue(fileName),
		"prefix":   structpb.NewStringValue(prefix),
	}}
	var out wrapperspb.StringValue
	if err := s.invoke(ctx, methodUpload, in, &out); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}

// Capabilities are those the host reported at login.
func (s *Storage) Capabilities() storage.Capabilities {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.caps
}
