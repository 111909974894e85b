// Package bridge reaches a storage backend owned by a host shell over gRPC.
//
// The host runs Server in front of its own storage.Adapter; the client side
// is Storage, itself an Adapter. Messages are protobuf well-known types so
// the service needs no generated code: blob names and tags travel as
// StringValue, composite payloads as Struct.
package bridge

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/peng0105/password-xl/internal/client/models"
	"github.com/peng0105/password-xl/internal/client/storage"
	"github.com/peng0105/password-xl/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const serviceName = "passwordxl.bridge.Bridge"

// SessionHeaderName carries the session id issued by Login.
const SessionHeaderName = "x-bridge-session"

const (
	methodLogin        = "Login"
	methodRead         = "Read"
	methodWrite        = "Write"
	methodRemove       = "Remove"
	methodTag          = "Tag"
	methodUpload       = "UploadBinary"
	methodCapabilities = "Capabilities"
)

func fullMethod(name string) string {
	return "/" + serviceName + "/" + name
}

// handler is the HandlerType of the service; only *Server implements it.
type handler interface {
	bridge()
}

func method(name string, newReq func() proto.Message, call func(*Server, context.Context, proto.Message) (proto.Message, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := newReq()
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(*Server)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(proto.Message))
			})
		},
	}
}

func newString() proto.Message { return new(wrapperspb.StringValue) }
func newStruct() proto.Message { return new(structpb.Struct) }
func newEmpty() proto.Message  { return new(emptypb.Empty) }

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*handler)(nil),
	Methods: []grpc.MethodDesc{
		method(methodLogin, newStruct, func(s *Server, ctx context.Context, in proto.Message) (proto.Message, error) {
			return s.login(ctx, in.(*structpb.Struct))
		}),
		method(methodRead, newString, func(s *Server, ctx context.Context, in proto.Message) (proto.Message, error) {
			return s.read(ctx, in.(*wrapperspb.StringValue))
		}),
		method(methodWrite, newStruct, func(s *Server, ctx context.Context, in proto.Message) (proto.Message, error) {
			return s.write(ctx, in.(*structpb.Struct))
		}),
		method(methodRemove, newString, func(s *Server, ctx context.Context, in proto.Message) (proto.Message, error) {
			return s.remove(ctx, in.(*wrapperspb.StringValue))
		}),
		method(methodTag, newString, func(s *Server, ctx context.Context, in proto.Message) (proto.Message, error) {
			return s.tag(ctx, in.(*wrapperspb.StringValue))
		}),
		method(methodUpload, newStruct, func(s *Server, ctx context.Context, in proto.Message) (proto.Message, error) {
			return s.upload(ctx, in.(*structpb.Struct))
		}),
		method(methodCapabilities, newEmpty, func(s *Server, ctx context.Context, in proto.Message) (proto.Message, error) {
			return s.capabilities(ctx)
		}),
	},
	Streams: []grpc.StreamDesc{},
}

func formToStruct(form models.LoginForm) (*structpb.Struct, error) {
	raw, err := json.Marshal(form)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

func structToForm(st *structpb.Struct) (models.LoginForm, error) {
	var form models.LoginForm
	raw, err := json.Marshal(st.AsMap())
	if err != nil {
		return form, err
	}
	err = json.Unmarshal(raw, &form)
	return form, err
}

func stringField(st *structpb.Struct, key string) string {
	return st.GetFields()[key].GetStringValue()
}

func bytesField(st *structpb.Struct, key string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(stringField(st, key))
}

func bytesValue(b []byte) *structpb.Value {
	return structpb.NewStringValue(base64.StdEncoding.EncodeToString(b))
}

var kindCodes = []struct {
	kind error
	code codes.Code
}{
	{common.ErrAuth, codes.Unauthenticated},
	{common.ErrPermission, codes.PermissionDenied},
	{common.ErrNotFound, codes.NotFound},
	{common.ErrConflict, codes.Aborted},
	{common.ErrMalformedEndpoint, codes.InvalidArgument},
	{common.ErrUnsupported, codes.Unimplemented},
	{common.ErrTransport, codes.Unavailable},
	{common.ErrServer, codes.Internal},
}

// toStatus turns a backend error into a gRPC status carrying the user
// message.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	for _, kc := range kindCodes {
		if errors.Is(err, kc.kind) {
			return status.Error(kc.code, storage.UserMessage(err))
		}
	}
	return status.Error(codes.Internal, storage.UserMessage(err))
}

// fromStatus is the inverse of toStatus on the client side.
func fromStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return storage.Classify(err)
	}
	switch st.Code() {
	case codes.Canceled, codes.DeadlineExceeded:
		return storage.NewError(common.ErrTransport, "request timed out or was cancelled", err)
	case codes.Unavailable:
		if isTransportMessage(st.Message()) {
			return storage.NewError(common.ErrTransport, "unable to connect to the host application", err)
		}
	}
	for _, kc := range kindCodes {
		if kc.code == st.Code() {
			return storage.NewError(kc.kind, st.Message(), err)
		}
	}
	return storage.NewError(common.ErrServer, fmt.Sprintf("host application error: %s", st.Message()), err)
}

// isTransportMessage reports whether an Unavailable status came from grpc
// itself rather than from the host's backend.
func isTransportMessage(msg string) bool {
	msg = strings.ToLower(msg)
	for _, p := range []string{"connection error", "name resolver", "dial", "connect:"} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
