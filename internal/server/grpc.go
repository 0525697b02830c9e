package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/xtding233/coinmerge/internal/session"
)

const SessionServiceName = "coinmerge.v1.SessionService"

// SessionServiceServer is the gRPC face of Hub. Requests and responses are
// google.protobuf.Struct values carrying the same JSON as the HTTP API.
type SessionServiceServer interface {
	Create(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Get(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Start(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Restart(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Preview(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Drop(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Tick(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Delete(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type structCall func(SessionServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(name string, call structCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			svc := srv.(SessionServiceServer)
			if interceptor == nil {
				return call(svc, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + SessionServiceName + "/" + name}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(svc, ctx, req.(*structpb.Struct))
			})
		},
	}
}

var sessionServiceDesc = grpc.ServiceDesc{
	ServiceName: SessionServiceName,
	HandlerType: (*SessionServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Create", SessionServiceServer.Create),
		unary("Get", SessionServiceServer.Get),
		unary("Start", SessionServiceServer.Start),
		unary("Restart", SessionServiceServer.Restart),
		unary("Preview", SessionServiceServer.Preview),
		unary("Drop", SessionServiceServer.Drop),
		unary("Tick", SessionServiceServer.Tick),
		unary("Delete", SessionServiceServer.Delete),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "coinmerge/v1/session.proto",
}

func RegisterSessionServiceServer(s grpc.ServiceRegistrar, srv SessionServiceServer) {
	s.RegisterService(&sessionServiceDesc, srv)
}

// SessionService adapts Hub onto SessionServiceServer.
type SessionService struct {
	hub *Hub
}

var _ SessionServiceServer = (*SessionService)(nil)

func NewSessionService(hub *Hub) *SessionService {
	return &SessionService{hub: hub}
}

type idReq struct {
	ID string `json:"id"`
}

type createRPCReq struct {
	Profile string `json:"profile"`
}

type moveReq struct {
	ID string   `json:"id"`
	X  *float64 `json:"x"`
	Y  *float64 `json:"y"`
}

type tickRPCReq struct {
	ID string `json:"id"`
	TickRequest
}

func (s *SessionService) Create(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req createRPCReq
	if err := decodeStruct(in, &req); err != nil {
		return nil, err
	}
	return respond(s.hub.Create(req.Profile))
}

func (s *SessionService) Get(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req idReq
	if err := decodeStruct(in, &req); err != nil {
		return nil, err
	}
	return respond(s.hub.Get(req.ID))
}

func (s *SessionService) Start(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req idReq
	if err := decodeStruct(in, &req); err != nil {
		return nil, err
	}
	snap, ok, err := s.hub.Start(req.ID)
	if err != nil {
		return nil, statusErr(err)
	}
	if !ok {
		return nil, status.Error(codes.FailedPrecondition, "session is over, restart it")
	}
	return encodeStruct(snap)
}

func (s *SessionService) Restart(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req idReq
	if err := decodeStruct(in, &req); err != nil {
		return nil, err
	}
	return respond(s.hub.Restart(req.ID))
}

func (s *SessionService) Preview(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req moveReq
	if err := decodeStruct(in, &req); err != nil {
		return nil, err
	}
	if req.X == nil {
		return nil, status.Error(codes.InvalidArgument, "x is required")
	}
	return respond(s.hub.Preview(req.ID, *req.X))
}

func (s *SessionService) Drop(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req moveReq
	if err := decodeStruct(in, &req); err != nil {
		return nil, err
	}
	if req.X == nil {
		return nil, status.Error(codes.InvalidArgument, "x is required")
	}
	return respond(s.hub.Drop(req.ID, *req.X, req.Y))
}

func (s *SessionService) Tick(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req tickRPCReq
	if err := decodeStruct(in, &req); err != nil {
		return nil, err
	}
	return respond(s.hub.Tick(req.ID, req.TickRequest))
}

func (s *SessionService) Delete(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req idReq
	if err := decodeStruct(in, &req); err != nil {
		return nil, err
	}
	if err := s.hub.Delete(req.ID); err != nil {
		return nil, statusErr(err)
	}
	return structpb.NewStruct(map[string]any{"id": req.ID, "deleted": true})
}

func respond(snap Snapshot, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, statusErr(err)
	}
	return encodeStruct(snap)
}

// decodeStruct round-trips in through protojson into a Go request type.
func decodeStruct(in *structpb.Struct, out any) error {
	if in == nil {
		return nil
	}
	data, err := protojson.Marshal(in)
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "encode request: %v", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return status.Errorf(codes.InvalidArgument, "decode request: %v", err)
	}
	return nil
}

func encodeStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

func statusErr(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ErrBadRequest), errors.Is(err, session.ErrConfiguration):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// SessionClient calls SessionService over a client connection.
type SessionClient struct {
	cc grpc.ClientConnInterface
}

func NewSessionClient(cc grpc.ClientConnInterface) *SessionClient {
	return &SessionClient{cc: cc}
}

// Call invokes method with a JSON-shaped request and returns the JSON-shaped reply.
func (c *SessionClient) Call(ctx context.Context, method string, req map[string]any, opts ...grpc.CallOption) (map[string]any, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+SessionServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}
