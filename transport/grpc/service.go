package grpc

import (
	"context"

	"google.golang.org/grpc"
)

// OrchestratorService is implemented by the server-side handler for the
// four orchestrator RPCs (spec §4.8's start/cancel/get_status/
// list_sessions, exposed over the network per SPEC_FULL.md §4.9).
type OrchestratorService interface {
	StartRun(ctx context.Context, req *StartRunRequest) (*StartRunResponse, error)
	CancelRun(ctx context.Context, req *CancelRunRequest) (*CancelRunResponse, error)
	GetStatus(ctx context.Context, req *GetStatusRequest) (*GetStatusResponse, error)
	ListSessions(ctx context.Context, req *ListSessionsRequest) (*ListSessionsResponse, error)
}

const orchestratorServiceName = "sentinel.orchestrator.v1.OrchestratorService"

func _Orchestrator_StartRun_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(StartRunRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrchestratorService).StartRun(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + orchestratorServiceName + "/StartRun"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(OrchestratorService).StartRun(ctx, req.(*StartRunRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Orchestrator_CancelRun_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(CancelRunRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrchestratorService).CancelRun(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + orchestratorServiceName + "/CancelRun"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(OrchestratorService).CancelRun(ctx, req.(*CancelRunRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Orchestrator_GetStatus_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetStatusRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrchestratorService).GetStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + orchestratorServiceName + "/GetStatus"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(OrchestratorService).GetStatus(ctx, req.(*GetStatusRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Orchestrator_ListSessions_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ListSessionsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrchestratorService).ListSessions(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + orchestratorServiceName + "/ListSessions"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(OrchestratorService).ListSessions(ctx, req.(*ListSessionsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// orchestratorServiceDesc is the manually authored service description
// SPEC_FULL.md §4.9 calls for in place of a protoc-generated one.
var orchestratorServiceDesc = grpc.ServiceDesc{
	ServiceName: orchestratorServiceName,
	HandlerType: (*OrchestratorService)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "StartRun", Handler: _Orchestrator_StartRun_Handler},
		{MethodName: "CancelRun", Handler: _Orchestrator_CancelRun_Handler},
		{MethodName: "GetStatus", Handler: _Orchestrator_GetStatus_Handler},
		{MethodName: "ListSessions", Handler: _Orchestrator_ListSessions_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "sentinel/orchestrator/v1/orchestrator.proto",
}

// RegisterOrchestratorServiceServer registers srv with s under the
// hand-authored service description.
func RegisterOrchestratorServiceServer(s grpc.ServiceRegistrar, srv OrchestratorService) {
	s.RegisterService(&orchestratorServiceDesc, srv)
}

// orchestratorClient is a thin hand-authored client stub, the mirror image
// of the handler functions above.
type orchestratorClient struct {
	cc grpc.ClientConnInterface
}

// NewOrchestratorServiceClient wraps a gRPC client connection (dialed with
// grpc.WithDefaultCallOptions(grpc.ForceCodec(wireCodec{})), see codec.go)
// as an OrchestratorService client.
func NewOrchestratorServiceClient(cc grpc.ClientConnInterface) OrchestratorService {
	return &orchestratorClient{cc: cc}
}

func (c *orchestratorClient) StartRun(ctx context.Context, req *StartRunRequest) (*StartRunResponse, error) {
	out := new(StartRunResponse)
	if err := c.cc.Invoke(ctx, "/"+orchestratorServiceName+"/StartRun", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *orchestratorClient) CancelRun(ctx context.Context, req *CancelRunRequest) (*CancelRunResponse, error) {
	out := new(CancelRunResponse)
	if err := c.cc.Invoke(ctx, "/"+orchestratorServiceName+"/CancelRun", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *orchestratorClient) GetStatus(ctx context.Context, req *GetStatusRequest) (*GetStatusResponse, error) {
	out := new(GetStatusResponse)
	if err := c.cc.Invoke(ctx, "/"+orchestratorServiceName+"/GetStatus", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *orchestratorClient) ListSessions(ctx context.Context, req *ListSessionsRequest) (*ListSessionsResponse, error) {
	out := new(ListSessionsResponse)
	if err := c.cc.Invoke(ctx, "/"+orchestratorServiceName+"/ListSessions", req, out); err != nil {
		return nil, err
	}
	return out, nil
}
