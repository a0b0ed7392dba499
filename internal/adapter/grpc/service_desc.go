package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Service names exposed by the server
const (
	PortfolioServiceName = "cryptodash.v1.Portfolio"
	// MarketHealthService is the health-check name tracking live vs fallback market data
	MarketHealthService = "cryptodash.v1.Market"
)

// PortfolioServer is the server API for the Portfolio service.
// Requests and responses are google.protobuf.Struct documents.
type PortfolioServer interface {
	GetMarketSnapshot(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RefreshMarket(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AddPosition(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RemovePosition(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListPositions(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetTotals(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListTransactions(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(srv PortfolioServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)

func unaryMethod(name string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(PortfolioServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + PortfolioServiceName + "/" + name,
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(PortfolioServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// PortfolioServiceDesc describes the Portfolio service for grpc.Server.RegisterService
var PortfolioServiceDesc = grpc.ServiceDesc{
	ServiceName: PortfolioServiceName,
	HandlerType: (*PortfolioServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("GetMarketSnapshot", PortfolioServer.GetMarketSnapshot),
		unaryMethod("RefreshMarket", PortfolioServer.RefreshMarket),
		unaryMethod("AddPosition", PortfolioServer.AddPosition),
		unaryMethod("RemovePosition", PortfolioServer.RemovePosition),
		unaryMethod("ListPositions", PortfolioServer.ListPositions),
		unaryMethod("GetTotals", PortfolioServer.GetTotals),
		unaryMethod("ListTransactions", PortfolioServer.ListTransactions),
	},
	Streams:  []grpc.StreamDesc{},
	// No file descriptor is registered under this name; reflection lists the service only.
	Metadata: "cryptodash/v1/portfolio.proto",
}

// RegisterPortfolioServer registers srv on s
func RegisterPortfolioServer(s grpc.ServiceRegistrar, srv PortfolioServer) {
	s.RegisterService(&PortfolioServiceDesc, srv)
}

// PortfolioClient calls the Portfolio service
type PortfolioClient struct {
	cc grpc.ClientConnInterface
}

// NewPortfolioClient creates a client over cc
func NewPortfolioClient(cc grpc.ClientConnInterface) *PortfolioClient {
	return &PortfolioClient{cc: cc}
}

// Call invokes method with in and returns the response document
func (c *PortfolioClient) Call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if in == nil {
		in = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+PortfolioServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
