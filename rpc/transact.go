package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// TransactServiceName is the fully qualified name of the transition service.
const TransactServiceName = "bui.ledger.v1.Transact"

// TransactServer is the server API for registry transitions.
//
// Every request carries the call context in "caller" (hex address), "value"
// (ether decimal string, absent means zero) and "time" (unix seconds, absent
// means the ledger clock) next to the method arguments. The service is
// described in transact.proto.
type TransactServer interface {
	RegisterStake(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UnregisterStake(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetStakingCost(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Publish(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateMetaURI(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetDeprecated(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetOrigin(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RemoveOrigin(context.Context, *structpb.Struct) (*structpb.Struct, error)
	TransferBlock(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetPublishPrice(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RegisterOrigin(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UnregisterOrigin(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetMinimumBalance(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListBlock(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Delist(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetListingPrice(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PurchaseLicense(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Withdraw(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// UnimplementedTransactServer can be embedded to have forward compatible implementations.
type UnimplementedTransactServer struct{}

func unimplemented(method string) error {
	return status.Errorf(codes.Unimplemented, "method %s not implemented", method)
}

func (UnimplementedTransactServer) RegisterStake(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("RegisterStake")
}
func (UnimplementedTransactServer) UnregisterStake(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("UnregisterStake")
}
func (UnimplementedTransactServer) SetStakingCost(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("SetStakingCost")
}
func (UnimplementedTransactServer) Publish(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("Publish")
}
func (UnimplementedTransactServer) UpdateMetaURI(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("UpdateMetaURI")
}
func (UnimplementedTransactServer) SetDeprecated(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("SetDeprecated")
}
func (UnimplementedTransactServer) SetOrigin(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("SetOrigin")
}
func (UnimplementedTransactServer) RemoveOrigin(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("RemoveOrigin")
}
func (UnimplementedTransactServer) TransferBlock(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("TransferBlock")
}
func (UnimplementedTransactServer) SetPublishPrice(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("SetPublishPrice")
}
func (UnimplementedTransactServer) RegisterOrigin(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("RegisterOrigin")
}
func (UnimplementedTransactServer) UnregisterOrigin(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("UnregisterOrigin")
}
func (UnimplementedTransactServer) SetMinimumBalance(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("SetMinimumBalance")
}
func (UnimplementedTransactServer) ListBlock(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("ListBlock")
}
func (UnimplementedTransactServer) Delist(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("Delist")
}
func (UnimplementedTransactServer) SetListingPrice(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("SetListingPrice")
}
func (UnimplementedTransactServer) PurchaseLicense(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("PurchaseLicense")
}
func (UnimplementedTransactServer) Withdraw(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("Withdraw")
}

// RegisterTransactServer registers the transition service on a gRPC server.
func RegisterTransactServer(s grpc.ServiceRegistrar, srv TransactServer) {
	s.RegisterService(&Transact_ServiceDesc, srv)
}

// TransactClient is the client API for the transition service. Every method
// shares the Struct request and reply shape.
type TransactClient interface {
	Invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type transactClient struct{ cc grpc.ClientConnInterface }

func NewTransactClient(cc grpc.ClientConnInterface) TransactClient { return &transactClient{cc: cc} }

func (c *transactClient) Invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, TransactServiceName, method, in, opts)
}

func transition(method string, fn func(TransactServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodDesc {
	return unary(TransactServiceName, method, fn)
}

// Transact_ServiceDesc is the grpc.ServiceDesc for the transition service.
var Transact_ServiceDesc = grpc.ServiceDesc{
	ServiceName: TransactServiceName,
	HandlerType: (*TransactServer)(nil),
	Methods: []grpc.MethodDesc{
		transition("RegisterStake", TransactServer.RegisterStake),
		transition("UnregisterStake", TransactServer.UnregisterStake),
		transition("SetStakingCost", TransactServer.SetStakingCost),
		transition("Publish", TransactServer.Publish),
		transition("UpdateMetaURI", TransactServer.UpdateMetaURI),
		transition("SetDeprecated", TransactServer.SetDeprecated),
		transition("SetOrigin", TransactServer.SetOrigin),
		transition("RemoveOrigin", TransactServer.RemoveOrigin),
		transition("TransferBlock", TransactServer.TransferBlock),
		transition("SetPublishPrice", TransactServer.SetPublishPrice),
		transition("RegisterOrigin", TransactServer.RegisterOrigin),
		transition("UnregisterOrigin", TransactServer.UnregisterOrigin),
		transition("SetMinimumBalance", TransactServer.SetMinimumBalance),
		transition("ListBlock", TransactServer.ListBlock),
		transition("Delist", TransactServer.Delist),
		transition("SetListingPrice", TransactServer.SetListingPrice),
		transition("PurchaseLicense", TransactServer.PurchaseLicense),
		transition("Withdraw", TransactServer.Withdraw),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "transact.proto",
}
