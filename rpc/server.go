package rpc

import (
	"context"
	"math"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"blocksui.xyz/ledger/content"
	"blocksui.xyz/ledger/fingerprint"
	"blocksui.xyz/ledger/ledger"
	"blocksui.xyz/ledger/license"
	"blocksui.xyz/ledger/marketplace"
	"blocksui.xyz/ledger/origin"
	"blocksui.xyz/ledger/origins"
	"blocksui.xyz/ledger/staking"
)

// Server exposes the registries over the Query and Transact gRPC services.
//
// A nil registry makes its methods fail with FailedPrecondition. The caller
// of a transition is taken from the request as given; authenticating it is
// left to whatever fronts the daemon.
type Server struct {
	UnimplementedQueryServer
	UnimplementedTransactServer

	Ledger      *ledger.Ledger
	Staking     *staking.Registry
	Content     *content.Registry
	Origins     *origins.Registry
	Marketplace *marketplace.Registry
	Licenses    *license.Registry
}

func (s *Server) VerifyStake(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	if s.Staking == nil {
		return nil, missing("staking")
	}
	id, err := identity(in.GetValue())
	if err != nil {
		return nil, err
	}
	return wrapperspb.Bool(s.Staking.Verify(ctx, id)), nil
}

func (s *Server) BlockExists(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	if s.Content == nil {
		return nil, missing("content")
	}
	fp, err := fingerprint.FromCID(in.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	return wrapperspb.Bool(s.Content.BlockExists(ctx, fp)), nil
}

func (s *Server) TokenURI(ctx context.Context, in *wrapperspb.UInt64Value) (*wrapperspb.StringValue, error) {
	if s.Content == nil {
		return nil, missing("content")
	}
	uri, err := s.Content.TokenURI(ctx, ledger.TokenID(in.GetValue()))
	if err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.String(uri), nil
}

func (s *Server) BlockForToken(ctx context.Context, in *wrapperspb.UInt64Value) (*structpb.Struct, error) {
	if s.Content == nil {
		return nil, missing("content")
	}
	fp, list, err := s.Content.BlockForToken(ctx, ledger.TokenID(in.GetValue()))
	if err != nil {
		return nil, mapErr(err)
	}
	originList := make([]any, len(list))
	for i, o := range list {
		originList[i] = o
	}
	return newStruct(map[string]any{
		"cid":     fp.CID(),
		"origins": originList,
	})
}

func (s *Server) Listing(ctx context.Context, in *wrapperspb.UInt64Value) (*structpb.Struct, error) {
	if s.Marketplace == nil {
		return nil, missing("marketplace")
	}
	return newStruct(listingFields(s.Marketplace.ListingForTokenID(ctx, ledger.TokenID(in.GetValue()))))
}

func (s *Server) Listings(ctx context.Context, in *structpb.Struct) (*structpb.ListValue, error) {
	if s.Marketplace == nil {
		return nil, missing("marketplace")
	}
	limit, err := uintField(in, "limit")
	if err != nil {
		return nil, err
	}
	offset, err := uintField(in, "offset")
	if err != nil {
		return nil, err
	}
	page, err := s.Marketplace.GetListings(ctx, limit, offset)
	if err != nil {
		return nil, mapErr(err)
	}
	out := make([]any, len(page))
	for i, l := range page {
		out[i] = listingFields(l)
	}
	lv, err := structpb.NewList(out)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return lv, nil
}

func (s *Server) VerifyOrigin(ctx context.Context, in *structpb.Struct) (*wrapperspb.BoolValue, error) {
	if s.Origins == nil {
		return nil, missing("origins")
	}
	h, err := originField(in)
	if err != nil {
		return nil, err
	}
	id, err := identity(in.GetFields()["address"].GetStringValue())
	if err != nil {
		return nil, err
	}
	return wrapperspb.Bool(s.Origins.VerifyOwner(ctx, h, id)), nil
}

func (s *Server) OriginsFor(ctx context.Context, in *wrapperspb.StringValue) (*structpb.ListValue, error) {
	if s.Origins == nil {
		return nil, missing("origins")
	}
	id, err := identity(in.GetValue())
	if err != nil {
		return nil, err
	}
	list := s.Origins.OriginsFor(ctx, id)
	out := make([]any, len(list))
	for i, o := range list {
		out[i] = o
	}
	lv, err := structpb.NewList(out)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return lv, nil
}

func (s *Server) License(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if s.Licenses == nil || s.Ledger == nil {
		return nil, missing("license")
	}
	id, err := uintField(in, "token_id")
	if err != nil {
		return nil, err
	}
	h, err := originField(in)
	if err != nil {
		return nil, err
	}
	lic, ok := s.Licenses.LicenseFor(ctx, ledger.TokenID(id), h)
	if !ok {
		return nil, status.Errorf(codes.NotFound, "no license for token %d and origin %s", id, h)
	}
	return newStruct(licenseFields(lic, s.Ledger.Now()))
}

func (s *Server) Balance(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	if s.Ledger == nil {
		return nil, missing("ledger")
	}
	id, err := identity(in.GetValue())
	if err != nil {
		return nil, err
	}
	return wrapperspb.String(s.Ledger.Balance(ctx, id).String()), nil
}

func licenseFields(lic license.License, now time.Time) map[string]any {
	return map[string]any{
		"token_id":         uint64(lic.TokenID),
		"origin":           lic.Origin.Hex(),
		"licensee":         lic.Licensee.String(),
		"duration_seconds": lic.DurationSeconds,
		"issued_at":        lic.IssuedAt.Unix(),
		"expires_at":       lic.ExpiresAt.Unix(),
		"active":           lic.Active(now),
	}
}

func listingFields(l marketplace.Listing) map[string]any {
	return map[string]any{
		"token_id":      uint64(l.TokenID),
		"metadata_uri":  l.MetadataURI,
		"price_per_day": l.PricePerDay.String(),
		"price":         l.Price.String(),
		"tier":          l.Tier,
		"licensable":    l.Licensable,
		"owner":         l.Owner.String(),
	}
}

func newStruct(m map[string]any) (*structpb.Struct, error) {
	st, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return st, nil
}

func identity(s string) (ledger.Identity, error) {
	id, err := ledger.ParseIdentity(s)
	if err != nil {
		return ledger.Identity{}, status.Error(codes.InvalidArgument, err.Error())
	}
	return id, nil
}

// originField reads "origin_hash" when present and hashes "origin" otherwise.
func originField(in *structpb.Struct) (origin.Hash, error) {
	fields := in.GetFields()
	if v := fields["origin_hash"].GetStringValue(); v != "" {
		h, err := origin.ParseHash(v)
		if err != nil {
			return origin.Hash{}, status.Error(codes.InvalidArgument, err.Error())
		}
		return h, nil
	}
	raw := fields["origin"].GetStringValue()
	if strings.TrimSpace(raw) == "" {
		return origin.Hash{}, status.Error(codes.InvalidArgument, "missing origin")
	}
	return origin.Of(raw), nil
}

// uintField reads a non-negative integral number field; absent means zero.
func uintField(in *structpb.Struct, name string) (uint64, error) {
	v, ok := in.GetFields()[name]
	if !ok {
		return 0, nil
	}
	n := v.GetNumberValue()
	if n < 0 || n != math.Trunc(n) || n > 1<<53 {
		return 0, status.Errorf(codes.InvalidArgument, "%s must be a non-negative integer", name)
	}
	return uint64(n), nil
}

func missing(what string) error {
	return status.Errorf(codes.FailedPrecondition, "missing %s registry", what)
}
