package rpc

import (
	"context"
	"math"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"blocksui.xyz/ledger/content"
	"blocksui.xyz/ledger/fingerprint"
	"blocksui.xyz/ledger/ledger"
	"blocksui.xyz/ledger/marketplace"
	"blocksui.xyz/ledger/origins"
)

func (s *Server) RegisterStake(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if s.Staking == nil {
		return nil, missing("staking")
	}
	call, err := callFields(in)
	if err != nil {
		return nil, err
	}
	return done(s.Staking.Register(ctx, call))
}

func (s *Server) UnregisterStake(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if s.Staking == nil {
		return nil, missing("staking")
	}
	call, err := callFields(in)
	if err != nil {
		return nil, err
	}
	return done(s.Staking.Unregister(ctx, call))
}

func (s *Server) SetStakingCost(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if s.Staking == nil {
		return nil, missing("staking")
	}
	call, err := callFields(in)
	if err != nil {
		return nil, err
	}
	cost, err := valueField(in, "cost")
	if err != nil {
		return nil, err
	}
	return done(s.Staking.SetStakingCost(ctx, call, cost))
}

func (s *Server) Publish(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if s.Content == nil {
		return nil, missing("content")
	}
	call, err := callFields(in)
	if err != nil {
		return nil, err
	}
	fp, err := fingerprint.FromCID(in.GetFields()["cid"].GetStringValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	id, err := s.Content.Publish(ctx, call, fp, in.GetFields()["metadata_uri"].GetStringValue())
	if err != nil {
		return nil, mapErr(err)
	}
	return newStruct(map[string]any{"token_id": uint64(id)})
}

func (s *Server) UpdateMetaURI(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.onToken(ctx, in, func(call ledger.Call, id ledger.TokenID) error {
		return s.Content.UpdateMetaURI(ctx, call, id, in.GetFields()["metadata_uri"].GetStringValue())
	})
}

func (s *Server) SetDeprecated(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	at, err := uintField(in, "at")
	if err != nil {
		return nil, err
	}
	return s.onToken(ctx, in, func(call ledger.Call, id ledger.TokenID) error {
		return s.Content.SetDeprecated(ctx, call, id, time.Unix(int64(at), 0))
	})
}

func (s *Server) SetOrigin(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.onToken(ctx, in, func(call ledger.Call, id ledger.TokenID) error {
		return s.Content.SetOrigin(ctx, call, id, in.GetFields()["origin"].GetStringValue())
	})
}

func (s *Server) RemoveOrigin(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.onToken(ctx, in, func(call ledger.Call, id ledger.TokenID) error {
		return s.Content.RemoveOrigin(ctx, call, id, in.GetFields()["origin"].GetStringValue())
	})
}

func (s *Server) TransferBlock(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	to, err := identity(in.GetFields()["to"].GetStringValue())
	if err != nil {
		return nil, err
	}
	return s.onToken(ctx, in, func(call ledger.Call, id ledger.TokenID) error {
		return s.Content.Transfer(ctx, call, to, id)
	})
}

func (s *Server) SetPublishPrice(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if s.Content == nil {
		return nil, missing("content")
	}
	call, err := callFields(in)
	if err != nil {
		return nil, err
	}
	price, err := valueField(in, "price")
	if err != nil {
		return nil, err
	}
	return done(s.Content.SetPublishPrice(ctx, call, price))
}

func (s *Server) RegisterOrigin(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if s.Origins == nil {
		return nil, missing("origins")
	}
	call, err := callFields(in)
	if err != nil {
		return nil, err
	}
	h, err := s.Origins.Register(ctx, call, in.GetFields()["origin"].GetStringValue())
	if err != nil {
		return nil, mapErr(err)
	}
	return newStruct(map[string]any{"origin_hash": h.Hex()})
}

func (s *Server) UnregisterOrigin(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if s.Origins == nil {
		return nil, missing("origins")
	}
	call, err := callFields(in)
	if err != nil {
		return nil, err
	}
	h, err := originField(in)
	if err != nil {
		return nil, err
	}
	return done(s.Origins.Unregister(ctx, call, h))
}

func (s *Server) SetMinimumBalance(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if s.Origins == nil {
		return nil, missing("origins")
	}
	call, err := callFields(in)
	if err != nil {
		return nil, err
	}
	minimum, err := valueField(in, "minimum")
	if err != nil {
		return nil, err
	}
	return done(s.Origins.SetMinimumBalance(ctx, call, minimum))
}

func (s *Server) ListBlock(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if s.Marketplace == nil {
		return nil, missing("marketplace")
	}
	call, err := callFields(in)
	if err != nil {
		return nil, err
	}
	id, err := uintField(in, "token_id")
	if err != nil {
		return nil, err
	}
	perDay, err := valueField(in, "price_per_day")
	if err != nil {
		return nil, err
	}
	price, err := valueField(in, "price")
	if err != nil {
		return nil, err
	}
	tier, err := intField(in, "tier")
	if err != nil {
		return nil, err
	}
	fields := in.GetFields()
	return done(s.Marketplace.ListBlock(ctx, call, ledger.TokenID(id), marketplace.Terms{
		MetadataURI: fields["metadata_uri"].GetStringValue(),
		PricePerDay: perDay,
		Price:       price,
		Tier:        tier,
		Licensable:  fields["licensable"].GetBoolValue(),
	}))
}

func (s *Server) Delist(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if s.Marketplace == nil {
		return nil, missing("marketplace")
	}
	call, err := callFields(in)
	if err != nil {
		return nil, err
	}
	id, err := uintField(in, "token_id")
	if err != nil {
		return nil, err
	}
	return done(s.Marketplace.Delist(ctx, call, ledger.TokenID(id)))
}

func (s *Server) SetListingPrice(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if s.Marketplace == nil {
		return nil, missing("marketplace")
	}
	call, err := callFields(in)
	if err != nil {
		return nil, err
	}
	fee, err := valueField(in, "fee")
	if err != nil {
		return nil, err
	}
	return done(s.Marketplace.SetListingPrice(ctx, call, fee))
}

func (s *Server) PurchaseLicense(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if s.Licenses == nil || s.Ledger == nil {
		return nil, missing("license")
	}
	call, err := callFields(in)
	if err != nil {
		return nil, err
	}
	id, err := uintField(in, "token_id")
	if err != nil {
		return nil, err
	}
	d, err := durationField(in, "duration_seconds")
	if err != nil {
		return nil, err
	}
	h, err := originField(in)
	if err != nil {
		return nil, err
	}
	lic, err := s.Licenses.PurchaseLicense(ctx, call, ledger.TokenID(id), d, h)
	if err != nil {
		return nil, mapErr(err)
	}
	return newStruct(licenseFields(lic, s.Ledger.Now()))
}

// Withdraw sweeps the fee balance of the registry named in "registry".
func (s *Server) Withdraw(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	call, err := callFields(in)
	if err != nil {
		return nil, err
	}
	switch name := in.GetFields()["registry"].GetStringValue(); name {
	case content.ModuleName:
		if s.Content == nil {
			return nil, missing(name)
		}
		return done(s.Content.Withdraw(ctx, call))
	case origins.ModuleName:
		if s.Origins == nil {
			return nil, missing(name)
		}
		return done(s.Origins.Withdraw(ctx, call))
	case marketplace.ModuleName:
		if s.Marketplace == nil {
			return nil, missing(name)
		}
		return done(s.Marketplace.Withdraw(ctx, call))
	default:
		return nil, status.Errorf(codes.InvalidArgument, "no withdrawable registry %q", name)
	}
}

// onToken runs fn for the content transitions addressed by "token_id".
func (s *Server) onToken(ctx context.Context, in *structpb.Struct, fn func(call ledger.Call, id ledger.TokenID) error) (*structpb.Struct, error) {
	if s.Content == nil {
		return nil, missing("content")
	}
	call, err := callFields(in)
	if err != nil {
		return nil, err
	}
	id, err := uintField(in, "token_id")
	if err != nil {
		return nil, err
	}
	return done(fn(call, ledger.TokenID(id)))
}

func done(err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, mapErr(err)
	}
	return &structpb.Struct{}, nil
}

// callFields reads the caller, attached value and optional call time.
func callFields(in *structpb.Struct) (ledger.Call, error) {
	caller, err := identity(in.GetFields()["caller"].GetStringValue())
	if err != nil {
		return ledger.Call{}, err
	}
	value, err := valueField(in, "value")
	if err != nil {
		return ledger.Call{}, err
	}
	call := ledger.Call{Caller: caller, Value: value}
	if _, ok := in.GetFields()["time"]; ok {
		secs, err := uintField(in, "time")
		if err != nil {
			return ledger.Call{}, err
		}
		call.Time = time.Unix(int64(secs), 0).UTC()
	}
	return call, nil
}

// valueField reads an ether decimal string; absent means zero.
func valueField(in *structpb.Struct, name string) (ledger.Value, error) {
	raw := in.GetFields()[name].GetStringValue()
	if raw == "" {
		return 0, nil
	}
	v, err := ledger.ParseEther(raw)
	if err != nil {
		return 0, status.Errorf(codes.InvalidArgument, "%s: %v", name, err)
	}
	return v, nil
}

// intField reads an integral number field; absent means zero.
func intField(in *structpb.Struct, name string) (int64, error) {
	n := in.GetFields()[name].GetNumberValue()
	if n != math.Trunc(n) || math.Abs(n) > 1<<53 {
		return 0, status.Errorf(codes.InvalidArgument, "%s must be an integer", name)
	}
	return int64(n), nil
}

// durationField reads whole seconds. Zero is passed through for the registry
// to reject.
func durationField(in *structpb.Struct, name string) (time.Duration, error) {
	secs, err := uintField(in, name)
	if err != nil {
		return 0, err
	}
	if secs > uint64(math.MaxInt64/int64(time.Second)) {
		return 0, status.Errorf(codes.InvalidArgument, "%s is out of range", name)
	}
	return time.Duration(secs) * time.Second, nil
}
