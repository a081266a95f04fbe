package rpc

import (
	"errors"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"blocksui.xyz/ledger/ledger"
)

// errorDomain tags ErrorInfo details carrying a ledger.Kind.
const errorDomain = "ledger.blocksui.xyz"

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var le *ledger.Error
	if !errors.As(err, &le) {
		return status.Error(codes.Internal, err.Error())
	}

	code := codes.FailedPrecondition
	switch le.Kind {
	case ledger.KindTokenNotFound, ledger.KindNoListingFound:
		code = codes.NotFound
	case ledger.KindInvalidArgument:
		code = codes.InvalidArgument
	case ledger.KindInternal:
		code = codes.Internal
	}
	st, derr := status.New(code, le.Message).WithDetails(&errdetails.ErrorInfo{
		Reason: string(le.Kind),
		Domain: errorDomain,
	})
	if derr != nil {
		return status.Error(code, le.Message)
	}
	return st.Err()
}

// mapRPC restores a *ledger.Error from a status carrying a ledger kind.
// Other statuses are returned unchanged.
func mapRPC(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	for _, d := range st.Details() {
		info, ok := d.(*errdetails.ErrorInfo)
		if ok && info.GetDomain() == errorDomain {
			return &ledger.Error{Kind: ledger.Kind(info.GetReason()), Message: st.Message(), Cause: err}
		}
	}
	return err
}
