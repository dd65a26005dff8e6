package httpapi

import (
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/BrandonDHaskell/doorlock/internal/doorlock/store"
	"github.com/BrandonDHaskell/doorlock/internal/doorlock/types"
)

// Protobuf clients speak google.protobuf.Value for the lock state, with
// bool_value true meaning locked.  bool_value sits in a oneof, so an
// explicit false is still on the wire and an absent value can be told
// apart from it.

// setStatusRequestFromProto leaves Status nil unless the value is a bool,
// which the service rejects as invalid.
func setStatusRequestFromProto(p *structpb.Value) types.SetStatusRequest {
	kind, ok := p.GetKind().(*structpb.Value_BoolValue)
	if !ok {
		return types.SetStatusRequest{}
	}
	v := kind.BoolValue
	return types.SetStatusRequest{Status: &v}
}

func statusResponseToProto(s store.LockState) *structpb.Value {
	return structpb.NewBoolValue(s.Status.Locked())
}
