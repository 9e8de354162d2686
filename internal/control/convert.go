package control

import (
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"pkt.systems/jellyj/schema"
)

// structFrom converts a JSON-tagged value to a Struct.
func structFrom(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, err
	}
	return out, nil
}

// decodeStruct converts a Struct into a JSON-tagged value.
func decodeStruct(in *structpb.Struct, v any) error {
	data, err := protojson.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// toStatus maps domain errors to gRPC status codes.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok && status.Code(err) != codes.Unknown {
		return err
	}
	code := codes.Internal
	switch {
	case errors.Is(err, schema.ErrNotReady), errors.Is(err, schema.ErrHostUnavailable):
		code = codes.FailedPrecondition
	case errors.Is(err, schema.ErrTabNotFound), errors.Is(err, schema.ErrPaneNotFound):
		code = codes.NotFound
	case errors.Is(err, schema.ErrInvalidRequest):
		code = codes.InvalidArgument
	}
	return status.Error(code, err.Error())
}

// fromStatus maps gRPC status codes back to domain errors.
func fromStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.FailedPrecondition:
		return fmt.Errorf("%w: %s", schema.ErrNotReady, st.Message())
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", schema.ErrInvalidRequest, st.Message())
	case codes.Unavailable:
		return fmt.Errorf("daemon unavailable: %s", st.Message())
	}
	return err
}
