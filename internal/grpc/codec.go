package grpc

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/godilite/inspection-analytics/internal/service"
)

// decodeFilters reads report filters from a request struct. Id lists may be sent as
// lists of numbers or strings, or as one comma separated string. Validation is left
// to the service.
func decodeFilters(req *structpb.Struct) service.RawFilters {
	fields := req.GetFields()
	return service.RawFilters{
		StartDate:   scalar(fields["startDate"]),
		EndDate:     scalar(fields["endDate"]),
		TenantID:    scalar(fields["tenantId"]),
		LocationIDs: idList(fields["locationIds"]),
		UserIDs:     idList(fields["userIds"]),
	}
}

func scalar(v *structpb.Value) string {
	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return k.StringValue
	case *structpb.Value_NumberValue:
		return strconv.FormatFloat(k.NumberValue, 'f', -1, 64)
	case *structpb.Value_BoolValue:
		return strconv.FormatBool(k.BoolValue)
	default:
		return ""
	}
}

func idList(v *structpb.Value) []string {
	switch k := v.GetKind().(type) {
	case *structpb.Value_ListValue:
		out := make([]string, 0, len(k.ListValue.GetValues()))
		for _, item := range k.ListValue.GetValues() {
			out = append(out, scalar(item))
		}
		return out
	case *structpb.Value_StringValue:
		if strings.TrimSpace(k.StringValue) == "" {
			return nil
		}
		return strings.Split(k.StringValue, ",")
	case *structpb.Value_NumberValue:
		return []string{scalar(v)}
	default:
		return nil
	}
}

// encode converts a DTO to a Struct through its JSON form. Slices are wrapped under
// key so every response is a JSON object.
func encode(v any, key string) (*structpb.Struct, error) {
	if key != "" {
		v = map[string]any{key: v}
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal response: %w", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("convert response: %w", err)
	}
	return out, nil
}
