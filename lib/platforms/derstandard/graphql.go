package derstandard

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type graphqlResult[Data any] struct {
	Data Data `json:"data"`
}

// graphqlQuery issues one query against the forum endpoint. The backend
// takes queries as GET requests with urlencoded query and variables
// parameters rather than a posted body.
func graphqlQuery[Variables, Data any](
	ctx context.Context,
	req *resty.Request,
	baseURL,
	name,
	query string,
	variables Variables,
) (Data, error) {
	ctx, span := tracer.Start(ctx, fmt.Sprintf("graphql:%s", name))
	defer span.End()

	var defaultOut Data

	vars, err := json.Marshal(variables)
	if err != nil {
		span.SetStatus(codes.Error, "failed to serialize variables")
		return defaultOut, err
	}
	span.SetAttributes(attribute.KeyValue{
		Key:   "custom.variables",
		Value: attribute.StringValue(string(vars)),
	})

	res, err := req.
		SetContext(ctx).
		SetQueryParam("query", query).
		SetQueryParam("variables", string(vars)).
		Get(baseURL)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch")
		return defaultOut, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	var result graphqlResult[Data]
	if err := json.Unmarshal(res.Body(), &result); err != nil {
		span.SetStatus(codes.Error, "failed to parse json response")
		return defaultOut, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return result.Data, nil
}
