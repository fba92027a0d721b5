// internal/nearby/client.go
package nearby

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/xeipuuv/gojsonschema"

	commonerrors "nearby-engine/internal/common/errors"
	commonhttp "nearby-engine/internal/common/http"
	"nearby-engine/internal/common/logger"
	"nearby-engine/internal/common/metrics"
	"nearby-engine/internal/models"
)

// Client is the proximity query contract. A QueryFailed error means "no
// candidates this cycle", never "zero matches".
type Client interface {
	FindNearby(ctx context.Context, origin models.Coordinate, radiusMeters int) ([]models.Candidate, error)
}

// candidateRow is the wire row produced by the store's find_nearby_users
// function. The store pre-computes its own score; it is kept as an advisory
// value only.
type candidateRow struct {
	UserID              string   `json:"user_id"`
	Username            string   `json:"username"`
	Interests           []string `json:"interests"`
	LookingFor          string   `json:"looking_for"`
	Bio                 string   `json:"bio"`
	Avatar              string   `json:"avatar"`
	DistanceMeters      float64  `json:"distance_meters"`
	CommonInterestCount int      `json:"common_interest_count"`
	MatchScore          int      `json:"match_score"`
}

// responseSchema rejects malformed store responses before decoding. The store
// contract guarantees user_id, username and distance_meters per row.
const responseSchema = `{
	"type": "array",
	"items": {
		"type": "object",
		"required": ["user_id", "username", "distance_meters"],
		"properties": {
			"user_id": {"type": "string", "minLength": 1},
			"username": {"type": "string"},
			"interests": {"type": "array", "items": {"type": "string"}},
			"looking_for": {"type": ["string", "null"]},
			"bio": {"type": ["string", "null"]},
			"avatar": {"type": ["string", "null"]},
			"distance_meters": {"type": "number", "minimum": 0},
			"common_interest_count": {"type": "integer"},
			"match_score": {"type": "integer"}
		}
	}
}`

// RPCClient calls the external geospatial store's RPC endpoint.
type RPCClient struct {
	endpoint string
	apiKey   string
	client   *commonhttp.Client
	schema   *gojsonschema.Schema
	logger   logger.Logger
}

func NewRPCClient(endpoint, apiKey string, timeout time.Duration, log logger.Logger) (*RPCClient, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(responseSchema))
	if err != nil {
		return nil, fmt.Errorf("compile response schema: %w", err)
	}
	return &RPCClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   commonhttp.NewClient(timeout),
		schema:   schema,
		logger:   log.WithFields(map[string]interface{}{"component": "nearby-client"}),
	}, nil
}

// FindNearby asks the store for candidate users within radiusMeters of
// origin. The store excludes the caller, returns only online+discoverable
// users and pre-filters to at least one shared interest; that pre-filter is
// advisory, scoring happens locally regardless.
func (c *RPCClient) FindNearby(ctx context.Context, origin models.Coordinate, radiusMeters int) ([]models.Candidate, error) {
	req := map[string]interface{}{
		"originLat":    origin.Latitude,
		"originLng":    origin.Longitude,
		"radiusMeters": radiusMeters,
	}

	headers := map[string]string{}
	if c.apiKey != "" {
		headers["Authorization"] = "Bearer " + c.apiKey
	}

	start := time.Now()
	data, err := c.client.PostJSON(ctx, c.endpoint, headers, req)
	metrics.QueryDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, commonerrors.NewQueryFailedError(err)
	}

	result, err := c.schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, commonerrors.NewQueryFailedError(err)
	}
	if !result.Valid() {
		return nil, commonerrors.NewQueryFailedError(fmt.Errorf("response schema violation: %s", firstSchemaError(result)))
	}

	var rows []candidateRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, commonerrors.NewQueryFailedError(err)
	}

	candidates := make([]models.Candidate, 0, len(rows))
	for _, row := range rows {
		candidates = append(candidates, models.Candidate{
			UserID:                    row.UserID,
			Username:                  row.Username,
			Interests:                 row.Interests,
			LookingFor:                row.LookingFor,
			Bio:                       row.Bio,
			Avatar:                    row.Avatar,
			DistanceMeters:            row.DistanceMeters,
			RemoteMatchScore:          row.MatchScore,
			RemoteCommonInterestCount: row.CommonInterestCount,
		})
	}

	c.logger.Debug("proximity query completed", map[string]interface{}{
		"radiusMeters": radiusMeters,
		"candidates":   len(candidates),
	})
	return candidates, nil
}

func firstSchemaError(result *gojsonschema.Result) string {
	if len(result.Errors()) == 0 {
		return "unknown"
	}
	return result.Errors()[0].String()
}
