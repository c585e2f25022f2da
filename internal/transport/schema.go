package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"
)

var ErrInvalidRequest = errors.New("invalid locate request")

// requestSchema accepts extra fields so producers can attach their own
// metadata (timestamps, source URL).
var requestSchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"sport", "team1", "team2"},
	"properties": map[string]interface{}{
		"id":            map[string]interface{}{"type": "string", "maxLength": 128},
		"sport":         map[string]interface{}{"type": "string", "minLength": 1, "maxLength": 64},
		"team1":         map[string]interface{}{"type": "string", "minLength": 1, "maxLength": 128},
		"team2":         map[string]interface{}{"type": "string", "minLength": 1, "maxLength": 128},
		"league":        map[string]interface{}{"type": "string", "maxLength": 128},
		"matchTimeHint": map[string]interface{}{"type": "string", "maxLength": 64},
	},
}

var requestSchemaLoader = gojsonschema.NewGoLoader(requestSchema)

// ParseRequest validates raw JSON against the request schema and decodes
// it. A request without an id gets a fresh one.
func ParseRequest(data []byte) (LocateRequest, error) {
	result, err := gojsonschema.Validate(requestSchemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return LocateRequest{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return LocateRequest{}, fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(errs, "; "))
	}

	var req LocateRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return LocateRequest{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	return req, nil
}
