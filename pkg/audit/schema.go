package audit

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// bundleSchema pins the export shape. Every exported record is validated
// against it before leaving this package, so a drifted field name or a
// missing section surfaces as ErrSchemaViolation instead of a silent
// format change.
const bundleSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["runId", "computeResult", "proof", "benchmark"],
  "additionalProperties": false,
  "properties": {
    "runId": {"type": "string", "minLength": 1},
    "computeResult": {
      "type": "object",
      "required": [
        "decision", "decisionReason", "fheEnabled", "fheScheme",
        "riskReductionPercent", "performanceOverheadPercent",
        "securityMode", "securityResponse"
      ],
      "additionalProperties": false,
      "properties": {
        "decision": {"enum": ["approve", "review", "reject"]},
        "decisionReason": {"type": "string", "minLength": 1},
        "fheEnabled": {"type": "boolean"},
        "fheScheme": {"type": "string", "minLength": 1},
        "riskReductionPercent": {"type": "integer", "minimum": 0, "maximum": 100},
        "performanceOverheadPercent": {"type": "integer", "minimum": 0},
        "securityMode": {"enum": ["NORMAL", "HYBRID", "POST_QUANTUM"]},
        "securityResponse": {"type": "string", "minLength": 1}
      }
    },
    "proof": {
      "type": "object",
      "required": ["verificationResult", "proofHash", "circuitId", "cryptoPrimitivesUsed"],
      "additionalProperties": false,
      "properties": {
        "verificationResult": {"const": true},
        "proofHash": {"type": "string", "pattern": "^[0-9a-f]{64}$"},
        "circuitId": {"type": "string", "minLength": 1},
        "cryptoPrimitivesUsed": {
          "type": "array",
          "minItems": 1,
          "items": {"type": "string"}
        }
      }
    },
    "benchmark": {
      "type": "object",
      "required": ["runtimeMs", "encryptionTimeMs", "computationTimeMs"],
      "additionalProperties": false,
      "properties": {
        "runtimeMs": {"type": "integer", "minimum": 0},
        "encryptionTimeMs": {"type": "integer", "minimum": 0},
        "computationTimeMs": {"type": "integer", "minimum": 0}
      }
    }
  }
}`

var (
	compileSchemaOnce sync.Once
	compiledSchema    *jsonschema.Schema
	compileSchemaErr  error
)

func exportSchema() (*jsonschema.Schema, error) {
	compileSchemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		const url = "https://qpops.schemas.local/audit-bundle.schema.json"
		if err := c.AddResource(url, strings.NewReader(bundleSchema)); err != nil {
			compileSchemaErr = fmt.Errorf("audit: schema load failed: %w", err)
			return
		}
		compiledSchema, compileSchemaErr = c.Compile(url)
	})
	return compiledSchema, compileSchemaErr
}

func validateBundle(b *Bundle) error {
	schema, err := exportSchema()
	if err != nil {
		return err
	}

	raw, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("audit: marshal bundle: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("audit: reparse bundle: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}
	return nil
}
