package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportSchemaCompiles(t *testing.T) {
	schema, err := exportSchema()
	require.NoError(t, err)
	require.NotNil(t, schema)

	// Compilation is cached; a second call returns the same schema.
	again, err := exportSchema()
	require.NoError(t, err)
	assert.Same(t, schema, again)
}

func TestValidateBundleRejectsExtraSections(t *testing.T) {
	b, err := Assemble(sampleInput())
	require.NoError(t, err)

	// Values outside their declared ranges must not validate.
	b.ComputeResult.RiskReductionPercent = 101
	err = validateBundle(b)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchemaViolation)

	b.ComputeResult.RiskReductionPercent = 73
	require.NoError(t, validateBundle(b))

	b.Benchmark.RuntimeMs = -1
	assert.ErrorIs(t, validateBundle(b), ErrSchemaViolation)
}
