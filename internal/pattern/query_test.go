package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogicOperationValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		op      LogicOperation
		wantErr bool
	}{
		{name: "and", op: LogicOperation{Type: OpAnd, Params: []string{"redis"}}},
		{name: "or without params", op: LogicOperation{Type: OpOr}},
		{name: "not", op: LogicOperation{Type: OpNot, Params: []string{"deprecated"}}},
		{name: "threshold on strength", op: LogicOperation{Type: OpThreshold, Params: []string{PropertyStrength}, Threshold: 0.7}},
		{name: "threshold on non-numeric property", op: LogicOperation{Type: OpThreshold, Params: []string{"title"}, Threshold: 0.7}, wantErr: true},
		{name: "threshold without property", op: LogicOperation{Type: OpThreshold, Threshold: 0.7}, wantErr: true},
		{name: "threshold with two properties", op: LogicOperation{Type: OpThreshold, Params: []string{PropertyStrength, PropertyConfidence}}, wantErr: true},
		{name: "boost", op: LogicOperation{Type: OpBoost, Params: []string{"hot"}, Weight: 1.5}},
		{name: "boost with zero weight", op: LogicOperation{Type: OpBoost, Params: []string{"hot"}}, wantErr: true},
		{name: "unknown type", op: LogicOperation{Type: "XOR"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.op.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidQuery)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestMemoryQueryValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		query   MemoryQuery
		wantErr bool
	}{
		{name: "default query", query: DefaultQuery("cache invalidation")},
		{name: "precision", query: MemoryQuery{Type: QueryPrecision, Confidence: 1}},
		{name: "unknown type", query: MemoryQuery{Type: "psychic"}, wantErr: true},
		{name: "confidence above one", query: MemoryQuery{Type: QueryHybrid, Confidence: 1.5}, wantErr: true},
		{name: "negative exploration", query: MemoryQuery{Type: QueryCreative, Exploration: -0.1}, wantErr: true},
		{name: "negative max results", query: MemoryQuery{Type: QueryDiscovery, MaxResults: -1}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.query.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidQuery)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestDefaultQuery(t *testing.T) {
	t.Parallel()

	q := DefaultQuery("goroutine leak")
	assert.Equal(t, QueryDiscovery, q.Type)
	assert.Equal(t, 0.5, q.Confidence)
	assert.Equal(t, 0.5, q.Exploration)
	assert.Equal(t, "goroutine leak", q.Text)
}

func TestFieldConfigurationValidate(t *testing.T) {
	t.Parallel()

	valid := FieldConfiguration{Radius: 0.35, MinProbability: 0.1, InterferenceThreshold: 0.7}
	assert.NoError(t, valid.Validate())

	tests := []FieldConfiguration{
		{Radius: 0, MinProbability: 0.1, InterferenceThreshold: 0.7},
		{Radius: 0.35, MinProbability: 1, InterferenceThreshold: 0.7},
		{Radius: 0.35, MinProbability: 0.1, InterferenceThreshold: 1.1},
	}
	for _, cfg := range tests {
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidQuery)
	}
}
