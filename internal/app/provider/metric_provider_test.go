package provider

import (
	"os"
	"path/filepath"
	"testing"

	"contract_deployer/internal/domain/entity"
	"contract_deployer/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "metrics.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestMetricTableProvider_Defaults(t *testing.T) {
	defaults := map[string]entity.ProtocolMetric{"Arbitrum": {Throughput: 0.5, Stage: 1}}
	p, err := NewMetricTableProvider("", defaults, logger.NewZapAdapter(zaptest.NewLogger(t)))
	require.NoError(t, err)

	defaults["Arbitrum"] = entity.ProtocolMetric{}
	table := p.GetMetricTable()
	assert.Equal(t, 0.5, table["Arbitrum"].Throughput)

	table["Injected"] = entity.ProtocolMetric{}
	assert.Len(t, p.GetMetricTable(), 1)
}

func TestMetricTableProvider_LoadsFile(t *testing.T) {
	path := writeFile(t, `{
		"Linea": {"TPS": 0.4, "Liveness": 0.8, "Risk": 0.3, "TVL": 0.2, "Finality": 0.6, "Stage": 0, "Cost": 0.7, "EVM": 1, "Language": 1}
	}`)
	p, err := NewMetricTableProvider(path, nil, logger.NewZapAdapter(zaptest.NewLogger(t)))
	require.NoError(t, err)
	assert.Equal(t, map[string]entity.ProtocolMetric{
		"Linea": {Throughput: 0.4, Liveness: 0.8, Risk: 0.3, ValueLocked: 0.2, Finality: 0.6, Stage: 0, Cost: 0.7, ExecutionEnvCompat: 1, ToolingLangCompat: 1},
	}, p.GetMetricTable())
}

func TestMetricTableProvider_RejectsBadFiles(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{name: "empty table", content: `{}`, wantErr: entity.ErrInvalidMetric},
		{name: "missing field", content: `{"X": {"TPS": 0.4}}`, wantErr: entity.ErrInvalidMetric},
		{name: "out of range", content: `{"X": {"TPS": 4, "Liveness": 0.8, "Risk": 0.3, "TVL": 0.2, "Finality": 0.6, "Stage": 0, "Cost": 0.7, "EVM": 1, "Language": 1}}`, wantErr: entity.ErrInvalidMetric},
		{name: "not json", content: `TPS=1`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMetricTableProvider(writeFile(t, tt.content), nil, logger.NewZapAdapter(zaptest.NewLogger(t)))
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}

	_, err := NewMetricTableProvider(filepath.Join(t.TempDir(), "absent.json"), nil, logger.NewZapAdapter(zaptest.NewLogger(t)))
	assert.Error(t, err)
}
