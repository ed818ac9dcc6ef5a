package provider

import (
	"fmt"

	"contract_deployer/internal/app/port"
	"contract_deployer/internal/domain/entity"
	"contract_deployer/internal/pkg/utils"
)

type metricProviderImpl struct {
	filePath string
	logger   port.Logger
	table    map[string]entity.ProtocolMetric
}

// NewMetricTableProvider loads the metric table once. With an empty filePath the defaults are used;
// otherwise the JSON file (candidate name -> metric record) replaces them entirely.
func NewMetricTableProvider(filePath string, defaults map[string]entity.ProtocolMetric, logger port.Logger) (port.MetricTableProvider, error) {
	p := &metricProviderImpl{filePath: filePath, logger: logger}
	if filePath == "" {
		p.table = copyTable(defaults)
		logger.Info("Using built-in metric table", "candidates", len(p.table))
		return p, nil
	}

	logger.Debug("Loading metric table from disk", "path", filePath)
	raw, err := utils.LoadJSONFile[map[string]map[string]float64](filePath)
	if err != nil {
		logger.Error("Failed to load metric table", "path", filePath, "error", err)
		return nil, err
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("metric table %s is empty: %w", filePath, entity.ErrInvalidMetric)
	}
	table := make(map[string]entity.ProtocolMetric, len(raw))
	for name, fields := range raw {
		m, err := entity.ParseProtocolMetric(fields)
		if err != nil {
			return nil, fmt.Errorf("metric table %s, candidate %q: %w", filePath, name, err)
		}
		table[name] = m
	}

	p.table = table
	logger.Info("Metric table loaded", "path", filePath, "candidates", len(table))
	return p, nil
}

// GetMetricTable returns a copy of the loaded table.
func (p *metricProviderImpl) GetMetricTable() map[string]entity.ProtocolMetric {
	return copyTable(p.table)
}

func copyTable(in map[string]entity.ProtocolMetric) map[string]entity.ProtocolMetric {
	out := make(map[string]entity.ProtocolMetric, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
