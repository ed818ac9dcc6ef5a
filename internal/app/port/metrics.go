package port

import "contract_deployer/internal/domain/entity"

// MetricTableProvider supplies the fixed per-candidate metric table used for recommendations.
type MetricTableProvider interface {
	GetMetricTable() map[string]entity.ProtocolMetric
}
