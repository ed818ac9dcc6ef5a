package service

import (
	"fmt"
	"math"
	"sort"

	"contract_deployer/internal/app/port"
	"contract_deployer/internal/domain/entity"
	"contract_deployer/internal/pkg/metrics"
)

// stageScale maps rollup maturity stages onto the decentralization sub-score.
var stageScale = map[int]float64{0: 0.0, 1: 0.5, 2: 1.0}

// CandidateNetworkKeys lists the recommendable candidates and the registry network each deploys to.
var CandidateNetworkKeys = map[string]string{ //nolint:gochecknoglobals
	"ZkSync":   "zksync",
	"Arbitrum": "arbitrum",
	"Optimism": "optimism",
	"Base":     "base",
	"Ethereum": "ethereum",
}

// DefaultMetricTable returns the built-in metric table.
func DefaultMetricTable() map[string]entity.ProtocolMetric {
	return map[string]entity.ProtocolMetric{
		"Optimism": {
			Throughput: 0.558, Liveness: 0.5125, Risk: 0.667, ValueLocked: 0.197, Finality: 1,
			Stage: 1, Cost: 0.672, ExecutionEnvCompat: 1, ToolingLangCompat: 1,
		},
		"Arbitrum": {
			Throughput: 1, Liveness: 0.5, Risk: 1.0, ValueLocked: 1.0, Finality: 0.905,
			Stage: 1, Cost: 0.437, ExecutionEnvCompat: 1, ToolingLangCompat: 1,
		},
		"StarkNet": {
			Throughput: 0.334, Liveness: 0.5, Risk: 0.333, ValueLocked: 0.00325, Finality: 0,
			Stage: 1, Cost: 1.0, ExecutionEnvCompat: 0, ToolingLangCompat: 0,
		},
		"ZkSync": {
			Throughput: 0, Liveness: 0.6215, Risk: 0.0, ValueLocked: 0, Finality: 0.018,
			Stage: 0, Cost: 0.0, ExecutionEnvCompat: 1, ToolingLangCompat: 1,
		},
	}
}

// Score computes the weighted score of every candidate in table.
// Each score is the weighted sum of the five category sub-scores divided by 5, rounded to 4 decimals.
func Score(weights entity.UserWeights, table map[string]entity.ProtocolMetric) (entity.ScoreResult, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	if len(table) == 0 {
		return nil, fmt.Errorf("%w: metric table is empty", entity.ErrInvalidMetric)
	}

	result := make(entity.ScoreResult, len(table))
	for name, m := range table {
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("candidate %q: %w", name, err)
		}

		sub := map[entity.Category]float64{
			entity.CategoryScalability:      (m.Throughput + m.Liveness) / 2,
			entity.CategorySecurity:         (m.Risk + m.ValueLocked + m.Finality) / 3,
			entity.CategoryDecentralization: stageScale[m.Stage],
			entity.CategoryCostEfficiency:   m.Cost,
			entity.CategoryDevExperience:    (m.ExecutionEnvCompat + m.ToolingLangCompat) / 2,
		}

		var weighted float64
		for _, c := range entity.Categories {
			weighted += weights.Get(c) * sub[c]
		}
		result[name] = round4(weighted / float64(len(entity.Categories)))
	}
	return result, nil
}

// Rank orders a score result by descending score, breaking exact ties by name.
func Rank(result entity.ScoreResult) []entity.RankedScore {
	ranked := make([]entity.RankedScore, 0, len(result))
	for name, score := range result {
		ranked = append(ranked, entity.RankedScore{Name: name, Score: score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Name < ranked[j].Name
	})
	return ranked
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

// RecommendationEngine scores a fixed metric table and links each candidate to a deployable network.
type RecommendationEngine struct {
	table    map[string]entity.ProtocolMetric
	registry port.NetworkRegistry
	logger   port.Logger
}

// NewRecommendationEngine validates the provided table once; it is not re-read afterwards.
func NewRecommendationEngine(tables port.MetricTableProvider, registry port.NetworkRegistry, logger port.Logger) (*RecommendationEngine, error) {
	source := tables.GetMetricTable()
	if len(source) == 0 {
		return nil, fmt.Errorf("%w: metric table is empty", entity.ErrInvalidMetric)
	}

	table := make(map[string]entity.ProtocolMetric, len(source))
	for name, m := range source {
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("candidate %q: %w", name, err)
		}
		table[name] = m
	}
	logger.Info("RecommendationEngine initialized", "candidates", len(table))
	return &RecommendationEngine{table: table, registry: registry, logger: logger}, nil
}

// Table returns a copy of the metric table.
func (e *RecommendationEngine) Table() map[string]entity.ProtocolMetric {
	out := make(map[string]entity.ProtocolMetric, len(e.table))
	for k, v := range e.table {
		out[k] = v
	}
	return out
}

// Score scores the engine's table.
func (e *RecommendationEngine) Score(weights entity.UserWeights) (entity.ScoreResult, error) {
	return Score(weights, e.table)
}

// Recommend ranks the deployable candidates, those listed in CandidateNetworkKeys. A candidate
// missing from the metric table scores 0; table entries with no network are left out.
func (e *RecommendationEngine) Recommend(weights entity.UserWeights) ([]entity.RankedScore, error) {
	result, err := Score(weights, e.table)
	if err != nil {
		e.logger.Warn("Recommendation rejected", "error", err)
		return nil, err
	}

	candidates := make(entity.ScoreResult, len(CandidateNetworkKeys))
	for name := range CandidateNetworkKeys {
		candidates[name] = result[name]
	}
	ranked := Rank(candidates)
	for i := range ranked {
		if network, ok := e.registry.ByKey(CandidateNetworkKeys[ranked[i].Name]); ok {
			ranked[i].NetworkKey = network.Key
			ranked[i].Deployable = true
		}
	}
	metrics.RecommendationsTotal.Inc()
	e.logger.Debug("Recommendation computed", "top", ranked[0].Name, "score", ranked[0].Score)
	return ranked, nil
}
