package services

import (
	"crypto/md5"
	"fmt"
	"math/big"
	"math/rand"
	"sync"
	"time"

	"github.com/rssnews/orchestrator/internal/domain/models"
)

// ExperimentRouter deterministically assigns requests to experiment arms
// and records per-arm metrics. The registry is process-wide and mostly
// read; writes are serialized behind a mutex.
type ExperimentRouter struct {
	mu          sync.RWMutex
	experiments map[string]*models.Experiment
	metrics     map[string]map[string][]models.MetricRecord // experimentID -> armID -> records
}

// NewExperimentRouter constructs an empty router.
func NewExperimentRouter() *ExperimentRouter {
	return &ExperimentRouter{
		experiments: make(map[string]*models.Experiment),
		metrics:     make(map[string]map[string][]models.MetricRecord),
	}
}

// Register validates arm-weight sum (tolerance [0.99, 1.01]) and arm id
// uniqueness, then adds the experiment to the registry.
func (r *ExperimentRouter) Register(exp *models.Experiment) error {
	seen := make(map[string]bool, len(exp.Arms))
	for _, a := range exp.Arms {
		if seen[a.ID] {
			return fmt.Errorf("%w: %s", models.ErrDuplicateArmID, a.ID)
		}
		seen[a.ID] = true
	}

	sum := exp.WeightSum()
	if sum < 0.99 || sum > 1.01 {
		return fmt.Errorf("%w: sum=%.4f", models.ErrInvalidArmWeights, sum)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.experiments[exp.ID] = exp
	if r.metrics[exp.ID] == nil {
		r.metrics[exp.ID] = make(map[string][]models.MetricRecord)
	}
	return nil
}

// ArmForRequest resolves the experiment applicable to command (explicit
// experimentID, or the first active experiment matching by command
// prefix), then selects an arm: a stable hash of (userID, experimentID)
// when userID is supplied, weighted random choice otherwise. Returns
// ("", "", nil) when no experiment applies.
func (r *ExperimentRouter) ArmForRequest(command, userID, experimentID string) (expID, armID string, err error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var exp *models.Experiment
	if experimentID != "" {
		e, ok := r.experiments[experimentID]
		if !ok {
			return "", "", fmt.Errorf("%w: %s", models.ErrExperimentNotFound, experimentID)
		}
		if e.Status != models.ExperimentActive {
			return "", "", fmt.Errorf("%w: %s", models.ErrExperimentNotActive, experimentID)
		}
		exp = e
	} else {
		for _, e := range r.experiments {
			if e.Status == models.ExperimentActive && e.MatchesCommand(command) {
				exp = e
				break
			}
		}
		if exp == nil {
			return "", "", nil
		}
	}

	arms := exp.EnabledArms()
	if len(arms) == 0 {
		return "", "", nil
	}

	var point float64
	if userID != "" {
		point = stableHashUnit(userID + ":" + exp.ID)
	} else {
		point = rand.Float64()
	}

	var cum float64
	for _, a := range arms {
		cum += a.Weight
		if point < cum {
			return exp.ID, a.ID, nil
		}
	}
	// Floating point rounding: fall back to the last arm.
	return exp.ID, arms[len(arms)-1].ID, nil
}

// stableHashUnit computes MD5(s), treats the digest as a big-endian
// 128-bit unsigned integer, reduces mod 10000, and normalizes to [0,1).
// The digest must be handled as arithmetic wider than a 64-bit word to
// match the reference hashing scheme bit-for-bit.
func stableHashUnit(s string) float64 {
	sum := md5.Sum([]byte(s))
	n := new(big.Int).SetBytes(sum[:])
	mod := big.NewInt(10000)
	n.Mod(n, mod)
	return float64(n.Int64()) / 10000.0
}

// ArmConfigOverride returns baseConfig overlaid with the chosen arm's
// config, annotated with an "_experiment" entry. Returns baseConfig
// unchanged when no arm applies.
func (r *ExperimentRouter) ArmConfigOverride(command string, baseConfig map[string]interface{}, userID, experimentID string) map[string]interface{} {
	expID, armID, err := r.ArmForRequest(command, userID, experimentID)
	if err != nil || expID == "" {
		return baseConfig
	}

	r.mu.RLock()
	exp := r.experiments[expID]
	r.mu.RUnlock()

	var arm *models.Arm
	for i := range exp.Arms {
		if exp.Arms[i].ID == armID {
			arm = &exp.Arms[i]
			break
		}
	}
	if arm == nil {
		return baseConfig
	}

	merged := make(map[string]interface{}, len(baseConfig)+len(arm.Config)+1)
	for k, v := range baseConfig {
		merged[k] = v
	}
	for k, v := range arm.Config {
		merged[k] = v
	}
	merged["_experiment"] = map[string]string{
		"experiment_id": exp.ID,
		"arm_id":        arm.ID,
		"arm_name":      arm.Name,
	}
	return merged
}

// Record appends a metric record for the given experiment/arm.
func (r *ExperimentRouter) Record(experimentID, armID, name string, value float64, metadata map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.metrics[experimentID] == nil {
		r.metrics[experimentID] = make(map[string][]models.MetricRecord)
	}
	r.metrics[experimentID][armID] = append(r.metrics[experimentID][armID], models.MetricRecord{
		Name:      name,
		Value:     value,
		Timestamp: time.Now(),
		Metadata:  metadata,
	})
}

// Summary aggregates sample size and per-metric mean/min/max/count for
// every arm of an experiment.
func (r *ExperimentRouter) Summary(experimentID string) (models.ExperimentSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exp, ok := r.experiments[experimentID]
	if !ok {
		return models.ExperimentSummary{}, fmt.Errorf("%w: %s", models.ErrExperimentNotFound, experimentID)
	}

	out := models.ExperimentSummary{ExperimentID: experimentID}
	for _, arm := range exp.Arms {
		records := r.metrics[experimentID][arm.ID]
		armSummary := models.ArmSummary{
			ArmID:      arm.ID,
			SampleSize: len(records),
			Metrics:    make(map[string]models.MetricAggregate),
		}
		byName := make(map[string][]float64)
		for _, rec := range records {
			byName[rec.Name] = append(byName[rec.Name], rec.Value)
		}
		for name, values := range byName {
			agg := models.MetricAggregate{Count: len(values)}
			for i, v := range values {
				agg.Mean += v
				if i == 0 || v < agg.Min {
					agg.Min = v
				}
				if i == 0 || v > agg.Max {
					agg.Max = v
				}
			}
			agg.Mean /= float64(len(values))
			armSummary.Metrics[name] = agg
		}
		out.Arms = append(out.Arms, armSummary)
	}
	return out, nil
}

// Activate transitions an experiment to active.
func (r *ExperimentRouter) Activate(id string) error {
	return r.setStatus(id, models.ExperimentActive)
}

// Deactivate transitions an experiment to paused.
func (r *ExperimentRouter) Deactivate(id string) error {
	return r.setStatus(id, models.ExperimentPaused)
}

func (r *ExperimentRouter) setStatus(id string, status models.ExperimentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	exp, ok := r.experiments[id]
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrExperimentNotFound, id)
	}
	exp.Status = status
	return nil
}

// ListActive returns the ids of every experiment currently active.
func (r *ExperimentRouter) ListActive() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []string
	for id, exp := range r.experiments {
		if exp.Status == models.ExperimentActive {
			ids = append(ids, id)
		}
	}
	return ids
}
