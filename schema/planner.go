package schema

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lucidkernel/runtime/core"
)

// Step is one hop of a migration plan. CreatePlan emits a single step
// from the plan's source version straight to its target; registered
// versions in between are not visited.
type Step struct {
	ID               string
	FromVersion      core.SemanticVersion
	ToVersion        core.SemanticVersion
	MigrationType    string
	Description      string
	EstimatedDuration time.Duration
	RiskLevel        RiskLevel
	RequiresBackup   bool
}

// Plan is a complete, validated migration plan from one schema version
// to another.
type Plan struct {
	ID                   string
	FromVersion          core.SemanticVersion
	ToVersion            core.SemanticVersion
	Steps                []Step
	EstimatedDuration    time.Duration
	TotalRiskLevel       RiskLevel
	RequiresBackup       bool
	CompatibilityAnalysis CompatibilityResult
	Warnings             []string
	CreatedAt            time.Time
}

// IsSafe reports whether the plan is at or below RiskMedium and the
// schemas remain compatible.
func (p Plan) IsSafe() bool {
	return p.TotalRiskLevel <= RiskMedium && p.CompatibilityAnalysis.Compatible
}

// HasBreakingChanges reports whether the compatibility analysis found
// any breaking changes.
func (p Plan) HasBreakingChanges() bool {
	return len(p.CompatibilityAnalysis.BreakingChanges) > 0
}

// AffectedFields returns every field name the compatibility analysis
// touched.
func (p Plan) AffectedFields() []string {
	out := make([]string, 0, len(p.CompatibilityAnalysis.FieldChanges))
	for name := range p.CompatibilityAnalysis.FieldChanges {
		out = append(out, name)
	}
	return out
}

// Complexity is a derived estimate of how involved a migration will be.
type Complexity struct {
	RiskLevel        RiskLevel
	FieldChanges     int
	BreakingChanges  int
	EstimatedDuration time.Duration
	RequiresBackup   bool
	ComplexityScore  uint32
}

// IsSimple reports a low-score, low-risk migration.
func (c Complexity) IsSimple() bool {
	return c.ComplexityScore < 100 && c.RiskLevel <= RiskLow
}

// IsComplex reports a high-score or high-risk migration.
func (c Complexity) IsComplex() bool {
	return c.ComplexityScore > 500 || c.RiskLevel >= RiskHigh
}

// Planner produces and validates migration plans between schema versions
// registered in its Registry.
type Planner struct {
	registry *Registry
}

// NewPlanner builds a Planner backed by a fresh Registry.
func NewPlanner() *Planner { return &Planner{registry: NewRegistry()} }

// NewPlannerWithRegistry builds a Planner backed by an existing Registry.
func NewPlannerWithRegistry(r *Registry) *Planner { return &Planner{registry: r} }

// Registry returns the planner's backing schema registry.
func (p *Planner) Registry() *Registry { return p.registry }

// RegisterSchema adds s to the planner's registry.
func (p *Planner) RegisterSchema(s Schema) error { return p.registry.Register(s) }

// CreatePlan builds and validates a migration Plan from one registered
// version to another.
func (p *Planner) CreatePlan(from, to core.SemanticVersion) (Plan, error) {
	fromSchema, ok := p.registry.Get(from)
	if !ok {
		return Plan{}, fmt.Errorf("schema: source schema %s not found", from)
	}
	toSchema, ok := p.registry.Get(to)
	if !ok {
		return Plan{}, fmt.Errorf("schema: target schema %s not found", to)
	}

	compat := CheckCompatibility(fromSchema, toSchema)

	step := Step{
		ID:               fmt.Sprintf("%s_%s", from, to),
		FromVersion:      from,
		ToVersion:        to,
		MigrationType:    migrationType(compat),
		Description:      fmt.Sprintf("migrate schema %s to %s", from, to),
		EstimatedDuration: time.Duration(len(compat.FieldChanges))*10*time.Second + 60*time.Second,
		RiskLevel:        compat.RiskLevel,
		RequiresBackup:   compat.RiskLevel >= RiskHigh,
	}

	plan := Plan{
		ID:                    uuid.New().String(),
		FromVersion:           from,
		ToVersion:             to,
		Steps:                 []Step{step},
		EstimatedDuration:     step.EstimatedDuration,
		TotalRiskLevel:        compat.RiskLevel,
		RequiresBackup:        step.RequiresBackup,
		CompatibilityAnalysis: compat,
		Warnings:              compat.Warnings,
		CreatedAt:             time.Now(),
	}

	if err := p.ValidatePlan(plan); err != nil {
		return Plan{}, err
	}
	return plan, nil
}

func migrationType(compat CompatibilityResult) string {
	if len(compat.BreakingChanges) > 0 {
		return "breaking_migration"
	}
	if compat.MigrationRequired {
		return "additive_migration"
	}
	return "no_op"
}

// ValidatePlan checks internal consistency of a Plan: step sequencing
// must connect from_version to to_version with no gaps, and any plan
// with breaking changes must require a backup.
func (p *Planner) ValidatePlan(plan Plan) error {
	if len(plan.Steps) == 0 && plan.FromVersion.Cmp(plan.ToVersion) != 0 {
		return fmt.Errorf("schema: migration plan has no steps but versions differ (%s -> %s)", plan.FromVersion, plan.ToVersion)
	}

	if len(plan.Steps) > 0 {
		first := plan.Steps[0]
		if first.FromVersion.Cmp(plan.FromVersion) != 0 {
			return fmt.Errorf("schema: first step %s doesn't match plan source version %s", first.FromVersion, plan.FromVersion)
		}
		last := plan.Steps[len(plan.Steps)-1]
		if last.ToVersion.Cmp(plan.ToVersion) != 0 {
			return fmt.Errorf("schema: last step %s doesn't match plan target version %s", last.ToVersion, plan.ToVersion)
		}
		for i := 1; i < len(plan.Steps); i++ {
			if plan.Steps[i-1].ToVersion.Cmp(plan.Steps[i].FromVersion) != 0 {
				return fmt.Errorf("schema: step sequence broken between steps %d and %d", i-1, i)
			}
		}
	}

	if plan.HasBreakingChanges() && !plan.RequiresBackup {
		return fmt.Errorf("schema: breaking changes detected but backup not configured")
	}

	return nil
}

// FindMigrationPaths returns every registered version reachable as a
// forward migration target from from.
func (p *Planner) FindMigrationPaths(from core.SemanticVersion) []core.SemanticVersion {
	return p.registry.FindMigrationCandidates(from)
}

// IsMigrationPossible reports whether both versions are registered and
// either the schemas are compatible or to is strictly newer than from
// (a forward migration can still be planned even when breaking).
func (p *Planner) IsMigrationPossible(from, to core.SemanticVersion) bool {
	fromSchema, ok1 := p.registry.Get(from)
	toSchema, ok2 := p.registry.Get(to)
	if !ok1 || !ok2 {
		return false
	}
	return IsCompatible(fromSchema, toSchema) || from.Cmp(to) < 0
}

// EstimateComplexity returns a Complexity assessment between two
// registered schema versions.
func (p *Planner) EstimateComplexity(from, to core.SemanticVersion) (Complexity, error) {
	fromSchema, ok1 := p.registry.Get(from)
	toSchema, ok2 := p.registry.Get(to)
	if !ok1 || !ok2 {
		return Complexity{}, fmt.Errorf("schema: one or both schemas not found (%s, %s)", from, to)
	}
	compat := CheckCompatibility(fromSchema, toSchema)

	return Complexity{
		RiskLevel:         compat.RiskLevel,
		FieldChanges:      len(compat.FieldChanges),
		BreakingChanges:   len(compat.BreakingChanges),
		EstimatedDuration: time.Duration(len(compat.FieldChanges))*10*time.Second + 60*time.Second,
		RequiresBackup:    compat.RiskLevel >= RiskHigh,
		ComplexityScore:   complexityScore(compat),
	}, nil
}

func complexityScore(compat CompatibilityResult) uint32 {
	score := uint32(len(compat.FieldChanges)) * 10
	score += uint32(len(compat.BreakingChanges)) * 50

	var multiplier uint32
	switch compat.RiskLevel {
	case RiskLow:
		multiplier = 1
	case RiskMedium:
		multiplier = 2
	case RiskHigh:
		multiplier = 4
	case RiskCritical:
		multiplier = 8
	}
	return score * multiplier
}
