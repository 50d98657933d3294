package hook

import (
	"fmt"

	"golang.org/x/sync/errgroup"
)

// CompositionPattern selects how Composite combines its member hooks.
// Grounded on original_source/llmspell-hooks/src/composite.rs's
// CompositionPattern enum.
type CompositionPattern int

const (
	Sequential CompositionPattern = iota
	Parallel
	FirstMatch
	Voting
)

// Composite combines several hooks into one Hook, per Pattern.
type Composite struct {
	name      string
	pattern   CompositionPattern
	hooks     []Hook
	threshold float64 // only used when pattern == Voting
}

// NewComposite builds an empty composite hook named name, dispatching per
// pattern. threshold is only meaningful for Voting (fraction of hooks that
// must agree, e.g. 0.5 for simple majority).
func NewComposite(name string, pattern CompositionPattern, threshold float64) *Composite {
	return &Composite{name: name, pattern: pattern, threshold: threshold}
}

// Add appends a hook to the composite and returns it for chaining.
func (c *Composite) Add(h Hook) *Composite {
	c.hooks = append(c.hooks, h)
	return c
}

func (c *Composite) Name() string { return c.name }

// Execute dispatches to the composite's pattern.
func (c *Composite) Execute(ctx *Context) (Result, error) {
	if len(c.hooks) == 0 {
		return ContinueResult(), nil
	}
	switch c.pattern {
	case Sequential:
		return c.executeSequential(ctx)
	case Parallel:
		return c.executeParallel(ctx)
	case FirstMatch:
		return c.executeFirstMatch(ctx)
	case Voting:
		return c.executeVoting(ctx)
	default:
		return ContinueResult(), fmt.Errorf("hook: unknown composition pattern %d", c.pattern)
	}
}

// executeSequential runs hooks in order, stopping at the first non-Continue
// result.
func (c *Composite) executeSequential(ctx *Context) (Result, error) {
	for _, h := range c.hooks {
		res, err := h.Execute(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("hook %q: %w", h.Name(), err)
		}
		if res.Kind != Continue {
			return res, nil
		}
	}
	return ContinueResult(), nil
}

// executeFirstMatch is identical to Sequential in this implementation
// (both stop at the first non-Continue result); kept distinct per the
// original's two named patterns so callers can express intent even though
// the mechanics coincide once hooks run in a fixed, non-parallel order.
func (c *Composite) executeFirstMatch(ctx *Context) (Result, error) {
	return c.executeSequential(ctx)
}

// executeParallel runs every hook concurrently against its own context
// clone, then aggregates by the fixed priority Cancel > Replace > Redirect
// > Modified > Continue. Among results of the same kind, the one from the
// hook added first wins.
func (c *Composite) executeParallel(ctx *Context) (Result, error) {
	results := make([]Result, len(c.hooks))
	var g errgroup.Group
	for i, h := range c.hooks {
		i, h := i, h
		g.Go(func() error {
			res, err := h.Execute(ctx.Clone())
			if err != nil {
				return fmt.Errorf("hook %q: %w", h.Name(), err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	best := ContinueResult()
	for _, res := range results {
		if resultPriority(res.Kind) > resultPriority(best.Kind) {
			best = res
		}
	}
	return best, nil
}

// executeVoting runs every hook, groups identical result kinds, and
// returns the first result whose kind's vote count meets threshold*len(hooks),
// defaulting to Continue if no kind reaches quorum.
func (c *Composite) executeVoting(ctx *Context) (Result, error) {
	results := make([]Result, 0, len(c.hooks))
	counts := make(map[ResultKind]int)
	for _, h := range c.hooks {
		res, err := h.Execute(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("hook %q: %w", h.Name(), err)
		}
		results = append(results, res)
		counts[res.Kind]++
	}

	total := len(c.hooks)
	required := int(float64(total)*c.threshold + 0.999999) // ceil
	for _, res := range results {
		if counts[res.Kind] >= required {
			return res, nil
		}
	}
	return ContinueResult(), nil
}
