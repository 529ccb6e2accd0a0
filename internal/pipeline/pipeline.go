// Package pipeline is the adjudication state machine. Each node reads
// and extends one per-run State, writing only its own fields; a small
// driver loop walks the nodes according to each node's tagged outcome.
// FUNCTIONAL-damage requests never enter this pipeline.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"redress/internal/communicate"
	"redress/internal/domain"
	"redress/internal/evidence"
	"redress/internal/logging"
	"redress/internal/policy"
	"redress/internal/resolution"
)

// Status tags a node's outcome for the driver.
type Status int

const (
	// StatusContinue advances to the node's normal successor.
	StatusContinue Status = iota
	// StatusShortCircuit jumps straight to communication.
	StatusShortCircuit
	// StatusError aborts the run; State.Err carries the fault.
	StatusError
)

// Step names the pipeline nodes.
type Step string

const (
	StepEvidence      Step = "evidence"
	StepConsistency   Step = "consistency"
	StepPolicy        Step = "policy"
	StepResolution    Step = "resolution"
	StepCommunication Step = "communication"
	StepDone          Step = "done"
)

// State is the mutable record threaded through one run. It exists only
// for the run; terminal projections become part of the persisted
// aggregate.
type State struct {
	Request      domain.ReturnRequest
	ProductName  string
	Category     string
	PurchaseDate time.Time

	Evidence    *evidence.Assessment
	Consistency *float64
	Policy      *policy.Assessment
	Resolution  *resolution.Outcome
	Message     *communicate.Message

	Step Step
	Err  error
}

// Stage interfaces; satisfied by the concrete stage types.
type (
	EvidenceAnalyzer interface {
		Analyze(ctx context.Context, req domain.ReturnRequest) evidence.Assessment
	}
	ConsistencyChecker interface {
		Score(ctx context.Context, depiction, description string) *float64
	}
	PolicyMatcher interface {
		Match(ctx context.Context, description string, ev evidence.Assessment, category string) policy.Assessment
	}
	Resolver interface {
		Resolve(in resolution.Input) resolution.Outcome
	}
	Composer interface {
		Compose(ctx context.Context, in communicate.Input) communicate.Message
	}
)

// Pipeline wires the five stages.
type Pipeline struct {
	analyzer EvidenceAnalyzer
	checker  ConsistencyChecker
	matcher  PolicyMatcher
	resolver Resolver
	composer Composer
	log      *slog.Logger
}

// New assembles a pipeline from its stages.
func New(analyzer EvidenceAnalyzer, checker ConsistencyChecker, matcher PolicyMatcher, resolver Resolver, composer Composer) *Pipeline {
	return &Pipeline{
		analyzer: analyzer,
		checker:  checker,
		matcher:  matcher,
		resolver: resolver,
		composer: composer,
		log:      logging.New("pipeline"),
	}
}

// node pairs a step with its body and its successors.
type node struct {
	step func(ctx context.Context, st *State) Status
	next Step // successor on StatusContinue
}

// Run drives the state machine from evidence to done. A returned error
// means a pipeline fault: the caller must not persist anything from the
// state.
func (p *Pipeline) Run(ctx context.Context, st *State) error {
	if st.Request.DamageType == domain.DamageFunctional {
		return fmt.Errorf("functional damage requests are routed to manual review, not the pipeline")
	}

	nodes := map[Step]node{
		StepEvidence:      {p.runEvidence, StepConsistency},
		StepConsistency:   {p.runConsistency, StepPolicy},
		StepPolicy:        {p.runPolicy, StepResolution},
		StepResolution:    {p.runResolution, StepCommunication},
		StepCommunication: {p.runCommunication, StepDone},
	}

	st.Step = StepEvidence
	for st.Step != StepDone {
		n, ok := nodes[st.Step]
		if !ok {
			return fmt.Errorf("unknown pipeline step %q", st.Step)
		}
		p.log.Debug("entering step", "step", st.Step, "order_id", st.Request.OrderID)
		switch n.step(ctx, st) {
		case StatusContinue:
			st.Step = n.next
		case StatusShortCircuit:
			st.Step = StepCommunication
		case StatusError:
			if st.Err == nil {
				st.Err = fmt.Errorf("pipeline fault at step %s", st.Step)
			}
			return st.Err
		}
	}
	return nil
}

// runEvidence classifies the defect. A failed description validation is
// a legitimate rejection, not an error: the resolution is forced to
// REJECTED with full confidence and the run short-circuits to
// communication.
func (p *Pipeline) runEvidence(ctx context.Context, st *State) Status {
	ev := p.analyzer.Analyze(ctx, st.Request)
	st.Evidence = &ev
	if ev.MatchesDescription {
		return StatusContinue
	}

	issue := ev.ValidationIssue
	if issue == "" {
		issue = "The uploaded image does not match the product or description"
	}
	reason := fmt.Sprintf(
		"%s. Please ensure the images you upload match the product you ordered and accurately show the damage you described. "+
			"If you believe this is an error, please contact our support team with additional information.",
		issue)
	st.Resolution = &resolution.Outcome{
		Decision:   domain.DecisionRejected,
		Confidence: 1.0,
		Reason:     reason,
	}
	p.log.Info("evidence validation failed, forcing rejection",
		"order_id", st.Request.OrderID, "issue", issue)
	return StatusShortCircuit
}

func (p *Pipeline) runConsistency(ctx context.Context, st *State) Status {
	st.Consistency = p.checker.Score(ctx, st.Evidence.Depiction, st.Request.Description)
	return StatusContinue
}

func (p *Pipeline) runPolicy(ctx context.Context, st *State) Status {
	pa := p.matcher.Match(ctx, st.Request.Description, *st.Evidence, st.Category)
	st.Policy = &pa
	return StatusContinue
}

func (p *Pipeline) runResolution(ctx context.Context, st *State) Status {
	visionConfidence := st.Evidence.Confidence
	out := p.resolver.Resolve(resolution.Input{
		Policy:           *st.Policy,
		Evidence:         *st.Evidence,
		DamageType:       st.Request.DamageType,
		PurchaseDate:     st.PurchaseDate,
		VisionConfidence: &visionConfidence,
		Consistency:      st.Consistency,
	})
	st.Resolution = &out
	return StatusContinue
}

func (p *Pipeline) runCommunication(ctx context.Context, st *State) Status {
	if st.Resolution == nil {
		st.Err = fmt.Errorf("communication reached without a resolution")
		return StatusError
	}
	msg := p.composer.Compose(ctx, communicate.Input{
		Decision:    st.Resolution.Decision,
		Reason:      st.Resolution.Reason,
		ProductName: st.ProductName,
		Category:    st.Category,
		Description: st.Request.Description,
	})
	st.Message = &msg
	return StatusContinue
}
