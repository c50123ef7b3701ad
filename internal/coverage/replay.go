package coverage

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/ludo-technologies/ucover/domain"
	"github.com/ludo-technologies/ucover/internal/logging"
	"github.com/ludo-technologies/ucover/internal/trace"
)

type methodRef struct {
	assemblyID int
	methodID   int
}

// Replayer applies recorded trace events to a hit table.
// Replay may run concurrently for different summaries.
type Replayer struct {
	methods map[methodRef]*domain.Method
	hits    *HitTable
	strict  bool

	summaries atomic.Int64
	events    atomic.Int64
	unmatched atomic.Int64
}

// NewReplayer indexes the methods of project. Skipped assemblies and
// methods are indexed too so their events are not reported as unmatched.
func NewReplayer(project *domain.Project, hits *HitTable, strict bool) *Replayer {
	r := &Replayer{
		methods: make(map[methodRef]*domain.Method),
		hits:    hits,
		strict:  strict,
	}
	if project == nil {
		return r
	}
	for _, asm := range project.Assemblies {
		for _, class := range asm.Classes {
			for _, m := range class.Methods {
				r.methods[methodRef{asm.AssemblyID, m.MethodID}] = m
			}
		}
	}
	return r
}

// Stats returns the counts accumulated so far
func (r *Replayer) Stats() domain.ReplayStats {
	return domain.ReplayStats{
		TestCases:       int(r.summaries.Load()),
		Events:          int(r.events.Load()),
		UnmatchedEvents: int(r.unmatched.Load()),
	}
}

// Replay applies the events of one test execution.
//
// Method entries come from the test case stream. Within a method stream a
// BranchExited visits its section and arms the conditions leaving it; the
// next BranchEntered visits the first armed condition that targets the
// entered section and disarms the rest.
func (r *Replayer) Replay(summary *trace.TestExecutionSummary) error {
	r.summaries.Add(1)

	for _, e := range summary.TestCaseEvents {
		r.events.Add(1)
		if e.Kind != trace.EventMethodEntered {
			continue
		}
		if _, err := r.method(e); err != nil {
			if err := r.unmatchedEvent(summary, e, err); err != nil {
				return err
			}
			continue
		}
		r.hits.Visit(MethodKey(e.AssemblyID, e.MethodID))
	}

	for _, exec := range summary.MethodsExecuted {
		var armed []int

		for _, e := range exec.Events {
			r.events.Add(1)

			m, err := r.method(e)
			if err == nil {
				err = checkEntity(m, e)
			}
			if err != nil {
				if err := r.unmatchedEvent(summary, e, err); err != nil {
					return err
				}
				continue
			}

			switch e.Kind {
			case trace.EventBranchExited:
				r.hits.Visit(SectionKey(e.AssemblyID, e.MethodID, e.EntityID))
				for i, c := range m.Conditions {
					if c.StartSection == e.EntityID {
						armed = append(armed, i)
					}
				}
			case trace.EventBranchEntered:
				for _, i := range armed {
					if m.Conditions[i].TargetSection == e.EntityID {
						r.hits.Visit(ConditionKey(e.AssemblyID, e.MethodID, i))
						break
					}
				}
				armed = armed[:0]
			case trace.EventSequencePointHit:
				r.hits.Visit(SequencePointKey(e.AssemblyID, e.MethodID, e.EntityID))
			}
		}
	}
	return nil
}

func (r *Replayer) method(e trace.Event) (*domain.Method, error) {
	m, ok := r.methods[methodRef{e.AssemblyID, e.MethodID}]
	if !ok {
		return nil, fmt.Errorf("no method %d in assembly %d", e.MethodID, e.AssemblyID)
	}
	return m, nil
}

func checkEntity(m *domain.Method, e trace.Event) error {
	switch e.Kind {
	case trace.EventBranchEntered, trace.EventBranchExited:
		if e.EntityID < 0 || e.EntityID >= len(m.Sections) {
			return fmt.Errorf("no section %d in %s", e.EntityID, m.Name)
		}
	case trace.EventSequencePointHit:
		if e.EntityID < 0 || e.EntityID >= len(m.SequencePoints) {
			return fmt.Errorf("no sequence point %d in %s", e.EntityID, m.Name)
		}
	default:
		return fmt.Errorf("unexpected %s event in a method stream", e.Kind)
	}
	return nil
}

func (r *Replayer) unmatchedEvent(summary *trace.TestExecutionSummary, e trace.Event, cause error) error {
	r.unmatched.Add(1)
	if r.strict {
		return domain.NewReplayError(fmt.Sprintf("%s in test %s", e, summary.TestCaseName), cause)
	}
	logging.Logger().Warn("trace event does not match the project",
		zap.String("event", e.String()),
		zap.String("test", summary.TestCaseName),
		zap.String("file", summary.FileName),
		zap.Error(cause))
	return nil
}
