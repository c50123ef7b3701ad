package trace

import "sync"

// MethodExecution is the ordered event stream of one method during a test
type MethodExecution struct {
	AssemblyID int     `msgpack:"assembly_id"`
	MethodID   int     `msgpack:"method_id"`
	Events     []Event `msgpack:"events"`
}

// TestExecutionSummary is everything recorded while one test case ran.
//
// Test cases are identified by TestCaseID; two concurrently running tests
// that share a name are kept apart only by their ids.
type TestExecutionSummary struct {
	TestCaseID      string            `msgpack:"test_case_id"`
	TestCaseName    string            `msgpack:"test_case_name"`
	Outcome         string            `msgpack:"outcome,omitempty"`
	ProjectPath     string            `msgpack:"project_path"`
	TestCaseEvents  []Event           `msgpack:"test_case_events"`
	MethodsExecuted []MethodExecution `msgpack:"methods_executed"`

	// FileName is the trace file the summary was read from
	FileName string `msgpack:"-"`
}

// EventCount returns the number of events in the summary
func (s *TestExecutionSummary) EventCount() int {
	n := len(s.TestCaseEvents)
	for _, m := range s.MethodsExecuted {
		n += len(m.Events)
	}
	return n
}

type methodKey struct {
	assemblyID int
	methodID   int
}

// Recorder groups events of one test case into a summary.
// Record may be called from several goroutines.
type Recorder struct {
	mu      sync.Mutex
	summary TestExecutionSummary
	methods map[methodKey]int
}

// NewRecorder creates a recorder for one test case
func NewRecorder(testCaseID, testCaseName, projectPath string) *Recorder {
	return &Recorder{
		summary: TestExecutionSummary{
			TestCaseID:   testCaseID,
			TestCaseName: testCaseName,
			ProjectPath:  projectPath,
		},
		methods: make(map[methodKey]int),
	}
}

// Record appends an event to the test case or to its method's stream
func (r *Recorder) Record(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !e.Kind.IsMethodEvent() {
		if e.Kind == EventTestCaseEnded {
			r.summary.Outcome = e.Outcome
		}
		r.summary.TestCaseEvents = append(r.summary.TestCaseEvents, e)
		return
	}

	key := methodKey{e.AssemblyID, e.MethodID}
	idx, ok := r.methods[key]
	if !ok {
		idx = len(r.summary.MethodsExecuted)
		r.methods[key] = idx
		r.summary.MethodsExecuted = append(r.summary.MethodsExecuted, MethodExecution{
			AssemblyID: e.AssemblyID,
			MethodID:   e.MethodID,
		})
	}
	m := &r.summary.MethodsExecuted[idx]
	m.Events = append(m.Events, e)
}

// Summary returns a copy of what has been recorded so far
func (r *Recorder) Summary() *TestExecutionSummary {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.summary
	s.TestCaseEvents = append([]Event(nil), r.summary.TestCaseEvents...)
	s.MethodsExecuted = make([]MethodExecution, len(r.summary.MethodsExecuted))
	for i, m := range r.summary.MethodsExecuted {
		m.Events = append([]Event(nil), m.Events...)
		s.MethodsExecuted[i] = m
	}
	return &s
}
