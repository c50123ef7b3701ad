package analyzer

import "time"

// ReachabilityResult contains the results of reachability analysis
type ReachabilityResult struct {
	// Offsets reachable from the method entry along control edges
	Reachable []int

	// Offsets only reached from handler starts or dead-code roots
	Unreachable []int

	TotalNodes       int
	ReachableCount   int
	UnreachableCount int
	AnalysisTime     time.Duration
}

// ReachabilityAnalyzer performs reachability analysis on instruction graphs
type ReachabilityAnalyzer struct {
	graph *Graph
}

func NewReachabilityAnalyzer(g *Graph) *ReachabilityAnalyzer {
	return &ReachabilityAnalyzer{graph: g}
}

// Reachability analyzes g from its entry
func Reachability(g *Graph) *ReachabilityResult {
	return NewReachabilityAnalyzer(g).AnalyzeReachability()
}

func (ra *ReachabilityAnalyzer) AnalyzeReachability() *ReachabilityResult {
	startTime := time.Now()
	result := &ReachabilityResult{}

	if ra.graph == nil || ra.graph.Len() == 0 {
		result.AnalysisTime = time.Since(startTime)
		return result
	}

	entry, _ := ra.graph.IndexOf(ra.graph.Entry().Offset)
	visited := ra.traverseFrom(entry)

	for _, idx := range ra.graph.Ordered() {
		offset := ra.graph.Nodes[idx].Offset
		if visited[idx] {
			result.Reachable = append(result.Reachable, offset)
		} else {
			result.Unreachable = append(result.Unreachable, offset)
		}
	}

	result.TotalNodes = ra.graph.Len()
	result.ReachableCount = len(result.Reachable)
	result.UnreachableCount = len(result.Unreachable)
	result.AnalysisTime = time.Since(startTime)
	return result
}

func (ra *ReachabilityAnalyzer) traverseFrom(start int) map[int]bool {
	visited := map[int]bool{start: true}
	stack := []int{start}
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, exit := range ra.graph.Nodes[idx].Exits {
			if !visited[exit] {
				visited[exit] = true
				stack = append(stack, exit)
			}
		}
	}
	return visited
}
