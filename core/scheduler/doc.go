// Package scheduler drives constraint enforcement. A host-resumed tick
// task self-gates to one processing pass per simulated second, walks
// every constrained line's waiting vehicles through the dispatch
// evaluator, keeps the line-frequency cache reconciled, prunes the
// constraint store on its own cadence and replicates pending edits.
// A panic inside a pass is absorbed by the supervisor: the task is
// replaced and processing resumes at the next second boundary.
package scheduler
