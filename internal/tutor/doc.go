// Package tutor runs Socratic tutoring sessions as a persisted graph.
//
// A session moves through the nodes
//
//	initialize -> assess -> explain -> question -> evaluate
//
// and after evaluate takes exactly one Transition: hint, advance, a new
// question, a fresh explanation, or end. hint returns to question and
// advance returns to explain. The graph stops and waits for the learner
// after explain, after question and after end.
//
// Each completed node is saved as a whole snapshot through the checkpoint
// service before the next node runs, so the store always holds the last
// completed state. Nothing is kept in memory between calls.
//
// A concept is mastered after at least five graded answers with 80% of
// the last five correct. Three misses in a row lower the difficulty by
// one level, never below beginner.
package tutor
