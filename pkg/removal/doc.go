// Package removal implements the sequential license removal loop.
//
// A run owns a single State value: the fixed queue of package IDs, the
// index of the next one to attempt, the number removed so far and the
// adaptive cooldown. Each attempt is classified into an Outcome and folded
// into the state by Step, which also decides how long to wait before the
// next request. State is persisted after every attempt except a fatal one,
// so an interrupted run resumes where it stopped.
//
// Only one request is ever in flight.
package removal
