// Package engine implements the conversation orchestration core of
// Plauder. The Engine struct owns the conversation history and drives
// the multi-turn cycle: stream a model response, assemble any tool
// calls from the fragmented stream, execute them through the tool
// registry, feed the results back, and repeat until the model produces
// a final answer. Callers observe a turn as a lazy sequence of events
// (text deltas, tool notices, errors) on a channel returned by Send.
package engine
