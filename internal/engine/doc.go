// Package engine drives asynchronous job simulation. Each submitted compile
// or backtest gets its own runner goroutine that advances the job record
// through the store on a timed schedule, independent of any polling reader.
package engine
