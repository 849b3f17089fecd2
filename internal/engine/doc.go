// Package engine builds a Plan from feature modules and runs it every tick.
//
// Per tick:
//   - A fresh Frame is created (tick number, delta, resources, slot table)
//   - The parallel group runs wave by wave; units of one wave share a
//     bounded errgroup
//   - The thread-local group runs in order on the goroutine that called Run,
//     which stays locked to its OS thread
//   - Slots still held when the tick ends fail the tick with ErrSlotHeld
//
// A panic or error from any system stops the engine. There is no retry and
// no mid-tick cancellation; the context is checked between ticks.
package engine
