// Package engine is the asynchronous execution engine pipelines are submitted
// to. It plays the role a task queue with a result backend plays in a
// distributed deployment:
//
//   - Submit records the run as PENDING, enqueues the chain's first step and
//     returns an execution handle without waiting for anything to run.
//   - A pool of workers takes one step at a time from the queue. A step
//     carries only the encoded accumulator of the previous step, so any
//     worker can run it; no two steps of one chain are ever in flight at once.
//   - After each step the run record is rewritten (STARTED plus the newest
//     snapshot) and the next step is enqueued; the last step writes SUCCESS.
//   - A step whose unit of work panics is redelivered with the same snapshot
//     after an exponential backoff, up to a limit, then the run FAILs. A step
//     that outlives the task time limit FAILs the run straight away.
//   - Every record keeps the encoded chain, so after a restart Resume can put
//     unfinished runs back on the queue from the last step they completed.
//
// Units of work report their own provider errors inside the accumulator, so
// the engine only ever fails a run for infrastructure reasons.
package engine
