// Package pipeline provides the ordered hand-off between frame producers and
// the single bridge worker.
//
// Queue is a FIFO safe for many concurrent producers. It is unbounded by
// default. A bounded queue needs an explicit overflow policy:
//
//   - Block: Push waits for space (or for its context to end)
//   - DropOldest: Push evicts the head and reports it through OnDrop
//
// Drain runs the consumer side: it pops one item at a time and hands it to a
// handler, so item N is fully processed before item N+1 is popped. An empty
// queue parks the consumer on a channel; it never polls.
package pipeline
