package store

import "context"

// MetadataIterator streams List results without holding the whole listing in
// memory. It follows the standard Next/value/Err pattern:
//
//	iter := st.List(ctx, store.Filter{Tag: "report"})
//	defer iter.Close()
//	for iter.Next() {
//	    md := iter.Metadata()
//	    // ...
//	}
//	if err := iter.Err(); err != nil {
//	    // handle error
//	}
//
// Each List call starts a fresh iteration, so a sequence is restartable by
// simply listing again. Iterators must be closed to release the producing
// goroutine.
type MetadataIterator struct {
	ctx    context.Context
	cancel context.CancelFunc

	metaChan chan *Metadata
	errChan  chan error

	current *Metadata
	err     error
	closed  bool
}

// Next advances to the next entry. It returns false when the listing is
// exhausted, an error occurred, or the context was cancelled.
func (it *MetadataIterator) Next() bool {
	if it.closed || it.err != nil {
		return false
	}

	// Entries already buffered are delivered before a pending terminal
	// error, so a producer that emits and then fails does not lose output.
	select {
	case md, ok := <-it.metaChan:
		if !ok {
			select {
			case err := <-it.errChan:
				it.err = err
			default:
			}
			return false
		}
		it.current = md
		return true
	default:
	}

	select {
	case md, ok := <-it.metaChan:
		if !ok {
			// Stream ended; pick up a terminal error if one was reported.
			select {
			case err := <-it.errChan:
				it.err = err
			default:
			}
			return false
		}
		it.current = md
		return true

	case err := <-it.errChan:
		it.err = err
		return false

	case <-it.ctx.Done():
		it.err = it.ctx.Err()
		return false
	}
}

// Metadata returns the current entry. Only valid after Next returned true.
func (it *MetadataIterator) Metadata() *Metadata {
	return it.current
}

// Err returns the error that terminated iteration, if any. Check it after
// Next returns false.
func (it *MetadataIterator) Err() error {
	return it.err
}

// Close stops the iteration and releases the producer. Safe to call more
// than once.
func (it *MetadataIterator) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	if it.cancel != nil {
		it.cancel()
	}
	return nil
}

// Collect drains the iterator into a slice and closes it. Convenient for
// small listings and tests.
func (it *MetadataIterator) Collect() ([]*Metadata, error) {
	defer func() { _ = it.Close() }()

	var out []*Metadata
	for it.Next() {
		out = append(out, it.Metadata())
	}
	return out, it.Err()
}

// IteratorProducer is the backend-facing side of a MetadataIterator. A
// backend obtains the pair from NewMetadataIterator, starts a goroutine that
// emits entries, and finishes with Done (or Fail):
//
//	iter, prod := store.NewMetadataIterator(ctx)
//	go func() {
//	    defer prod.Done()
//	    for _, md := range results {
//	        if !prod.Emit(md) {
//	            return // consumer went away
//	        }
//	    }
//	}()
//	return iter
type IteratorProducer struct {
	ctx      context.Context
	metaChan chan<- *Metadata
	errChan  chan<- error
}

// NewMetadataIterator creates a connected iterator/producer pair. The
// iterator honours cancellation of ctx for its whole lifetime.
func NewMetadataIterator(ctx context.Context) (*MetadataIterator, *IteratorProducer) {
	ctx, cancel := context.WithCancel(ctx)

	metaChan := make(chan *Metadata, 16)
	errChan := make(chan error, 1)

	iter := &MetadataIterator{
		ctx:      ctx,
		cancel:   cancel,
		metaChan: metaChan,
		errChan:  errChan,
	}
	prod := &IteratorProducer{
		ctx:      ctx,
		metaChan: metaChan,
		errChan:  errChan,
	}
	return iter, prod
}

// Emit sends one entry to the consumer. It returns false if the consumer has
// closed the iterator or the context was cancelled; the producer should stop.
func (p *IteratorProducer) Emit(md *Metadata) bool {
	select {
	case p.metaChan <- md:
		return true
	case <-p.ctx.Done():
		return false
	}
}

// Fail reports a terminal error to the consumer. The producer should return
// afterwards so its deferred Done ends the stream.
func (p *IteratorProducer) Fail(err error) {
	select {
	case p.errChan <- err:
	default:
		// An error is already pending; the first one wins.
	}
}

// Done ends the stream. Call it exactly once, typically deferred.
func (p *IteratorProducer) Done() {
	close(p.metaChan)
}
