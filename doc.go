// Package spillway provides a file-backed overflow queue for pull-based
// reactive streams, designed for producers that run far ahead of a slow
// or bursty consumer.
//
// Spillway offers bounded memory use by spilling queued items to
// memory-mapped segment files instead of growing an in-process buffer
// without limit, while still honoring a downstream consumer's own
// backpressure signals once it catches up.
//
// # Quick Start
//
// Wire an Operator between an upstream producer and a downstream
// Subscriber:
//
//	type printer struct{ done chan struct{} }
//
//	func (p *printer) OnNext(item []byte)  { fmt.Println(string(item)) }
//	func (p *printer) OnError(err error)   { log.Println(err); close(p.done) }
//	func (p *printer) OnCompleted()        { close(p.done) }
//
//	sub := &printer{done: make(chan struct{})}
//	op, err := spillway.NewOperator(spillway.Options[[]byte]{
//		BufferSizeBytes: 16 << 20,
//		FileFactory:     spillway.NewTimestampedFileFactory(os.TempDir()),
//		Serializer: spillway.Serializer[[]byte]{
//			Write: func(b []byte) ([]byte, error) { return b, nil },
//			Read:  func(b []byte) ([]byte, error) { return b, nil },
//		},
//	}, sub)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer op.Close()
//
//	op.Request(spillway.RequestUnbounded)
//	op.OnNext([]byte("hello"))
//	op.OnCompleted()
//	<-sub.done
//
// # Rollover
//
// With RolloverSizeBytes or RolloverEvery set, the queue is a sequence
// of segment files instead of one: once a segment would exceed its cap,
// it is sealed and a new one is created, and a segment is deleted as
// soon as the consumer has fully drained it. Leave both at
// spillway.Unlimited for a single non-rolling segment.
//
// # Backpressure
//
// A downstream Subscriber only receives items it has asked for via
// Producer.Request; items offered beyond the queue's capacity when
// rollover is disabled fail the offer with a CodeOverflow QueueError.
package spillway
