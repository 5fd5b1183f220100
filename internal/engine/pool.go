package engine

import "context"

// Pool hands out runtimes for one bundle. At most size runtimes exist at
// once; each is used by one caller at a time.
type Pool struct {
	bundle *Bundle
	idle   chan *Runtime
	slots  chan struct{}
}

// NewPool creates a pool of at most size runtimes. Runtimes are created lazily.
func NewPool(b *Bundle, size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		bundle: b,
		idle:   make(chan *Runtime, size),
		slots:  make(chan struct{}, size),
	}
}

// Bundle returns the bundle the pool's runtimes execute.
func (p *Pool) Bundle() *Bundle { return p.bundle }

// Get returns an idle runtime, creates one if the pool has room, or waits.
func (p *Pool) Get(ctx context.Context) (*Runtime, error) {
	select {
	case rt := <-p.idle:
		return rt, nil
	default:
	}

	select {
	case rt := <-p.idle:
		return rt, nil
	case p.slots <- struct{}{}:
		rt, err := NewRuntime(p.bundle)
		if err != nil {
			<-p.slots
			return nil, err
		}
		return rt, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Put returns a runtime to the pool. Broken runtimes are discarded and their
// slot freed.
func (p *Pool) Put(rt *Runtime) {
	if rt == nil {
		return
	}
	if rt.Broken() {
		<-p.slots
		return
	}
	p.idle <- rt
}
