package rendersvc

import (
	"context"
	"fmt"
	"time"

	"github.com/shieldhq/shield/core"
	"github.com/shieldhq/shield/core/certificate"
)

// Sink receives the storage location of a successfully rendered document.
// certificate.Service.FinishRender satisfies it.
type Sink interface {
	FinishRender(ctx context.Context, certificateID, documentPath string) error
}

// Queue is a single-worker render pipeline: requests are buffered on a
// channel and rendered one at a time, with bounded retries per request.
// Failed requests are dropped after the last attempt; they stay recoverable
// through certificate.Service.RetryRender.
type Queue struct {
	renderer    certificate.Renderer
	sink        Sink
	logger      core.Logger
	timeout     time.Duration
	maxAttempts int

	reqs chan certificate.RenderRequest
	done chan struct{}
}

var _ certificate.RenderQueue = (*Queue)(nil)

// NewQueue builds a stopped queue. The sink may be nil at construction and
// set later with SetSink; the queue and the certificate service reference
// each other.
func NewQueue(renderer certificate.Renderer, sink Sink, logger core.Logger, conf *core.Config) *Queue {
	maxAttempts := conf.Certificate.RenderMaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Queue{
		renderer:    renderer,
		sink:        sink,
		logger:      logger,
		timeout:     conf.Certificate.RenderTimeout,
		maxAttempts: maxAttempts,
		reqs:        make(chan certificate.RenderRequest, 64),
		done:        make(chan struct{}),
	}
}

// SetSink wires the completion sink; call before Start.
func (q *Queue) SetSink(sink Sink) { q.sink = sink }

// Start launches the worker; call once.
func (q *Queue) Start() {
	go q.work()
}

// Stop waits for in-flight work after closing the intake.
// Enqueue must not be called after Stop.
func (q *Queue) Stop() {
	close(q.reqs)
	<-q.done
}

func (q *Queue) Enqueue(req certificate.RenderRequest) {
	select {
	case q.reqs <- req:
	default:
		// full buffer; drop rather than block issuance
		q.logger.Error(fmt.Sprintf("render queue full, dropping %s", req.CertificateNumber))
	}
}

func (q *Queue) work() {
	defer close(q.done)
	for req := range q.reqs {
		q.process(req)
	}
}

func (q *Queue) process(req certificate.RenderRequest) {
	var lastErr error
	for attempt := 1; attempt <= q.maxAttempts; attempt++ {
		path, err := q.render(req)
		if err == nil {
			ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
			err = q.sink.FinishRender(ctx, req.CertificateID, path)
			cancel()
			if err == nil {
				q.logger.Info(fmt.Sprintf("rendered certificate %s", req.CertificateNumber))
				return
			}
		}
		lastErr = err
		time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
	}
	q.logger.Error(fmt.Sprintf("rendering certificate %s: %v", req.CertificateNumber, lastErr), lastErr)
}

func (q *Queue) render(req certificate.RenderRequest) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	return q.renderer.Render(ctx, req)
}
