package report

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = ginkgo.Describe("WorkerQueue", func() {
	var (
		logger *slog.Logger
		mu     sync.Mutex
		seen   []string
	)

	record := func(_ context.Context, id string) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, id)
		return nil
	}

	processed := func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), seen...)
	}

	ginkgo.BeforeEach(func() {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		seen = nil
	})

	ginkgo.It("runs queued jobs", func() {
		q := NewWorkerQueue(logger, WithWorkers(2))
		q.Start(record)
		ginkgo.DeferCleanup(q.Shutdown, context.Background())

		Expect(q.Enqueue(context.Background(), "r1")).To(Succeed())
		Expect(q.Enqueue(context.Background(), "r2")).To(Succeed())

		Eventually(processed).Should(ConsistOf("r1", "r2"))
	})

	ginkgo.It("buffers jobs until started", func() {
		q := NewWorkerQueue(logger)
		Expect(q.Enqueue(context.Background(), "r1")).To(Succeed())
		Consistently(processed, 50*time.Millisecond).Should(BeEmpty())

		q.Start(record)
		ginkgo.DeferCleanup(q.Shutdown, context.Background())
		Eventually(processed).Should(ConsistOf("r1"))
	})

	ginkgo.It("drops duplicate IDs still in flight", func() {
		q := NewWorkerQueue(logger)
		Expect(q.Enqueue(context.Background(), "r1")).To(Succeed())
		Expect(q.Enqueue(context.Background(), "r1")).To(Succeed())

		q.Start(record)
		q.Shutdown(context.Background())
		Expect(processed()).To(Equal([]string{"r1"}))
	})

	ginkgo.It("gives each job a deadline", func() {
		var deadline time.Time
		var ok bool
		q := NewWorkerQueue(logger, WithRenderTimeout(time.Second))
		q.Start(func(ctx context.Context, id string) error {
			deadline, ok = ctx.Deadline()
			return nil
		})
		Expect(q.Enqueue(context.Background(), "r1")).To(Succeed())
		q.Shutdown(context.Background())

		Expect(ok).To(BeTrue())
		Expect(deadline).To(BeTemporally("~", time.Now(), 2*time.Second))
	})

	ginkgo.It("refuses jobs after shutdown", func() {
		q := NewWorkerQueue(logger)
		q.Start(record)
		q.Shutdown(context.Background())

		Expect(q.Enqueue(context.Background(), "r1")).To(MatchError(ErrQueueClosed))
	})

	ginkgo.It("gives up on a full queue when the context ends", func() {
		q := NewWorkerQueue(logger, WithQueueSize(1))
		Expect(q.Enqueue(context.Background(), "r1")).To(Succeed())

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		Expect(q.Enqueue(ctx, "r2")).To(MatchError(context.DeadlineExceeded))
	})
})
