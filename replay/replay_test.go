package replay

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/pagesim/pagetable"
	"github.com/sarchlab/pagesim/reftrace"
)

var _ = Describe("Replayer", func() {
	var (
		mockCtrl *gomock.Controller
		sink     *MockSink
		engine   *pagetable.Engine
		r        *Replayer
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		sink = NewMockSink(mockCtrl)

		var err error
		engine, err = pagetable.NewEngine([]int{0, 1, 2}, 2)
		Expect(err).NotTo(HaveOccurred())

		r = NewReplayer(engine, reftrace.MustParse("0R 1W 9R 2R"))
		r.AddSink(sink)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should give every run a unique ID", func() {
		other := NewReplayer(engine, nil)

		Expect(r.ID()).NotTo(BeEmpty())
		Expect(r.ID()).NotTo(Equal(other.ID()))
	})

	It("should replay one reference per step", func() {
		sink.EXPECT().Accept(Step{
			Index:     1,
			Reference: pagetable.Reference{Page: 0, Operation: pagetable.Read},
			Outcome: pagetable.Outcome{
				Kind: pagetable.Fault, Page: 0, Frame: 0,
			},
		})

		step, ok := r.Step()

		Expect(ok).To(BeTrue())
		Expect(step.String()).To(Equal(
			"Step 1: FAULT: LOADED Page 0 into Frame 0. Operation: READ"))
		Expect(r.Position()).To(Equal(1))
		Expect(r.Done()).To(BeFalse())
	})

	It("should report unknown pages and keep going", func() {
		sink.EXPECT().Accept(gomock.Any()).Times(4)

		steps := []Step{}
		for {
			step, ok := r.Step()
			if !ok {
				break
			}
			steps = append(steps, step)
		}

		Expect(steps).To(HaveLen(4))
		Expect(steps[2].Err).To(MatchError(pagetable.ErrUnknownPage))
		Expect(steps[2].String()).To(HavePrefix("Step 3: ERROR:"))
		Expect(steps[3].Outcome.Eviction).NotTo(BeNil())
		Expect(steps[3].Outcome.Eviction.VictimPage).To(Equal(0))
		Expect(r.Done()).To(BeTrue())
	})

	It("should run the whole trace", func() {
		sink.EXPECT().Accept(gomock.Any()).Times(4)

		err := r.Run(context.Background())

		Expect(err).NotTo(HaveOccurred())
		Expect(r.Position()).To(Equal(4))
		Expect(r.Snapshot().Resident).To(Equal([]int{2, 1}))
	})

	It("should stop when the context is cancelled", func() {
		sink.EXPECT().Accept(gomock.Any()).AnyTimes()
		r.WithDelay(time.Hour)

		ctx, cancel := context.WithCancel(context.Background())
		errs := make(chan error, 1)
		go func() { errs <- r.Run(ctx) }()

		Eventually(r.Position).Should(Equal(1))
		cancel()

		Eventually(errs).Should(Receive(MatchError(context.Canceled)))
		Expect(r.Position()).To(Equal(1))
	})

	It("should hold while paused", func() {
		sink.EXPECT().Accept(gomock.Any()).Times(4)
		r.Pause()
		Expect(r.Paused()).To(BeTrue())

		done := make(chan error, 1)
		go func() { done <- r.Run(context.Background()) }()

		Consistently(r.Position, 50*time.Millisecond).Should(Equal(0))

		_, ok := r.Step()
		Expect(ok).To(BeTrue())
		Expect(r.Position()).To(Equal(1))

		r.Continue()

		Eventually(done).Should(Receive(BeNil()))
		Expect(r.Done()).To(BeTrue())
	})
})
