package pagetable

import (
	"errors"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/pagesim/hooking"
	"github.com/sarchlab/pagesim/pagetable/internal/lru"
)

func mustReference(e *Engine, page int, isWrite bool) Outcome {
	outcome, err := e.Reference(page, isWrite)
	Expect(err).NotTo(HaveOccurred())

	return outcome
}

func checkInvariants(e *Engine) {
	resident := e.Resident()
	Expect(len(resident)).To(BeNumerically("<=", e.Capacity()))

	frames := map[int]int{}
	numValid := 0

	for _, p := range e.Pages() {
		entry, _ := e.Entry(p)

		if !entry.Valid {
			Expect(entry.FrameNumber).To(Equal(Unmapped))
			Expect(resident).NotTo(ContainElement(p))

			continue
		}

		numValid++
		Expect(resident).To(ContainElement(p))
		Expect(entry.FrameNumber).To(BeNumerically(">=", 0))
		Expect(entry.FrameNumber).To(BeNumerically("<", e.Capacity()))

		owner, used := frames[entry.FrameNumber]
		Expect(used).To(BeFalse(),
			"frame %d held by pages %d and %d", entry.FrameNumber, owner, p)
		frames[entry.FrameNumber] = p
	}

	Expect(numValid).To(Equal(len(resident)))
}

var _ = Describe("Engine", func() {
	Context("when created", func() {
		It("should reject a capacity below one", func() {
			e, err := NewEngine([]int{0, 1}, 0)

			Expect(e).To(BeNil())
			Expect(err).To(MatchError(ErrInvalidConfiguration))
		})

		It("should reject negative page numbers", func() {
			_, err := NewEngine([]int{0, -1}, 2)

			Expect(err).To(MatchError(ErrInvalidConfiguration))
		})

		It("should start with every page unloaded", func() {
			e, err := NewEngine([]int{3, 1, 2, 1}, 2)
			Expect(err).NotTo(HaveOccurred())

			Expect(e.Pages()).To(Equal([]int{1, 2, 3}))
			Expect(e.Resident()).To(BeEmpty())

			for _, p := range e.Pages() {
				entry, found := e.Entry(p)
				Expect(found).To(BeTrue())
				Expect(entry.Valid).To(BeFalse())
				Expect(entry.FrameNumber).To(Equal(Unmapped))
			}
		})
	})

	Context("with free frames", func() {
		var e *Engine

		BeforeEach(func() {
			var err error
			e, err = NewEngine([]int{0, 1, 2, 3}, 3)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should hand out frames in order on faults", func() {
			o0 := mustReference(e, 2, false)
			o1 := mustReference(e, 0, false)

			Expect(o0).To(Equal(Outcome{
				Kind: Fault, Page: 2, Frame: 0, Operation: Read,
			}))
			Expect(o1.Frame).To(Equal(1))
			Expect(o1.Eviction).To(BeNil())
			Expect(e.Resident()).To(Equal([]int{0, 2}))
		})

		It("should hit a loaded page", func() {
			mustReference(e, 1, false)

			outcome := mustReference(e, 1, true)

			Expect(outcome).To(Equal(Outcome{
				Kind: Hit, Page: 1, Frame: 0, Operation: Write,
			}))

			entry, _ := e.Entry(1)
			Expect(entry.Dirty).To(BeTrue())
		})

		It("should mark the page dirty on a write fault", func() {
			outcome := mustReference(e, 3, true)

			Expect(outcome.IsFault()).To(BeTrue())
			Expect(outcome.Operation).To(Equal(Write))

			entry, _ := e.Entry(3)
			Expect(entry.Dirty).To(BeTrue())
			Expect(entry.Referenced).To(BeTrue())
		})

		It("should keep repeated read hits stable", func() {
			mustReference(e, 0, false)
			mustReference(e, 1, false)
			mustReference(e, 2, false)

			for i := 0; i < 5; i++ {
				outcome := mustReference(e, 1, false)

				Expect(outcome.IsHit()).To(BeTrue())
				Expect(outcome.Frame).To(Equal(1))
				Expect(outcome.Eviction).To(BeNil())
				Expect(e.Resident()[0]).To(Equal(1))
			}
		})
	})

	Context("with a full frame pool", func() {
		var e *Engine

		BeforeEach(func() {
			var err error
			e, err = NewEngine([]int{0, 1, 2, 3, 4}, 3)
			Expect(err).NotTo(HaveOccurred())

			mustReference(e, 0, false)
			mustReference(e, 1, false)
			mustReference(e, 2, false)
		})

		It("should evict the least recently used page", func() {
			mustReference(e, 0, false)

			outcome := mustReference(e, 3, false)

			Expect(outcome.Eviction).To(Equal(&Eviction{
				VictimPage: 1, VictimFrame: 1, WasDirty: false,
			}))
			Expect(outcome.Frame).To(Equal(1))
			Expect(e.Resident()).To(Equal([]int{3, 0, 2}))
		})

		It("should report a dirty victim", func() {
			mustReference(e, 0, true)
			mustReference(e, 1, false)
			mustReference(e, 2, false)

			outcome := mustReference(e, 3, false)

			Expect(outcome.Eviction.VictimPage).To(Equal(0))
			Expect(outcome.WriteBackRequired()).To(BeTrue())
		})

		It("should clear the victim state on eviction", func() {
			mustReference(e, 0, true)
			mustReference(e, 1, false)
			mustReference(e, 2, false)

			mustReference(e, 3, false)

			victim, _ := e.Entry(0)
			Expect(victim).To(Equal(PageEntry{
				PageNumber: 0, FrameNumber: Unmapped,
			}))
		})

		It("should not carry the dirty bit into the next residency", func() {
			mustReference(e, 0, true)
			mustReference(e, 1, false)
			mustReference(e, 2, false)
			mustReference(e, 3, false)
			mustReference(e, 4, false)
			mustReference(e, 1, false)

			outcome := mustReference(e, 0, false)

			entry, _ := e.Entry(0)
			Expect(outcome.IsFault()).To(BeTrue())
			Expect(entry.Dirty).To(BeFalse())
		})

		It("should leave the state untouched on an unknown page", func() {
			before := e.Snapshot()

			_, err := e.Reference(9, true)

			Expect(errors.Is(err, ErrUnknownPage)).To(BeTrue())
			var unknown *UnknownPageError
			Expect(errors.As(err, &unknown)).To(BeTrue())
			Expect(unknown.Page).To(Equal(9))
			Expect(e.Snapshot()).To(Equal(before))

			outcome := mustReference(e, 2, false)
			Expect(outcome.IsHit()).To(BeTrue())
		})
	})

	It("should keep its invariants over a long random trace", func() {
		e, err := NewEngine([]int{0, 1, 2, 3, 4, 5, 6, 7}, 4)
		Expect(err).NotTo(HaveOccurred())

		rng := rand.New(rand.NewSource(42))
		lastUse := map[int]int{}
		written := map[int]bool{}

		for step := 0; step < 500; step++ {
			page := rng.Intn(8)
			isWrite := rng.Intn(3) == 0
			resident := e.Resident()

			outcome := mustReference(e, page, isWrite)

			if outcome.Eviction != nil {
				victim := outcome.Eviction.VictimPage
				for _, p := range resident {
					Expect(lastUse[p]).To(BeNumerically(">=", lastUse[victim]))
				}
				Expect(outcome.Eviction.WasDirty).To(Equal(written[victim]))
				written[victim] = false
			}

			lastUse[page] = step
			if isWrite {
				written[page] = true
			}

			checkInvariants(e)
		}
	})

	Context("with hooks", func() {
		var (
			mockCtrl *gomock.Controller
			hook     *MockHook
			e        *Engine
		)

		BeforeEach(func() {
			mockCtrl = gomock.NewController(GinkgoT())
			hook = NewMockHook(mockCtrl)

			var err error
			e, err = MakeBuilder().
				WithPageRange(3).
				WithCapacity(1).
				WithHook(hook).
				Build()
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			mockCtrl.Finish()
		})

		It("should publish every outcome", func() {
			hook.EXPECT().Func(hooking.HookCtx{
				Domain: e,
				Pos:    HookPosReference,
				Item:   Reference{Page: 1, Operation: Read},
				Detail: Outcome{Kind: Fault, Page: 1, Frame: 0},
			})

			mustReference(e, 1, false)
		})

		It("should publish evictions before the outcome", func() {
			hook.EXPECT().Func(gomock.Any())
			mustReference(e, 0, true)

			ref := Reference{Page: 2, Operation: Read}
			gomock.InOrder(
				hook.EXPECT().Func(hooking.HookCtx{
					Domain: e,
					Pos:    HookPosEviction,
					Item:   ref,
					Detail: Eviction{VictimPage: 0, VictimFrame: 0, WasDirty: true},
				}),
				hook.EXPECT().
					Func(gomock.Any()).
					Do(func(ctx hooking.HookCtx) {
						Expect(ctx.Pos).To(Equal(HookPosReference))
					}),
			)

			mustReference(e, 2, false)
		})

		It("should publish unknown pages", func() {
			hook.EXPECT().
				Func(gomock.Any()).
				Do(func(ctx hooking.HookCtx) {
					Expect(ctx.Pos).To(Equal(HookPosUnknownPage))
					Expect(ctx.Detail).To(MatchError(ErrUnknownPage))
				})

			_, err := e.Reference(5, false)
			Expect(err).To(HaveOccurred())
		})
	})

	Context("with broken invariants", func() {
		It("should panic when no frame is left to hand out", func() {
			e, _ := NewEngine([]int{0, 1}, 1)
			e.nextFreeFrame = 1

			Expect(func() { _, _ = e.Reference(0, false) }).
				To(PanicWith(MatchError(ErrInternalInconsistency)))
		})

		It("should panic when there is nothing to evict", func() {
			e, _ := NewEngine([]int{0, 1}, 1)
			e.capacity = 0
			e.lru = lru.New()

			Expect(func() { _, _ = e.Reference(0, false) }).
				To(PanicWith(MatchError(ErrInternalInconsistency)))
		})
	})
})
