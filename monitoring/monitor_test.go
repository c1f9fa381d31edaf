package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pagesim/pagetable"
	"github.com/sarchlab/pagesim/reftrace"
	"github.com/sarchlab/pagesim/replay"
	"github.com/sarchlab/pagesim/tracing"
)

var _ = Describe("Monitor", func() {
	var (
		m        *Monitor
		replayer *replay.Replayer
		counter  *tracing.StatsCounter
		router   http.Handler
	)

	request := func(method, path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(method, path, nil))

		return rec
	}

	decode := func(rec *httptest.ResponseRecorder, v any) {
		Expect(json.Unmarshal(rec.Body.Bytes(), v)).To(Succeed())
	}

	BeforeEach(func() {
		counter = tracing.NewStatsCounter()

		engine, err := pagetable.MakeBuilder().
			WithPageRange(5).
			WithCapacity(3).
			WithHook(counter).
			Build()
		Expect(err).NotTo(HaveOccurred())

		replayer = replay.NewReplayer(engine, reftrace.MustParse("2R 2W 9R"))

		m = NewMonitor()
		m.RegisterController(replayer)
		m.RegisterStatsCounter(counter)
		replayer.AddSink(m)

		router = m.Router()
	})

	It("should fall back to a random port below 1000", func() {
		Expect(NewMonitor().WithPortNumber(80).portNumber).To(Equal(0))
		Expect(NewMonitor().WithPortNumber(8080).portNumber).To(Equal(8080))
	})

	It("should serve the page table", func() {
		replayer.Step()

		rec := request(http.MethodGet, "/api/pagetable")

		Expect(rec.Code).To(Equal(http.StatusOK))

		var snapshot pagetable.Snapshot
		decode(rec, &snapshot)
		Expect(snapshot).To(Equal(replayer.Snapshot()))
		Expect(snapshot.Resident).To(Equal([]int{2}))
	})

	It("should serve a single entry", func() {
		replayer.Step()

		rec := request(http.MethodGet, "/api/pagetable/2")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var entry pagetable.PageEntry
		decode(rec, &entry)
		Expect(entry.Valid).To(BeTrue())
		Expect(entry.FrameNumber).To(Equal(0))

		Expect(request(http.MethodGet, "/api/pagetable/42").Code).
			To(Equal(http.StatusNotFound))
	})

	It("should step the replay", func() {
		rec := request(http.MethodPost, "/api/step")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var rsp stepRsp
		decode(rec, &rsp)
		Expect(rsp.Index).To(Equal(1))
		Expect(rsp.Outcome.Kind).To(Equal(pagetable.Fault))
		Expect(rsp.Message).To(Equal(
			"Step 1: FAULT: LOADED Page 2 into Frame 0. Operation: READ"))

		request(http.MethodPost, "/api/step")
		decode(request(http.MethodPost, "/api/step"), &rsp)
		Expect(rsp.Outcome).To(BeNil())
		Expect(rsp.Error).To(ContainSubstring("page 9"))

		Expect(request(http.MethodPost, "/api/step").Code).
			To(Equal(http.StatusConflict))
	})

	It("should only step on POST", func() {
		Expect(request(http.MethodGet, "/api/step").Code).
			To(Equal(http.StatusMethodNotAllowed))
		Expect(replayer.Position()).To(Equal(0))
	})

	It("should pause and continue", func() {
		request(http.MethodGet, "/api/pause")
		Expect(replayer.Paused()).To(BeTrue())

		var rsp progressRsp
		decode(request(http.MethodGet, "/api/progress"), &rsp)
		Expect(rsp.Paused).To(BeTrue())

		request(http.MethodGet, "/api/continue")
		Expect(replayer.Paused()).To(BeFalse())
	})

	It("should report progress with the last message", func() {
		replayer.Step()
		replayer.Step()

		var rsp progressRsp
		decode(request(http.MethodGet, "/api/progress"), &rsp)

		Expect(rsp).To(Equal(progressRsp{
			Position:    2,
			Total:       3,
			LastMessage: "Step 2: HIT: Page 2 accessed (Frame 0). Operation: WRITE",
		}))
	})

	It("should report statistics", func() {
		for {
			if _, ok := replayer.Step(); !ok {
				break
			}
		}

		var rsp map[string]any
		decode(request(http.MethodGet, "/api/stats"), &rsp)

		Expect(rsp["hits"]).To(BeEquivalentTo(1))
		Expect(rsp["faults"]).To(BeEquivalentTo(1))
		Expect(rsp["unknown_pages"]).To(BeEquivalentTo(1))
		Expect(rsp["hit_ratio"]).To(BeEquivalentTo(0.5))
	})

	It("should reject a bad serialization depth", func() {
		Expect(request(http.MethodGet, "/api/engine?depth=x").Code).
			To(Equal(http.StatusBadRequest))
	})

	It("should serve the static page", func() {
		rec := request(http.MethodGet, "/")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("Visual Page Table"))
	})
})
