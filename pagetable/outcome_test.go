package pagetable

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Outcome", func() {
	It("should report write-backs for dirty victims only", func() {
		clean := Outcome{Kind: Fault, Eviction: &Eviction{WasDirty: false}}
		dirty := Outcome{Kind: Fault, Eviction: &Eviction{WasDirty: true}}

		Expect(Outcome{Kind: Hit}.WriteBackRequired()).To(BeFalse())
		Expect(clean.WriteBackRequired()).To(BeFalse())
		Expect(dirty.WriteBackRequired()).To(BeTrue())
	})

	It("should encode kinds and operations by name", func() {
		o := Outcome{
			Kind: Fault, Page: 4, Frame: 1, Operation: Write,
			Eviction: &Eviction{VictimPage: 0, VictimFrame: 1},
		}

		data, err := json.Marshal(o)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring(`"kind":"FAULT"`))
		Expect(string(data)).To(ContainSubstring(`"operation":"WRITE"`))

		var decoded Outcome
		Expect(json.Unmarshal(data, &decoded)).To(Succeed())
		Expect(decoded).To(Equal(o))
	})

	It("should reject unknown names", func() {
		var o Outcome

		err := json.Unmarshal([]byte(`{"kind":"MISS"}`), &o)

		Expect(err).To(HaveOccurred())
	})
})
