package transcript_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/promptworksco/promptrun/pkg/transcript"
)

var _ = Describe("Record", func() {
	exchange := transcript.Exchange{
		Mode:        "chat",
		Model:       "gpt-4o",
		Prompt:      "hello",
		Response:    "hi there",
		Temperature: 0.5,
	}

	Describe("NewRecord", func() {
		It("computes a non-empty ID", func() {
			rec := transcript.NewRecord(exchange, 3, 2)

			Expect(rec.ID).NotTo(BeEmpty())
		})

		It("produces a valid SHA-256 hex string (64 characters)", func() {
			rec := transcript.NewRecord(exchange, 3, 2)

			Expect(rec.ID).To(HaveLen(64))
			Expect(rec.ID).To(MatchRegexp("^[a-f0-9]{64}$"))
		})

		It("produces consistent IDs for the same exchange", func() {
			rec1 := transcript.NewRecord(exchange, 3, 2)
			rec2 := transcript.NewRecord(exchange, 3, 2)

			Expect(rec1.ID).To(Equal(rec2.ID))
		})

		It("ignores token counts in the ID", func() {
			rec1 := transcript.NewRecord(exchange, 3, 2)
			rec2 := transcript.NewRecord(exchange, 100, 200)

			Expect(rec1.ID).To(Equal(rec2.ID))
		})

		It("produces different IDs for different responses", func() {
			other := exchange
			other.Response = "something else"

			rec1 := transcript.NewRecord(exchange, 3, 2)
			rec2 := transcript.NewRecord(other, 3, 2)

			Expect(rec1.ID).NotTo(Equal(rec2.ID))
		})

		It("produces different IDs for different temperatures", func() {
			other := exchange
			other.Temperature = 1.0

			rec1 := transcript.NewRecord(exchange, 3, 2)
			rec2 := transcript.NewRecord(other, 3, 2)

			Expect(rec1.ID).NotTo(Equal(rec2.ID))
		})

		It("sets the creation time", func() {
			rec := transcript.NewRecord(exchange, 3, 2)

			Expect(rec.CreatedAt).NotTo(BeZero())
		})
	})
})
