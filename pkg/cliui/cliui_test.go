package cliui_test

import (
	"bytes"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/folio/pkg/cliui"
)

var _ = Describe("cliui", func() {
	Describe("FormatDuration", func() {
		It("uses milliseconds under a second", func() {
			Expect(cliui.FormatDuration(42 * time.Millisecond)).To(Equal("42ms"))
		})

		It("uses seconds with one decimal otherwise", func() {
			Expect(cliui.FormatDuration(3200 * time.Millisecond)).To(Equal("3.2s"))
		})
	})

	Describe("Mark", func() {
		It("returns the success mark for nil errors", func() {
			Expect(cliui.Mark(nil)).To(Equal(cliui.SuccessMark))
		})

		It("returns the fail mark for errors", func() {
			Expect(cliui.Mark(errors.New("boom"))).To(Equal(cliui.FailMark))
		})
	})

	Describe("Step", func() {
		It("returns the function's error and prints the message", func() {
			var buf bytes.Buffer
			err := cliui.Step(&buf, "syncing projects", func() error {
				return errors.New("index unavailable")
			})
			Expect(err).To(MatchError("index unavailable"))
			Expect(buf.String()).To(ContainSubstring("syncing projects"))
		})
	})

	Describe("VisibilityBadge", func() {
		It("keeps the visibility text", func() {
			Expect(cliui.VisibilityBadge("unlisted")).To(ContainSubstring("unlisted"))
		})
	})
})
