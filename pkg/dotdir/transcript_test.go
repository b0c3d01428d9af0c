package dotdir_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/folio/pkg/dotdir"
)

var _ = Describe("dotdir.Manager transcript", func() {
	var tmpDir string
	var m *dotdir.Manager

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "dotdir-test-*")
		Expect(err).NotTo(HaveOccurred())
		m = dotdir.NewManager()
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("returns nil when no transcript exists", func() {
		t, err := m.LoadTranscript(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(t).To(BeNil())
	})

	It("returns an error for invalid JSON", func() {
		Expect(os.WriteFile(filepath.Join(tmpDir, "transcript.json"), []byte("nope"), 0o600)).To(Succeed())

		t, err := m.LoadTranscript(tmpDir)
		Expect(err).To(HaveOccurred())
		Expect(t).To(BeNil())
	})

	It("round trips a saved transcript", func() {
		err := m.SaveTranscript(&dotdir.Transcript{
			Target: "http://localhost:8081",
			Messages: []dotdir.TranscriptMessage{
				{Role: "user", Content: "what did you build?"},
				{Role: "assistant", Content: "a few things"},
			},
		}, tmpDir)
		Expect(err).NotTo(HaveOccurred())

		loaded, err := m.LoadTranscript(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.Target).To(Equal("http://localhost:8081"))
		Expect(loaded.Messages).To(HaveLen(2))
		Expect(loaded.Messages[1].Content).To(Equal("a few things"))
	})

	It("refuses to save a nil transcript", func() {
		Expect(m.SaveTranscript(nil, tmpDir)).NotTo(Succeed())
	})

	It("clears the transcript and tolerates a missing file", func() {
		Expect(m.SaveTranscript(&dotdir.Transcript{}, tmpDir)).To(Succeed())
		Expect(m.ClearTranscript(tmpDir)).To(Succeed())
		Expect(m.ClearTranscript(tmpDir)).To(Succeed())

		_, err := os.Stat(filepath.Join(tmpDir, "transcript.json"))
		Expect(os.IsNotExist(err)).To(BeTrue())
	})
})
