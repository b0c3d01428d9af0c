package provider_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/folio/pkg/llm"
	"github.com/papercomputeco/folio/pkg/llm/provider"
)

var _ = Describe("New", func() {
	ctx := context.Background()

	DescribeTable("requires credentials for hosted providers",
		func(typ string) {
			Expect(provider.NeedsAPIKey(typ)).To(BeTrue())
			_, err := provider.New(ctx, provider.Config{Type: typ})
			Expect(err).To(MatchError(llm.ErrMissingCredentials))
		},
		Entry("openai", provider.OpenAI),
		Entry("anthropic", provider.Anthropic),
		Entry("gemini", provider.Gemini),
	)

	It("builds ollama without credentials", func() {
		s, err := provider.New(ctx, provider.Config{Type: provider.Ollama})
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Name()).To(Equal("ollama"))
	})

	It("builds hosted providers when a key is set", func() {
		s, err := provider.New(ctx, provider.Config{Type: provider.OpenAI, APIKey: "sk"})
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Name()).To(Equal("openai"))
	})

	It("rejects unknown providers", func() {
		_, err := provider.New(ctx, provider.Config{Type: "bedrock"})
		Expect(err).To(MatchError(ContainSubstring(`unknown provider type: "bedrock"`)))
	})
})
