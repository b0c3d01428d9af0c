package synccmder_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	synccmder "github.com/papercomputeco/folio/cmd/folio/sync"
)

var _ = Describe("NewSyncCmd", func() {
	It("has all and pending subcommands", func() {
		cmd := synccmder.NewSyncCmd()
		names := make([]string, 0, len(cmd.Commands()))
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ConsistOf("all", "pending"))
	})

	It("gives each subcommand the backend flags", func() {
		cmd := synccmder.NewSyncCmd()
		for _, sub := range cmd.Commands() {
			for _, name := range []string{"storage", "vector-store-provider", "embedding-provider", "namespace", "workers", "journal"} {
				Expect(sub.Flags().Lookup(name)).NotTo(BeNil(), sub.Name()+" --"+name)
			}
		}
	})

	It("rejects positional arguments", func() {
		cmd := synccmder.NewSyncCmd()
		for _, sub := range cmd.Commands() {
			Expect(sub.Args(sub, []string{"extra"})).To(HaveOccurred())
		}
	})
})
