package foliocmder_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	foliocmder "github.com/papercomputeco/folio/cmd/folio"
)

var _ = Describe("NewFolioCmd", func() {
	It("registers every subcommand", func() {
		cmd := foliocmder.NewFolioCmd()
		names := make([]string, 0, len(cmd.Commands()))
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements("serve", "sync", "chat", "search", "projects", "seed", "config", "init", "version"))
	})

	It("has global --debug and --config-dir flags", func() {
		cmd := foliocmder.NewFolioCmd()
		Expect(cmd.PersistentFlags().Lookup("debug").Shorthand).To(Equal("d"))
		Expect(cmd.PersistentFlags().Lookup("config-dir")).NotTo(BeNil())
	})

	It("exposes --config-dir to subcommands", func() {
		cmd := foliocmder.NewFolioCmd()
		sub, _, err := cmd.Find([]string{"config", "list"})
		Expect(err).NotTo(HaveOccurred())
		Expect(sub.InheritedFlags().Lookup("config-dir")).NotTo(BeNil())
	})
})
