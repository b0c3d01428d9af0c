// Package outboxtest holds the conformance suite every outbox.Journal must pass.
package outboxtest

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/folio/pkg/outbox"
)

// DescribeJournal registers the journal conformance specs.
func DescribeJournal(newJournal func() outbox.Journal) {
	var (
		ctx     context.Context
		journal outbox.Journal
	)

	BeforeEach(func() {
		ctx = context.Background()
		journal = newJournal()
	})

	AfterEach(func() {
		Expect(journal.Close()).To(Succeed())
	})

	task := func(projectID string, created time.Time) outbox.Task {
		t := outbox.NewTask(projectID, outbox.OpUpsert)
		t.CreatedAt = created.UTC()
		t.UpdatedAt = created.UTC()
		return t
	}

	It("starts empty", func() {
		Expect(journal.List(ctx)).To(BeEmpty())
	})

	It("lists tasks oldest first", func() {
		base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		Expect(journal.Put(ctx, task("b", base.Add(time.Minute)))).To(Succeed())
		Expect(journal.Put(ctx, task("a", base))).To(Succeed())

		tasks, err := journal.List(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(tasks).To(HaveLen(2))
		Expect(tasks[0].ProjectID).To(Equal("a"))
		Expect(tasks[1].ProjectID).To(Equal("b"))
	})

	It("keeps one task per project", func() {
		first := outbox.NewTask("p1", outbox.OpUpsert)
		second := outbox.NewTask("p1", outbox.OpDelete)
		Expect(journal.Put(ctx, first)).To(Succeed())
		Expect(journal.Put(ctx, second)).To(Succeed())

		tasks, err := journal.List(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(tasks).To(HaveLen(1))
		Expect(tasks[0].ID).To(Equal(second.ID))
		Expect(tasks[0].Op).To(Equal(outbox.OpDelete))
	})

	It("removes a task that succeeded", func() {
		t := outbox.NewTask("p1", outbox.OpUpsert)
		Expect(journal.Put(ctx, t)).To(Succeed())
		Expect(journal.Resolve(ctx, t, nil)).To(Succeed())
		Expect(journal.List(ctx)).To(BeEmpty())
	})

	It("keeps a failed task with its attempt count and error", func() {
		t := outbox.NewTask("p1", outbox.OpUpsert)
		Expect(journal.Put(ctx, t)).To(Succeed())
		Expect(journal.Resolve(ctx, t, errors.New("index unreachable"))).To(Succeed())
		Expect(journal.Resolve(ctx, t, errors.New("still unreachable"))).To(Succeed())

		tasks, err := journal.List(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(tasks).To(HaveLen(1))
		Expect(tasks[0].ID).To(Equal(t.ID))
		Expect(tasks[0].Attempts).To(Equal(2))
		Expect(tasks[0].LastError).To(Equal("still unreachable"))
		Expect(tasks[0].Failed()).To(BeTrue())
	})

	It("leaves a replaced task alone", func() {
		old := outbox.NewTask("p1", outbox.OpUpsert)
		newer := outbox.NewTask("p1", outbox.OpUpsert)
		Expect(journal.Put(ctx, old)).To(Succeed())
		Expect(journal.Put(ctx, newer)).To(Succeed())

		Expect(journal.Resolve(ctx, old, nil)).To(Succeed())
		Expect(journal.Resolve(ctx, old, errors.New("boom"))).To(Succeed())

		tasks, err := journal.List(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(tasks).To(HaveLen(1))
		Expect(tasks[0].ID).To(Equal(newer.ID))
		Expect(tasks[0].Attempts).To(BeZero())
	})

	It("ignores resolving an unknown task", func() {
		Expect(journal.Resolve(ctx, outbox.NewTask("ghost", outbox.OpDelete), nil)).To(Succeed())
	})
}
