package seed_test

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/folio/pkg/logger"
	"github.com/papercomputeco/folio/pkg/seed"
)

var _ = Describe("Watch", func() {
	It("calls back once per burst of matching changes", func() {
		dir := GinkgoT().TempDir()
		file := filepath.Join(dir, "tides.yaml")
		Expect(os.WriteFile(file, []byte(single), 0o600)).To(Succeed())

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var calls atomic.Int32
		done := make(chan error, 1)
		go func() {
			done <- seed.Watch(ctx, []string{filepath.Join(dir, "*.yaml")}, 50*time.Millisecond, logger.Nop(), func() {
				calls.Add(1)
			})
		}()

		// give the watcher time to register
		time.Sleep(100 * time.Millisecond)

		for range 3 {
			Expect(os.WriteFile(file, []byte(single+"\n"), 0o600)).To(Succeed())
		}
		Expect(os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600)).To(Succeed())

		Eventually(calls.Load).WithTimeout(2 * time.Second).Should(Equal(int32(1)))
		Consistently(calls.Load).WithTimeout(200 * time.Millisecond).Should(Equal(int32(1)))

		cancel()
		Eventually(done).Should(Receive(BeNil()))
	})
})
