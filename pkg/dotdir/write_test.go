package dotdir_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/panelctl/pkg/dotdir"
)

var _ = Describe("WriteFile", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("creates the file owner-only", func() {
		path := filepath.Join(dir, "config.toml")
		Expect(dotdir.WriteFile(path, []byte("a = 1\n"))).To(Succeed())

		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal("a = 1\n"))

		info, err := os.Stat(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o600)))
	})

	It("replaces existing content without leaving temp files", func() {
		path := filepath.Join(dir, "config.toml")
		Expect(os.WriteFile(path, []byte("old, longer content\n"), 0o644)).To(Succeed())
		Expect(dotdir.WriteFile(path, []byte("new\n"))).To(Succeed())

		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal("new\n"))

		entries, err := os.ReadDir(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(1))
	})

	It("fails when the directory is missing", func() {
		err := dotdir.WriteFile(filepath.Join(dir, "missing", "config.toml"), []byte("x"))
		Expect(err).To(MatchError(ContainSubstring("writing config.toml")))
	})
})
