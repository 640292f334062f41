package authcmder_test

import (
	"bytes"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	authcmder "github.com/papercomputeco/panelctl/cmd/panelctl/auth"
	"github.com/papercomputeco/panelctl/pkg/credentials"
)

var _ = Describe("Auth Command", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		GinkgoT().Setenv("PANELCTL_SERVER_URL", "")
	})

	execute := func(stdin string, args ...string) (string, error) {
		cmd := authcmder.NewAuthCmd()
		cmd.PersistentFlags().String("config-dir", "", "Override path to .panelctl/ config directory")
		out := &bytes.Buffer{}
		cmd.SetOut(out)
		cmd.SetIn(strings.NewReader(stdin))
		cmd.SetArgs(append(args, "--config-dir", tmpDir))
		err := cmd.Execute()
		return out.String(), err
	}

	manager := func() *credentials.Manager {
		mgr, err := credentials.NewManager(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		return mgr
	}

	Describe("NewAuthCmd", func() {
		It("creates a command with expected properties", func() {
			cmd := authcmder.NewAuthCmd()
			Expect(cmd.Use).To(Equal("auth"))
			Expect(cmd.Short).NotTo(BeEmpty())
			Expect(cmd.Flags().Lookup("list")).NotTo(BeNil())
			Expect(cmd.Flags().Lookup("remove")).NotTo(BeNil())
			Expect(cmd.Flags().Lookup("server")).NotTo(BeNil())
		})

		It("rejects positional arguments", func() {
			_, err := execute("", "extra")
			Expect(err).To(HaveOccurred())
		})
	})

	It("stores a piped token for the configured server", func() {
		out, err := execute("secret-token\n")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("http://localhost:8090"))

		token, err := manager().GetToken("http://localhost:8090")
		Expect(err).NotTo(HaveOccurred())
		Expect(token).To(Equal("secret-token"))
	})

	It("stores the token for --server", func() {
		_, err := execute("  other  \n", "--server", "https://panel.example/")
		Expect(err).NotTo(HaveOccurred())

		token, err := manager().GetToken("https://panel.example")
		Expect(err).NotTo(HaveOccurred())
		Expect(token).To(Equal("other"))
	})

	It("rejects an empty token", func() {
		_, err := execute("   \n")
		Expect(err).To(MatchError(ContainSubstring("empty")))
	})

	It("fails without input", func() {
		_, err := execute("")
		Expect(err).To(MatchError(ContainSubstring("no input")))
	})

	Describe("--list flag", func() {
		It("shows no tokens when none stored", func() {
			out, err := execute("", "--list")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("No stored tokens"))
		})

		It("lists stored servers with a token hint", func() {
			Expect(manager().SetToken("https://a.example", "sk-panel-wxyz9876")).To(Succeed())

			out, err := execute("", "--list")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("https://a.example"))
			Expect(out).To(ContainSubstring("…9876"))
			Expect(out).NotTo(ContainSubstring("sk-panel-wxyz9876"))
		})
	})

	Describe("--remove flag", func() {
		It("removes a stored token", func() {
			Expect(manager().SetToken("https://a.example", "t")).To(Succeed())

			_, err := execute("", "--remove", "https://a.example")
			Expect(err).NotTo(HaveOccurred())

			stored, err := manager().List()
			Expect(err).NotTo(HaveOccurred())
			Expect(stored).To(BeEmpty())
		})

		It("says so when nothing was stored", func() {
			out, err := execute("", "--remove", "https://b.example")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("No token stored"))
		})
	})
})
