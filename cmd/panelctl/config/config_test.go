package configcmder_test

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	configcmder "github.com/papercomputeco/panelctl/cmd/panelctl/config"
	"github.com/papercomputeco/panelctl/pkg/config"
)

var _ = Describe("NewConfigCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := configcmder.NewConfigCmd()
		Expect(cmd.Use).To(Equal("config"))
	})

	It("has set, get, unset, and list subcommands", func() {
		cmd := configcmder.NewConfigCmd()
		cmds := cmd.Commands()
		subcommands := make([]string, 0, len(cmds))
		for _, sub := range cmds {
			subcommands = append(subcommands, sub.Name())
		}
		Expect(subcommands).To(ContainElements("set", "get", "unset", "list"))
	})
})

var _ = Describe("Config command execution", func() {
	var (
		tmpDir  string
		origDir string
		out     *bytes.Buffer
	)

	newCmd := func(args ...string) *cobra.Command {
		cmd := configcmder.NewConfigCmd()
		cmd.SetOut(out)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs(args)
		return cmd
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "panelctl-config-test-*")
		Expect(err).NotTo(HaveOccurred())

		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		// Create a local .panelctl dir so the manager picks it up
		err = os.MkdirAll(filepath.Join(tmpDir, ".panelctl"), 0o755)
		Expect(err).NotTo(HaveOccurred())

		err = os.Chdir(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		out = &bytes.Buffer{}
	})

	AfterEach(func() {
		err := os.Chdir(origDir)
		Expect(err).NotTo(HaveOccurred())
		os.RemoveAll(tmpDir)
	})

	Describe("set subcommand", func() {
		It("sets a config value successfully", func() {
			err := newCmd("set", "server.url", "https://panel.example").Execute()
			Expect(err).NotTo(HaveOccurred())

			// Verify the config file was created
			_, err = os.Stat(filepath.Join(tmpDir, ".panelctl", "config.toml"))
			Expect(err).NotTo(HaveOccurred())

			cfger, err := config.NewConfiger("")
			Expect(err).NotTo(HaveOccurred())
			cfg, err := cfger.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Server.URL).To(Equal("https://panel.example"))
		})

		It("rejects unknown keys", func() {
			err := newCmd("set", "invalid_key", "value").Execute()
			Expect(err).To(MatchError(ContainSubstring("Valid keys: server.url")))
		})

		It("echoes the normalized value", func() {
			Expect(newCmd("set", "server.url", "https://panel.example/").Execute()).To(Succeed())
			Expect(out.String()).To(ContainSubstring("https://panel.example"))
			Expect(out.String()).NotTo(ContainSubstring("https://panel.example/"))
		})

		It("rejects URLs without a scheme", func() {
			err := newCmd("set", "server.url", "panel.example").Execute()
			Expect(err).To(MatchError(ContainSubstring("invalid value for server.url")))
		})

		It("requires exactly two arguments", func() {
			err := newCmd("set", "server.url").Execute()
			Expect(err).To(HaveOccurred())
		})

		It("rejects invalid bool values", func() {
			err := newCmd("set", "chat.flush_tail", "sometimes").Execute()
			Expect(err).To(HaveOccurred())
		})

		It("rejects unknown event stream providers", func() {
			err := newCmd("set", "eventstream.provider", "carrier-pigeon").Execute()
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("get subcommand", func() {
		It("gets a previously set value", func() {
			Expect(newCmd("set", "eventstream.topic", "audit").Execute()).To(Succeed())

			out.Reset()
			err := newCmd("get", "eventstream.topic").Execute()
			Expect(err).NotTo(HaveOccurred())
			Expect(out.String()).To(ContainSubstring("audit"))
		})

		It("rejects unknown keys", func() {
			err := newCmd("get", "invalid_key").Execute()
			Expect(err).To(HaveOccurred())
		})

		It("requires exactly one argument", func() {
			err := newCmd("get").Execute()
			Expect(err).To(HaveOccurred())
		})

		It("prints only the value with --raw", func() {
			Expect(newCmd("set", "server.token", "super-secret").Execute()).To(Succeed())

			out.Reset()
			Expect(newCmd("get", "--raw", "server.token").Execute()).To(Succeed())
			Expect(out.String()).To(Equal("super-secret\n"))
		})

		It("masks the token without --raw", func() {
			Expect(newCmd("set", "server.token", "super-secret").Execute()).To(Succeed())

			out.Reset()
			Expect(newCmd("get", "server.token").Execute()).To(Succeed())
			Expect(out.String()).NotTo(ContainSubstring("super-secret"))
		})
	})

	Describe("unset subcommand", func() {
		It("restores the default", func() {
			Expect(newCmd("set", "devserver.listen", ":9999").Execute()).To(Succeed())

			out.Reset()
			Expect(newCmd("unset", "devserver.listen").Execute()).To(Succeed())
			Expect(out.String()).To(ContainSubstring(":8090"))

			out.Reset()
			Expect(newCmd("get", "--raw", "devserver.listen").Execute()).To(Succeed())
			Expect(out.String()).To(Equal(":8090\n"))
		})

		It("rejects unknown keys", func() {
			Expect(newCmd("unset", "invalid_key").Execute()).To(HaveOccurred())
		})
	})

	Describe("list subcommand", func() {
		It("lists every key", func() {
			err := newCmd("list").Execute()
			Expect(err).NotTo(HaveOccurred())
			for _, key := range config.ValidConfigKeys() {
				Expect(out.String()).To(ContainSubstring(key))
			}
		})

		It("masks the server token", func() {
			Expect(newCmd("set", "server.token", "super-secret").Execute()).To(Succeed())

			out.Reset()
			err := newCmd("list").Execute()
			Expect(err).NotTo(HaveOccurred())
			Expect(out.String()).NotTo(ContainSubstring("super-secret"))
			Expect(out.String()).To(ContainSubstring("********"))
		})

		It("rejects any arguments", func() {
			err := newCmd("list", "extra").Execute()
			Expect(err).To(HaveOccurred())
		})
	})
})
