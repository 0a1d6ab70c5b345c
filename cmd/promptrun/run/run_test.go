package runcmder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	historycmder "github.com/promptworksco/promptrun/cmd/promptrun/history"
	"github.com/promptworksco/promptrun/pkg/llm"
	"github.com/promptworksco/promptrun/pkg/transcript"
)

var _ = Describe("Run Command", func() {
	var (
		ctx        context.Context
		tmpDir     string
		configPath string
	)

	BeforeEach(func() {
		ctx = context.Background()
		tmpDir = GinkgoT().TempDir()

		// An explicit empty config keeps the test independent of anything
		// in the invoking user's home directory.
		configPath = filepath.Join(tmpDir, "config.toml")
		Expect(os.WriteFile(configPath, []byte(""), 0o644)).To(Succeed())
	})

	startUpstream := func(handler http.HandlerFunc) *httptest.Server {
		srv := httptest.NewServer(handler)
		DeferCleanup(srv.Close)
		return srv
	}

	runCommand := func(args ...string) string {
		cmd := NewRunCmd()
		cmd.SetArgs(append([]string{"--config", configPath}, args...))

		var buf bytes.Buffer
		cmd.SetOut(&buf)
		cmd.SetErr(&buf)

		Expect(cmd.ExecuteContext(ctx)).To(Succeed())
		return buf.String()
	}

	envelope := func(mode, prompt string) string {
		return fmt.Sprintf(`{"api_key":"sk-test","mode":%q,"model":"test-model","prompt":%q}`, mode, prompt)
	}

	It("prints SUCCESS and the chat answer", func() {
		upstream := startUpstream(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/v1/chat/completions"))
			Expect(r.Header.Get("Authorization")).To(Equal("Bearer sk-test"))

			json.NewEncoder(w).Encode(llm.ChatResponse{
				Model: "test-model",
				Choices: []llm.ChatChoice{
					{Message: llm.Message{Role: "assistant", Content: "hello back"}},
				},
			})
		})

		out := runCommand("--base-url", upstream.URL, envelope("chat", "say hello"))

		lines := strings.SplitN(strings.TrimRight(out, "\n"), "\n", 2)
		Expect(lines[0]).To(Equal("SUCCESS"))
		Expect(lines[1]).To(Equal("hello back"))
	})

	It("prints SUCCESS and the completion text", func() {
		upstream := startUpstream(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/v1/completions"))

			json.NewEncoder(w).Encode(llm.CompletionResponse{
				Model: "test-model",
				Choices: []llm.CompletionChoice{
					{Text: "4"},
				},
			})
		})

		out := runCommand("--base-url", upstream.URL, envelope("completion", "2+2="))

		Expect(out).To(HavePrefix("SUCCESS\n4\n"))
	})

	It("defaults the temperature to 0.5", func() {
		var gotReq llm.ChatRequest
		upstream := startUpstream(func(w http.ResponseWriter, r *http.Request) {
			Expect(json.NewDecoder(r.Body).Decode(&gotReq)).To(Succeed())
			json.NewEncoder(w).Encode(llm.ChatResponse{
				Choices: []llm.ChatChoice{{Message: llm.Message{Content: "ok"}}},
			})
		})

		runCommand("--base-url", upstream.URL, envelope("chat", "hi"))

		Expect(gotReq.Temperature).NotTo(BeNil())
		Expect(*gotReq.Temperature).To(Equal(0.5))
	})

	It("passes an explicit temperature through", func() {
		var gotReq llm.ChatRequest
		upstream := startUpstream(func(w http.ResponseWriter, r *http.Request) {
			Expect(json.NewDecoder(r.Body).Decode(&gotReq)).To(Succeed())
			json.NewEncoder(w).Encode(llm.ChatResponse{
				Choices: []llm.ChatChoice{{Message: llm.Message{Content: "ok"}}},
			})
		})

		raw := `{"api_key":"sk-test","mode":"chat","model":"test-model","prompt":"hi","temperature":1.3}`
		runCommand("--base-url", upstream.URL, raw)

		Expect(gotReq.Temperature).NotTo(BeNil())
		Expect(*gotReq.Temperature).To(Equal(1.3))
	})

	It("prints ERROR with a trace for invalid JSON", func() {
		out := runCommand(`{"api_key":`)

		Expect(out).To(HavePrefix("ERROR\n"))
		Expect(out).To(ContainSubstring("not valid JSON"))
	})

	It("prints ERROR for a missing key", func() {
		out := runCommand(`{"mode":"chat","model":"m","prompt":"p"}`)

		Expect(out).To(HavePrefix("ERROR\n"))
		Expect(out).To(ContainSubstring("api_key"))
	})

	It("prints ERROR for an unknown mode", func() {
		out := runCommand(envelope("images", "draw me"))

		Expect(out).To(HavePrefix("ERROR\n"))
		Expect(out).To(ContainSubstring(`unknown mode "images"`))
	})

	It("prints ERROR when no request argument is given", func() {
		out := runCommand()

		Expect(out).To(HavePrefix("ERROR\n"))
		Expect(out).To(ContainSubstring("expected exactly one request argument"))
	})

	It("prints ERROR when the API rejects the request", func() {
		upstream := startUpstream(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(llm.ErrorResponse{
				Error: llm.APIError{Message: "Incorrect API key provided"},
			})
		})

		out := runCommand("--base-url", upstream.URL, envelope("chat", "hi"))

		Expect(out).To(HavePrefix("ERROR\n"))
		Expect(out).To(ContainSubstring("api returned 401"))
		Expect(out).To(ContainSubstring("Incorrect API key provided"))
	})

	It("prints ERROR when the upstream is unreachable", func() {
		out := runCommand("--base-url", "http://127.0.0.1:1", envelope("chat", "hi"))

		Expect(out).To(HavePrefix("ERROR\n"))
	})

	Describe("recording", func() {
		It("stores a transcript when --record is set", func() {
			upstream := startUpstream(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(llm.ChatResponse{
					Model: "test-model",
					Choices: []llm.ChatChoice{
						{Message: llm.Message{Role: "assistant", Content: "recorded answer"}},
					},
					Usage: llm.Usage{PromptTokens: 7, CompletionTokens: 4},
				})
			})

			dbPath := filepath.Join(tmpDir, "history.db")
			out := runCommand("--base-url", upstream.URL, "--record", "--sqlite", dbPath, envelope("chat", "record me"))
			Expect(out).To(HavePrefix("SUCCESS\n"))

			storer, err := transcript.NewSQLiteStorer(dbPath)
			Expect(err).NotTo(HaveOccurred())
			defer storer.Close()

			records, err := storer.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(1))
			Expect(records[0].Prompt).To(Equal("record me"))
			Expect(records[0].Response).To(Equal("recorded answer"))
			Expect(records[0].PromptTokens).To(Equal(7))
		})

		It("dedupes identical exchanges across invocations", func() {
			upstream := startUpstream(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(llm.ChatResponse{
					Model: "test-model",
					Choices: []llm.ChatChoice{
						{Message: llm.Message{Role: "assistant", Content: "same answer"}},
					},
				})
			})

			dbPath := filepath.Join(tmpDir, "history.db")
			for i := 0; i < 2; i++ {
				out := runCommand("--base-url", upstream.URL, "--record", "--sqlite", dbPath, envelope("chat", "repeat me"))
				Expect(out).To(HavePrefix("SUCCESS\n"))
			}

			storer, err := transcript.NewSQLiteStorer(dbPath)
			Expect(err).NotTo(HaveOccurred())
			defer storer.Close()

			records, err := storer.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(1))
		})

		It("lets --record=false override record = true in config", func() {
			upstream := startUpstream(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(llm.ChatResponse{
					Choices: []llm.ChatChoice{{Message: llm.Message{Content: "ok"}}},
				})
			})

			dbPath := filepath.Join(tmpDir, "history.db")
			content := fmt.Sprintf("base_url = %q\nrecord = true\nsqlite_path = %q\n", upstream.URL, dbPath)
			Expect(os.WriteFile(configPath, []byte(content), 0o644)).To(Succeed())

			out := runCommand("--record=false", envelope("chat", "hi"))
			Expect(out).To(HavePrefix("SUCCESS\n"))

			_, err := os.Stat(dbPath)
			Expect(os.IsNotExist(err)).To(BeTrue())
		})

		It("does not record without --record", func() {
			upstream := startUpstream(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(llm.ChatResponse{
					Choices: []llm.ChatChoice{{Message: llm.Message{Content: "ok"}}},
				})
			})

			dbPath := filepath.Join(tmpDir, "history.db")
			runCommand("--base-url", upstream.URL, "--sqlite", dbPath, envelope("chat", "hi"))

			_, err := os.Stat(dbPath)
			Expect(os.IsNotExist(err)).To(BeTrue())
		})
	})

	Describe("subcommand errors", func() {
		It("surfaces a failing history show on stderr", func() {
			// Same wiring as main: history hangs off the run root.
			cmd := NewRunCmd()
			cmd.AddCommand(historycmder.NewHistoryCmd())

			dbPath := filepath.Join(tmpDir, "history.db")
			cmd.SetArgs([]string{"history", "show", "nonexistent", "--plain", "--sqlite", dbPath, "--config", configPath})

			var out, errOut bytes.Buffer
			cmd.SetOut(&out)
			cmd.SetErr(&errOut)

			err := cmd.ExecuteContext(ctx)
			Expect(err).To(HaveOccurred())
			Expect(errOut.String()).To(ContainSubstring(`no transcript matches "nonexistent"`))
		})
	})

	Describe("config file", func() {
		It("takes the base URL and recording default from config", func() {
			upstream := startUpstream(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(llm.ChatResponse{
					Choices: []llm.ChatChoice{{Message: llm.Message{Content: "from config"}}},
				})
			})

			dbPath := filepath.Join(tmpDir, "history.db")
			content := fmt.Sprintf("base_url = %q\nrecord = true\nsqlite_path = %q\n", upstream.URL, dbPath)
			Expect(os.WriteFile(configPath, []byte(content), 0o644)).To(Succeed())

			out := runCommand(envelope("chat", "hi"))
			Expect(out).To(HavePrefix("SUCCESS\nfrom config\n"))

			storer, err := transcript.NewSQLiteStorer(dbPath)
			Expect(err).NotTo(HaveOccurred())
			defer storer.Close()

			records, err := storer.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(1))
		})

		It("lets the envelope temperature beat the config default", func() {
			var gotReq llm.ChatRequest
			upstream := startUpstream(func(w http.ResponseWriter, r *http.Request) {
				Expect(json.NewDecoder(r.Body).Decode(&gotReq)).To(Succeed())
				json.NewEncoder(w).Encode(llm.ChatResponse{
					Choices: []llm.ChatChoice{{Message: llm.Message{Content: "ok"}}},
				})
			})

			content := fmt.Sprintf("base_url = %q\ntemperature = 0.9\n", upstream.URL)
			Expect(os.WriteFile(configPath, []byte(content), 0o644)).To(Succeed())

			raw := `{"api_key":"k","mode":"chat","model":"m","prompt":"p","temperature":0.1}`
			runCommand(raw)

			Expect(*gotReq.Temperature).To(Equal(0.1))
		})

		It("uses the config temperature when the envelope has none", func() {
			var gotReq llm.ChatRequest
			upstream := startUpstream(func(w http.ResponseWriter, r *http.Request) {
				Expect(json.NewDecoder(r.Body).Decode(&gotReq)).To(Succeed())
				json.NewEncoder(w).Encode(llm.ChatResponse{
					Choices: []llm.ChatChoice{{Message: llm.Message{Content: "ok"}}},
				})
			})

			content := fmt.Sprintf("base_url = %q\ntemperature = 0.9\n", upstream.URL)
			Expect(os.WriteFile(configPath, []byte(content), 0o644)).To(Succeed())

			runCommand(envelope("chat", "hi"))

			Expect(*gotReq.Temperature).To(Equal(0.9))
		})
	})
})
