// Package chatcmder provides the chat command for talking to a running
// folio API server from the terminal.
package chatcmder

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/folio/cmd/folio/stack"
	"github.com/papercomputeco/folio/pkg/chat"
	"github.com/papercomputeco/folio/pkg/cliui"
	"github.com/papercomputeco/folio/pkg/config"
	"github.com/papercomputeco/folio/pkg/dotdir"
	"github.com/papercomputeco/folio/pkg/llm"
	"github.com/papercomputeco/folio/pkg/prompt"
	"github.com/papercomputeco/folio/pkg/sse"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("assistant> ")
)

// ErrStreamInterrupted is returned when the server ends a stream with an
// error frame.
var ErrStreamInterrupted = errors.New("response interrupted")

const chatLongDesc string = `Chat with the portfolio assistant of a running folio API server.

Answers are streamed as they are generated. With --render the finished
answer is re-drawn as formatted markdown.

The conversation is saved to .folio/transcript.json when a .folio/
directory exists, and --resume continues it.

Examples:
  folio chat
  folio chat --api-target https://api.example.com
  folio chat -m "What did you build with Go?"
  folio chat --resume`

const chatShortDesc string = "Chat with the portfolio assistant"

type chatCommander struct {
	apiTarget string
	message   string
	resume    bool
	render    bool
	configDir string

	client *http.Client
	logger *slog.Logger
}

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := stack.LoadConfig(cmd, config.ClientFlags, []string{config.FlagAPITarget})
			if err != nil {
				return err
			}
			cmder.apiTarget = strings.TrimRight(cfg.Client.APITarget, "/")
			cmder.configDir = stack.ConfigDir(cmd)
			cmder.logger = stack.NewLogger(cmd)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.ClientFlags, config.FlagAPITarget, new(string))
	cmd.Flags().StringVarP(&cmder.message, "message", "m", "", "Ask a single question and exit")
	cmd.Flags().BoolVarP(&cmder.resume, "resume", "r", false, "Continue the saved conversation")
	cmd.Flags().BoolVar(&cmder.render, "render", false, "Render finished answers as markdown")

	return cmd
}

func (c *chatCommander) run(ctx context.Context) error {
	c.client = &http.Client{
		// answers can take a while to generate
		Timeout: 5 * time.Minute,
	}

	ddm := dotdir.NewManager()
	var history []prompt.Turn

	fmt.Println()
	if c.resume {
		t, err := ddm.LoadTranscript(c.configDir)
		if err != nil {
			return fmt.Errorf("loading transcript: %w", err)
		}
		if t != nil {
			for _, m := range t.Messages {
				history = append(history, prompt.Turn{Role: m.Role, Content: m.Content})
			}
			fmt.Printf("  %s Resuming %s\n", cliui.SuccessMark,
				cliui.DimStyle.Render(fmt.Sprintf("(%d messages)", len(history))))
		}
	}

	if c.message != "" {
		answer, err := c.ask(ctx, c.message, history)
		if err != nil {
			return err
		}
		c.save(ddm, remember(history, c.message, answer))
		fmt.Println()
		return nil
	}

	fmt.Printf("  %s %s\n\n", cliui.KeyStyle.Render("Server:"), cliui.NameStyle.Render(c.apiTarget))
	fmt.Printf("  %s\n\n", cliui.DimStyle.Render("Type your question and press Enter. /exit or Ctrl+D to quit."))

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(userPrompt)
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/exit" {
			break
		}

		answer, err := c.ask(ctx, input, history)
		if err != nil {
			fmt.Fprintf(os.Stderr, "\n  %s %v\n\n", cliui.FailMark, err)
			continue
		}

		history = remember(history, input, answer)
		c.save(ddm, history)
		fmt.Print("\n\n")
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Println()
	return nil
}

// ask streams one answer to stdout and returns its full text.
func (c *chatCommander) ask(ctx context.Context, message string, history []prompt.Turn) (string, error) {
	fmt.Print(assistantPrompt)

	req := chat.Request{Message: message, ConversationHistory: history}
	answer, err := Stream(ctx, c.client, c.apiTarget, req, os.Stdout)
	if err != nil {
		return "", err
	}

	if c.render {
		rendered, err := cliui.RenderMarkdown(answer)
		if err != nil {
			c.logger.Debug("failed to render markdown", "error", err)
		} else {
			fmt.Print("\n" + rendered)
		}
	}
	return answer, nil
}

// remember appends a question and its answer, keeping at most as many
// turns as the server accepts.
func remember(history []prompt.Turn, question, answer string) []prompt.Turn {
	history = append(history,
		prompt.Turn{Role: llm.RoleUser, Content: question},
		prompt.Turn{Role: llm.RoleAssistant, Content: answer},
	)
	if len(history) > chat.MaxHistoryTurns {
		history = history[len(history)-chat.MaxHistoryTurns:]
	}
	return history
}

func (c *chatCommander) save(ddm *dotdir.Manager, history []prompt.Turn) {
	t := &dotdir.Transcript{Target: c.apiTarget}
	for _, turn := range history {
		t.Messages = append(t.Messages, dotdir.TranscriptMessage{Role: turn.Role, Content: turn.Content})
	}
	if err := ddm.SaveTranscript(t, c.configDir); err != nil {
		c.logger.Debug("transcript not saved", "error", err)
	}
}

// Stream posts req to the chat endpoint at target and copies every content
// frame to out as it arrives. It returns the concatenated answer.
func Stream(ctx context.Context, client *http.Client, target string, req chat.Request, out io.Writer) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target+"/v1/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr llm.ErrorResponse
		raw, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return "", fmt.Errorf("server returned status %d: %s", resp.StatusCode, apiErr.Error)
		}
		return "", fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(raw))
	}

	var answer strings.Builder
	reader := sse.NewReader(resp.Body)
	for {
		ev, err := reader.Next()
		if err != nil {
			return answer.String(), fmt.Errorf("reading stream: %w", err)
		}
		if ev == nil {
			return answer.String(), fmt.Errorf("%w: stream ended without [DONE]", ErrStreamInterrupted)
		}
		if ev.IsDone() {
			return answer.String(), nil
		}

		var frame struct {
			Content *string `json:"content"`
			Error   string  `json:"error"`
		}
		if err := json.Unmarshal([]byte(ev.Data), &frame); err != nil {
			return answer.String(), fmt.Errorf("decoding frame: %w", err)
		}
		if frame.Error != "" {
			return answer.String(), fmt.Errorf("%w: %s", ErrStreamInterrupted, frame.Error)
		}
		if frame.Content != nil {
			answer.WriteString(*frame.Content)
			if _, err := io.WriteString(out, *frame.Content); err != nil {
				return answer.String(), err
			}
		}
	}
}
