// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/sproutai/sprout-tui/internal/app"
	"github.com/sproutai/sprout-tui/internal/model"
	"github.com/sproutai/sprout-tui/internal/transcript"
	"github.com/sproutai/sprout-tui/internal/ui/styles"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// lineReader provides line editing and persistent history for the REPL.
type lineReader struct {
	line        *liner.State
	historyFile string
}

func newLineReader(dataDir string) *lineReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	r := &lineReader{line: line, historyFile: filepath.Join(dataDir, "chat_history")}
	if f, err := os.Open(r.historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	return r
}

// Read prompts for one line. Non-empty input is added to the history.
func (r *lineReader) Read(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves the history with owner-only permissions.
func (r *lineReader) Close() {
	if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
		r.line.WriteHistory(f)
		f.Close()
	} else {
		log.Printf("CHAT_HISTORY_SAVE_FAILED | error=%v", err)
	}
	r.line.Close()
}

// =============================================================================
// RENDERING
// =============================================================================

// replyPrinter renders assistant replies as markdown.
type replyPrinter struct {
	out      io.Writer
	renderer *glamour.TermRenderer
}

func newReplyPrinter(out io.Writer, theme string) *replyPrinter {
	p := &replyPrinter{out: out}

	style := "notty"
	if _, ok := terminalFd(out); ok {
		mode, _ := styles.ParseMode(theme)
		style = styles.NewTheme(mode).GlamourStyle()
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(min(terminalWidth(out), 100)-4),
	)
	if err != nil {
		log.Printf("CHAT_RENDERER_FAILED | error=%v", err)
	} else {
		p.renderer = r
	}
	return p
}

func (p *replyPrinter) markdown(content string) string {
	if p.renderer == nil {
		return content + "\n"
	}
	out, err := p.renderer.Render(content)
	if err != nil {
		return content + "\n"
	}
	return out
}

// Print writes one transcript message.
func (p *replyPrinter) Print(msg model.Message) {
	switch {
	case msg.IsError:
		fmt.Fprintln(p.out, styles.RenderError(msg.Content))
	case msg.SenderRole == model.SenderUser:
		fmt.Fprintln(p.out, promptStyle.Render("you> ")+msg.Content)
	case msg.SenderRole == model.SenderSystem:
		fmt.Fprintln(p.out, mutedStyle.Render(msg.Content))
	default:
		if msg.IsEmergency() {
			p.Banner(msg)
		}
		fmt.Fprint(p.out, p.markdown(msg.Content))
	}
}

// Banner prints the emergency alert for msg, if its severity warrants one.
func (p *replyPrinter) Banner(msg model.Message) {
	sev := msg.Severity()
	if !sev.Alerting() {
		return
	}
	fmt.Fprintln(p.out, warningStyle.Render(strings.ToUpper(string(sev))+" ALERT")+
		" "+"Please contact emergency services or visit the nearest hospital immediately.")
}

// =============================================================================
// CHAT
// =============================================================================

const chatHelp = `Commands:
  /new            start a new chat
  /open <id>      continue an existing chat
  /sessions       list your chats
  /help           show this help
  /quit           leave (Ctrl+D also works)`

func newChatCmd(rt *runtime) *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the assistant in a line-based session",
		Long: "Starts an interactive chat. Replies are rendered as markdown and the\n" +
			"input history is kept in the data directory.\n\n" + chatHelp,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := rt.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := requireAuth(a); err != nil {
				return err
			}
			dataDir, err := rt.cfg.DataDir()
			if err != nil {
				return err
			}
			return runChat(ctx, a, newLineReader(dataDir), newReplyPrinter(cmd.OutOrStdout(), rt.cfg.UI.Theme), sessionID)
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "continue an existing chat")
	return cmd
}

func runChat(ctx context.Context, a *app.App, in *lineReader, p *replyPrinter, sessionID string) error {
	defer in.Close()

	open := func(id string) {
		if err := a.Transcript.Open(ctx, id); err != nil {
			fmt.Fprintln(p.out, styles.RenderError(app.UserMessage(err)))
		}
		for _, m := range a.Transcript.Messages() {
			p.Print(m)
		}
	}
	open(sessionID)
	fmt.Fprintln(p.out, mutedStyle.Render("Type /help for commands."))

	for {
		input, err := in.Read("sprout> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(p.out)
				return nil
			}
			return err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			fields := strings.Fields(input)
			switch fields[0] {
			case "/quit", "/q", "/exit":
				return nil
			case "/help", "/h":
				fmt.Fprintln(p.out, chatHelp)
			case "/new":
				open("")
			case "/open":
				if len(fields) < 2 {
					fmt.Fprintln(p.out, styles.RenderWarning("Usage: /open <id>"))
					continue
				}
				open(fields[1])
			case "/sessions":
				if err := a.Sessions.Fetch(ctx); err != nil {
					fmt.Fprintln(p.out, styles.RenderError(app.UserMessage(err)))
					continue
				}
				for _, s := range a.Sessions.Sessions() {
					fmt.Fprintf(p.out, "  %s  %s\n", mutedStyle.Render(s.ID), s.Title)
				}
			default:
				fmt.Fprintln(p.out, styles.RenderWarning("Unknown command "+fields[0]+". Type /help."))
			}
			continue
		}

		// Failures are already in the transcript as an error message.
		if err := sendAndPrint(ctx, a, p, input); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("CHAT_SEND_FAILED | error=%v", err)
		}
	}
}

// sendAndPrint sends text and prints what the transcript gained, except
// the user's own message.
func sendAndPrint(ctx context.Context, a *app.App, p *replyPrinter, text string) error {
	before := len(a.Transcript.Messages())
	err := a.Transcript.Send(ctx, text)
	if errors.Is(err, transcript.ErrEmptyMessage) || errors.Is(err, transcript.ErrBusy) {
		return err
	}

	msgs := a.Transcript.Messages()
	for _, m := range msgs[min(before, len(msgs)):] {
		if m.SenderRole == model.SenderUser {
			continue
		}
		p.Print(m)
	}
	return err
}

// =============================================================================
// ASK
// =============================================================================

func newAskCmd(rt *runtime) *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "ask <question...>",
		Short: "Ask one question and print the reply",
		Long: "Sends a single message and prints the assistant's reply. Without\n" +
			"--session a new chat is created, titled after the question.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := rt.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := requireAuth(a); err != nil {
				return err
			}
			if err := a.Transcript.Open(ctx, sessionID); err != nil {
				return err
			}

			text := strings.Join(args, " ")
			if rt.jsonOut {
				if err := a.Transcript.Send(ctx, text); err != nil {
					return err
				}
				reply, _ := a.Transcript.LastReply()
				return NewJSONResponse("ask", struct {
					SessionID string        `json:"session_id"`
					Reply     model.Message `json:"reply"`
				}{a.Transcript.SessionID(), reply}).Write(cmd.OutOrStdout())
			}
			return sendAndPrint(ctx, a, newReplyPrinter(cmd.OutOrStdout(), rt.cfg.UI.Theme), text)
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "ask within an existing chat")
	return cmd
}
