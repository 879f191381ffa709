package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/chatbridge/assistant/internal/chat"
	"github.com/chatbridge/assistant/internal/models"
)

const help = `commands:
  /new        start a chat
  /list       show your chats
  /open <n>   open chat n from the list
  /refresh    reload the list and the open chat
  /quit       exit
anything else is sent to the open chat`

type repl struct {
	client *chat.Client
	in     io.Reader
	out    io.Writer
	now    func() time.Time
}

func newREPL(client *chat.Client, in io.Reader, out io.Writer) *repl {
	return &repl{client: client, in: in, out: out, now: time.Now}
}

// Run reads commands until /quit, end of input or ctx is done
func (r *repl) Run(ctx context.Context) error {
	lines := make(chan string)
	done := make(chan struct{})
	defer close(done)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
	}()

	fmt.Fprintf(r.out, "Signed in as %s\n%s\n", r.client.Identity().Email, help)
	for {
		r.prompt()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := r.handle(ctx, strings.TrimSpace(line)); quit {
				return nil
			}
		}
	}
}

func (r *repl) prompt() {
	if id := r.client.Conversation.ChatID(); id != "" {
		fmt.Fprintf(r.out, "[%s]> ", shortID(id))
		return
	}
	fmt.Fprint(r.out, "> ")
}

func (r *repl) handle(ctx context.Context, line string) bool {
	command, arg, _ := strings.Cut(line, " ")
	switch command {
	case "":
	case "/quit", "/exit":
		return true
	case "/help":
		fmt.Fprintln(r.out, help)
	case "/new":
		result := r.client.NewChat(ctx)
		if !result.OK() {
			fmt.Fprintln(r.out, "! could not start a chat")
			return false
		}
		fmt.Fprintf(r.out, "Started chat %s\n", shortID(result.Chat.ID))
	case "/list":
		if err := r.client.Chats.Refresh(ctx); err != nil && !r.client.Chats.Loaded() {
			fmt.Fprintln(r.out, "! could not load chats")
			return false
		}
		r.printChats()
	case "/open":
		r.open(ctx, strings.TrimSpace(arg))
	case "/refresh":
		r.client.Refresh()
	default:
		r.send(ctx, line)
	}
	return false
}

func (r *repl) open(ctx context.Context, arg string) {
	items := r.client.Chats.Items()
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(items) {
		fmt.Fprintf(r.out, "! pick a chat between 1 and %d (see /list)\n", len(items))
		return
	}
	if err := r.client.SelectChat(ctx, items[n-1].ID); err != nil {
		fmt.Fprintln(r.out, "! could not load messages")
	}
	r.printConversation()
}

func (r *repl) send(ctx context.Context, text string) {
	result := r.client.Send(ctx, text)
	switch result.Outcome {
	case chat.OutcomeRejected:
		if errors.Is(result.Err, chat.ErrNoChatSelected) {
			fmt.Fprintln(r.out, "! no chat open, use /new or /open <n>")
		}
	case chat.OutcomeBusy:
		fmt.Fprintln(r.out, "! still waiting for the previous reply")
	case chat.OutcomeAborted:
		fmt.Fprintln(r.out, "! message was not sent")
	case chat.OutcomeIncomplete:
		fmt.Fprintf(r.out, "bot> %s\n! the reply could not be saved\n", result.Reply)
	default:
		fmt.Fprintf(r.out, "bot> %s\n", result.Reply)
	}
}

func (r *repl) printChats() {
	items := r.client.Chats.Items()
	if len(items) == 0 {
		fmt.Fprintln(r.out, "No chats yet, use /new")
		return
	}
	selected := r.client.Chats.Selected()
	now := r.now()
	for i, item := range items {
		marker := " "
		if item.ID == selected {
			marker = "*"
		}
		fmt.Fprintf(r.out, "%s%2d. %-53s %s\n", marker, i+1, item.Preview, item.DisplayTime(now))
	}
}

func (r *repl) printConversation() {
	snap := r.client.Conversation.Snapshot()
	if snap.State == chat.StateNoChat {
		return
	}
	if len(snap.Messages) == 0 {
		fmt.Fprintln(r.out, "(no messages yet)")
		return
	}
	for _, m := range snap.Messages {
		who := "bot"
		if m.SenderType == models.SenderUser {
			who = "you"
		}
		fmt.Fprintf(r.out, "%s %s> %s\n", m.CreatedAt.Local().Format("15:04"), who, m.Content)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
