package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/papersson/code-bot/internal/models"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	Chats(ctx context.Context) error
	NewChat(ctx context.Context, name string) error
	Open(ctx context.Context, ref string) error
	Say(ctx context.Context, sender models.Sender, text string) error
	Edit(ctx context.Context, ref, text string) error
	Rename(ctx context.Context, name string) error
	Delete(ctx context.Context, ref string) error
	Projects(ctx context.Context) error
	NewProject(ctx context.Context, name string) error
	DeleteProject(ctx context.Context, id string) error
	Describe(ctx context.Context) error
	Assign(ctx context.Context, projectID string) error
	Sync(ctx context.Context) error
	Status(ctx context.Context) error
	Reap(ctx context.Context) error
	Clear(ctx context.Context) error
}

const helpText = `Available commands:
  chats                    list chats
  new <name>               create a chat and open it
  open <id>                open a chat and show its messages
  say <text>               add a user message to the open chat
  reply <text>             add a bot message to the open chat
  edit <msg-id> <text>     edit a message; later messages are dropped
  rename <name>            rename the open chat
  delete [id]              delete a chat (the open one by default)
  projects                 list projects and descriptions
  project <name>           create a project
  unproject <id>           delete a project
  describe                 create a project description
  assign <project-id|->    attach the open chat to a project
  sync                     synchronise now
  status                   show sync status
  reap                     remove confirmed tombstones
  clear                    wipe local data
  exit | quit              leave the program`

// runREPL reads commands from reader and dispatches them to a until EOF,
// "exit" or "quit". Command errors are printed and the loop continues.
// Commands that prompt for more input read from the same reader.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}
		if isTerminal() {
			fmt.Printf("chat %s> ", statusFn())
		}
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		cmd, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
		rest = strings.TrimSpace(rest)
		if cmd == "" {
			continue
		}

		err = nil
		switch cmd {
		case "help":
			printlnFn(helpText)
		case "chats", "l":
			err = a.Chats(ctx)
		case "new":
			err = a.NewChat(ctx, rest)
		case "open":
			if rest == "" {
				printlnFn("Usage: open <id>")
				continue
			}
			err = a.Open(ctx, rest)
		case "say", "reply":
			if rest == "" {
				printlnFn("Usage:", cmd, "<text>")
				continue
			}
			sender := models.SenderUser
			if cmd == "reply" {
				sender = models.SenderBot
			}
			err = a.Say(ctx, sender, rest)
		case "edit":
			id, text, ok := strings.Cut(rest, " ")
			if !ok || strings.TrimSpace(text) == "" {
				printlnFn("Usage: edit <msg-id> <text>")
				continue
			}
			err = a.Edit(ctx, id, strings.TrimSpace(text))
		case "rename":
			if rest == "" {
				printlnFn("Usage: rename <name>")
				continue
			}
			err = a.Rename(ctx, rest)
		case "delete":
			err = a.Delete(ctx, rest)
		case "projects":
			err = a.Projects(ctx)
		case "project":
			if rest == "" {
				printlnFn("Usage: project <name>")
				continue
			}
			err = a.NewProject(ctx, rest)
		case "unproject":
			if rest == "" {
				printlnFn("Usage: unproject <id>")
				continue
			}
			err = a.DeleteProject(ctx, rest)
		case "describe":
			err = a.Describe(ctx)
		case "assign":
			if rest == "" {
				printlnFn("Usage: assign <project-id|->")
				continue
			}
			err = a.Assign(ctx, rest)
		case "sync":
			err = a.Sync(ctx)
		case "status":
			err = a.Status(ctx)
		case "reap":
			err = a.Reap(ctx)
		case "clear":
			err = a.Clear(ctx)
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			printlnFn("Unknown command:", cmd)
		}
		if err != nil {
			printlnFn("Error:", err)
		}
	}
}
