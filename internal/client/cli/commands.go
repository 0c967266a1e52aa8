package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/papersson/code-bot/internal/client/client"
	"github.com/papersson/code-bot/internal/client/services"
	"github.com/papersson/code-bot/internal/client/syncer"
	"github.com/papersson/code-bot/internal/common"
	"github.com/papersson/code-bot/internal/models"
)

var errNoChat = errors.New("no chat open, use 'open <id>' first")

func (a *App) currentChat() (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == "" {
		return "", errNoChat
	}
	return a.current, nil
}

func (a *App) setCurrent(id string) {
	a.mu.Lock()
	a.current = id
	a.mu.Unlock()
}

// resolveChat accepts a full id or an unambiguous prefix of one.
func (a *App) resolveChat(ctx context.Context, ref string) (string, error) {
	chats, err := a.chats.ListChats(ctx, a.config.UserID)
	if err != nil {
		return "", err
	}
	var match string
	for _, c := range chats {
		if c.ID == ref {
			return c.ID, nil
		}
		if strings.HasPrefix(c.ID, ref) {
			if match != "" {
				return "", fmt.Errorf("chat id %q is ambiguous", ref)
			}
			match = c.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("chat %q: %w", ref, common.ErrorNotFound)
	}
	return match, nil
}

func (a *App) Chats(ctx context.Context) error {
	chats, err := a.chats.ListChats(ctx, a.config.UserID)
	if err != nil {
		return err
	}
	if len(chats) == 0 {
		fmt.Fprintln(a.out, "No chats yet.")
	}
	for _, c := range chats {
		project := ""
		if c.ProjectID != nil {
			project = " [project " + shortID(*c.ProjectID) + "]"
		}
		fmt.Fprintf(a.out, "%s  %-30s %s%s%s\n", shortID(c.ID), c.Name,
			c.UpdatedAt.Local().Format(time.DateTime), project, dirtyMark(c.Dirty()))
	}
	return nil
}

func (a *App) NewChat(ctx context.Context, name string) error {
	if a.config.UserID == "" {
		return errors.New("user id is not configured, pass -u")
	}
	c, err := a.chats.CreateChat(ctx, a.config.UserID, name, nil)
	if err != nil {
		return err
	}
	a.setCurrent(c.ID)
	fmt.Fprintf(a.out, "Created chat %s\n", c.ID)
	return nil
}

func (a *App) Open(ctx context.Context, ref string) error {
	id, err := a.resolveChat(ctx, ref)
	if err != nil {
		return err
	}
	a.setCurrent(id)
	return a.printMessages(ctx, id)
}

func (a *App) printMessages(ctx context.Context, chatID string) error {
	msgs, err := a.chats.Messages(ctx, chatID)
	if err != nil {
		return err
	}
	for _, m := range msgs {
		fmt.Fprintf(a.out, "%s %-4s %s%s\n", shortID(m.ID), m.Sender, m.Content, dirtyMark(m.Dirty()))
	}
	return nil
}

func (a *App) Say(ctx context.Context, sender models.Sender, text string) error {
	id, err := a.currentChat()
	if err != nil {
		return err
	}
	_, err = a.chats.AddMessage(ctx, id, sender, text)
	return err
}

func (a *App) Edit(ctx context.Context, ref, text string) error {
	id, err := a.currentChat()
	if err != nil {
		return err
	}
	msgs, err := a.chats.Messages(ctx, id)
	if err != nil {
		return err
	}
	for _, m := range msgs {
		if m.ID == ref || strings.HasPrefix(m.ID, ref) {
			if _, err := a.chats.EditMessage(ctx, m.ID, text); err != nil {
				return err
			}
			return a.printMessages(ctx, id)
		}
	}
	return fmt.Errorf("message %q: %w", ref, common.ErrorNotFound)
}

func (a *App) Rename(ctx context.Context, name string) error {
	id, err := a.currentChat()
	if err != nil {
		return err
	}
	_, err = a.chats.RenameChat(ctx, id, name)
	return err
}

// Delete tombstones the chat named by ref, or the open chat when ref is empty.
func (a *App) Delete(ctx context.Context, ref string) error {
	var (
		id  string
		err error
	)
	if ref == "" {
		id, err = a.currentChat()
	} else {
		id, err = a.resolveChat(ctx, ref)
	}
	if err != nil {
		return err
	}
	if err := a.chats.DeleteChat(ctx, id); err != nil {
		return err
	}
	a.mu.Lock()
	if a.current == id {
		a.current = ""
	}
	a.mu.Unlock()
	return nil
}

func (a *App) Projects(ctx context.Context) error {
	ps, err := a.projects.ListProjects(ctx)
	if err != nil {
		return err
	}
	for _, p := range ps {
		fmt.Fprintf(a.out, "%s  %s%s\n", p.ID, p.Name, dirtyMark(p.Dirty()))
	}
	ds, err := a.projects.ListDescriptions(ctx)
	if err != nil {
		return err
	}
	for _, d := range ds {
		fmt.Fprintf(a.out, "%s  %s (%s)%s\n", d.ID, d.Language, d.Frameworks, dirtyMark(d.Dirty()))
	}
	return nil
}

func (a *App) NewProject(ctx context.Context, name string) error {
	text, err := GetMultiline(a.reader, "Description", a.out)
	if err != nil {
		return err
	}
	p, err := a.projects.CreateProject(ctx, name, text)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created project %s\n", p.ID)
	return nil
}

func (a *App) DeleteProject(ctx context.Context, id string) error {
	return a.projects.DeleteProject(ctx, id)
}

// Describe prompts for a project description.
func (a *App) Describe(ctx context.Context) error {
	language, err := GetSimpleText(a.reader, "Language", a.out)
	if err != nil {
		return err
	}
	frameworks, err := GetSimpleText(a.reader, "Frameworks (comma separated)", a.out)
	if err != nil {
		return err
	}
	meta, err := GetMetadata(a.reader, a.out)
	if err != nil {
		return err
	}
	d, err := a.projects.CreateDescription(ctx, services.DescriptionInput{Language: language, Frameworks: frameworks, Metadata: meta})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created description %s\n", d.ID)
	return nil
}

// Assign links the open chat to a project; "-" detaches it.
func (a *App) Assign(ctx context.Context, projectID string) error {
	id, err := a.currentChat()
	if err != nil {
		return err
	}
	var pid *string
	if projectID != "-" {
		pid = &projectID
	}
	_, err = a.chats.AssignProject(ctx, id, pid, nil)
	return err
}

// Sync runs one pass in the foreground.
func (a *App) Sync(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.config.RequestTimeout+5*time.Second)
	defer cancel()
	res, err := a.engine.Sync(ctx)
	if errors.Is(err, common.ErrSyncInProgress) {
		a.trigger.Trigger(syncer.ReasonManual)
		fmt.Fprintln(a.out, "A sync is already running; another pass is queued.")
		return nil
	}
	if client.IsTransient(err) {
		fmt.Fprintln(a.out, "Server unreachable; changes stay local until the next pass.")
		return nil
	}
	if err != nil {
		return err
	}
	printResult(a, res)
	return nil
}

func (a *App) Status(ctx context.Context) error {
	st := a.engine.Status()
	fmt.Fprintf(a.out, "State:        %s\n", st.State)
	a.mu.Lock()
	mode := a.mode
	a.mu.Unlock()
	if mode != "" {
		fmt.Fprintf(a.out, "Connectivity: %s\n", mode)
	}

	wm, err := a.repos.Metadata(a.db).GetTime(ctx, common.LastSyncTimeKey)
	if err != nil {
		return err
	}
	if wm == nil {
		fmt.Fprintln(a.out, "Last sync:    never")
	} else {
		fmt.Fprintf(a.out, "Last sync:    %s\n", wm.Local().Format(time.DateTime))
	}

	batch, err := syncer.NewChangeTracker(a.repos, a.log).Collect(ctx, a.db)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Pending:      %d (invalid: %d)\n", batch.Len(), batch.Skipped)
	if st.LastError != nil {
		fmt.Fprintf(a.out, "Last error:   %v\n", st.LastError)
	}
	if st.LastResult != nil {
		printResult(a, st.LastResult)
	}
	if n := a.bus.Dropped(); n > 0 {
		fmt.Fprintf(a.out, "Dropped events: %d\n", n)
	}
	return nil
}

func (a *App) Reap(ctx context.Context) error {
	n, err := a.engine.Reap(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Removed %d confirmed tombstones.\n", n)
	return nil
}

// Clear wipes local data after confirmation.
func (a *App) Clear(ctx context.Context) error {
	answer, err := GetSimpleText(a.reader, "This deletes all local chats, including unsynced changes. Type 'yes' to continue", a.out)
	if err != nil {
		return err
	}
	if answer != "yes" {
		fmt.Fprintln(a.out, "Aborted.")
		return nil
	}
	if err := services.ClearLocalData(ctx, a.db, a.repos); err != nil {
		return err
	}
	a.setCurrent("")
	fmt.Fprintln(a.out, "Local data cleared.")
	return nil
}

func printResult(a *App, r *syncer.Result) {
	fmt.Fprintf(a.out, "Pushed %d, pulled %d, applied %d, kept local %d, skipped %d, rejected %d in %s\n",
		r.Pushed, r.Pulled, r.Applied, r.KeptLocal, r.Skipped, r.Rejected, r.Duration())
}

func dirtyMark(dirty bool) string {
	if dirty {
		return " *"
	}
	return ""
}
