package editor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"clipforge/internal/providers"
	"clipforge/internal/providers/llm"
	"clipforge/internal/storage"
	"clipforge/internal/timeline"
)

const maxChatHistory = 20

type ChatReply struct {
	Message         string               `json:"message"`
	Actions         []timeline.RawAction `json:"actions"`
	NeedsUserChoice bool                 `json:"needsUserChoice"`
	Result          *Result              `json:"result,omitempty"`
}

// Chat sends a user message to the oracle together with a summary of the
// project and dispatches the actions it proposes. Proposals that need a user
// choice are returned without being applied.
func (e *Editor) Chat(ctx context.Context, projectID, message string) (*ChatReply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, errors.New("message is required")
	}
	if e.Oracle == nil || !e.Oracle.Available() {
		return nil, fmt.Errorf("chat: %w", providers.ErrUnavailable)
	}

	p, err := e.Project(projectID)
	if err != nil {
		return nil, err
	}
	files, err := e.Storage.ListLibraryFiles(projectID)
	if err != nil {
		return nil, err
	}

	summary := Summarize(p.Timeline, files)
	if styles, err := e.Styles(); err != nil {
		e.logger.Warn().Err(err).Msg("failed to list style profiles")
	} else if len(styles) > 0 {
		summary += "Saved styles:\n"
		for i := range styles {
			summary += "  " + StyleSummary(&styles[i]) + "\n"
		}
	}

	history := e.appendHistory(projectID, llm.Message{Role: "user", Content: message})
	reply, err := e.Oracle.Chat(ctx, history, summary)
	if err != nil {
		return nil, err
	}
	e.appendHistory(projectID, llm.Message{Role: "assistant", Content: reply.Message})

	out := &ChatReply{
		Message:         reply.Message,
		Actions:         reply.Actions,
		NeedsUserChoice: reply.NeedsUserChoice,
	}
	if reply.NeedsUserChoice || len(reply.Actions) == 0 {
		return out, nil
	}

	out.Result, err = e.Dispatch(ctx, projectID, SourceChat, reply.Actions)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// appendHistory adds m to the project's conversation and returns a copy.
func (e *Editor) appendHistory(projectID string, m llm.Message) []llm.Message {
	e.historyMu.Lock()
	defer e.historyMu.Unlock()

	h := append(e.history[projectID], m)
	if len(h) > maxChatHistory {
		h = h[len(h)-maxChatHistory:]
	}
	e.history[projectID] = h
	return append([]llm.Message(nil), h...)
}

func (e *Editor) ResetChat(projectID string) {
	e.historyMu.Lock()
	delete(e.history, projectID)
	e.historyMu.Unlock()
}

// Summarize renders the timeline and library in the compact form the
// oracle is prompted with. Indexes match the ones actions refer to.
func Summarize(tl timeline.Timeline, files []storage.LibraryFile) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Library (%d files):\n", len(files))
	for i, f := range files {
		fmt.Fprintf(&b, "  [%d] %s (%s", i, f.Name, f.Type)
		if f.Duration != nil {
			fmt.Fprintf(&b, ", %.1fs", *f.Duration)
		}
		b.WriteString(")\n")
	}

	fmt.Fprintf(&b, "Media clips (%d, total %.2fs):\n", len(tl.Media), tl.Duration())
	for i, m := range tl.Media {
		fmt.Fprintf(&b, "  [%d] %s %s at %.2f-%.2fs, source %.2f-%.2fs, speed %gx",
			i, m.Type, m.Name, m.PositionStart, m.PositionEnd, m.StartTime, m.EndTime, m.PlaybackSpeed)
		if m.Transition != nil {
			fmt.Fprintf(&b, ", %s transition %.2fs", m.Transition.Type, m.Transition.Duration)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Text elements: %d\n", len(tl.Texts))
	for i, t := range tl.Texts {
		if i == 10 {
			fmt.Fprintf(&b, "  ... %d more\n", len(tl.Texts)-i)
			break
		}
		fmt.Fprintf(&b, "  [%d] %q at %.2f-%.2fs\n", i, t.Text, t.PositionStart, t.PositionEnd)
	}
	fmt.Fprintf(&b, "Images on timeline: %d\n", len(tl.Images()))
	return b.String()
}
