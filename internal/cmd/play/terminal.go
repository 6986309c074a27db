package play

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/louisbranch/storyweft/internal/engine"
	"github.com/louisbranch/storyweft/internal/storage"
)

// terminalHandler plays a story over line-oriented input and output.
// Typing "q" at any prompt stops the run; the autosave slot keeps the
// status current so a stopped story resumes where it left off.
type terminalHandler struct {
	in  *bufio.Scanner
	out io.Writer

	saves storage.SaveStore
	story string
	slot  string
}

func newTerminalHandler(in io.Reader, out io.Writer, saves storage.SaveStore, story, slot string) *terminalHandler {
	return &terminalHandler{
		in:    bufio.NewScanner(in),
		out:   out,
		saves: saves,
		story: story,
		slot:  slot,
	}
}

// readLine returns the next input line. The second result is false on
// end of input, which the prompt methods treat as a quit.
func (h *terminalHandler) readLine() (string, bool) {
	if !h.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(h.in.Text()), true
}

func isQuit(line string) bool {
	switch strings.ToLower(line) {
	case "q", "quit", "exit":
		return true
	}
	return false
}

func (h *terminalHandler) AcknowledgeNarration(_ context.Context, n engine.Narration) (engine.Ack, error) {
	for _, m := range n.Messages {
		fmt.Fprintln(h.out, m.Text)
	}
	fmt.Fprint(h.out, "\n[enter to continue] ")
	line, ok := h.readLine()
	if !ok || isQuit(line) {
		return engine.Ack{Action: engine.ActionStop}, nil
	}
	return engine.Ack{Action: engine.ActionAdvance}, nil
}

func (h *terminalHandler) MakeChoice(_ context.Context, c engine.ChoicePrompt) (engine.ChoiceReply, error) {
	for i, opt := range c.Options {
		fmt.Fprintf(h.out, "%d. %s\n", i+1, opt.Message.Text)
	}
	for {
		fmt.Fprint(h.out, "> ")
		line, ok := h.readLine()
		if !ok || isQuit(line) {
			return engine.ChoiceReply{Action: engine.ActionStop}, nil
		}
		pick, err := strconv.Atoi(line)
		if err != nil || pick < 1 || pick > len(c.Options) {
			fmt.Fprintf(h.out, "pick 1-%d\n", len(c.Options))
			continue
		}
		return engine.ChoiceReply{
			Action:   engine.ActionAdvance,
			OptionID: c.Options[pick-1].ID,
		}, nil
	}
}

func (h *terminalHandler) AnswerRequest(_ context.Context, r engine.TextPrompt) (engine.AnswerReply, error) {
	if r.Message != nil {
		fmt.Fprintln(h.out, r.Message.Text)
	}
	for {
		fmt.Fprint(h.out, "> ")
		line, ok := h.readLine()
		if !ok || isQuit(line) {
			return engine.AnswerReply{Action: engine.ActionStop}, nil
		}
		validated := line
		if r.Validate != nil {
			var err error
			validated, err = r.Validate(line)
			if err != nil {
				fmt.Fprintln(h.out, err)
				continue
			}
		}
		return engine.AnswerReply{Action: engine.ActionAdvance, Text: validated}, nil
	}
}

func (h *terminalHandler) HandleEvent(e engine.Event) {
	switch e.Kind {
	case engine.EventGameEnded:
		fmt.Fprintln(h.out, "\nThe end.")
	case engine.EventErrorProduced:
		log.Printf("story error: %v", e.Err)
	case engine.EventGameStarted, engine.EventStatusUpdated:
		if h.saves == nil || len(e.Status) == 0 {
			return
		}
		err := h.saves.PutSave(context.Background(), storage.SaveRecord{
			Story:     h.story,
			Slot:      h.slot,
			Status:    e.Status,
			UpdatedAt: time.Now(),
		})
		if err != nil {
			log.Printf("autosave failed: story=%s slot=%s err=%v", h.story, h.slot, err)
		}
	}
}
