package nlp

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/fieldline/intakeflow/internal/domain"
)

// conversation drives the slot filler the way the intake service does:
// maintain a transcript and merged fields, one Extract per user answer.
type conversation struct {
	t          *testing.T
	sf         *SlotFiller
	transcript []domain.ChatTurn
	fields     domain.IntakeFields
}

func startConversation(t *testing.T) *conversation {
	t.Helper()
	c := &conversation{t: t, sf: NewSlotFiller()}
	res, err := c.sf.Extract(context.Background(), nil, "", domain.IntakeFields{})
	if err != nil {
		t.Fatalf("opening extract: %v", err)
	}
	if res.IsComplete {
		t.Fatal("opening call must not be complete")
	}
	c.transcript = append(c.transcript, domain.ChatTurn{Role: domain.RoleAssistant, Text: res.Reply, CreatedAt: time.Now()})
	return c
}

func (c *conversation) say(text string) ExtractResult {
	c.t.Helper()
	res, err := c.sf.Extract(context.Background(), c.transcript, text, c.fields)
	if err != nil {
		c.t.Fatalf("extract(%q): %v", text, err)
	}
	c.transcript = append(c.transcript,
		domain.ChatTurn{Role: domain.RoleUser, Text: text, CreatedAt: time.Now()},
		domain.ChatTurn{Role: domain.RoleAssistant, Text: res.Reply, CreatedAt: time.Now()},
	)
	c.fields = domain.MergeFields(c.fields, res.Fields)
	return res
}

func TestSlotFillerOpeningPrompt(t *testing.T) {
	sf := NewSlotFiller()
	res, err := sf.Extract(context.Background(), nil, "ignored", domain.IntakeFields{})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.IsComplete {
		t.Error("opening call reported complete")
	}
	if res.Fields != (domain.IntakeFields{}) {
		t.Errorf("opening call proposed fields: %+v", res.Fields)
	}
	if !strings.Contains(res.Reply, "call it") {
		t.Errorf("opening reply is not the title prompt: %q", res.Reply)
	}
}

func TestSlotFillerFillsSlotsInOrder(t *testing.T) {
	c := startConversation(t)

	res := c.say("Invoice Automation")
	if res.Fields.Title != "Invoice Automation" {
		t.Fatalf("title not captured: %+v", res.Fields)
	}
	if res.IsComplete {
		t.Fatal("complete after title only")
	}
	if !strings.Contains(res.Reply, "department") {
		t.Fatalf("expected department prompt, got %q", res.Reply)
	}

	res = c.say("Finance")
	if res.Fields.Department != "Finance" {
		t.Fatalf("department not captured: %+v", res.Fields)
	}
	if res.IsComplete {
		t.Fatal("complete before description")
	}

	res = c.say("Automate AP matching")
	if res.Fields.Description != "Automate AP matching" {
		t.Fatalf("description not captured: %+v", res.Fields)
	}
	if !res.IsComplete {
		t.Fatal("want complete once title, department and description are set")
	}
	for _, want := range []string{"Invoice Automation", "Finance", "Automate AP matching", "ubmit"} {
		if !strings.Contains(res.Reply, want) {
			t.Errorf("summary missing %q: %q", want, res.Reply)
		}
	}
}

func TestSlotFillerCompletionGating(t *testing.T) {
	c := startConversation(t)
	if res := c.say("Title"); res.IsComplete {
		t.Error("complete with title only")
	}
	if res := c.say("Dept"); res.IsComplete {
		t.Error("complete with title and department only")
	}
	if res := c.say("Desc"); !res.IsComplete {
		t.Error("not complete with all three required fields")
	}
	// Stays complete on further optional answers.
	if res := c.say(""); !res.IsComplete {
		t.Error("completion regressed after optional skip")
	}
}

func TestSlotFillerRequiredSlotRepromptsOnEmpty(t *testing.T) {
	c := startConversation(t)
	res := c.say("")
	if res.Fields.Title != "" {
		t.Fatalf("empty answer stored as title: %q", res.Fields.Title)
	}
	if !strings.Contains(res.Reply, "call it") {
		t.Fatalf("expected title re-prompt, got %q", res.Reply)
	}

	// Still accepts the title on the next turn.
	res = c.say("Payroll Review")
	if res.Fields.Title != "Payroll Review" {
		t.Fatalf("title not captured after re-prompt: %+v", res.Fields)
	}
}

func TestSlotFillerSkipsOptionalSlotsForever(t *testing.T) {
	c := startConversation(t)
	c.say("Title")
	c.say("Dept")
	c.say("Desc")

	// Skip location.
	res := c.say("")
	if res.Fields.Location != "" {
		t.Fatalf("skip stored a location value: %q", res.Fields.Location)
	}

	// The next answer must land in business unit, not location.
	res = c.say("EMEA Ops")
	if res.Fields.Location != "" {
		t.Fatalf("skipped slot was revisited: %+v", res.Fields)
	}
	if res.Fields.BusinessUnit != "EMEA Ops" {
		t.Fatalf("business unit not captured: %+v", res.Fields)
	}
}

func TestSlotFillerNormalizesPriority(t *testing.T) {
	c := startConversation(t)
	c.say("Title")
	c.say("Dept")
	c.say("Desc")
	c.say("") // skip location
	c.say("") // skip business unit
	c.say("") // skip contact email

	res := c.say("whenever")
	if res.Fields.QueuePriority != "Medium" {
		t.Fatalf("invalid priority must normalize to Medium, got %q", res.Fields.QueuePriority)
	}
}

func TestSlotFillerAcceptsCasedPriority(t *testing.T) {
	c := startConversation(t)
	c.say("Title")
	c.say("Dept")
	c.say("Desc")
	c.say("")
	c.say("")
	c.say("")

	res := c.say("cRiTiCaL")
	if res.Fields.QueuePriority != "Critical" {
		t.Fatalf("want Critical, got %q", res.Fields.QueuePriority)
	}
}

func TestSlotFillerSynthesizeNonEmpty(t *testing.T) {
	sf := NewSlotFiller()
	syn, err := sf.Synthesize(context.Background(), "Invoice Automation", "Automate AP matching",
		[]string{"vendor list", "matching rules"})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if syn.Brief == "" {
		t.Error("empty brief")
	}
	if len(syn.Checkpoints) == 0 {
		t.Error("empty checkpoints")
	}
	if len(syn.Actionables) == 0 {
		t.Error("empty actionables")
	}
	if !strings.Contains(syn.Brief, "Invoice Automation") {
		t.Errorf("brief does not mention the title: %q", syn.Brief)
	}
}
