package tools

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/lark-ai/lark/internal/notes"
	"github.com/lark-ai/lark/internal/reminders"
)

func newTestRegistry(t *testing.T) (*Registry, *reminders.Store, *notes.Store) {
	t.Helper()
	rem := reminders.NewStore()
	noteLog, err := notes.NewStore(":memory:")
	if err != nil {
		t.Fatalf("notes.NewStore: %v", err)
	}
	t.Cleanup(func() { noteLog.Close() })
	return NewRegistry(rem, noteLog, nil), rem, noteLog
}

func TestSchemaMatchesDispatch(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	defs := r.Schema()
	if len(defs) != len(r.Names()) {
		t.Fatalf("schema has %d entries, catalogue has %d", len(defs), len(r.Names()))
	}

	// Every advertised tool must resolve to a handler.
	for _, def := range defs {
		fn, ok := def["function"].(map[string]any)
		if !ok {
			t.Fatalf("schema entry missing function block: %v", def)
		}
		name, _ := fn["name"].(string)
		tool := r.Get(name)
		if tool == nil {
			t.Errorf("schema advertises %q but dispatch has no handler", name)
			continue
		}
		if tool.Handler == nil {
			t.Errorf("tool %q has nil handler", name)
		}
	}
}

func TestCatalogueIsComplete(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	want := []string{
		"set_reminder", "send_message", "play_music", "get_reminders",
		"get_messages", "delete_reminder", "get_current_time", "get_current_date",
	}
	got := r.Names()
	if len(got) != len(want) {
		t.Fatalf("catalogue = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("catalogue[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		name string
		in   map[string]any
		key  string
		want any
	}{
		{"lowercase true", map[string]any{"shuffle": "true"}, "shuffle", true},
		{"lowercase false", map[string]any{"shuffle": "false"}, "shuffle", false},
		{"mixed case", map[string]any{"shuffle": "True"}, "shuffle", true},
		{"upper case", map[string]any{"shuffle": "FALSE"}, "shuffle", false},
		{"plain string untouched", map[string]any{"query": "truth hurts"}, "query", "truth hurts"},
		{"numeric string untouched", map[string]any{"duration_minutes": "1"}, "duration_minutes", "1"},
		{"zero string untouched", map[string]any{"reminder_id": "0"}, "reminder_id", "0"},
		{"real bool untouched", map[string]any{"shuffle": true}, "shuffle", true},
		{"number untouched", map[string]any{"duration_minutes": float64(5)}, "duration_minutes", float64(5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Coerce(tt.in)
			if got[tt.key] != tt.want {
				t.Errorf("Coerce()[%q] = %v (%T), want %v (%T)", tt.key, got[tt.key], got[tt.key], tt.want, tt.want)
			}
		})
	}
}

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantLen int
	}{
		{"valid object", `{"query":"jazz","shuffle":"true"}`, 2},
		{"empty string", "", 0},
		{"whitespace", "   ", 0},
		{"malformed json", `{"query":`, 0},
		{"non-object json", `[1,2,3]`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseArgs(tt.raw)
			if got == nil {
				t.Fatal("ParseArgs returned nil map")
			}
			if len(got) != tt.wantLen {
				t.Errorf("len = %d, want %d", len(got), tt.wantLen)
			}
		})
	}
}

func TestSetReminder(t *testing.T) {
	r, rem, _ := newTestRegistry(t)

	before := time.Now()
	res := r.Get("set_reminder").Handler(context.Background(), map[string]any{
		"reminder_text":    "drink water",
		"duration_minutes": float64(1),
	})

	if !res.Success {
		t.Fatalf("set_reminder failed: %s", res.Message)
	}

	active := rem.Active()
	if len(active) != 1 {
		t.Fatalf("active reminders = %d, want 1", len(active))
	}
	got := active[0]
	if got.Text != "drink water" {
		t.Errorf("text = %q", got.Text)
	}
	if !got.Active {
		t.Error("reminder not active")
	}
	wantDue := before.Add(time.Minute)
	if got.Due.Before(wantDue.Add(-time.Second)) || got.Due.After(wantDue.Add(2*time.Second)) {
		t.Errorf("due = %v, want ~%v", got.Due, wantDue)
	}
}

func TestSetReminderDefaultDuration(t *testing.T) {
	r, rem, _ := newTestRegistry(t)

	res := r.Get("set_reminder").Handler(context.Background(), map[string]any{
		"reminder_text": "stretch",
	})
	if !res.Success {
		t.Fatalf("set_reminder failed: %s", res.Message)
	}

	got := rem.Active()[0]
	wantDue := time.Now().Add(5 * time.Minute)
	if got.Due.Before(wantDue.Add(-2*time.Second)) || got.Due.After(wantDue.Add(2*time.Second)) {
		t.Errorf("due = %v, want ~%v (default 5 minutes)", got.Due, wantDue)
	}
}

func TestDeleteReminder(t *testing.T) {
	r, rem, _ := newTestRegistry(t)
	created := rem.Add("one", time.Minute)

	res := r.Get("delete_reminder").Handler(context.Background(), map[string]any{
		"reminder_id": float64(created.ID),
	})
	if !res.Success {
		t.Fatalf("delete_reminder failed: %s", res.Message)
	}
	if rem.ActiveCount() != 0 {
		t.Error("reminder still active after delete")
	}

	res = r.Get("delete_reminder").Handler(context.Background(), map[string]any{
		"reminder_id": float64(99),
	})
	if res.Success {
		t.Error("deleting a nonexistent reminder reported success")
	}
	if !strings.Contains(res.Message, "not found") {
		t.Errorf("message = %q, want not-found wording", res.Message)
	}
}

func TestSendAndGetMessages(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	res := r.Get("send_message").Handler(context.Background(), map[string]any{
		"content": "hello there",
	})
	if !res.Success {
		t.Fatalf("send_message failed: %s", res.Message)
	}
	if !strings.Contains(res.Message, "default") {
		t.Errorf("message = %q, want default recipient", res.Message)
	}

	res = r.Get("send_message").Handler(context.Background(), map[string]any{
		"content":   "see you at 6",
		"recipient": "sam",
	})
	if !strings.Contains(res.Message, "sam") {
		t.Errorf("message = %q, want recipient sam", res.Message)
	}

	res = r.Get("get_messages").Handler(context.Background(), nil)
	if !res.Success {
		t.Fatalf("get_messages failed: %s", res.Message)
	}
	if !strings.Contains(res.Message, "2 message(s)") {
		t.Errorf("message = %q, want 2 message(s)", res.Message)
	}
}

func TestPlayMusic(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	res := r.Get("play_music").Handler(context.Background(), map[string]any{
		"query":   "miles davis so what",
		"shuffle": true,
	})
	if !res.Success {
		t.Fatalf("play_music failed: %s", res.Message)
	}

	data, ok := res.Data.(map[string]any)
	if !ok {
		t.Fatalf("data type = %T", res.Data)
	}
	if data["platform"] != "YouTube" {
		t.Errorf("platform = %v", data["platform"])
	}
	link, _ := data["url"].(string)
	if !strings.HasPrefix(link, "https://www.youtube.com/results?search_query=") {
		t.Errorf("url = %q", link)
	}
	if !strings.Contains(link, "miles+davis+so+what") {
		t.Errorf("url missing escaped query: %q", link)
	}
}

func TestGetCurrentTimeAndDate(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	res := r.Get("get_current_time").Handler(context.Background(), nil)
	if !res.Success {
		t.Fatal("get_current_time failed")
	}
	data := res.Data.(map[string]any)
	clock, _ := data["time"].(string)
	if _, err := time.Parse("03:04 PM", clock); err != nil {
		t.Errorf("time %q does not match 12-hour format: %v", clock, err)
	}

	res = r.Get("get_current_date").Handler(context.Background(), nil)
	if !res.Success {
		t.Fatal("get_current_date failed")
	}
	data = res.Data.(map[string]any)
	date, _ := data["date"].(string)
	if _, err := time.Parse("Monday, January 2, 2006", date); err != nil {
		t.Errorf("date %q does not match long format: %v", date, err)
	}
}
