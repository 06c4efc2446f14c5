package metabox

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	dbpkg "eventcheckin/internal/db"
	"eventcheckin/internal/i18n"
)

type fakeKeys struct {
	keys      map[uint64]string
	ensured   []uint64
	ensureErr error
	next      string
}

func (f *fakeKeys) EnsureKey(ctx context.Context, id uint64) error {
	f.ensured = append(f.ensured, id)
	if f.ensureErr != nil {
		return f.ensureErr
	}
	if f.keys[id] == "" {
		f.keys[id] = f.next
	}
	return nil
}

func (f *fakeKeys) Key(ctx context.Context, id uint64) (string, error) {
	return f.keys[id], nil
}

func newRenderer(keys *fakeKeys) *Renderer {
	enabled := func(pt string) bool { return pt == "tribe_events" }
	return NewRenderer(keys, enabled, i18n.NewLoader("en_US", "", zerolog.Nop()), zerolog.Nop())
}

func TestAddEventAPIMetaBox_TicketEnabledPost(t *testing.T) {
	keys := &fakeKeys{keys: map[uint64]string{}, next: "abc123"}
	r := newRenderer(keys)
	screen := &Screen{Post: &dbpkg.Post{ID: 42, PostType: "tribe_events"}}

	if err := r.AddEventAPIMetaBox(context.Background(), screen); err != nil {
		t.Fatalf("add meta box: %v", err)
	}
	if len(keys.ensured) != 1 || keys.ensured[0] != 42 {
		t.Fatalf("expected key ensured for 42, got %v", keys.ensured)
	}
	if len(screen.Boxes) != 1 {
		t.Fatalf("expected one box, got %d", len(screen.Boxes))
	}
	box := screen.Boxes[0]
	if box.ID != BoxID || box.Context != "side" || box.Title != "Event Check-in API" {
		t.Fatalf("unexpected box %+v", box)
	}
	body := string(box.Body)
	for _, want := range []string{
		`value="abc123"`,
		"disabled",
		`href="` + KnowledgeBaseURL + `"`,
		`target="_blank" rel="noopener noreferrer"`,
		">QR Code App</a>",
		"to allow checkin for this Event Only.",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected body to contain %q, got %s", want, body)
		}
	}
}

func TestAddEventAPIMetaBox_SkipsOtherPostTypes(t *testing.T) {
	keys := &fakeKeys{keys: map[uint64]string{}, next: "abc123"}
	r := newRenderer(keys)
	screen := &Screen{Post: &dbpkg.Post{ID: 7, PostType: "page"}}

	if err := r.AddEventAPIMetaBox(context.Background(), screen); err != nil {
		t.Fatalf("add meta box: %v", err)
	}
	if len(screen.Boxes) != 0 || len(keys.ensured) != 0 {
		t.Fatalf("expected no box and no key, got %d boxes, %v ensured", len(screen.Boxes), keys.ensured)
	}
}

func TestAddEventAPIMetaBox_GenerationFailureShowsEmptyField(t *testing.T) {
	keys := &fakeKeys{keys: map[uint64]string{}, ensureErr: errors.New("store down")}
	r := newRenderer(keys)
	screen := &Screen{Post: &dbpkg.Post{ID: 42, PostType: "tribe_events"}}

	if err := r.AddEventAPIMetaBox(context.Background(), screen); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(screen.Boxes) != 1 || !strings.Contains(string(screen.Boxes[0].Body), `value=""`) {
		t.Fatalf("expected empty field, got %+v", screen.Boxes)
	}
}

func TestRenderMetaBox_EscapesKey(t *testing.T) {
	keys := &fakeKeys{keys: map[uint64]string{1: `"><script>`}}
	r := newRenderer(keys)

	var buf bytes.Buffer
	if err := r.RenderMetaBox(context.Background(), &buf, &dbpkg.Post{ID: 1}); err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(buf.String(), "<script>") {
		t.Fatalf("expected key to be escaped, got %s", buf.String())
	}
}

func TestAddCommunityTicketsAPIBox(t *testing.T) {
	tests := []struct {
		name      string
		page      Page
		wantBox   bool
		wantCalls int
	}{
		{"no post", Page{CommunityEdit: true}, false, 0},
		{"not community edit", Page{Post: &dbpkg.Post{ID: 5, PostType: "tribe_events"}}, false, 0},
		{"community edit", Page{Post: &dbpkg.Post{ID: 5, PostType: "tribe_events"}, CommunityEdit: true}, true, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			keys := &fakeKeys{keys: map[uint64]string{}, next: "K5"}
			r := newRenderer(keys)
			var buf bytes.Buffer
			pg := tt.page
			pg.W = &buf

			if err := r.AddCommunityTicketsAPIBox(context.Background(), &pg); err != nil {
				t.Fatalf("community box: %v", err)
			}
			if len(keys.ensured) != tt.wantCalls {
				t.Fatalf("expected %d ensure calls, got %d", tt.wantCalls, len(keys.ensured))
			}
			out := buf.String()
			if got := strings.Contains(out, `id="tickets-api"`); got != tt.wantBox {
				t.Fatalf("box rendered = %v, want %v: %s", got, tt.wantBox, out)
			}
			if tt.wantBox && (!strings.Contains(out, "Event API Key") || !strings.Contains(out, `value="K5"`)) {
				t.Fatalf("unexpected box output %s", out)
			}
		})
	}
}
