package htmlclean

import (
	"strings"
	"testing"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "already wrapped",
			in:   "<div><h2><u>Sets</u></h2><p>A set is a collection.</p></div>",
			want: "<div><h2><u>Sets</u></h2><p>A set is a collection.</p></div>",
		},
		{
			name: "wraps loose content",
			in:   "<h2><u>Sets</u></h2><p>Intro</p>",
			want: "<div><h2><u>Sets</u></h2><p>Intro</p></div>",
		},
		{
			name: "drops scripts and handlers",
			in:   `<div><p onclick="x()">Hi</p><script>alert(1)</script></div>`,
			want: "<div><p>Hi</p></div>",
		},
		{
			name: "unwraps unknown tags",
			in:   `<div><section><p>Kept</p></section></div>`,
			want: "<div><p>Kept</p></div>",
		},
		{
			name: "strips javascript links",
			in:   `<div><a href="javascript:alert(1)">x</a><a href="https://go.dev">go</a></div>`,
			want: `<div><a>x</a><a href="https://go.dev">go</a></div>`,
		},
		{
			name: "plain text",
			in:   "Just text",
			want: "<div>Just text</div>",
		},
		{
			name: "two top-level divs are wrapped",
			in:   "<div>a</div><div>b</div>",
			want: "<div><div>a</div><div>b</div></div>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.in); got != tt.want {
				t.Fatalf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSanitizeKeepsLists(t *testing.T) {
	in := "<div><h3><strong>Key Features</strong></h3><ul><li>One</li><li>Two</li></ul></div>"
	got := Sanitize(in)
	if !strings.Contains(got, "<ul><li>One</li><li>Two</li></ul>") {
		t.Fatalf("list lost: %q", got)
	}
}
