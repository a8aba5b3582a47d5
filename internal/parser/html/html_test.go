package html

import (
	"slices"
	"testing"
)

const lessonPlan = `<!DOCTYPE html>
<html>
<head>
  <title>
    แผนการสอน   Science
  </title>
</head>
<body>
  <div id="toolbar" class="no-print">Export</div>
  <div id="lesson-plan-content">
    <h1>Intro: Science/Math</h1>
    <img src="diagram.png">
    <img src="">
    <p>Physics <b>week 1</b></p>
  </div>
</body>
</html>`

func TestTitle(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"normalized", lessonPlan, "แผนการสอน Science"},
		{"missing", "<p>no head</p>", ""},
		{"first wins", "<title>a</title><title>b</title>", "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseString(tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if got := doc.Title(); got != tt.want {
				t.Errorf("Title() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestElementByID(t *testing.T) {
	doc, err := ParseString(lessonPlan)
	if err != nil {
		t.Fatal(err)
	}

	el, ok := doc.ElementByID("lesson-plan-content")
	if !ok {
		t.Fatal("lesson-plan-content not found")
	}
	if el.Tag() != "div" {
		t.Errorf("Tag() = %q", el.Tag())
	}
	if got, want := el.Text(), "Intro: Science/Math Physics week 1"; got != want {
		t.Errorf("Text() = %q, want %q", got, want)
	}
	if got := el.Images(); !slices.Equal(got, []string{"diagram.png"}) {
		t.Errorf("Images() = %v", got)
	}

	tb, _ := doc.ElementByID("toolbar")
	if cls, _ := tb.Attr("class"); cls != "no-print" {
		t.Errorf("class = %q", cls)
	}

	if _, ok := doc.ElementByID("missing"); ok {
		t.Error("missing element found")
	}
	if got := doc.IDs(); !slices.Equal(got, []string{"toolbar", "lesson-plan-content"}) {
		t.Errorf("IDs() = %v", got)
	}
}
