package store

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFilterMatches(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	md := &Metadata{
		Name:     "docs/readme.md",
		Size:     42,
		Modified: base,
		MIME:     "text/markdown",
		Encoding: "utf-8",
		Tag:      "docs",
		Tag2:     "public",
		Tag3:     "v1",
	}

	cases := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"zero filter matches everything", Filter{}, true},
		{"prefix match", Filter{Prefix: "docs/"}, true},
		{"prefix miss", Filter{Prefix: "img/"}, false},
		{"mime match", Filter{MIME: "text/markdown"}, true},
		{"mime miss", Filter{MIME: "text/plain"}, false},
		{"encoding match", Filter{Encoding: "utf-8"}, true},
		{"tag matches first slot", Filter{Tag: "docs"}, true},
		{"tag matches second slot", Filter{Tag: "public"}, true},
		{"tag matches third slot", Filter{Tag: "v1"}, true},
		{"tag miss", Filter{Tag: "private"}, false},
		{"slot predicate on its own slot", Filter{Tag2: "public"}, true},
		{"slot predicate on wrong slot", Filter{Tag1: "public"}, false},
		{"glob match", Filter{NameGlob: "docs/*.md"}, true},
		{"glob miss", Filter{NameGlob: "*.md"}, false},
		{"glob star stays within segment", Filter{NameGlob: "*"}, false},
		{"malformed glob matches nothing", Filter{NameGlob: "docs/["}, false},
		{"regexp match", Filter{NameRegexp: regexp.MustCompile(`\.md$`)}, true},
		{"regexp miss", Filter{NameRegexp: regexp.MustCompile(`^img/`)}, false},
		{"size equality match", Filter{Size: Int64(42)}, true},
		{"size equality miss", Filter{Size: Int64(41)}, false},
		{"size greater (exclusive)", Filter{SizeGreater: Int64(42)}, false},
		{"size greater below", Filter{SizeGreater: Int64(41)}, true},
		{"size less (exclusive)", Filter{SizeLess: Int64(42)}, false},
		{"size less above", Filter{SizeLess: Int64(43)}, true},
		{"modified after (exclusive)", Filter{ModifiedAfter: base}, false},
		{"modified after earlier bound", Filter{ModifiedAfter: base.Add(-time.Hour)}, true},
		{"modified before (exclusive)", Filter{ModifiedBefore: base}, false},
		{"modified before later bound", Filter{ModifiedBefore: base.Add(time.Hour)}, true},
		{"all predicates AND", Filter{Prefix: "docs/", Tag: "docs", MIME: "text/markdown"}, true},
		{"one failing predicate rejects", Filter{Prefix: "docs/", Tag: "nope"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.filter.Matches(md))
		})
	}
}

func TestProject(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	md := &Metadata{
		Name:        "a.txt",
		Size:        5,
		ETag:        `"abc"`,
		Modified:    base,
		MIME:        "text/plain",
		Encoding:    "utf-8",
		Description: "never projected",
		Tag:         "a",
		Tag2:        "b",
		Tag3:        "c",
		Data:        map[string]string{"k": "v"},
	}

	entry := Project(md)
	assert.Equal(t, FindEntry{
		Name:     "a.txt",
		Size:     5,
		Modified: base.Unix(),
		MIME:     "text/plain",
		Encoding: "utf-8",
		Tag:      "a",
		Tag2:     "b",
		Tag3:     "c",
	}, entry)
}
