package site

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		path string
		want SourceKind
	}{
		{path: "3/channel-modes.md", want: KindPage},
		{path: "index.md", want: KindPage},
		{path: "3/modules/censor.yml", want: KindModule},
		{path: "3/configuration/other.yml", want: KindAsset},
		{path: "img/logo.png", want: KindAsset},
		{path: "3/modules/extra/readme.txt", want: KindAsset},
	}
	for _, tt := range tests {
		if got := Classify(tt.path); got != tt.want {
			t.Errorf("Classify(%q): expected %v, got %v", tt.path, tt.want, got)
		}
	}
}

func TestDestPath(t *testing.T) {
	tests := []struct {
		path    string
		kind    SourceKind
		dirURLs bool
		want    string
	}{
		{path: "3/channel-modes.md", kind: KindPage, dirURLs: true, want: "3/channel-modes/index.md"},
		{path: "3/channel-modes.md", kind: KindPage, dirURLs: false, want: "3/channel-modes.md"},
		{path: "3/index.md", kind: KindPage, dirURLs: true, want: "3/index.md"},
		{path: "index.md", kind: KindPage, dirURLs: true, want: "index.md"},
		{path: "3/modules/censor.yml", kind: KindModule, dirURLs: true, want: "3/modules/censor/index.md"},
		{path: "3/modules/censor.yml", kind: KindModule, dirURLs: false, want: "3/modules/censor.md"},
		{path: "img/logo.png", kind: KindAsset, dirURLs: true, want: "img/logo.png"},
	}
	for _, tt := range tests {
		if got := DestPath(tt.path, tt.kind, tt.dirURLs); got != tt.want {
			t.Errorf("DestPath(%q, %v, %v): expected %q, got %q", tt.path, tt.kind, tt.dirURLs, tt.want, got)
		}
	}
}

func TestURLPath(t *testing.T) {
	tests := []struct {
		path    string
		kind    SourceKind
		dirURLs bool
		want    string
	}{
		{path: "3/channel-modes.md", kind: KindPage, dirURLs: true, want: "/3/channel-modes/"},
		{path: "3/index.md", kind: KindPage, dirURLs: true, want: "/3/"},
		{path: "3/modules/censor.yml", kind: KindModule, dirURLs: true, want: "/3/modules/censor/"},
		{path: "3/channel-modes.md", kind: KindPage, dirURLs: false, want: "/3/channel-modes.md"},
		{path: "img/logo.png", kind: KindAsset, dirURLs: true, want: "/img/logo.png"},
	}
	for _, tt := range tests {
		if got := URLPath(tt.path, tt.kind, tt.dirURLs); got != tt.want {
			t.Errorf("URLPath(%q): expected %q, got %q", tt.path, tt.want, got)
		}
	}
}
