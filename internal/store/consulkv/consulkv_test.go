package consulkv

import (
	"net/url"
	"testing"
)

func TestKeyEscapesIdentity(t *testing.T) {
	b := New(nil, "/chat/players/")
	got := b.key("::1")
	want := "chat/players/" + url.PathEscape("::1")
	if got != want {
		t.Fatalf("key = %q, want %q", got, want)
	}
	if b.key("10.0.0.1/evil") == "chat/players/10.0.0.1/evil" {
		t.Fatal("slash in identity must be escaped")
	}
}

func TestDefaultPrefix(t *testing.T) {
	if got := New(nil, "").key("a"); got != defaultPrefix+"/a" {
		t.Fatalf("key = %q", got)
	}
}
