package utils

import (
	"testing"
)

func TestTruncate(t *testing.T) {
	if Truncate("hello", 10) != "hello" {
		t.Error("short string unchanged")
	}
	if Truncate("hello world", 5) != "hello..." {
		t.Errorf("got %s", Truncate("hello world", 5))
	}
	if Truncate("x", 0) != "x" {
		t.Error("maxLen 0 returns as-is")
	}
	if got := Truncate("図鑑の本です", 2); got != "図鑑..." {
		t.Errorf("multibyte: got %s", got)
	}
}

func TestPreview(t *testing.T) {
	in := "Revenue grew\n\n  12%\tin Q3."
	if got := Preview(in, 0); got != "Revenue grew 12% in Q3." {
		t.Errorf("got %q", got)
	}
	if got := Preview(in, 7); got != "Revenue..." {
		t.Errorf("got %q", got)
	}
	if got := Preview(" \n ", 5); got != "" {
		t.Errorf("blank: got %q", got)
	}
}
