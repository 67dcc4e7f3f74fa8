package browser

import "testing"

func TestOpenRejectsNonWebURLs(t *testing.T) {
	var opened []string
	orig := Opener
	Opener = func(u string) error { opened = append(opened, u); return nil }
	t.Cleanup(func() { Opener = orig })

	for _, bad := range []string{"", "file:///etc/passwd", "javascript:alert(1)", "/relative", "https://"} {
		if err := Open(bad); err == nil {
			t.Errorf("Open(%q): expected error", bad)
		}
	}
	if err := Open("https://pay.example/checkout?tx=1"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if len(opened) != 1 || opened[0] != "https://pay.example/checkout?tx=1" {
		t.Errorf("opened = %v", opened)
	}
}
