package mail

import (
	"strings"
	"testing"
)

func TestBuildMessage(t *testing.T) {
	msg := string(buildMessage("no-reply@test", "user@test", "Hello", "<p>hi</p>", "hi"))

	if !strings.Contains(msg, "Content-Type: multipart/alternative") {
		t.Fatalf("missing multipart content type:\n%s", msg)
	}
	textIdx := strings.Index(msg, "text/plain")
	htmlIdx := strings.Index(msg, "text/html")
	if textIdx == -1 || htmlIdx == -1 {
		t.Fatalf("missing body parts:\n%s", msg)
	}
	// Least preferred alternative first.
	if textIdx > htmlIdx {
		t.Fatalf("plain text part must precede html part")
	}
	if !strings.HasSuffix(msg, "--"+boundary+"--\r\n") {
		t.Fatalf("missing closing boundary")
	}
}
