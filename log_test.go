package bluez

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestLogLevel(t *testing.T) {
	defer SetLogger(nil)
	SetLogger(nil)

	var buf bytes.Buffer
	l, err := rootLogger()
	if err != nil {
		t.Fatal(err)
	}
	l.Out = &buf

	child := GetLogger().ChildLogger(map[string]interface{}{"adapter": "hci0"})
	child.Debugf("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug output at info level: %q", buf.String())
	}

	SetLogLevelMax()
	child.Debugf("shown")
	if !strings.Contains(buf.String(), "shown") || !strings.Contains(buf.String(), "adapter=hci0") {
		t.Fatalf("unexpected output %q", buf.String())
	}

	if err := SetLogLevel("warn"); err != nil {
		t.Fatal(err)
	}
	if l.Level != logrus.WarnLevel {
		t.Fatalf("unexpected level %s", l.Level)
	}
	if err := SetLogLevel("chatty"); err == nil {
		t.Fatalf("invalid level accepted")
	}
}

type nopLogger struct{ Logger }

func TestSetLogger(t *testing.T) {
	defer SetLogger(nil)

	SetLogger(nopLogger{})
	if _, ok := GetLogger().(nopLogger); !ok {
		t.Fatalf("logger not replaced")
	}
	if err := SetLogLevel("debug"); err == nil {
		t.Fatalf("level set on a foreign logger")
	}
}
