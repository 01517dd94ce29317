package config

import "testing"

func TestLogger_ValidateRejectsUnknownEncoding(t *testing.T) {
	l := Logger{LogEncoding: "xml"}
	if err := l.Validate(); err == nil {
		t.Fatal("expected an error for an unknown LogEncoding")
	}
}

func TestLogger_ValidateRejectsUnknownLevel(t *testing.T) {
	l := Logger{LogLevel: "verbose"}
	if err := l.Validate(); err == nil {
		t.Fatal("expected an error for an unknown LogLevel")
	}
}

func TestLogger_BuildDefaults(t *testing.T) {
	l := Logger{}
	log, err := l.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if log == nil {
		t.Fatal("expected a non-nil logger")
	}
}

func TestLogger_BuildRejectsBadLevel(t *testing.T) {
	l := Logger{LogLevel: "not-a-level"}
	if _, err := l.Build(); err == nil {
		t.Fatal("expected Build to reject an invalid LogLevel")
	}
}
