package transform

import "testing"

func TestStripSyslogHostname(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{
			"Feb 25 18:54:47 test systemd[1]: Started foo",
			"Feb 25 18:54:47 systemd[1]: Started foo",
		},
		{
			// Space-padded single-digit day.
			"Feb  5 03:01:09 web01 kernel: eth0 link up",
			"Feb  5 03:01:09 kernel: eth0 link up",
		},
		{
			// No syslog prefix: unchanged.
			"plain message without prefix",
			"plain message without prefix",
		},
		{
			// Missing time component: unchanged.
			"Feb 25 host message",
			"Feb 25 host message",
		},
		{
			"",
			"",
		},
	}

	for _, tt := range tests {
		if got := StripSyslogHostname(tt.in); got != tt.want {
			t.Errorf("StripSyslogHostname(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTransformerIncludeFilter(t *testing.T) {
	tr, err := New("systemd", false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, ok := tr.Apply("Feb 25 18:54:47 test cron[2]: job done"); ok {
		t.Error("line without regex match should be dropped")
	}

	got, ok := tr.Apply("Feb 25 18:54:47 test systemd[1]: Started foo")
	if !ok {
		t.Fatal("matching line should pass the filter")
	}
	if got != "Feb 25 18:54:47 test systemd[1]: Started foo" {
		t.Errorf("unexpected rewrite without strip flag: %q", got)
	}
}

func TestTransformerFilterBeforeStrip(t *testing.T) {
	// The filter matches on the hostname token, which stripping would remove:
	// filtering must be evaluated on the original line.
	tr, err := New("test", true)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, ok := tr.Apply("Feb 25 18:54:47 test systemd[1]: Started foo")
	if !ok {
		t.Fatal("line should pass the filter before stripping")
	}
	if got != "Feb 25 18:54:47 systemd[1]: Started foo" {
		t.Errorf("Apply = %q, want hostname stripped", got)
	}
}

func TestTransformerNoRegexMatchesEverything(t *testing.T) {
	tr, err := New("", false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := tr.Apply("anything at all"); !ok {
		t.Error("empty regex should match everything")
	}
}

func TestTransformerInvalidRegex(t *testing.T) {
	if _, err := New("(unclosed", false); err == nil {
		t.Error("expected error for invalid regex")
	}
}
