package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestLogNotifier(t *testing.T) {
	log := &mockLogger{}
	n := &LogNotifier{Logger: log}

	if err := n.Notify(context.Background(), "*Source:* `/src`"); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	if len(log.infos) != 1 {
		t.Fatalf("expected 1 log line, got %d", len(log.infos))
	}
	if !strings.Contains(log.infos[0], "Source: /src") {
		t.Errorf("log line = %q, want Markdown stripped", log.infos[0])
	}
}

func TestMulti(t *testing.T) {
	var got []string
	record := func(name string, err error) Notifier {
		return notifierFunc(func(ctx context.Context, summary string) error {
			got = append(got, name+":"+summary)
			return err
		})
	}

	errFirst := errors.New("first failed")
	m := Multi{record("a", errFirst), nil, record("b", nil)}

	err := m.Notify(context.Background(), "done")
	if !errors.Is(err, errFirst) {
		t.Errorf("Notify() error = %v, want %v", err, errFirst)
	}
	want := []string{"a:done", "b:done"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v, want %v", got, want)
	}

	if err := (Multi{}).Notify(context.Background(), "x"); err != nil {
		t.Errorf("empty Multi returned %v", err)
	}
}
