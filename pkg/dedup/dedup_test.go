package dedup

import (
	"testing"
	"time"

	"github.com/jordigilh/triagex/pkg/embedding"
)

func TestDetectorVerdictSequence(t *testing.T) {
	d := New(embedding.NewShingleVectorizer(), 0.9, 300*time.Second, 3)
	base := time.Unix(1700000000, 0)
	text := "our production database is down"

	// call 0: 0 prior matches -> Normal
	// call 1: 1 prior match -> Normal
	// call 2: 2 prior matches -> Normal
	// call 3: 3 prior matches -> Master (3 == threshold)
	// call 4: 4 prior matches -> Suppress (4 > threshold)
	want := []Verdict{Normal, Normal, Normal, Master, Suppress}
	for i, w := range want {
		got := d.Check(base.Add(time.Duration(i)*time.Second), text)
		if got != w {
			t.Errorf("Check() call %d = %v, want %v", i, got, w)
		}
	}
}

func TestDetectorMasterAtExactThreshold(t *testing.T) {
	d := New(embedding.NewShingleVectorizer(), 0.9, 300*time.Second, 2)
	base := time.Unix(1700000000, 0)
	text := "checkout is throwing a 500 error for everyone"

	// call 0: 0 prior matches -> Normal
	// call 1: 1 prior match -> Normal (1 != threshold 2)
	// call 2: 2 prior matches -> Master (2 == threshold)
	// call 3: 3 prior matches -> Suppress (3 > threshold)
	want := []Verdict{Normal, Normal, Master, Suppress}
	for i, w := range want {
		got := d.Check(base.Add(time.Duration(i)*time.Second), text)
		if got != w {
			t.Errorf("Check() call %d = %v, want %v", i, got, w)
		}
	}
}

func TestDetectorDissimilarTextsStayNormal(t *testing.T) {
	d := New(embedding.NewShingleVectorizer(), 0.9, 300*time.Second, 2)
	base := time.Unix(1700000000, 0)

	texts := []string{
		"my invoice has the wrong amount",
		"the legal team needs a contract review",
		"login keeps failing with a timeout",
	}
	for i, text := range texts {
		got := d.Check(base.Add(time.Duration(i)*time.Second), text)
		if got != Normal {
			t.Errorf("Check(%q) = %v, want Normal for dissimilar tickets", text, got)
		}
	}
}

func TestDetectorEvictsOutsideWindow(t *testing.T) {
	d := New(embedding.NewShingleVectorizer(), 0.9, 10*time.Second, 1)
	base := time.Unix(1700000000, 0)
	text := "our production database is down"

	d.Check(base, text)
	// Second call within the window: 1 prior match == threshold -> Master.
	got := d.Check(base.Add(5*time.Second), text)
	if got != Master {
		t.Fatalf("Check() within window = %v, want Master", got)
	}

	// Third call well outside the window: both prior entries evicted,
	// so this is treated as a fresh occurrence -> Normal.
	got = d.Check(base.Add(100*time.Second), text)
	if got != Normal {
		t.Fatalf("Check() after window eviction = %v, want Normal", got)
	}
}

func TestDetectorSize(t *testing.T) {
	d := New(embedding.NewShingleVectorizer(), 0.9, 300*time.Second, 5)
	base := time.Unix(1700000000, 0)

	d.Check(base, "a")
	d.Check(base.Add(time.Second), "b")

	if got := d.Size(); got != 2 {
		t.Errorf("Size() = %d, want 2", got)
	}
}
