package usecase

import (
	"fmt"
	"testing"

	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/entity"
)

func TestJobLogEvictsOldest(t *testing.T) {
	l := NewJobLog(3)
	for i := 1; i <= 5; i++ {
		l.Append(entity.PrintJob{ID: fmt.Sprintf("j%d", i), Status: entity.JobCompleted})
	}
	got := l.Recent()
	if len(got) != 3 {
		t.Fatalf("retained %d, want 3", len(got))
	}
	for i, want := range []string{"j3", "j4", "j5"} {
		if got[i].ID != want {
			t.Errorf("Recent()[%d] = %s, want %s", i, got[i].ID, want)
		}
	}
	if _, ok := l.Get("j1"); ok {
		t.Error("j1 should be evicted")
	}
	st := l.Stats()
	if st.Submitted != 5 || st.Completed != 5 || st.Retained != 3 {
		t.Errorf("stats = %+v", st)
	}
}

func TestJobLogUpdate(t *testing.T) {
	l := NewJobLog(2)
	l.Append(entity.PrintJob{ID: "a", Status: entity.JobQueued})
	if !l.Update(entity.PrintJob{ID: "a", Status: entity.JobFailed, Error: "boom"}) {
		t.Fatal("update of retained job failed")
	}
	j, _ := l.Get("a")
	if j.Status != entity.JobFailed || j.Error != "boom" {
		t.Errorf("job = %+v", j)
	}
	if st := l.Stats(); st.Queued != 0 || st.Failed != 1 {
		t.Errorf("stats = %+v", st)
	}

	l.Append(entity.PrintJob{ID: "b", Status: entity.JobQueued})
	l.Append(entity.PrintJob{ID: "c", Status: entity.JobQueued})
	l.Append(entity.PrintJob{ID: "d", Status: entity.JobQueued})
	if l.Update(entity.PrintJob{ID: "b", Status: entity.JobCompleted}) {
		t.Error("b was evicted, update should report false")
	}
	if st := l.Stats(); st.Queued != 2 || st.Completed != 1 {
		t.Errorf("stats after evicted update = %+v", st)
	}
}

func TestJobLogDefaultCapacity(t *testing.T) {
	if l := NewJobLog(0); len(l.buf) != DefaultJobRetention {
		t.Errorf("capacity = %d", len(l.buf))
	}
}
