package entry_test

import (
	"testing"
	"time"

	"github.com/01Clarian/xposure/internal/entry"
)

func TestRegisterChoice_OneEntryPerPayer(t *testing.T) {
	b := entry.NewBook()
	now := time.Now()

	ref1 := b.RegisterChoice(1, "alice", entry.ChoiceUpload, now)
	ref2 := b.RegisterChoice(1, "alice", entry.ChoiceVoteOnly, now)

	if ref1 != ref2 {
		t.Errorf("repeat registration should keep the reference: %q vs %q", ref1, ref2)
	}
	if b.Len() != 1 {
		t.Errorf("book length: got %d, want 1", b.Len())
	}

	e, ok := b.Get(ref1)
	if !ok {
		t.Fatal("entry should exist")
	}
	if e.Choice != entry.ChoiceVoteOnly {
		t.Errorf("repeat registration should update the choice, got %s", e.Choice)
	}
}

func TestRecordNotification_Idempotent(t *testing.T) {
	b := entry.NewBook()
	now := time.Now()

	ref := b.RegisterChoice(1, "alice", entry.ChoiceUpload, now)

	result, e := b.RecordNotification(ref, 1, 30_000_000, "addr", now)
	if result != entry.NotifyAccepted {
		t.Fatalf("first notification: got %v, want accepted", result)
	}
	if !e.Confirmed || !e.Paid || e.Lamports != 30_000_000 {
		t.Errorf("entry not confirmed correctly: %+v", e)
	}

	result, _ = b.RecordNotification(ref, 1, 30_000_000, "addr", now)
	if result != entry.NotifyAlreadyProcessed {
		t.Errorf("duplicate notification: got %v, want already-processed", result)
	}
}

func TestRecordNotification_UnknownReferenceCreatesVoteOnly(t *testing.T) {
	b := entry.NewBook()
	now := time.Now()

	result, e := b.RecordNotification("mystery-ref", 9, 50_000_000, "addr", now)
	if result != entry.NotifyAccepted {
		t.Fatalf("got %v, want accepted", result)
	}
	if e.Choice != entry.ChoiceVoteOnly {
		t.Errorf("payment without registration should default to vote-only, got %s", e.Choice)
	}
	if !e.Confirmed {
		t.Error("created entry should be confirmed")
	}
}

func TestAttachMedia(t *testing.T) {
	b := entry.NewBook()
	now := time.Now()

	b.RegisterChoice(1, "alice", entry.ChoiceUpload, now)
	if !b.AttachMedia(1, "file-id", "My Track", 185) {
		t.Fatal("AttachMedia should succeed for a registered payer")
	}
	if b.AttachMedia(2, "file-id", "My Track", 185) {
		t.Error("AttachMedia should fail for an unknown payer")
	}
}

func TestSweep_SkipsConfirmed(t *testing.T) {
	b := entry.NewBook()
	start := time.Now()

	refStale := b.RegisterChoice(1, "stale", entry.ChoiceUpload, start)
	refPaid := b.RegisterChoice(2, "paid", entry.ChoiceUpload, start)
	b.RecordNotification(refPaid, 2, 30_000_000, "addr", start)

	purged := b.Sweep(start.Add(time.Hour), 30*time.Minute, start)

	if len(purged) != 1 || purged[0].Reference != refStale {
		t.Fatalf("sweep should purge only the stale unconfirmed entry, got %d", len(purged))
	}
	if _, ok := b.Get(refPaid); !ok {
		t.Error("confirmed entry must survive the sweep")
	}
	if _, ok := b.Get(refStale); ok {
		t.Error("stale entry should be gone")
	}
}

func TestSweep_KeepsFresh(t *testing.T) {
	b := entry.NewBook()
	start := time.Now()

	b.RegisterChoice(1, "fresh", entry.ChoiceUpload, start)

	purged := b.Sweep(start.Add(10*time.Minute), 30*time.Minute, start)
	if len(purged) != 0 {
		t.Errorf("fresh entry should not be purged, got %d", len(purged))
	}
}

func TestSnapshotRestore(t *testing.T) {
	b := entry.NewBook()
	now := time.Now()

	ref := b.RegisterChoice(1, "alice", entry.ChoiceUpload, now)
	b.AttachMedia(1, "file-id", "Track", 200)

	snap := b.Snapshot()

	restored := entry.NewBook()
	restored.Restore(snap)

	e, ok := restored.Get(ref)
	if !ok {
		t.Fatal("restored book should contain the entry")
	}
	if e.MediaRef != "file-id" || e.Title != "Track" || e.DurationSec != 200 {
		t.Errorf("restored entry lost fields: %+v", e)
	}
}
