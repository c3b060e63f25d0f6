package model

import (
	"testing"
	"time"
)

func TestCheckpointsAdvanceNeverDecreases(t *testing.T) {
	base := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	cp := Checkpoints{
		"A": base,
		"B": base,
		"C": base,
	}
	batch := []Article{
		{ID: "a1", Source: "A", Date: base.Add(2 * time.Hour)},
		{ID: "a2", Source: "A", Date: base.Add(1 * time.Hour)},
		{ID: "b1", Source: "B", Date: base.Add(-3 * time.Hour)},
		{ID: "d1", Source: "D", Date: base.Add(-48 * time.Hour)},
	}

	next := cp.Advance(batch)

	if !next["A"].Equal(base.Add(2 * time.Hour)) {
		t.Errorf("A: expected newest article date, got %v", next["A"])
	}
	if !next["B"].Equal(base) {
		t.Errorf("B: checkpoint moved backwards to %v", next["B"])
	}
	if !next["C"].Equal(base) {
		t.Errorf("C: absent source changed to %v", next["C"])
	}
	if !next["D"].Equal(base.Add(-48 * time.Hour)) {
		t.Errorf("D: first-seen source should take its newest date, got %v", next["D"])
	}
	for src, before := range cp {
		if next[src].Before(before) {
			t.Errorf("%s decreased: %v -> %v", src, before, next[src])
		}
	}

	// Advance must not mutate the receiver.
	if !cp["A"].Equal(base) {
		t.Errorf("receiver mutated: A = %v", cp["A"])
	}
}

func TestCheckpointsCloneNil(t *testing.T) {
	var cp Checkpoints
	c := cp.Clone()
	if c == nil {
		t.Fatal("Clone of nil should return an empty map")
	}
	c["x"] = time.Now()
	if len(cp) != 0 {
		t.Error("nil receiver should stay empty")
	}
}

func TestParseGranularity(t *testing.T) {
	tests := []struct {
		in      string
		want    Granularity
		wantErr bool
	}{
		{"", Exact, false},
		{"exact", Exact, false},
		{"DAY", Day, false},
		{" day ", Day, false},
		{"hour", Exact, true},
	}
	for _, tt := range tests {
		got, err := ParseGranularity(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseGranularity(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseGranularity(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestArticleValid(t *testing.T) {
	now := time.Now()
	ok := Article{ID: "https://x/1", Source: "X", Date: now}
	if err := ok.Valid(); err != nil {
		t.Errorf("expected valid, got %v", err)
	}
	for name, a := range map[string]Article{
		"no id":     {Source: "X", Date: now},
		"no source": {ID: "1", Date: now},
		"no date":   {ID: "1", Source: "X"},
	} {
		if a.Valid() == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestFormatParseTimeRoundTrip(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	in := time.Date(2024, 3, 10, 23, 59, 59, 0, loc)
	s := FormatTime(in)
	if s != "2024-03-10T22:59:59Z" {
		t.Errorf("FormatTime = %q", s)
	}
	out, err := ParseTime(s)
	if err != nil {
		t.Fatalf("ParseTime: %v", err)
	}
	if !out.Equal(in) {
		t.Errorf("round trip: %v != %v", out, in)
	}
}
