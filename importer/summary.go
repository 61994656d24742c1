package importer

import (
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type Status int

const (
	Inserted Status = iota
	Skipped
)

func (s Status) String() string {
	if s == Inserted {
		return "inserted"
	}
	return "skipped"
}

// Outcome is the result of inserting one row. Reason is set when skipped.
type Outcome struct {
	Status Status
	Reason error
}

// Skip records one row that could not be inserted.
type Skip struct {
	Entity string // "make" or "model"
	Key    string
	Reason string
}

// Summary aggregates the outcomes of a run. It is filled in as the run
// progresses, so an aborted run still reports what happened before the abort.
type Summary struct {
	MakesFetched  int
	MakesAllowed  int
	MakesInserted int
	MakesSkipped  int

	ModelsFetched  int
	ModelsInserted int
	ModelsSkipped  int

	// MakesProcessed counts inserted makes whose models phase finished.
	MakesProcessed int

	Skips []Skip
}

func (s *Summary) recordMake(o Outcome, key string) {
	if o.Status == Inserted {
		s.MakesInserted++
		return
	}
	s.MakesSkipped++
	s.Skips = append(s.Skips, Skip{Entity: "make", Key: key, Reason: o.Reason.Error()})
}

func (s *Summary) recordModel(o Outcome, key string) {
	if o.Status == Inserted {
		s.ModelsInserted++
		return
	}
	s.ModelsSkipped++
	s.Skips = append(s.Skips, Skip{Entity: "model", Key: key, Reason: o.Reason.Error()})
}

// Print writes a human readable report with grouped thousands.
func (s Summary) Print(w io.Writer) {
	p := message.NewPrinter(language.English)
	p.Fprintf(w, "makes:  %d fetched, %d allowed, %d inserted, %d skipped\n",
		s.MakesFetched, s.MakesAllowed, s.MakesInserted, s.MakesSkipped)
	p.Fprintf(w, "models: %d fetched, %d inserted, %d skipped (%d/%d makes processed)\n",
		s.ModelsFetched, s.ModelsInserted, s.ModelsSkipped, s.MakesProcessed, s.MakesInserted)
	for _, sk := range s.Skips {
		p.Fprintf(w, "  ⚠️  %s %s: %s\n", sk.Entity, sk.Key, sk.Reason)
	}
}
