package holdings

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/etnz/holdings/date"
)

// Snapshots and events are persisted as JSONL: one JSON object per line with a
// stable field order, so that files stay human-readable and git-friendly.
//
// A snapshot file starts with a header line followed by one line per record:
//
//	{"fund":"1067983","quarter":"2025Q2","version":1,"filed_on":"2025-08-14","accession":"0000950123-25-008343"}
//	{"cusip":"037833100","issuer":"APPLE INC","class":"COM","shares":280000000,"value":57448400000,"ticker":"AAPL","source":"cache"}

// fileLine structures a line from a file as the persistence layer represent them.
type fileLine struct {
	filename string
	i        int
	txt      string
}

// decodeLines reads all non empty lines.
func decodeLines(filename string, r io.Reader) ([]fileLine, error) {
	var list []fileLine
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	i := 0
	for scanner.Scan() {
		i++
		txt := scanner.Text()
		if strings.TrimSpace(txt) == "" {
			continue
		}
		list = append(list, fileLine{filename, i, txt})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cannot read %q: %w", filename, err)
	}
	return list, nil
}

type jvoting struct {
	Sole   Quantity `json:"sole"`
	Shared Quantity `json:"shared"`
	None   Quantity `json:"none"`
}

type jdetail struct {
	TitleOfClass string   `json:"class,omitempty"`
	Shares       Quantity `json:"shares"`
	Value        Money    `json:"value"`
	Discretion   string   `json:"discretion,omitempty"`
}

type jheader struct {
	Fund      CIK          `json:"fund"`
	Quarter   date.Quarter `json:"quarter"`
	Version   int          `json:"version"`
	FiledOn   date.Date    `json:"filed_on"`
	Accession string       `json:"accession"`
}

type jrecord struct {
	CUSIP   CUSIP     `json:"cusip"`
	Issuer  string    `json:"issuer"`
	Class   string    `json:"class"`
	Shares  Quantity  `json:"shares"`
	Value   Money     `json:"value"`
	Ticker  string    `json:"ticker"`
	Source  string    `json:"source"`
	Voting  *jvoting  `json:"voting"`
	Details []jdetail `json:"details"`
}

func encodeHeader(h SnapshotHeader) ([]byte, error) {
	var w jsonObjectWriter
	w.Append("fund", h.Fund)
	w.Append("quarter", h.Quarter)
	w.Append("version", h.Version)
	w.Optional("filed_on", h.FiledOn)
	w.Optional("accession", h.Accession)
	return w.MarshalJSON()
}

func encodeRecord(r HoldingRecord) ([]byte, error) {
	var w jsonObjectWriter
	w.Append("cusip", r.CUSIP)
	w.Append("issuer", r.Issuer)
	w.Optional("class", r.Class)
	w.Append("shares", r.Shares)
	w.Append("value", r.Value)
	w.Optional("ticker", r.Ticker)
	w.Optional("source", r.TickerSource)
	if r.Voting.Known {
		w.Append("voting", jvoting{r.Voting.Sole, r.Voting.Shared, r.Voting.None})
	}
	if len(r.Details) > 1 {
		details := make([]jdetail, 0, len(r.Details))
		for _, d := range r.Details {
			details = append(details, jdetail(d))
		}
		w.Append("details", details)
	}
	return w.MarshalJSON()
}

// EncodeSnapshot writes s as JSONL. Synthesized snapshots are refused: they
// are views, not filings.
func EncodeSnapshot(w io.Writer, s *Snapshot) error {
	if s.Synthesized() {
		return fmt.Errorf("cannot encode synthesized snapshot %s %s", s.Fund(), s.Quarter())
	}
	lines := make([][]byte, 0, s.Len()+1)
	h, err := encodeHeader(s.Header())
	if err != nil {
		return fmt.Errorf("cannot encode snapshot header: %w", err)
	}
	lines = append(lines, h)
	for r := range s.Records() {
		line, err := encodeRecord(r)
		if err != nil {
			return fmt.Errorf("cannot encode %s: %w", r.CUSIP, err)
		}
		lines = append(lines, line)
	}
	bw := bufio.NewWriter(w)
	for _, line := range lines {
		bw.Write(line)
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// DecodeSnapshot reads a snapshot written by EncodeSnapshot.
// filename is for error message only.
func DecodeSnapshot(filename string, r io.Reader) (*Snapshot, error) {
	lines, err := decodeLines(filename, r)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("parse error %s: empty snapshot", filename)
	}

	var jh jheader
	if err := json.Unmarshal([]byte(lines[0].txt), &jh); err != nil {
		return nil, fmt.Errorf("parse error %s:%v: invalid header: %w", filename, lines[0].i, err)
	}

	records := make([]HoldingRecord, 0, len(lines)-1)
	for _, l := range lines[1:] {
		var jr jrecord
		if err := json.Unmarshal([]byte(l.txt), &jr); err != nil {
			return nil, fmt.Errorf("parse error %s:%v: not a correct json: %w", l.filename, l.i, err)
		}
		if err := ValidateCUSIP(string(jr.CUSIP)); err != nil {
			return nil, fmt.Errorf("parse error %s:%v: %w %q: %w", l.filename, l.i, ErrInvalidCUSIP, jr.CUSIP, err)
		}
		rec := HoldingRecord{
			CUSIP:        jr.CUSIP,
			Issuer:       jr.Issuer,
			Class:        jr.Class,
			Shares:       jr.Shares,
			Value:        jr.Value,
			Ticker:       jr.Ticker,
			TickerSource: jr.Source,
		}
		if jr.Voting != nil {
			rec.Voting = VotingAuthority{Sole: jr.Voting.Sole, Shared: jr.Voting.Shared, None: jr.Voting.None, Known: true}
		}
		for _, d := range jr.Details {
			rec.Details = append(rec.Details, ClassDetail(d))
		}
		records = append(records, rec)
	}

	s, err := NewSnapshot(SnapshotHeader(jh), records)
	if err != nil {
		return nil, fmt.Errorf("parse error %s: %w", filename, err)
	}
	return s, nil
}

// Events are persisted one per line:
//
//	{"accession":"0000921895-25-001234","kind":"4","form":"4","filer":"SCION ASSET MANAGEMENT, LLC","filer_cik":"1649339","fund":"1649339","issuer":"ESTEE LAUDER","ticker":"EL","date":"2025-07-03","filed_on":"2025-07-07","shares":50000,"direction":"A","post":250000}

type jevent struct {
	Accession  string     `json:"accession"`
	Kind       FilingKind `json:"kind"`
	FormType   string     `json:"form"`
	FilerName  string     `json:"filer"`
	FilerCIK   CIK        `json:"filer_cik"`
	Fund       CIK        `json:"fund"`
	IssuerName string     `json:"issuer"`
	IssuerCIK  CIK        `json:"issuer_cik"`
	CUSIP      CUSIP      `json:"cusip"`
	Ticker     string     `json:"ticker"`
	Date       date.Date  `json:"date"`
	FiledOn    date.Date  `json:"filed_on"`
	Shares     Quantity   `json:"shares"`
	Direction  Direction  `json:"direction"`
	Post       *Quantity  `json:"post"`
}

// encodeEvent returns the JSON line of an event.
func encodeEvent(e EventFiling) ([]byte, error) {
	var w jsonObjectWriter
	w.Append("accession", e.Accession)
	w.Append("kind", e.Kind)
	w.Optional("form", e.FormType)
	w.Optional("filer", e.FilerName)
	w.Optional("filer_cik", e.FilerCIK)
	w.Append("fund", e.Fund)
	w.Optional("issuer", e.IssuerName)
	w.Optional("issuer_cik", e.IssuerCIK)
	w.Optional("cusip", e.CUSIP)
	w.Optional("ticker", e.Ticker)
	w.Append("date", e.TransactionDate)
	w.Optional("filed_on", e.FiledOn)
	w.Append("shares", e.Shares)
	w.Append("direction", e.Direction)
	w.Optional("post", e.PostTransaction)
	return w.MarshalJSON()
}

// EncodeEvents writes events as JSONL.
func EncodeEvents(w io.Writer, events []EventFiling) error {
	bw := bufio.NewWriter(w)
	for _, e := range events {
		line, err := encodeEvent(e)
		if err != nil {
			return fmt.Errorf("cannot encode event %s: %w", e.Accession, err)
		}
		bw.Write(line)
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// DecodeEvents reads events written by EncodeEvents and returns them sorted.
// Lines repeated verbatim (a filing appended twice) are read once.
func DecodeEvents(filename string, r io.Reader) ([]EventFiling, error) {
	lines, err := decodeLines(filename, r)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(lines))
	events := make([]EventFiling, 0, len(lines))
	for _, l := range lines {
		if seen[l.txt] {
			continue
		}
		seen[l.txt] = true

		var je jevent
		if err := json.Unmarshal([]byte(l.txt), &je); err != nil {
			return nil, fmt.Errorf("parse error %s:%v: not a correct json: %w", l.filename, l.i, err)
		}
		if je.Date.IsZero() {
			return nil, fmt.Errorf("parse error %s:%v: missing the property %q with a date", l.filename, l.i, "date")
		}
		if je.Direction != Acquired && je.Direction != Disposed {
			return nil, fmt.Errorf("parse error %s:%v: invalid direction %q", l.filename, l.i, je.Direction)
		}
		events = append(events, EventFiling{
			Accession:       je.Accession,
			Kind:            je.Kind,
			FormType:        je.FormType,
			FilerName:       je.FilerName,
			FilerCIK:        je.FilerCIK,
			Fund:            je.Fund,
			IssuerName:      je.IssuerName,
			IssuerCIK:       je.IssuerCIK,
			CUSIP:           je.CUSIP,
			Ticker:          je.Ticker,
			TransactionDate: je.Date,
			FiledOn:         je.FiledOn,
			Shares:          je.Shares,
			Direction:       je.Direction,
			PostTransaction: je.Post,
		})
	}
	SortEvents(events)
	return events, nil
}
