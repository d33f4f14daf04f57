package filing

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/etnz/holdings"
	"github.com/etnz/holdings/date"
	"github.com/google/go-cmp/cmp"
)

func roster(t *testing.T) *holdings.Roster {
	t.Helper()
	r, err := holdings.NewRoster([]holdings.FundIdentity{
		{CIK: "1067983", Name: "Berkshire Hathaway Inc", Manager: "Warren Buffett", Aliases: []holdings.CIK{"315090"}},
		{CIK: "1649339", Name: "Scion Asset Management, LLC", Manager: "Michael Burry"},
	})
	if err != nil {
		t.Fatalf("NewRoster() error = %v", err)
	}
	return r
}

func open(t *testing.T, name string) *os.File {
	t.Helper()
	f, err := os.Open(name)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func TestParseSchedule(t *testing.T) {
	meta := Meta{Accession: "0000950170-24-127122", FiledOn: date.New(2024, 11, 14)}
	got, err := ParseSchedule(context.Background(), open(t, "testdata/sc13g.xml"), meta, roster(t), WithResolver(resolver), quiet())
	if err != nil {
		t.Fatalf("ParseSchedule() error = %v", err)
	}
	if len(got.Unattributed) != 0 || len(got.Warnings) != 0 {
		t.Errorf("ParseSchedule() unattributed %v warnings %v, want none", got.Unattributed, got.Warnings)
	}
	post := holdings.Q(300_000_000)
	want := []holdings.EventFiling{{
		Accession:       "0000950170-24-127122",
		Kind:            holdings.OwnershipThreshold,
		FormType:        "SCHEDULE 13G/A",
		FilerName:       "Berkshire Hathaway Inc.",
		Fund:            "1067983",
		IssuerName:      "Apple Inc.",
		IssuerCIK:       "320193",
		CUSIP:           "037833100",
		Ticker:          "AAPL",
		TransactionDate: date.New(2024, 11, 14),
		FiledOn:         date.New(2024, 11, 14),
		Shares:          post,
		Direction:       holdings.Acquired,
		PostTransaction: &post,
	}}
	if diff := cmp.Diff(want, got.Events, cmp.Comparer(func(a, b date.Date) bool { return a == b })); diff != "" {
		t.Errorf("ParseSchedule() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseSchedule_Unattributed(t *testing.T) {
	doc := `<edgarSubmission><formData>
<coverPageHeader><dateOfEvent>03/31/2025</dateOfEvent>
<issuerInfo><issuerCik>0000021344</issuerCik><issuerName>COCA COLA CO</issuerName><issuerCusip>191216100</issuerCusip></issuerInfo></coverPageHeader>
<reportingPersonInfo><reportingPersonName>BERKSHIRE HILLS BANCORP INC</reportingPersonName><aggregateAmountOwned>1000</aggregateAmountOwned></reportingPersonInfo>
</formData></edgarSubmission>`
	meta := Meta{Accession: "0000021344-25-000001", FormType: "SC 13G", FiledOn: date.New(2025, 4, 2)}
	got, err := ParseEvent(context.Background(), strings.NewReader(doc), meta, roster(t), quiet())
	if err != nil {
		t.Fatalf("ParseEvent() error = %v", err)
	}
	if len(got.Events) != 0 {
		t.Errorf("ParseEvent() events = %v, want none", got.Events)
	}
	if len(got.Unattributed) != 1 {
		t.Fatalf("ParseEvent() unattributed = %v, want one", got.Unattributed)
	}
	u := got.Unattributed[0]
	if u.FilerName != "BERKSHIRE HILLS BANCORP INC" || u.BestFund != "1067983" || u.Kind != holdings.OwnershipThreshold {
		t.Errorf("Unattributed = %+v", u)
	}
	if !errors.Is(u, holdings.ErrUnattributed) {
		t.Errorf("errors.Is(%v, ErrUnattributed) = false, want true", u)
	}
	if len(got.Warnings) != 1 || got.Warnings[0].Code != holdings.WarnUnattributed {
		t.Fatalf("warnings = %v, want one %s", got.Warnings, holdings.WarnUnattributed)
	}
	if !strings.Contains(got.Warnings[0].Message, meta.Accession) {
		t.Errorf("warning %q does not name the accession %s", got.Warnings[0].Message, meta.Accession)
	}
}

func TestParseSchedule_SelfFiling(t *testing.T) {
	doc := `<edgarSubmission><formData>
<coverPageHeader><eventDateRequiresFilingThisStatement>05/01/2025</eventDateRequiresFilingThisStatement>
<issuerInfo><issuerCik>0001067983</issuerCik><issuerName>BERKSHIRE HATHAWAY INC</issuerName><issuerCusip>084670702</issuerCusip></issuerInfo></coverPageHeader>
<coverPageHeaderReportingPersonDetails><reportingPersonName>BERKSHIRE HATHAWAY INC</reportingPersonName>
<reportingPersonBeneficiallyOwnedAggregateNumberOfShares>5000</reportingPersonBeneficiallyOwnedAggregateNumberOfShares></coverPageHeaderReportingPersonDetails>
</formData></edgarSubmission>`
	got, err := ParseSchedule(context.Background(), strings.NewReader(doc), Meta{Accession: "x"}, roster(t), quiet())
	if err != nil {
		t.Fatalf("ParseSchedule() error = %v", err)
	}
	if len(got.Events) != 0 || len(got.Warnings) != 1 || got.Warnings[0].Code != holdings.WarnSelfFiling {
		t.Errorf("ParseSchedule() = %+v, want a self filing warning only", got)
	}
}

func TestParseSchedule_InvalidCUSIP(t *testing.T) {
	doc := `<edgarSubmission><formData><coverPageHeader><dateOfEvent>05/01/2025</dateOfEvent>
<issuerInfo><issuerName>X</issuerName><issuerCusip>123456789</issuerCusip></issuerInfo></coverPageHeader>
</formData></edgarSubmission>`
	got, err := ParseSchedule(context.Background(), strings.NewReader(doc), Meta{Accession: "x"}, roster(t), quiet())
	if err != nil {
		t.Fatalf("ParseSchedule() error = %v", err)
	}
	if len(got.Events) != 0 || len(got.Warnings) != 1 || got.Warnings[0].Code != holdings.WarnInvalidCUSIP {
		t.Errorf("ParseSchedule() = %+v, want an invalid CUSIP warning only", got)
	}
}

func TestParseForm4(t *testing.T) {
	meta := Meta{Accession: "0000950170-24-072215", FiledOn: date.New(2024, 6, 20)}
	got, err := ParseForm4(context.Background(), open(t, "testdata/form4.xml"), meta, roster(t), WithResolver(resolver), quiet())
	if err != nil {
		t.Fatalf("ParseForm4() error = %v", err)
	}
	if len(got.Events) != 2 {
		t.Fatalf("ParseForm4() = %d events, want 2 (one fund, two transactions): %+v", len(got.Events), got.Events)
	}
	first, second := got.Events[0], got.Events[1]
	if first.Fund != "1067983" || first.FilerName != "BERKSHIRE HATHAWAY INC" || first.FilerCIK != "1067983" {
		t.Errorf("first attribution = %s %q %s", first.Fund, first.FilerName, first.FilerCIK)
	}
	if first.CUSIP != "674599105" || first.Ticker != "OXY" || first.Kind != holdings.InsiderTransaction || first.FormType != "4" {
		t.Errorf("first = %+v", first)
	}
	if first.TransactionDate != date.New(2024, 6, 17) || !first.Shares.Equal(holdings.Q(1_000_000)) || first.Direction != holdings.Acquired {
		t.Errorf("first transaction = %v %v %v", first.TransactionDate, first.Shares, first.Direction)
	}
	if first.PostTransaction == nil || !first.PostTransaction.Equal(holdings.Q(250_000_000)) {
		t.Errorf("first post transaction = %v, want 250000000", first.PostTransaction)
	}
	if second.TransactionDate != date.New(2024, 6, 18) || second.PostTransaction != nil {
		t.Errorf("second = %v post %v, want 2024-06-18 without post transaction", second.TransactionDate, second.PostTransaction)
	}
}

func TestParseForm4_TickerKeyed(t *testing.T) {
	got, err := ParseEvent(context.Background(), open(t, "testdata/form4.xml"), Meta{Accession: "a"}, roster(t), quiet())
	if err != nil {
		t.Fatalf("ParseEvent() error = %v", err)
	}
	if len(got.Events) != 2 {
		t.Fatalf("ParseEvent() = %d events, want 2", len(got.Events))
	}
	if e := got.Events[0]; e.CUSIP != "" || e.Key() != "$OXY" {
		t.Errorf("Key() = %q, want $OXY", e.Key())
	}
}

func TestParseForm4_InvalidTransactions(t *testing.T) {
	doc := `<ownershipDocument><documentType>4</documentType><periodOfReport>2025-02-03</periodOfReport>
<issuer><issuerCik>0000021344</issuerCik><issuerName>COCA COLA CO</issuerName><issuerTradingSymbol>KO</issuerTradingSymbol></issuer>
<reportingOwner><reportingOwnerId><rptOwnerCik>0001649339</rptOwnerCik><rptOwnerName>Scion Asset Management, LLC</rptOwnerName></reportingOwnerId></reportingOwner>
<nonDerivativeTable>
<nonDerivativeTransaction><transactionAmounts><transactionShares><value>10</value></transactionShares><transactionAcquiredDisposedCode><value>D</value></transactionAcquiredDisposedCode></transactionAmounts></nonDerivativeTransaction>
<nonDerivativeTransaction><transactionDate><value>2025-02-04</value></transactionDate><transactionAmounts><transactionShares><value>ten</value></transactionShares><transactionAcquiredDisposedCode><value>D</value></transactionAcquiredDisposedCode></transactionAmounts></nonDerivativeTransaction>
<nonDerivativeTransaction><transactionDate><value>2025-02-05</value></transactionDate><transactionAmounts><transactionShares><value>10</value></transactionShares><transactionAcquiredDisposedCode><value>X</value></transactionAcquiredDisposedCode></transactionAmounts></nonDerivativeTransaction>
</nonDerivativeTable></ownershipDocument>`
	got, err := ParseForm4(context.Background(), strings.NewReader(doc), Meta{Accession: "b"}, roster(t), WithResolver(resolver), quiet())
	if err != nil {
		t.Fatalf("ParseForm4() error = %v", err)
	}
	if len(got.Events) != 1 {
		t.Fatalf("ParseForm4() = %d events, want 1", len(got.Events))
	}
	if e := got.Events[0]; e.TransactionDate != date.New(2025, 2, 3) || e.Direction != holdings.Disposed || e.CUSIP != "191216100" || e.Fund != "1649339" {
		t.Errorf("event = %+v, want a KO sale dated from the period of report", e)
	}
	if n := holdings.CountWarnings(got.Warnings)[holdings.WarnParse]; n != 2 {
		t.Errorf("parse warnings = %d, want 2", n)
	}
}

func TestParseEvent_Unknown(t *testing.T) {
	if _, err := ParseEvent(context.Background(), strings.NewReader(`<html><body/></html>`), Meta{Accession: "c"}, roster(t)); err == nil {
		t.Error("ParseEvent() expected an error for an unknown document")
	}
}
