package match

import "testing"

var funds = []Target{
	{ID: "1067983", Names: []string{"Berkshire Hathaway Inc", "BERKSHIRE HATHAWAY"}, Aliases: []string{"315090"}},
	{ID: "1649339", Names: []string{"Scion Asset Management, LLC"}},
	{ID: "1336528", Names: []string{"Pershing Square Capital Management, L.P."}},
	{ID: "1536411", Names: []string{"Duquesne Family Office LLC"}},
}

func TestNormalize(t *testing.T) {
	testCases := []struct {
		in, want string
	}{
		{"Scion Asset Management, LLC", "SCION ASSET MANAGEMENT"},
		{"Pershing Square Capital Management, L.P.", "PERSHING SQUARE CAPITAL MANAGEMENT"},
		{"  berkshire   hathaway inc. ", "BERKSHIRE HATHAWAY"},
		{"Icahn & Co", "ICAHN AND"},
		{"The Children's Investment Fund", "CHILDREN S INVESTMENT FUND"},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			if got := Normalize(tc.in); got != tc.want {
				t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestBest(t *testing.T) {
	testCases := []struct {
		name   string
		q      Query
		want   string
		wantOK bool
	}{
		{"exact denomination", Query{Name: "BERKSHIRE HATHAWAY INC"}, "1067983", true},
		{"punctuation", Query{Name: "Scion Asset Management LLC"}, "1649339", true},
		{"typo", Query{Name: "Pershing Square Capitol Management LP"}, "1336528", true},
		{"alias cik", Query{Name: "National Indemnity Co", ID: "315090"}, "1067983", true},
		{"primary cik", Query{Name: "whatever", ID: "1536411"}, "1536411", true},
		{"unrelated", Query{Name: "Vanguard Group Inc"}, "", false},
		{"empty", Query{}, "", false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Best(NameMatcher{}, tc.q, funds, DefaultThreshold)
			if ok != tc.wantOK {
				t.Fatalf("Best() ok = %v (%+v), want %v", ok, got, tc.wantOK)
			}
			if ok && got.ID != tc.want {
				t.Errorf("Best() = %+v, want %s", got, tc.want)
			}
		})
	}
}

func TestRank_TieBreak(t *testing.T) {
	targets := []Target{
		{ID: "300", Names: []string{"Acme Capital"}},
		{ID: "100", Names: []string{"ACME CAPITAL LLC"}},
		{ID: "200", Names: []string{"Acme Capital, Inc."}},
	}
	for range 5 {
		ranked := Rank(NameMatcher{}, Query{Name: "Acme Capital"}, targets)
		if len(ranked) != 3 {
			t.Fatalf("len(Rank()) = %d, want 3", len(ranked))
		}
		for i, want := range []string{"100", "200", "300"} {
			if ranked[i].ID != want || ranked[i].Score != 1 {
				t.Errorf("ranked[%d] = %+v, want %s with score 1", i, ranked[i], want)
			}
		}
	}
}

func TestSimilarity(t *testing.T) {
	if got := Similarity("ABCD", "ABCE"); got != 0.75 {
		t.Errorf("Similarity() = %v, want 0.75", got)
	}
	if got := Similarity("", ""); got != 1 {
		t.Errorf("Similarity(\"\", \"\") = %v, want 1", got)
	}
}
