package parser

import (
	"reflect"
	"testing"
)

func TestNormalizeLines(t *testing.T) {
	rules := DefaultRules()
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "collapses whitespace and drops blanks",
			input: "  Paid to   Zomato  \n\n\t₹ 450.00\r\n12 Dec 2025  ",
			want:  []string{"Paid to Zomato", "₹ 450.00", "12 Dec 2025"},
		},
		{
			name:  "non-breaking spaces collapse",
			input: "Paid\u00a0to\u00a0\u00a0Zomato",
			want:  []string{"Paid to Zomato"},
		},
		{
			name:  "drops noise phrases",
			input: "Opening Balance ₹ 0.00\nPaid to Zomato\nClosing Balance ₹ 10.00\nS.No Description",
			want:  []string{"Paid to Zomato"},
		},
		{
			name:  "drops headers and page markers",
			input: "Date & Time\nTransaction Details\nPage 1 of 3\n2 of 3\nPaid to Zomato\nThis will not show up",
			want:  []string{"Paid to Zomato"},
		},
		{
			name:  "drops column header rows",
			input: "Date Time Transaction Details Type Amount\nPaid to Zomato",
			want:  []string{"Paid to Zomato"},
		},
		{
			name:  "keeps merchant names containing page",
			input: "Paid to Homepage Cafe\n₹ 120.00",
			want:  []string{"Paid to Homepage Cafe", "₹ 120.00"},
		},
		{
			name:  "drops bare page lines",
			input: "Page\nPage 4\nPage No. 2\nPaid to Zomato",
			want:  []string{"Paid to Zomato"},
		},
		{
			name:  "keeps counts and page words inside transaction lines",
			input: "Received from Ravi ₹500 EMI 3 of 12 12 Dec 2025\n" +
				"Paid to Zomato 2 of 3 items ₹450.00 12 Dec 2025\n" +
				"Paid to Page 3 Books ₹120 12 Dec 2025",
			want: []string{
				"Received from Ravi ₹500 EMI 3 of 12 12 Dec 2025",
				"Paid to Zomato 2 of 3 items ₹450.00 12 Dec 2025",
				"Paid to Page 3 Books ₹120 12 Dec 2025",
			},
		},
		{
			name:  "only noise",
			input: "Statement Period 01 Dec - 31 Dec\nTotal Debits ₹ 0",
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeLines(rules, tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
