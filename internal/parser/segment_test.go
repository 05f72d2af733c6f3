package parser

import (
	"reflect"
	"testing"
)

func TestSegmentBlocks(t *testing.T) {
	rules := DefaultRules()
	tests := []struct {
		name  string
		lines []string
		want  [][]string
	}{
		{
			name:  "trigger opens a new block",
			lines: []string{"Paid to Zomato", "₹ 450.00", "Received from Ravi", "₹ 100.00"},
			want:  [][]string{{"Paid to Zomato", "₹ 450.00"}, {"Received from Ravi", "₹ 100.00"}},
		},
		{
			name:  "leading lines form their own block",
			lines: []string{"12 Dec 2025", "Paid to Zomato", "₹ 450.00"},
			want:  [][]string{{"12 Dec 2025"}, {"Paid to Zomato", "₹ 450.00"}},
		},
		{
			name:  "debited from is not a trigger",
			lines: []string{"Paid to Zomato", "₹ 200.00", "Debited from HDFC Bank"},
			want:  [][]string{{"Paid to Zomato", "₹ 200.00", "Debited from HDFC Bank"}},
		},
		{
			name:  "plain debited is a trigger",
			lines: []string{"Paid to Zomato", "₹ 200.00", "Debited ₹ 50.00"},
			want:  [][]string{{"Paid to Zomato", "₹ 200.00"}, {"Debited ₹ 50.00"}},
		},
		{
			name:  "separator forces a boundary and is dropped",
			lines: []string{"Refund ₹ 20.00", "-----", "Cashback ₹ 5.00", "====", "***"},
			want:  [][]string{{"Refund ₹ 20.00"}, {"Cashback ₹ 5.00"}},
		},
		{
			name:  "case insensitive triggers",
			lines: []string{"PURCHASE AT STORE", "₹ 10", "SENT TO FRIEND", "₹ 20"},
			want:  [][]string{{"PURCHASE AT STORE", "₹ 10"}, {"SENT TO FRIEND", "₹ 20"}},
		},
		{
			name:  "empty input",
			lines: nil,
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocks := segmentBlocks(rules, tt.lines)
			var got [][]string
			for _, b := range blocks {
				got = append(got, b.Lines)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBlockText(t *testing.T) {
	b := Block{Lines: []string{"Paid to", "Zomato", "₹ 450.00"}}
	if got := b.Text(); got != "Paid to Zomato ₹ 450.00" {
		t.Errorf("got %q", got)
	}
}
