package core

import "testing"

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name  string
		total int64
		paid  int64
		want  Status
	}{
		{"nothing paid", 100000, 0, StatusPendiente},
		{"negative paid", 100000, -500, StatusPendiente},
		{"one cent paid", 100000, 1, StatusParcial},
		{"half paid", 100000, 50000, StatusParcial},
		{"one cent short", 100000, 99999, StatusParcial},
		{"exactly paid", 100000, 100000, StatusPagado},
		{"overpaid", 100000, 100001, StatusPagado},
		{"zero amount nothing paid", 0, 0, StatusPendiente},
		{"zero amount anything paid", 0, 1, StatusPagado},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveStatus(Money{Cents: tt.total}, Money{Cents: tt.paid})
			if got != tt.want {
				t.Errorf("DeriveStatus(%d, %d) = %s, want %s", tt.total, tt.paid, got, tt.want)
			}
		})
	}
}

func TestParseDecimalToCents(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"12.34", 1234, false},
		{"12,34", 1234, false},
		{"12", 1200, false},
		{"12.345", 1235, false}, // half-up on the third decimal
		{"12.346", 1235, false},
		{"12.344", 1234, false},
		{"0.01", 1, false},
		{"", 0, true},
		{"0", 0, true},
		{"-5", 0, true},
		{"+5", 0, true},
		{"abc", 0, true},
		{"1.2.3", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDecimalToCents(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDecimalToCents(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseDecimalToCents(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestMoneyString(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{0, "0.00"},
		{1, "0.01"},
		{100050, "1000.50"},
		{-250, "-2.50"},
	}

	for _, tt := range tests {
		if got := (Money{Cents: tt.cents}).String(); got != tt.want {
			t.Errorf("Money{%d}.String() = %q, want %q", tt.cents, got, tt.want)
		}
	}
}
