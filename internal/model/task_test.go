package model

import (
	"testing"
	"time"
)

func TestFormatDate(t *testing.T) {
	if got := FormatDate(nil); got != NotAvailable {
		t.Errorf("FormatDate(nil) = %s, want %s", got, NotAvailable)
	}

	loc := time.FixedZone("BRT", -3*60*60)
	d := time.Date(2024, 3, 9, 23, 30, 0, 0, loc)
	if got := FormatDate(&d); got != "2024-03-10" {
		t.Errorf("FormatDate = %s, want 2024-03-10 (UTC)", got)
	}
}
