package record

import "testing"

func TestParseVolumeRecord(t *testing.T) {
	// DIF=0x04 (4-byte int, instantaneous), VIF=0x13 (volume, 10^-3 m3),
	// data 0x5A 0x03 0x00 0x00 -> 0x0000035A = 858 -> 0.858 m3.
	b := []byte{0x04, 0x13, 0x5A, 0x03, 0x00, 0x00}
	chain, err := Parse(b)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(chain.Records) != 1 {
		t.Fatalf("got %d records, want 1", len(chain.Records))
	}
	r := chain.Records[0]
	if r.Value.Quantity != QVolume || r.Value.Unit != "m3" {
		t.Fatalf("got quantity=%v unit=%q, want volume/m3", r.Value.Quantity, r.Value.Unit)
	}
	if got, want := r.Value.Number, 0.858; got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestParseSkipsFiller(t *testing.T) {
	b := []byte{fillerByte, fillerByte, 0x01, 0x13, 0x05}
	chain, err := Parse(b)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(chain.Records) != 1 {
		t.Fatalf("got %d records, want 1", len(chain.Records))
	}
}

func TestParseManufacturerSpecificTerminates(t *testing.T) {
	b := []byte{0x01, 0x13, 0x05, 0x0F, 0xAA, 0xBB, 0xCC}
	chain, err := Parse(b)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(chain.Records) != 1 {
		t.Fatalf("got %d records, want 1", len(chain.Records))
	}
	if got, want := chain.Manufacturer, []byte{0xAA, 0xBB, 0xCC}; string(got) != string(want) {
		t.Fatalf("got manufacturer %x, want %x", got, want)
	}
}

func TestParseMoreFollows(t *testing.T) {
	b := []byte{0x01, 0x13, 0x05, 0x1F}
	chain, err := Parse(b)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !chain.MoreFollows {
		t.Fatal("expected MoreFollows")
	}
}

func TestParsePrematureEnd(t *testing.T) {
	b := []byte{0x04, 0x13, 0x01, 0x02}
	if _, err := Parse(b); err == nil {
		t.Fatal("expected error for truncated data")
	}
}

func TestParseUnknownVIFPreservesRaw(t *testing.T) {
	// VIF 0x6F is a reserved code with no table entry: the raw bytes are
	// kept and the quantity stays empty.
	b := []byte{0x01, 0x6F, 0x42}
	chain, err := Parse(b)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	r := chain.Records[0]
	if r.Value.Quantity != "" {
		t.Fatalf("got quantity %v, want empty for unknown VIF", r.Value.Quantity)
	}
	if string(r.Value.Raw) != "\x42" {
		t.Fatalf("got raw %x, want 42", r.Value.Raw)
	}
}

func TestParseExtensionTableFD(t *testing.T) {
	// DIF=0x04 (4-byte int), VIF=0xFD selects the FD extension table,
	// VIFE=0x04 (no further extension bit) selects the "debit" sub-entry
	// at extBaseFD+0x04 (spec §4.C). Data 100 (LE) -> 100 * 10^-3 = 0.1.
	b := []byte{0x04, 0xFD, 0x04, 0x64, 0x00, 0x00, 0x00}
	chain, err := Parse(b)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(chain.Records) != 1 {
		t.Fatalf("got %d records, want 1", len(chain.Records))
	}
	r := chain.Records[0]
	if r.Value.Quantity != QEnergy || r.Value.Unit != "debit" {
		t.Fatalf("got quantity=%v unit=%q, want energy/debit", r.Value.Quantity, r.Value.Unit)
	}
	if got, want := r.Value.Number, 0.1; got != want {
		t.Fatalf("got %v, want %v", got, want)
	}

	// A different FD sub-code must resolve to a distinct table entry, not
	// the same fixed key every time.
	b2 := []byte{0x04, 0xFD, 0x00, 0x64, 0x00, 0x00, 0x00}
	chain2, err := Parse(b2)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	r2 := chain2.Records[0]
	if r2.Value.Unit != "credit" {
		t.Fatalf("got unit %q, want credit", r2.Value.Unit)
	}
}

func TestParseExtensionTableFBWithCorrection(t *testing.T) {
	// VIF=0xFB selects the FB extension table; VIFE0=0x80 (continuation
	// bit set, selector code 0x00 -> "MWh") chains to VIFE1=0x74
	// (multiplicative correction x10^(4-6)); the selector byte itself
	// must not be misapplied as a second correction code.
	b := []byte{0x04, 0xFB, 0x80, 0x74, 0xE8, 0x03, 0x00, 0x00}
	chain, err := Parse(b)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	r := chain.Records[0]
	if r.Value.Quantity != QEnergy || r.Value.Unit != "MWh" {
		t.Fatalf("got quantity=%v unit=%q, want energy/MWh", r.Value.Quantity, r.Value.Unit)
	}
	if got, want := r.Value.Number, 1.0; got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestParseCustomVIFString(t *testing.T) {
	b := []byte{0x01, 0x7C, 0x03, 'k', 'W', 'h', 0x05}
	chain, err := Parse(b)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	r := chain.Records[0]
	if r.VIB.CustomVIF != "kWh" {
		t.Fatalf("got custom VIF %q, want kWh", r.VIB.CustomVIF)
	}
}
