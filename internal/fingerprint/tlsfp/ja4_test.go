package tlsfp

import "testing"

func TestDeriveIsDeterministic(t *testing.T) {
	data := buildClientHello(t, []uint16{0x1302, 0x1301, 0xc02b}, "example.com",
		[]string{"h2"}, []uint16{0x0304}, []uint16{0x0403, 0x0501})

	ch1, err := ParseClientHello(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ch2, err := ParseClientHello(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	a1 := Derive(ch1)
	a2 := Derive(ch2)
	if a1 != a2 {
		t.Fatalf("expected deterministic derivation, got %+v vs %+v", a1, a2)
	}
}

func TestDeriveAllFourVariantsPopulated(t *testing.T) {
	data := buildClientHello(t, []uint16{0x1301}, "example.com", []string{"h2"}, []uint16{0x0304}, nil)
	ch, err := ParseClientHello(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	a := Derive(ch)
	if a.Ja4 == "" || a.Ja4r == "" || a.Ja4o == "" || a.Ja4or == "" {
		t.Fatalf("expected all four variants populated, got %+v", a)
	}
}

func TestDeriveSortedVsOriginalOrderDiffer(t *testing.T) {
	data := buildClientHello(t, []uint16{0x1302, 0x1301, 0xc02b}, "", nil, []uint16{0x0304}, nil)
	ch, err := ParseClientHello(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	a := Derive(ch)
	if a.Ja4 == a.Ja4r {
		t.Fatal("expected sorted (ja4) and original-order (ja4r) cipher hashes to differ for an unsorted input")
	}
	if a.Ja4o == a.Ja4or {
		t.Fatal("expected sorted (ja4o) and original-order (ja4or) hex segments to differ for an unsorted input")
	}
}

func TestDeriveGREASEFilteredFromCountsAndLists(t *testing.T) {
	greasedCiphers := []uint16{0x0a0a, 0x1301, 0x1302}
	data := buildClientHello(t, greasedCiphers, "", nil, nil, nil)
	ch, err := ParseClientHello(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	a := Derive(ch)
	// front segment cipher count should be "02" (GREASE excluded), so it
	// must appear right after the sni-flag character. Rather than
	// re-deriving the exact offset, check the GREASE value never appears
	// in the hex-joined non-hashed variant.
	if containsHex(a.Ja4o, 0x0a0a) {
		t.Fatalf("GREASE cipher leaked into ja4o: %s", a.Ja4o)
	}
}

func containsHex(s string, v uint16) bool {
	want := hexJoin([]uint16{v})
	for i := 0; i+len(want) <= len(s); i++ {
		if s[i:i+len(want)] == want {
			return true
		}
	}
	return false
}

func TestIsGREASE(t *testing.T) {
	cases := map[uint16]bool{
		0x0a0a: true,
		0x1a1a: true,
		0xfafa: true,
		0x1301: false,
		0x0000: false,
	}
	for v, want := range cases {
		if got := isGREASE(v); got != want {
			t.Errorf("isGREASE(0x%04x) = %v, want %v", v, got, want)
		}
	}
}
