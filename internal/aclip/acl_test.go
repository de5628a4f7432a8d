package aclip

import "testing"

func TestDisabledAllowsEverything(t *testing.T) {
	l := New(Disabled, []string{"10.0.0.0/8"})
	if !l.Allowed("8.8.8.8") {
		t.Fatal("disabled ACL should allow any address")
	}
}

func TestAllowlistDeniesUnmatched(t *testing.T) {
	l := New(Allowlist, []string{"10.0.0.0/8"})
	if l.Allowed("8.8.8.8") {
		t.Fatal("expected unmatched address to be denied under allowlist")
	}
	if !l.Allowed("10.1.2.3") {
		t.Fatal("expected matched address to be allowed under allowlist")
	}
}

func TestEmptyAllowlistDeniesAll(t *testing.T) {
	l := New(Allowlist, nil)
	if l.Allowed("10.1.2.3") {
		t.Fatal("empty allowlist must deny all addresses")
	}
}

func TestDenylistDeniesMatched(t *testing.T) {
	l := New(Denylist, []string{"10.0.0.0/8"})
	if l.Allowed("10.1.2.3") {
		t.Fatal("expected matched address to be denied under denylist")
	}
	if !l.Allowed("8.8.8.8") {
		t.Fatal("expected unmatched address to be allowed under denylist")
	}
}

func TestSingleHostEntry(t *testing.T) {
	l := New(Allowlist, []string{"192.168.1.5"})
	if !l.Allowed("192.168.1.5") {
		t.Fatal("expected exact host match to be allowed")
	}
	if l.Allowed("192.168.1.6") {
		t.Fatal("expected a different host to be denied")
	}
}

func TestMalformedEntriesAreSkipped(t *testing.T) {
	l := New(Allowlist, []string{"not-a-cidr", "10.0.0.0/8"})
	if !l.Allowed("10.1.2.3") {
		t.Fatal("expected the well-formed entry to still be compiled")
	}
}

func TestUnparseableAddrIsDenied(t *testing.T) {
	l := New(Allowlist, []string{"10.0.0.0/8"})
	if l.Allowed("not-an-ip") {
		t.Fatal("expected an unparseable address to be denied")
	}
}

func TestNilListAllowsEverything(t *testing.T) {
	var l *List
	if !l.Allowed("8.8.8.8") {
		t.Fatal("nil list should behave as disabled")
	}
}
