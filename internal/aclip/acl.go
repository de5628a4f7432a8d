// Package aclip implements the CIDR-aware peer-address allow/deny list
// referenced in spec.md §4.D ("IP ACL") and §9's security-header sibling
// modules, grounded in original_source/.../security/ip_filter.rs.
package aclip

import "net"

// Mode selects how List.Allowed treats an unmatched address.
type Mode int

const (
	// Disabled passes every address.
	Disabled Mode = iota
	// Allowlist denies unless the address matches an entry; an empty
	// allowlist denies everything, per spec.md §4.D.
	Allowlist
	// Denylist denies only addresses that match an entry.
	Denylist
)

// List is a compiled set of CIDR blocks evaluated under Mode.
type List struct {
	mode Mode
	nets []*net.IPNet
}

// New compiles cidrs under mode. Malformed entries are skipped; New never
// returns an error because ACL compilation happens at config-validation
// time (see internal/config), which is where malformed CIDRs are reported.
func New(mode Mode, cidrs []string) *List {
	l := &List{mode: mode}
	for _, c := range cidrs {
		if _, n, err := net.ParseCIDR(c); err == nil {
			l.nets = append(l.nets, n)
		} else if ip := net.ParseIP(c); ip != nil {
			l.nets = append(l.nets, singleHostNet(ip))
		}
	}
	return l
}

func singleHostNet(ip net.IP) *net.IPNet {
	if v4 := ip.To4(); v4 != nil {
		return &net.IPNet{IP: v4, Mask: net.CIDRMask(32, 32)}
	}
	return &net.IPNet{IP: ip, Mask: net.CIDRMask(128, 128)}
}

func (l *List) matches(ip net.IP) bool {
	for _, n := range l.nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// Allowed reports whether addr (a bare IP, no port) passes the ACL.
func (l *List) Allowed(addr string) bool {
	if l == nil || l.mode == Disabled {
		return true
	}
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	matched := l.matches(ip)
	switch l.mode {
	case Allowlist:
		return matched
	case Denylist:
		return !matched
	default:
		return true
	}
}
