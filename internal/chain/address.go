package chain

// base58 alphabet used by chain addresses. 0, O, I, and l are excluded.
var base58Set = func() [256]bool {
	var set [256]bool
	for _, c := range "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz" {
		set[c] = true
	}
	return set
}()

// ValidAddress reports whether s is a plausible base58 account address.
// Validation happens before any ledger mutation; a bad address rejects the
// payment notification outright.
func ValidAddress(s string) bool {
	if len(s) < 32 || len(s) > 44 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !base58Set[s[i]] {
			return false
		}
	}
	return true
}
