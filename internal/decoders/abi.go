package decoders

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"golang.org/x/crypto/sha3"
)

// parseABI parses a minimal JSON ABI fragment. Concrete decoders in this
// package only ever need the handful of methods/events they dispatch on, so
// each fragment declares just those, not a whole contract's interface.
func parseABI(json string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(json))
	if err != nil {
		panic("decoders: invalid ABI fragment: " + err.Error())
	}
	return parsed
}

func mustMethod(contract abi.ABI, name string) *abi.Method {
	m, ok := contract.Methods[name]
	if !ok {
		panic("decoders: ABI fragment missing method " + name)
	}
	return &m
}

func mustEvent(contract abi.ABI, name string) abi.Event {
	e, ok := contract.Events[name]
	if !ok {
		panic("decoders: ABI fragment missing event " + name)
	}
	return e
}

// selectorOf returns the 4-byte selector of an ABI method, for ActionEntry
// registration. Hashed directly from the method's canonical signature rather
// than trusted from m.ID, the same keccak-of-signature approach the old
// signature resolver used for 4-byte lookups.
func selectorOf(m *abi.Method) [4]byte {
	hash := sha3.NewLegacyKeccak256()
	hash.Write([]byte(m.Sig))
	sum := hash.Sum(nil)

	var sel [4]byte
	copy(sel[:], sum[:4])
	return sel
}
