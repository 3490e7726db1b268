package forwarder

import (
	"bytes"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// Minimal proxy (EIP-1167) code fragments surrounding the implementation
// address.
var (
	cloneCreationPrefix = common.FromHex("0x3d602d80600a3d3981f3")
	cloneRuntimePrefix  = common.FromHex("0x363d3d373d3d3d363d73")
	cloneRuntimeSuffix  = common.FromHex("0x5af43d82803e903d91602b57fd5bf3")
)

// CloneRuntimeCode returns the minimal proxy runtime code delegating to
// implementation.
func CloneRuntimeCode(implementation common.Address) []byte {
	code := make([]byte, 0, len(cloneRuntimePrefix)+common.AddressLength+len(cloneRuntimeSuffix))
	code = append(code, cloneRuntimePrefix...)
	code = append(code, implementation.Bytes()...)
	return append(code, cloneRuntimeSuffix...)
}

// CloneInitCode returns the creation code that deploys CloneRuntimeCode.
func CloneInitCode(implementation common.Address) []byte {
	return append(common.CopyBytes(cloneCreationPrefix), CloneRuntimeCode(implementation)...)
}

// ParseCloneRuntime extracts the implementation address from minimal proxy
// runtime code.
func ParseCloneRuntime(code []byte) (common.Address, bool) {
	if len(code) != len(cloneRuntimePrefix)+common.AddressLength+len(cloneRuntimeSuffix) {
		return common.Address{}, false
	}
	if !bytes.HasPrefix(code, cloneRuntimePrefix) || !bytes.HasSuffix(code, cloneRuntimeSuffix) {
		return common.Address{}, false
	}
	return common.BytesToAddress(code[len(cloneRuntimePrefix) : len(cloneRuntimePrefix)+common.AddressLength]), true
}

// DeriveAddress computes where a clone of parent deployed by factory with salt
// lands:
//
//	keccak256(0xff ++ factory ++ salt ++ keccak256(CloneInitCode(parent)))[12:]
//
// The function is pure; the same inputs always produce the address the
// factory later deploys to.
func DeriveAddress(factory, parent common.Address, salt *uint256.Int) common.Address {
	var word [32]byte
	if salt != nil {
		word = salt.Bytes32()
	}
	return ethcrypto.CreateAddress2(factory, word, ethcrypto.Keccak256(CloneInitCode(parent)))
}
