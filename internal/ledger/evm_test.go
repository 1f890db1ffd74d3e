package ledger

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func validEVMOptions() EVMOptions {
	return EVMOptions{
		RPCURL:       "https://rpc.example.org",
		VaultAddress: "0x1111111111111111111111111111111111111111",
		TokenAddress: "0x2222222222222222222222222222222222222222",
		OwnerAddress: "0x3333333333333333333333333333333333333333",
		ChainID:      31337,
	}
}

func TestNewEVMClientMissingConfig(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*EVMOptions)
		want   string
	}{
		{"no rpc url", func(o *EVMOptions) { o.RPCURL = "" }, "rpc url"},
		{"no vault address", func(o *EVMOptions) { o.VaultAddress = "" }, "vault contract address"},
		{"no identity", func(o *EVMOptions) { o.OwnerAddress = ""; o.PrivateKey = "" }, "owner address or private key"},
		{"bad private key", func(o *EVMOptions) { o.PrivateKey = "zz" }, "private key"},
	}

	for _, tc := range cases {
		opts := validEVMOptions()
		tc.mutate(&opts)
		_, err := NewEVMClient(opts, zerolog.Nop())
		if err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: error %q should mention %q", tc.name, err, tc.want)
		}
	}
}

func TestNewEVMClientReadOnlyIdentity(t *testing.T) {
	opts := validEVMOptions()
	c, err := NewEVMClient(opts, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEVMClient failed: %v", err)
	}
	if got := c.OwnerAddress(); !strings.EqualFold(got, opts.OwnerAddress) {
		t.Fatalf("owner = %s, want %s", got, opts.OwnerAddress)
	}
}

func TestNewEVMClientDerivesOwnerFromKey(t *testing.T) {
	opts := validEVMOptions()
	opts.OwnerAddress = ""
	// Well-known hardhat dev key #0; its address is fixed.
	opts.PrivateKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

	c, err := NewEVMClient(opts, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEVMClient failed: %v", err)
	}
	if got := c.OwnerAddress(); !strings.EqualFold(got, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266") {
		t.Fatalf("derived owner = %s", got)
	}
}
