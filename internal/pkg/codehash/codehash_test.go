package codehash

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashVerify(t *testing.T) {
	hash, err := Hash("123456", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "123456" {
		t.Fatal("hash must not be the code")
	}
	if !Verify("123456", hash) {
		t.Error("code should verify against its hash")
	}
	if Verify("654321", hash) {
		t.Error("wrong code verified")
	}
	if Verify("123456", "not-a-hash") {
		t.Error("garbage hash verified")
	}
}
