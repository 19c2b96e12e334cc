package codehash

import (
	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt cost used for one-time codes.
const DefaultCost = bcrypt.DefaultCost

// Hash hashes a one-time code with bcrypt. cost <= 0 means DefaultCost.
func Hash(code string, cost int) (string, error) {
	if cost <= 0 {
		cost = DefaultCost
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(code), cost)
	return string(bytes), err
}

// Verify compares a code with its hash
func Verify(code, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(code))
	return err == nil
}
