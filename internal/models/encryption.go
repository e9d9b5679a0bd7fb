package models

// Encryption parameters for at-rest encryption of customer data
const (
	NonceSize  = 12
	KeySize    = 32
	Iterations = 100000
)
