package usecase

import (
	"crypto/rand"
	"math/big"

	"vpn-account-ledger/internal/domain/model"
)

const giftCodeAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var giftCodeAlphabetLen = big.NewInt(int64(len(giftCodeAlphabet)))

// RandomGiftCode returns model.GiftCodeLength characters drawn uniformly from [A-Za-z0-9].
func RandomGiftCode() (string, error) {
	b := make([]byte, model.GiftCodeLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, giftCodeAlphabetLen)
		if err != nil {
			return "", err
		}
		b[i] = giftCodeAlphabet[n.Int64()]
	}
	return string(b), nil
}
