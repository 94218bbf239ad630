package service

import (
	"fmt"
	"hash/fnv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/budgetbook-dev/budgetbook/internal/domain/category"
	"github.com/budgetbook-dev/budgetbook/internal/domain/ingest/normalizer"
)

// Fingerprint derives the content fingerprint of a transaction from its
// date, type, 2-decimal amount, and normalized description, hashed with
// 32-bit FNV-1a and rendered as 8 lowercase hex digits. It is independent of
// any bank-provided id, so two files describing the same transaction collide
// even without external ids.
func Fingerprint(date time.Time, txType category.Type, amount decimal.Decimal, description string) string {
	payload := date.Format("2006-01-02") + "|" +
		string(txType) + "|" +
		amount.StringFixed(2) + "|" +
		normalizer.NormalizeDescription(description)

	h := fnv.New32a()
	h.Write([]byte(payload))
	return fmt.Sprintf("%08x", h.Sum32())
}
