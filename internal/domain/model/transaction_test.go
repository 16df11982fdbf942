//go:build !integration

package model

import (
	"encoding/json"
	"errors"
	"testing"

	"telegram-vpn-shop/internal/domain"
)

func TestPaymentMetadataValidate(t *testing.T) {
	valid := func() PaymentMetadata {
		return PaymentMetadata{
			UserID:        42,
			Months:        3,
			Price:         400,
			Action:        "buy",
			HostName:      "demo",
			PlanID:        7,
			PaymentMethod: "YooKassa",
		}
	}

	if err := (&PaymentMetadata{}).Validate(); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("zero value: err = %v, want ErrInvalidArgument", err)
	}

	var nilMeta *PaymentMetadata
	if err := nilMeta.Validate(); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("nil receiver: err = %v, want ErrInvalidArgument", err)
	}

	m := valid()
	if err := m.Validate(); err != nil {
		t.Fatalf("valid metadata rejected: %v", err)
	}

	// KeyID 0 is a purchase of a new key, not an error.
	m = valid()
	m.KeyID = 0
	if err := m.Validate(); err != nil {
		t.Fatalf("key_id 0 rejected: %v", err)
	}

	mutations := map[string]func(*PaymentMetadata){
		"zero user":      func(m *PaymentMetadata) { m.UserID = 0 },
		"negative user":  func(m *PaymentMetadata) { m.UserID = -1 },
		"zero months":    func(m *PaymentMetadata) { m.Months = 0 },
		"negative price": func(m *PaymentMetadata) { m.Price = -1 },
		"empty action":   func(m *PaymentMetadata) { m.Action = "" },
		"empty host":     func(m *PaymentMetadata) { m.HostName = "" },
		"empty method":   func(m *PaymentMetadata) { m.PaymentMethod = "" },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			m := valid()
			mutate(&m)
			if err := m.Validate(); !errors.Is(err, domain.ErrInvalidArgument) {
				t.Fatalf("err = %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestPaymentMetadataJSONOmitsAbsentEmail(t *testing.T) {
	m := PaymentMetadata{
		UserID: 42, Months: 1, Price: 10, Action: "buy",
		HostName: "demo", PaymentMethod: "TON",
	}
	b, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]any
	_ = json.Unmarshal(b, &raw)
	if _, present := raw["customer_email"]; present {
		t.Fatal("absent email must be omitted from the JSON form")
	}
}

func TestTransactionStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to TransactionStatus
		ok       bool
	}{
		{TransactionStatusPending, TransactionStatusPaid, true},
		{TransactionStatusPending, TransactionStatusFailed, true},
		{TransactionStatusPending, TransactionStatusPending, false},
		{TransactionStatusPaid, TransactionStatusFailed, false},
		{TransactionStatusPaid, TransactionStatusPending, false},
		{TransactionStatusFailed, TransactionStatusPaid, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.ok {
			t.Errorf("%s -> %s = %v, want %v", tc.from, tc.to, got, tc.ok)
		}
	}
}
