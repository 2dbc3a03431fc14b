// Package domain contains core concepts of the locals bot: accounts, locals,
// peers, conversation sessions and the chat primitives exchanged with the
// transport. No storage, network or rendering logic should be added here.
package domain

import (
	"fmt"
	"strings"
)

type AccountID int64

// Money is an amount in minor units (cents).
type Money int64

func (m Money) String() string {
	sign := ""
	if m < 0 {
		sign = "-"
		m = -m
	}
	return fmt.Sprintf("%s%d.%02d", sign, m/100, m%100)
}

type Account struct {
	ID          AccountID
	ExternalID  int64
	DisplayName string
	Balance     Money
}

// Profile is what the chat platform tells us about the sender.
type Profile struct {
	FirstName string
	LastName  string
	Username  string
}

func (p Profile) DisplayName() string {
	name := strings.TrimSpace(strings.Join([]string{p.FirstName, p.LastName}, " "))
	if name != "" {
		return name
	}
	if p.Username != "" {
		return "@" + p.Username
	}
	return "stranger"
}
