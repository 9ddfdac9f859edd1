package core

import "time"

type CanteenParams struct {
	Port          int
	MaxConcurrent int
}

const (
	// in seconds for graceful shutdown
	WaitTime = 20

	MBReconnInterval = 5

	TokenCookie = "access_token"

	MinUsernameLen = 3
	MaxUsernameLen = 150
	MinPasswordLen = 8
	MaxNameLen     = 150

	AllowedUsernameSpecials = "@.+-_"

	// Upper bound for a single order line; keeps totals inside NUMERIC(10,2).
	MaxItemQuantity = 100
	MaxOrderLines   = 50
)

// IdempotencyLockTTL bounds how long an in-flight POST /orders keeps its key reserved.
var IdempotencyLockTTL = 30 * time.Second
