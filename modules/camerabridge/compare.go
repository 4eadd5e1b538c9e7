package camerabridge

import "log/slog"

// GreaterThan returns 1 when a > b and 0 otherwise (including NaN operands)
func GreaterThan(a, b float32) int {
	if a > b {
		return 1
	}
	return 0
}

// GreaterThanCallback adapts GreaterThan to the three-argument native shape,
// logging the payload the library passed along.
func GreaterThanCallback(a, b float32, payload []byte) int {
	r := GreaterThan(a, b)
	slog.Debug("camerabridge: compare callback",
		"a", a,
		"b", b,
		"payload_len", len(payload),
		"result", r,
	)
	return r
}
