package safety

import (
	"context"
	"fmt"
	"time"
)

// escapeProbes must every one be rejected by ValidateCode; a probe slipping
// through means the validator regressed and the process must not serve code
// nodes.
var escapeProbes = []string{
	"import os",
	"from os import path",
	"__import__('os')",
	"eval('1 + 1')",
	"exec('x = 1')",
}

// benignProbes must all pass, or the validator is rejecting legitimate code.
var benignProbes = []string{
	"print(1 + 2)",
	"import json\nprint(json.dumps({'a': 1}))",
	"import math\nsquares = [n * n for n in range(10)]",
}

// SelfTest probes the defences for the enabled dangerous node types at boot.
// A non-nil return means the process must refuse to start.
func SelfTest(enableCodeNode, enableHTTPNode bool) error {
	if enableCodeNode {
		for _, probe := range escapeProbes {
			if err := ValidateCode(probe); err == nil {
				return fmt.Errorf("code validator self-test failed: probe %q was not rejected", probe)
			}
		}

		for _, probe := range benignProbes {
			if err := ValidateCode(probe); err != nil {
				return fmt.Errorf("code validator self-test failed: benign probe rejected: %w", err)
			}
		}
	}

	if enableHTTPNode {
		client := NewSafeClient(time.Second)
		if client.Transport == nil {
			return fmt.Errorf("http safety self-test failed: transport not constructed")
		}

		client.CloseIdleConnections()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		if _, err := EnsureURLSafe(ctx, "http://127.0.0.1/", nil); err == nil {
			return fmt.Errorf("http safety self-test failed: loopback url was not rejected")
		}
	}

	return nil
}
