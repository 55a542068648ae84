//go:build !rp2040 && !rp2350

package main

import "os"

func statusInit() {}

func statusDone(ok bool) {
	if ok {
		os.Exit(0)
	}
	os.Exit(1)
}
