//go:build !linux || (!arm && !arm64)

package board

import "fmt"

func openRPIO() (Board, error) {
	return nil, fmt.Errorf("board: rpio unsupported on this platform")
}

var openRPIOFn = openRPIO
