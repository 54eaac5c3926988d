//go:build !linux

package board

import "fmt"

func openGPIOCdev(chipPath string) (Board, error) {
	return nil, fmt.Errorf("board: gpiocdev unsupported on this platform")
}

var openGPIOCdevFn = openGPIOCdev
