//go:build !linux

package board

import "fmt"

func openSysfs(chipPath string) (Board, error) {
	return nil, fmt.Errorf("board: sysfs pwm unsupported on this platform")
}

var openSysfsFn = openSysfs
