//go:build windows

package timer

import (
	"time"

	"golang.org/x/sys/windows"
)

var winmm = windows.NewLazySystemDLL("winmm.dll")
var procTimeBeginPeriod = winmm.NewProc("timeBeginPeriod")
var procTimeEndPeriod = winmm.NewProc("timeEndPeriod")

func beginPlatform(res time.Duration) Session {
	ms := uint32(res / time.Millisecond)
	if ms < 1 {
		ms = 1
	}
	procTimeBeginPeriod.Call(uintptr(ms))
	return Session{end: func() {
		procTimeEndPeriod.Call(uintptr(ms))
	}}
}
