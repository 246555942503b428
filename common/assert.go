package common

import (
	"runtime"

	"github.com/devlights/gomy/output"
	"github.com/sasha-s/go-deadlock"
)

func MG_Assert(condition bool, msg string) {
	if !condition {
		if EnableDebug {
			RuntimeStack()
		}
		panic(msg)
	}
}

type MG_Mutex struct {
	mutex    *deadlock.Mutex
	isLocked bool
}

func NewMG_Mutex() *MG_Mutex {
	return &MG_Mutex{new(deadlock.Mutex), false}
}

func (m *MG_Mutex) Lock() {
	MG_Assert(!m.isLocked, "Mutex is already locked")
	m.mutex.Lock()
	m.isLocked = true
}

func (m *MG_Mutex) Unlock() {
	MG_Assert(m.isLocked, "Mutex is not locked")
	m.mutex.Unlock()
	m.isLocked = false
}

// REFERENCES
//   - https://pkg.go.dev/runtime#Stack
//   - https://stackoverflow.com/questions/19094099/how-to-dump-goroutine-stacktraces
func RuntimeStack() error {
	// channels
	var (
		chAll = make(chan []byte, 1)
	)

	// funcs
	var (
		getStack = func(all bool) []byte {
			// From src/runtime/debug/stack.go
			var (
				buf = make([]byte, 1024)
			)

			for {
				n := runtime.Stack(buf, all)
				if n < len(buf) {
					return buf[:n]
				}
				buf = make([]byte, 2*len(buf))
			}
		}
	)

	// all goroutine
	go func(ch chan<- []byte) {
		defer close(ch)
		ch <- getStack(true)
	}(chAll)

	// result of runtime.Stack(true)
	for v := range chAll {
		output.Stdoutl("=== stack-all   ", string(v))
	}

	return nil
}
