//go:build unix

package selfpipe

import (
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWait_TimeoutReturnsNil(t *testing.T) {
	p := New()
	defer p.Stop()

	sig := p.Wait(20 * time.Millisecond)
	assert.Nil(t, sig)
}

func TestWait_DeliversSignal(t *testing.T) {
	p := New()
	defer p.Stop()

	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = syscall.Kill(os.Getpid(), syscall.SIGHUP)
	}()

	sig := p.Wait(time.Second)
	assert.Equal(t, syscall.SIGHUP, sig)
}
