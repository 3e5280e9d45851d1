package cliaction

import (
	"fmt"
	"os"
	"time"
)

// settle blocks until a just-written launch script can be reopened and
// synced, probing for residual locks from the write. Some hosts briefly
// hold the file after the writing handle closes; launching the script in
// that window fails.
//
// The probe retries up to attempts times with pause sleeps between tries.
// A timeout is reported to the caller, which launches anyway.
func settle(path string, pause time.Duration, attempts int) error {
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		f, err := os.OpenFile(path, os.O_RDWR, 0)
		if err == nil {
			syncErr := f.Sync()
			closeErr := f.Close()
			if syncErr == nil && closeErr == nil {
				return nil
			}
			lastErr = syncErr
			if lastErr == nil {
				lastErr = closeErr
			}
		} else {
			lastErr = err
		}
		if i < attempts-1 {
			time.Sleep(pause)
		}
	}
	return fmt.Errorf("cliaction: script %s did not settle after %d attempts: %w", path, attempts, lastErr)
}
