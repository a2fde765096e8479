//go:build !linux && !windows

package log

import "os"

// redirectStderr 其他平台只替换os.Stderr
func redirectStderr(errorFile string) error {
	f, err := os.OpenFile(errorFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return err
	}
	os.Stderr = f
	return nil
}
