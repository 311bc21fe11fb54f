//go:build unix

package walk

import (
	"os"
	"syscall"
)

func statDevIno(info os.FileInfo) (devIno, bool) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return devIno{}, false
	}
	return devIno{dev: uint64(st.Dev), ino: st.Ino}, true
}

func statPathDevIno(path string) (devIno, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return devIno{}, false
	}
	return statDevIno(info)
}
