// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package fileid

import (
	"encoding/binary"
	"io/fs"
	"os"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sys/unix"
)

func Get(fsys fs.FS, pathname string) (ID, error) {
	f, err := fsys.Open(pathname)
	if err != nil {
		return ID{}, err
	}
	defer f.Close()

	osf, ok := f.(*os.File)
	if !ok {
		return ID{}, ErrNotOS
	}
	conn, err := osf.SyscallConn()
	if err != nil {
		return ID{}, err
	}

	// statx on the open descriptor also gives us the birth time
	var stat unix.Statx_t
	var inerr error
	err = conn.Control(func(fd uintptr) {
		inerr = unix.Statx(int(fd), "",
			unix.AT_EMPTY_PATH|unix.AT_STATX_SYNC_AS_STAT,
			unix.STATX_INO|unix.STATX_SIZE|unix.STATX_MTIME|unix.STATX_BTIME,
			&stat)
	})
	if err != nil {
		return ID{}, err
	} else if inerr != nil {
		return ID{}, inerr
	}

	var id ID
	binary.BigEndian.PutUint64(id[:], stat.Ino)
	h := xxhash.New()
	binary.Write(h, binary.BigEndian, stat.Dev_major)
	binary.Write(h, binary.BigEndian, stat.Dev_minor)
	binary.Write(h, binary.BigEndian, stat.Btime.Sec)
	binary.Write(h, binary.BigEndian, stat.Btime.Nsec)
	binary.Write(h, binary.BigEndian, stat.Mtime.Sec)
	binary.Write(h, binary.BigEndian, stat.Mtime.Nsec)
	binary.Write(h, binary.BigEndian, stat.Size)
	binary.BigEndian.PutUint64(id[8:], h.Sum64())
	return id, nil
}
